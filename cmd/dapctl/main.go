// Command dapctl reads or writes a single DP/AP register against a
// configured probe back-end, exercising RawDapAccess end to end including
// WAIT-retry and FAULT recovery.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/swdprobe/adiv5/dap"
	"github.com/swdprobe/adiv5/probe/gpioswd"
	"github.com/swdprobe/adiv5/probe/serialswd"
)

func main() {
	var (
		protocolName = pflag.StringP("protocol", "P", "swd", "wire protocol to use: swd or jtag")
		back         = pflag.StringP("backend", "b", "gpio", "probe back-end: gpio or serial")
		device       = pflag.StringP("device", "D", "/dev/ttyACM0", "serial device path (serial back-end only)")
		chip         = pflag.String("chip", "gpiochip0", "gpiochip device name (gpio back-end only)")
		clkOffset    = pflag.Int("clk", 11, "SWCLK gpio line offset (gpio back-end only)")
		dioOffset    = pflag.Int("dio", 25, "SWDIO gpio line offset (gpio back-end only)")
		ap           = pflag.Bool("ap", false, "address an Access Port register instead of the Debug Port")
		apIndex      = pflag.Uint8("ap-index", 0, "Access Port index when -ap is set")
		addr         = pflag.Uint8("addr", 0, "register byte address (bits 2:3 significant)")
		writeValue   = pflag.String("write", "", "value to write, hex or decimal; omit to read")
		settingsFile = pflag.StringP("settings", "s", "", "YAML file of SwdSettings overrides")
		verbose      = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	if *verbose {
		l := log.NewWithOptions(os.Stderr, log.Options{Prefix: "dapctl"})
		l.SetLevel(log.DebugLevel)
		dap.SetLogger(l)
	}

	settings := dap.DefaultSettings()
	if *settingsFile != "" {
		loaded, err := dap.LoadSettings(*settingsFile)
		if err != nil {
			fatal(err)
		}
		settings = loaded
	}

	protocol, err := parseProtocol(*protocolName)
	if err != nil {
		fatal(err)
	}

	probe, closeProbe, err := openProbe(*back, protocol, settings, *device, *chip, *clkOffset, *dioOffset)
	if err != nil {
		fatal(err)
	}
	defer closeProbe()

	address := dap.DPRegister(*addr)
	if *ap {
		address = dap.APRegister(*apIndex, *addr)
	}

	access := dap.NewRawDapAccess(probe)
	ctx := context.Background()

	if *writeValue == "" {
		value, err := access.RawReadRegister(ctx, address)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("0x%08x\n", value)
		return
	}

	var value uint32
	if _, err := fmt.Sscanf(*writeValue, "0x%x", &value); err != nil {
		if _, err := fmt.Sscanf(*writeValue, "%d", &value); err != nil {
			fatal(fmt.Errorf("dapctl: invalid -write value %q", *writeValue))
		}
	}
	if err := access.RawWriteRegister(ctx, address, value); err != nil {
		fatal(err)
	}
}

func parseProtocol(name string) (dap.WireProtocol, error) {
	switch name {
	case "swd":
		return dap.ProtocolSWD, nil
	case "jtag":
		return dap.ProtocolJTAG, nil
	default:
		return 0, fmt.Errorf("dapctl: unknown protocol %q", name)
	}
}

func openProbe(backend string, protocol dap.WireProtocol, settings dap.SwdSettings, device, chip string, clkOffset, dioOffset int) (dap.Probe, func(), error) {
	switch backend {
	case "gpio":
		if protocol != dap.ProtocolSWD {
			return nil, nil, fmt.Errorf("dapctl: gpio back-end only supports swd")
		}
		p, err := gpioswd.Open(gpioswd.Config{Chip: chip, ClkOffset: clkOffset, DioOffset: dioOffset, Settings: settings})
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil

	case "serial":
		p, err := serialswd.Open(device, 0, protocol, settings)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("dapctl: unknown backend %q", backend)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "dapctl:", err)
	os.Exit(1)
}
