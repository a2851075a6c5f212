// Command probelist enumerates locally attached candidate debug probes
// (USB devices matching known probe VID/PIDs) as an operator convenience.
// Serial devices are not listed. It never opens or claims a device - USB
// enumeration and claiming stay out of the transfer engine's scope.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jochenvg/go-udev"
	"github.com/spf13/pflag"

	"github.com/swdprobe/adiv5/dap"
	"github.com/swdprobe/adiv5/probe/wchlink"
)

// knownProbe names a USB vendor/product pair this tool recognizes.
type knownProbe struct {
	vendor, product string
	name            string

	// backend is a typed nil pointer to the dap.Probe implementation this
	// probe model is driven through. dap.NewCapabilities only inspects
	// iface's type, never calls a method on it, so this reports what the
	// backend implements without opening or claiming the device.
	backend interface{}
}

var knownProbes = []knownProbe{
	{
		vendor:  fmt.Sprintf("%04x", uint16(wchlink.VendorID)),
		product: fmt.Sprintf("%04x", uint16(wchlink.ProductID)),
		name:    "WCH-Link",
		backend: (*wchlink.DmiShim)(nil),
	},
}

func main() {
	showAll := pflag.BoolP("all", "a", false, "list every USB device, not just recognized probes")
	pflag.Parse()

	u := udev.Udev{}
	enumerate := u.NewEnumerate()
	if err := enumerate.AddMatchSubsystem("usb"); err != nil {
		fatal(err)
	}

	devices, err := enumerate.Devices()
	if err != nil {
		fatal(err)
	}

	found := 0
	for _, dev := range devices {
		vendor := dev.PropertyValue("ID_VENDOR_ID")
		product := dev.PropertyValue("ID_MODEL_ID")
		if vendor == "" || product == "" {
			continue
		}

		p := matchKnownProbe(vendor, product)
		name := "unrecognized"
		caps := ""
		if p != nil {
			name = p.name
			caps = " caps=" + strings.Join(dap.NewCapabilities(p.backend).Names(), ",")
		} else if !*showAll {
			continue
		}

		found++
		fmt.Printf("%-20s vid=%s pid=%s devnode=%s%s\n", name, vendor, product, dev.Devnode(), caps)
	}

	if found == 0 {
		fmt.Println("no probes found")
	}
}

func matchKnownProbe(vendor, product string) *knownProbe {
	for i := range knownProbes {
		if knownProbes[i].vendor == vendor && knownProbes[i].product == product {
			return &knownProbes[i]
		}
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "probelist:", err)
	os.Exit(1)
}
