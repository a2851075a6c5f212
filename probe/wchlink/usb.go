// Package wchlink implements the WCH-Link USB probe back-end: a thin
// gousb transport plus a DmiShim translating RISC-V JTAG DTM reads/writes
// into the vendor's USB DMI command set.
package wchlink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// USB identity of the WCH-Link adapter family.
const (
	VendorID  gousb.ID = 0x1a86
	ProductID gousb.ID = 0x8010
)

const (
	endpointOut = 0x02
	endpointIn  = 0x82

	usbTimeout = 2 * time.Second
)

// Transport owns the claimed USB interface and moves raw command/response
// packets across the bulk endpoints, grounded on bbnote-gostlink's usbRead/
// usbWrite (context-timeout WriteContext/ReadContext over gousb endpoints)
// and on OpenTraceJTAG's equivalent use of gousb for a JTAG probe.
type Transport struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	iface   *gousb.Interface
	outEp   *gousb.OutEndpoint
	inEp    *gousb.InEndpoint
}

// Open finds and claims the first attached WCH-Link device.
func Open() (*Transport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("wchlink: no device matching %04x:%04x found", VendorID, ProductID)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: set auto detach: %w", err)
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: claim config: %w", err)
	}

	iface, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: claim interface: %w", err)
	}

	outEp, err := iface.OutEndpoint(endpointOut)
	if err != nil {
		iface.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open out endpoint: %w", err)
	}

	inEp, err := iface.InEndpoint(endpointIn)
	if err != nil {
		iface.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open in endpoint: %w", err)
	}

	return &Transport{ctx: ctx, dev: dev, cfg: cfg, iface: iface, outEp: outEp, inEp: inEp}, nil
}

// Close releases the interface, configuration, device and libusb context.
func (t *Transport) Close() error {
	t.iface.Close()
	t.cfg.Close()
	t.dev.Close()
	t.ctx.Close()
	return nil
}

// Exchange writes cmd and reads up to len(reply) bytes of response,
// bounding both with usbTimeout the way usbWrite/usbRead do with their own
// context.WithTimeout wrapping.
func (t *Transport) Exchange(ctx context.Context, cmd []byte, reply []byte) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, usbTimeout)
	defer cancel()

	if _, err := t.outEp.WriteContext(opCtx, cmd); err != nil {
		return 0, fmt.Errorf("wchlink: usb write: %w", err)
	}

	n, err := t.inEp.ReadContext(opCtx, reply)
	if err != nil {
		return n, fmt.Errorf("wchlink: usb read: %w", err)
	}
	return n, nil
}
