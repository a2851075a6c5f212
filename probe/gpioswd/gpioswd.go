// Package gpioswd implements dap.SwdIO by bit-banging SWCLK/SWDIO directly
// through Linux GPIO character devices, the cheap/home-built class of SWD
// adapter commonly wired straight to an SBC's header pins.
package gpioswd

import (
	"context"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/swdprobe/adiv5/dap"
)

// Probe drives one SWD port over two GPIO lines on a Linux gpiochip.
type Probe struct {
	chip        *gpiocdev.Chip
	clk         *gpiocdev.Line
	dio         *gpiocdev.Line
	idleCycles  uint8
	settings    dap.SwdSettings
	stats       dap.Statistics
}

// Config names the gpiochip and line offsets to drive.
type Config struct {
	Chip       string // e.g. "gpiochip0"
	ClkOffset  int
	DioOffset  int
	Settings   dap.SwdSettings
}

// Open claims the SWCLK and SWDIO lines as outputs, SWCLK low and SWDIO
// high, ready for
// SwdIO to drive/sample sequences.
func Open(cfg Config) (*Probe, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, dap.WrapProbeError("gpiocdev open chip", err)
	}

	clk, err := chip.RequestLine(cfg.ClkOffset, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, dap.WrapProbeError("gpiocdev request swclk", err)
	}

	dio, err := chip.RequestLine(cfg.DioOffset, gpiocdev.AsOutput(1))
	if err != nil {
		clk.Close()
		chip.Close()
		return nil, dap.WrapProbeError("gpiocdev request swdio", err)
	}

	settings := cfg.Settings
	if (settings == dap.SwdSettings{}) {
		settings = dap.DefaultSettings()
	}

	return &Probe{chip: chip, clk: clk, dio: dio, settings: settings}, nil
}

// Close releases both GPIO lines and the chip handle.
func (p *Probe) Close() error {
	var errs []error
	if err := p.dio.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.clk.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.chip.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("gpioswd: close: %v", errs)
	}
	return nil
}

// SwdIO implements dap.SwdIO: drive SWCLK/SWDIO once per item in seq,
// sampling SWDIO on every Input item immediately before the clock's rising
// edge (the "falling edge sampling" convention this engine's response
// parser assumes, see dap.ParseSWDResponse).
func (p *Probe) SwdIO(ctx context.Context, seq dap.IoSequence) ([]bool, error) {
	result := make([]bool, 0, len(seq))

	for _, item := range seq {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := p.dio.Reconfigure(gpiocdev.AsOutput(boolToLine(item.Kind == dap.IoOutput && item.Value))); err != nil {
			return nil, fmt.Errorf("gpioswd: drive swdio: %w", err)
		}

		if err := p.clk.SetValue(0); err != nil {
			return nil, fmt.Errorf("gpioswd: clock low: %w", err)
		}

		if item.Kind == dap.IoInput {
			if err := p.dio.Reconfigure(gpiocdev.AsInput); err != nil {
				return nil, fmt.Errorf("gpioswd: sample swdio: %w", err)
			}
			v, err := p.dio.Value()
			if err != nil {
				return nil, fmt.Errorf("gpioswd: read swdio: %w", err)
			}
			result = append(result, v != 0)
		} else {
			result = append(result, item.Value)
		}

		if err := p.clk.SetValue(1); err != nil {
			return nil, fmt.Errorf("gpioswd: clock high: %w", err)
		}
	}

	return result, nil
}

func boolToLine(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SetIdleCycles and IdleCycles let the SWD executor record the probe's
// configured idle-cycle padding, though on this back-end idle cycles are
// just extra zero-driven IoOutput items the caller already appends.
func (p *Probe) SetIdleCycles(n uint8) error { p.idleCycles = n; return nil }
func (p *Probe) IdleCycles() uint8           { return p.idleCycles }

// ActiveProtocol always reports SWD; this back-end never speaks JTAG.
func (p *Probe) ActiveProtocol() (dap.WireProtocol, error) { return dap.ProtocolSWD, nil }

func (p *Probe) SwdSettings() dap.SwdSettings   { return p.settings }
func (p *Probe) ProbeStatistics() *dap.Statistics { return &p.stats }

// WriteRegister and WriteRegisterBatch satisfy dap.JtagAccess so Probe
// still implements the full dap.Probe surface; both reject use since this
// back-end has no JTAG TAP.
func (p *Probe) WriteRegister(ctx context.Context, irAddr uint32, data []byte, lenBits uint32) ([]byte, error) {
	return nil, fmt.Errorf("gpioswd: JTAG not supported")
}

func (p *Probe) WriteRegisterBatch(ctx context.Context, queue *dap.CommandQueue) (*dap.BatchResults, error) {
	return nil, fmt.Errorf("gpioswd: JTAG not supported")
}
