package dap

import (
	"context"

	"github.com/boljen/go-bitmap"
)

// SwdIO is the probe-facing primitive consumed for SWD transfers: drive/
// sample an IoSequence once, returning one bool per Input item (Output
// items are echoed back too, purely so offsets line up; callers ignore
// them).
type SwdIO interface {
	SwdIO(ctx context.Context, seq IoSequence) ([]bool, error)
}

// JtagAccess is the probe-facing primitive consumed for JTAG transfers: a
// single DR shift at the given IR address, plus a batched queue primitive
// executed in order up to the first protocol error.
type JtagAccess interface {
	WriteRegister(ctx context.Context, irAddr uint32, data []byte, lenBits uint32) ([]byte, error)
	WriteRegisterBatch(ctx context.Context, queue *CommandQueue) (*BatchResults, error)
	SetIdleCycles(n uint8) error
	IdleCycles() uint8
}

// DebugProbeControl exposes the non-transfer facilities the engine needs
// from the probe: protocol selection, timing configuration, and counters.
type DebugProbeControl interface {
	ActiveProtocol() (WireProtocol, error)
	SwdSettings() SwdSettings
	ProbeStatistics() *Statistics
}

// Probe is the full capability surface RawDapAccess needs from a
// back-end. An implementer may satisfy it with one struct holding optional
// function tables, or with separate types composed together - the engine
// itself only ever branches on ActiveProtocol(), never on the concrete
// type.
type Probe interface {
	SwdIO
	JtagAccess
	DebugProbeControl
}

// Capability bits for Capabilities, a go-bitmap feature-flag set recording
// which of SwdIO/JtagAccess/DebugProbeControl a probe implements, without a
// heap-allocated interface value per capability.
const (
	CapSwdIO = iota
	CapJtagAccess
	CapDebugProbeControl
	numCapabilities
)

// Capabilities is a bitmap of which optional facilities a probe back-end
// implements, queried by tooling (e.g. cmd/probelist) that wants to know
// what a probe can do before attempting to use it.
type Capabilities struct {
	flags bitmap.Bitmap
}

// NewCapabilities builds a Capabilities set, probing iface for the
// standard capability interfaces.
func NewCapabilities(iface interface{}) Capabilities {
	c := Capabilities{flags: bitmap.New(numCapabilities)}
	if _, ok := iface.(SwdIO); ok {
		c.flags.Set(CapSwdIO, true)
	}
	if _, ok := iface.(JtagAccess); ok {
		c.flags.Set(CapJtagAccess, true)
	}
	if _, ok := iface.(DebugProbeControl); ok {
		c.flags.Set(CapDebugProbeControl, true)
	}
	return c
}

func (c Capabilities) Has(bit int) bool { return c.flags.Get(bit) }

// Names lists the capability names this set has, in bit order - a
// convenience for tooling that just wants to print what a backend type
// offers, e.g. "swd,jtag,ctrl".
func (c Capabilities) Names() []string {
	var names []string
	if c.Has(CapSwdIO) {
		names = append(names, "swd")
	}
	if c.Has(CapJtagAccess) {
		names = append(names, "jtag")
	}
	if c.Has(CapDebugProbeControl) {
		names = append(names, "ctrl")
	}
	return names
}
