package dap

import (
	"errors"
	"fmt"
)

// WireProtocol is the physical wire protocol carrying the DAP.
type WireProtocol int

const (
	ProtocolSWD WireProtocol = iota
	ProtocolJTAG
)

func (p WireProtocol) String() string {
	switch p {
	case ProtocolSWD:
		return "SWD"
	case ProtocolJTAG:
		return "JTAG"
	default:
		return "unknown"
	}
}

// DapErrorKind enumerates the protocol-level ADIv5 failures a transfer can
// report.
type DapErrorKind int

const (
	WaitResponse DapErrorKind = iota
	FaultResponse
	NoAcknowledge
	IncorrectParity
	ProtocolError
)

func (k DapErrorKind) String() string {
	switch k {
	case WaitResponse:
		return "WAIT"
	case FaultResponse:
		return "FAULT"
	case NoAcknowledge:
		return "no acknowledge"
	case IncorrectParity:
		return "incorrect parity"
	case ProtocolError:
		return "protocol error"
	default:
		return "unknown DAP error"
	}
}

// DapError is a protocol-level ADIv5 failure. It is never a transport
// failure - see DebugProbeError for that.
type DapError struct {
	Kind DapErrorKind
	Wire WireProtocol // meaningful only for Kind == ProtocolError
}

func (e *DapError) Error() string {
	if e.Kind == ProtocolError {
		return fmt.Sprintf("dap: protocol error on %s", e.Wire)
	}
	return "dap: " + e.Kind.String()
}

// Is lets callers write errors.Is(err, dap.ErrWaitResponse) and friends
// without needing to know the Wire field.
func (e *DapError) Is(target error) bool {
	other, ok := target.(*DapError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinel DapErrors for errors.Is comparisons that don't care about Wire.
var (
	ErrWaitResponse    = &DapError{Kind: WaitResponse}
	ErrFaultResponse   = &DapError{Kind: FaultResponse}
	ErrNoAcknowledge   = &DapError{Kind: NoAcknowledge}
	ErrIncorrectParity = &DapError{Kind: IncorrectParity}
)

// DebugProbeError wraps a transport-level failure (USB, driver, serial I/O)
// that is fatal to the current call and propagated unchanged to the caller.
type DebugProbeError struct {
	Op    string
	Cause error
}

func (e *DebugProbeError) Error() string {
	return fmt.Sprintf("debug probe: %s: %v", e.Op, e.Cause)
}

func (e *DebugProbeError) Unwrap() error { return e.Cause }

// WrapProbeError wraps a transport error as a DebugProbeError, or returns
// nil if err is nil.
func WrapProbeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DebugProbeError{Op: op, Cause: err}
}

// ArmError is the public error type returned by RawDapAccess, wrapping
// either a DapError or a DebugProbeError.
type ArmError struct {
	Cause error
}

func (e *ArmError) Error() string { return fmt.Sprintf("arm: %v", e.Cause) }

func (e *ArmError) Unwrap() error { return e.Cause }

// armError wraps an error as an ArmError, or returns nil if err is nil.
func armError(err error) error {
	if err == nil {
		return nil
	}
	var already *ArmError
	if errors.As(err, &already) {
		return err
	}
	return &ArmError{Cause: err}
}

// trap panics with msg; used for combinations that should never occur in a
// correctly-wired executor (e.g. a transfer left Pending after a completed
// batch).
func trap(msg string) {
	panic("dap: " + msg)
}
