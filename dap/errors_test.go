package dap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDapError_Is(t *testing.T) {
	err := &DapError{Kind: WaitResponse}
	assert.True(t, errors.Is(err, ErrWaitResponse))
	assert.False(t, errors.Is(err, ErrFaultResponse))

	protoErr := &DapError{Kind: ProtocolError, Wire: ProtocolSWD}
	assert.True(t, errors.Is(protoErr, &DapError{Kind: ProtocolError, Wire: ProtocolJTAG}))
	assert.Contains(t, protoErr.Error(), "SWD")
}

func TestDebugProbeError_Unwrap(t *testing.T) {
	cause := errors.New("usb timeout")
	wrapped := WrapProbeError("write", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "write")

	assert.Nil(t, WrapProbeError("write", nil))
}

func TestArmError_WrapsOnce(t *testing.T) {
	cause := ErrFaultResponse
	wrapped := armError(cause)
	assert.ErrorIs(t, wrapped, ErrFaultResponse)

	rewrapped := armError(wrapped)
	assert.Same(t, wrapped, rewrapped)

	assert.Nil(t, armError(nil))
}

func TestWireProtocol_String(t *testing.T) {
	assert.Equal(t, "SWD", ProtocolSWD.String())
	assert.Equal(t, "JTAG", ProtocolJTAG.String())
}
