package dap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeJTAGPayload_Abort(t *testing.T) {
	tr := abortTransfer(AbortFlags{DapAbort: true})
	payload, ir := EncodeJTAGPayload(&tr)
	assert.Equal(t, uint32(irAbort), ir)
	assert.Equal(t, jtagAbortPayload, payload)
}

func TestEncodeJTAGPayload_SelectsIR(t *testing.T) {
	dpTr := ReadTransfer(DPRegister(0x4))
	_, ir := EncodeJTAGPayload(&dpTr)
	assert.Equal(t, uint32(irDebugPort), ir)

	apTr := ReadTransfer(APRegister(0, 0xC))
	_, ir = EncodeJTAGPayload(&apTr)
	assert.Equal(t, uint32(irAccessPort), ir)
}

// Payload law: for any (address, direction, value), the encoded JTAG DR
// payload carries the direction in bit 0 and, for writes, the written value
// in bits [34:3].
func TestJTAGPayload_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		isAP := rapid.Bool().Draw(rt, "isAP")
		addrBits := rapid.Uint8Range(0, 0xF).Draw(rt, "addr")
		dir := Read
		if rapid.Bool().Draw(rt, "write") {
			dir = Write
		}
		v := rapid.Uint32().Draw(rt, "v")

		var addr RegisterAddress
		if isAP {
			addr = APRegister(0, addrBits&0xC)
		} else {
			addr = DPRegister(addrBits & 0xC)
		}

		var tr DapTransfer
		if dir == Read {
			tr = ReadTransfer(addr)
		} else {
			tr = WriteTransfer(addr, v)
		}

		payload, _ := EncodeJTAGPayload(&tr)
		readBit := payload & 1
		if dir == Read {
			assert.Equal(rt, uint64(1), readBit)
		} else {
			assert.Equal(rt, uint64(0), readBit)
			assert.Equal(rt, uint64(v), payload>>3)
		}
	})
}

func TestDecodeJTAGResponse_StatusMapping(t *testing.T) {
	v, status := DecodeJTAGResponse(jtagOK(0xCAFE))
	require.True(t, status.IsOK())
	assert.Equal(t, uint32(0xCAFE), v)

	_, status = DecodeJTAGResponse(jtagWait())
	assert.True(t, status.IsFailed())
	assert.ErrorIs(t, status.Err(), ErrWaitResponse)

	_, status = DecodeJTAGResponse(0x0) // status bits 000: neither WAIT nor OK
	assert.True(t, status.IsFailed())
	assert.ErrorIs(t, status.Err(), ErrNoAcknowledge)
}

func TestPayloadBytesRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.Uint64Range(0, (1<<jtagDRBits)-1).Draw(rt, "payload")
		assert.Equal(rt, payload, bytesToPayload(payloadToBytes(payload)))
	})
}
