package dap

// JTAG IR values selecting which DAP register space a 35-bit DR shift
// addresses.
const (
	irAbort       uint32 = 0x8
	irDebugPort   uint32 = 0xA
	irAccessPort  uint32 = 0xB
)

// jtagAbortPayload is the fixed DR payload for an ABORT-write DR shift.
const jtagAbortPayload uint64 = 0x8

// jtagDRBits is the fixed width of every ARM DAP JTAG DR shift.
const jtagDRBits = 35

// JTAG response status codes embedded in bits [2:0] of a 35-bit response.
const (
	jtagStatusWait uint32 = 0x1
	jtagStatusOK   uint32 = 0x2
)

// EncodeJTAGPayload builds the 35-bit DR payload and selecting IR value for
// a DAP transfer. ABORT writes are special-cased to the fixed 0x8 payload
// at IR 0x8.
func EncodeJTAGPayload(t *DapTransfer) (payload uint64, ir uint32) {
	if t.IsAbort() {
		return jtagAbortPayload, irAbort
	}

	ir = irDebugPort
	if t.Address.IsAP() {
		ir = irAccessPort
	}

	portAddress := uint64(t.Address.A2And3())
	payload = uint64(t.Value) << 3
	payload |= (portAddress & 0b1000) >> 1
	payload |= (portAddress & 0b0100) >> 1
	if t.Direction == Read {
		payload |= 1
	}

	return payload, ir
}

// DecodeJTAGResponse splits a 35-bit JTAG DR response into its 32-bit value
// and 3-bit status, mapping status to a TransferStatus.
func DecodeJTAGResponse(received uint64) (value uint32, status TransferStatus) {
	value = uint32(received >> 3)
	statusBits := uint32(received & 0b111)

	switch statusBits {
	case jtagStatusOK:
		status = OKStatus()
	case jtagStatusWait:
		status = FailedStatus(ErrWaitResponse)
	default:
		status = FailedStatus(ErrNoAcknowledge)
	}

	return value, status
}

// payloadToBytes packs a 35-bit-significant uint64 payload into the 5
// little-endian bytes write_register expects (35 bits rounds up to 5 bytes
// on the wire; the shift register only clocks out jtagDRBits of them).
func payloadToBytes(payload uint64) []byte {
	buf := make([]byte, 5)
	for i := range buf {
		buf[i] = byte(payload >> uint(8*i))
	}
	return buf
}

// bytesToPayload is the inverse of payloadToBytes, reconstructing a uint64
// from up to 8 little-endian bytes (callers only ever pass the 5 bytes a
// 35-bit shift produces, but this tolerates shorter/longer buffers too).
func bytesToPayload(data []byte) uint64 {
	var v uint64
	for i, b := range data {
		if i >= 8 {
			break
		}
		v |= uint64(b) << uint(8*i)
	}
	return v
}
