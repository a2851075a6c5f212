package dap

import "math/bits"

// IoKind tags one slot of an IoSequence: a bit the probe drives, or a bit
// the probe samples and reports back.
type IoKind uint8

const (
	IoOutput IoKind = iota
	IoInput
)

// IoItem is one bit-time on the wire: either Output(Value) (the probe
// drives Value onto SWDIO) or Input (the probe samples SWDIO and reports
// the result). Concatenable sequences of these make up a BitFrame.
type IoItem struct {
	Kind  IoKind
	Value bool // meaningful only when Kind == IoOutput
}

// IoSequence is an ordered, concatenable sequence of drive/sample actions
// representing one or more SWD transfers.
type IoSequence []IoItem

// AddOutput appends a driven bit.
func (s *IoSequence) AddOutput(bit bool) {
	*s = append(*s, IoItem{Kind: IoOutput, Value: bit})
}

// AddInput appends a sampled bit.
func (s *IoSequence) AddInput() {
	*s = append(*s, IoItem{Kind: IoInput})
}

// AddInputs appends n sampled bits.
func (s *IoSequence) AddInputs(n int) {
	for i := 0; i < n; i++ {
		s.AddInput()
	}
}

// Extend appends other's items in order.
func (s *IoSequence) Extend(other IoSequence) {
	*s = append(*s, other...)
}

// swdFrameBits is the fixed length, in bits, of an SWD transfer's wire
// frame excluding trailing idle cycles: 8 request bits (start, APnDP, RnW,
// A2, A3, parity, stop, park) followed by 38 bits of turnaround/ack/data/
// parity, for both read and write.
const swdFrameBits = 46

// dataParity returns the odd/even parity bit ARM uses for 32-bit SWD data
// phases: 1 iff the population count of v is odd.
func dataParity(v uint32) bool {
	return bits.OnesCount32(v)%2 == 1
}

// BuildSWDTransfer assembles the bit-exact SWD request+response IoSequence
// for a single transfer. It emits only the fixed 46-bit frame; trailing
// zero-driven idle cycles are added by DapTransfer.ioSequence.
func BuildSWDTransfer(address RegisterAddress, direction Direction, value uint32) IoSequence {
	apNDP := address.IsAP()
	isRead := direction == Read
	a2 := address.A2()
	a3 := address.A3()

	seq := make(IoSequence, 0, swdFrameBits)

	// Request phase (8 bits, all driven).
	seq.AddOutput(true)  // Start
	seq.AddOutput(apNDP) // APnDP
	seq.AddOutput(isRead) // RnW
	seq.AddOutput(a2)
	seq.AddOutput(a3)
	seq.AddOutput(apNDP != isRead != a2 != a3) // Parity: XOR of APnDP, RnW, A2, A3
	seq.AddOutput(false)                       // Stop
	seq.AddOutput(true)                        // Park

	// Turnaround + ACK (4 bits, all sampled).
	seq.AddInput()     // Turnaround
	seq.AddInputs(3)   // ACK

	if isRead {
		seq.AddInputs(32) // Data
		seq.AddInput()    // Data parity
		seq.AddInput()    // Turnaround
	} else {
		seq.AddInput() // Turnaround before driving data
		for i := 0; i < 32; i++ {
			seq.AddOutput(value&(1<<uint(i)) != 0)
		}
		seq.AddOutput(dataParity(value))
	}

	return seq
}

// ioSequence is BuildSWDTransfer plus this transfer's trailing idle cycles,
// driven low.
func (t *DapTransfer) ioSequence() IoSequence {
	seq := BuildSWDTransfer(t.Address, t.Direction, t.Value)
	for i := 0; i < t.IdleCyclesAfter; i++ {
		seq.AddOutput(false)
	}
	return seq
}

// OutSequence is the output-only variant of IoSequence used for raw
// line-switching sequences (swj_sequence / jtag_sequence).
type OutSequence struct {
	bits []bool
}

func NewOutSequence() *OutSequence { return &OutSequence{} }

// OutSequenceFromBits packs the low bitLen bits of v, LSB first, into an
// OutSequence.
func OutSequenceFromBits(v uint64, bitLen int) *OutSequence {
	s := &OutSequence{bits: make([]bool, 0, bitLen)}
	for i := 0; i < bitLen; i++ {
		s.AddOutput(v&(1<<uint(i)) != 0)
	}
	return s
}

func (s *OutSequence) AddOutput(bit bool) { s.bits = append(s.bits, bit) }
func (s *OutSequence) Len() int           { return len(s.bits) }
func (s *OutSequence) Bits() []bool       { return s.bits }

// IoSequence converts this output-only sequence into a full IoSequence.
func (s *OutSequence) IoSequence() IoSequence {
	seq := make(IoSequence, 0, len(s.bits))
	for _, b := range s.bits {
		seq.AddOutput(b)
	}
	return seq
}
