package dap

import (
	"context"
	"math/bits"
)

// fakeProbeImpl is a scripted dap.Probe used across the package's tests. Each
// SwdIO call consumes the next entry of swdCalls (a flat list of bits for
// every Input item in that call's sequence, in order); each
// WriteRegisterBatch call consumes the next entry of jtagCalls (one raw
// 35-bit response per queued command, status embedded in bits [2:0],
// stopping the batch at the first non-OK status).
type fakeProbeImpl struct {
	protocol WireProtocol
	settings SwdSettings
	stats    Statistics
	idle     uint8

	swdCalls   [][]bool
	swdCallIdx int

	jtagCalls   [][]uint64
	jtagCallIdx int
}

func newFakeSWDProbe(swdCalls [][]bool) *fakeProbeImpl {
	return &fakeProbeImpl{protocol: ProtocolSWD, settings: DefaultSettings(), swdCalls: swdCalls}
}

func newFakeJTAGProbe(jtagCalls [][]uint64) *fakeProbeImpl {
	return &fakeProbeImpl{protocol: ProtocolJTAG, settings: DefaultSettings(), jtagCalls: jtagCalls}
}

func (p *fakeProbeImpl) SwdIO(ctx context.Context, seq IoSequence) ([]bool, error) {
	script := p.swdCalls[p.swdCallIdx]
	p.swdCallIdx++

	result := make([]bool, 0, len(seq))
	scriptPos := 0
	for _, item := range seq {
		if item.Kind == IoOutput {
			result = append(result, item.Value)
			continue
		}
		result = append(result, script[scriptPos])
		scriptPos++
	}
	return result, nil
}

func (p *fakeProbeImpl) WriteRegister(ctx context.Context, irAddr uint32, data []byte, lenBits uint32) ([]byte, error) {
	panic("fakeProbeImpl: WriteRegister not used by these tests")
}

func (p *fakeProbeImpl) WriteRegisterBatch(ctx context.Context, queue *CommandQueue) (*BatchResults, error) {
	script := p.jtagCalls[p.jtagCallIdx]
	p.jtagCallIdx++

	n := len(queue.Commands())
	raw := make([]uint64, 0, n)
	for i := 0; i < n && i < len(script); i++ {
		raw = append(raw, script[i])
		if status := script[i] & 0b111; status != jtagStatusOK {
			cause := error(ErrNoAcknowledge)
			if status == jtagStatusWait {
				cause = ErrWaitResponse
			}
			return nil, &PartialBatchError{Results: NewBatchResults(queue, raw), Cause: cause}
		}
	}
	return NewBatchResults(queue, raw), nil
}

func (p *fakeProbeImpl) SetIdleCycles(n uint8) error { p.idle = n; return nil }
func (p *fakeProbeImpl) IdleCycles() uint8           { return p.idle }

func (p *fakeProbeImpl) ActiveProtocol() (WireProtocol, error) { return p.protocol, nil }
func (p *fakeProbeImpl) SwdSettings() SwdSettings              { return p.settings }
func (p *fakeProbeImpl) ProbeStatistics() *Statistics          { return &p.stats }

// swdAckOK/swdAckWait/... build the 38-bit scripted Input response for one
// SWD transfer's post-request phase, per the ack-tuple table in
// swd_parser.go (offset by the falling-edge sampling convention this
// engine's parser assumes).
func swdAckOK(direction Direction, value uint32) []bool {
	bits := []bool{true, false, false}
	if direction == Read {
		for i := 0; i < 32; i++ {
			bits = append(bits, value&(1<<uint(i)) != 0)
		}
		bits = append(bits, dataParity(value))
		bits = append(bits, false, false)
	} else {
		bits = append(bits, make([]bool, 35)...)
	}
	return bits
}

func swdAckWait() []bool  { return append([]bool{false, true, false}, make([]bool, 35)...) }
func swdAckFault() []bool { return append([]bool{false, false, true}, make([]bool, 35)...) }
func swdAckNo() []bool    { return append([]bool{true, true, true}, make([]bool, 35)...) }

func jtagOK(value uint32) uint64  { return uint64(value)<<3 | uint64(jtagStatusOK) }
func jtagWait() uint64            { return uint64(jtagStatusWait) }
func popcount(v uint32) int       { return bits.OnesCount32(v) }
