package dap

import "context"

// Standard line-reset/mode-switch sequences. These move a target from its
// power-on/unknown wire state into SWD or JTAG, or reset the JTAG TAP to
// Test-Logic-Reset.

// SwdLineResetBits is 50 clocks with SWDIO held high, the standard SWD line
// reset.
const SwdLineResetBits = 50

// JtagToSWDSelectSequence switches an already-JTAG-aware target to SWD.
const JtagToSWDSelectSequence uint64 = 0xE79E

// SwdToJTAGSelectSequence switches an already-SWD-aware target to JTAG.
const SwdToJTAGSelectSequence uint64 = 0xE73C

// RawSequenceIO is the minimal probe-facing primitive swj_sequence and
// jtag_sequence drive directly, bypassing DapTransfer framing entirely.
type RawSequenceIO interface {
	SwdIO
}

// SwjSequence drives bitLen bits of bits (LSB first) directly onto SWDIO.
// Used to issue the SWD line reset followed by a JTAG-to-SWD or
// SWD-to-JTAG select sequence.
func SwjSequence(ctx context.Context, probe RawSequenceIO, bitLen int, bits uint64) error {
	seq := OutSequenceFromBits(bits, bitLen).IoSequence()
	_, err := probe.SwdIO(ctx, seq)
	return WrapProbeError("swj_sequence", err)
}

// SwjLineResetToSWD issues the standard 50-clock SWDIO-high reset followed
// by the JTAG-to-SWD select sequence, moving a target into SWD mode from an
// unknown or JTAG state.
func SwjLineResetToSWD(ctx context.Context, probe RawSequenceIO) error {
	if err := SwjSequence(ctx, probe, SwdLineResetBits, (1<<SwdLineResetBits)-1); err != nil {
		return err
	}
	return SwjSequence(ctx, probe, 16, JtagToSWDSelectSequence)
}

// SwjLineResetToJTAG issues the standard 50-clock SWDIO-high reset followed
// by the SWD-to-JTAG select sequence, moving a target into JTAG mode.
func SwjLineResetToJTAG(ctx context.Context, probe RawSequenceIO) error {
	if err := SwjSequence(ctx, probe, SwdLineResetBits, (1<<SwdLineResetBits)-1); err != nil {
		return err
	}
	return SwjSequence(ctx, probe, 16, SwdToJTAGSelectSequence)
}

// JtagSequenceIO is the probe-facing primitive jtag_sequence drives:
// JtagSequence clocks bitLen cycles with TMS held at tms and TDI following
// bits (LSB first), realized by the transport directly against its TAP
// controller.
type JtagSequenceIO interface {
	JtagSequence(ctx context.Context, bitLen int, tms bool, bits uint64) error
}

// JtagResetToTestLogicReset drives five clocks with TMS=1, the standard
// sequence guaranteed to reach Test-Logic-Reset from any TAP state.
func JtagResetToTestLogicReset(ctx context.Context, probe JtagSequenceIO) error {
	return probe.JtagSequence(ctx, 5, true, 0x1F)
}
