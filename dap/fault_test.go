package dap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawReadRegister_OK(t *testing.T) {
	probe := newFakeSWDProbe([][]bool{
		append(swdAckOK(Read, 0), swdAckOK(Read, 0x55)...),
	})
	d := NewRawDapAccess(probe)
	v, err := d.RawReadRegister(context.Background(), APRegister(0, 0x4))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x55), v)
}

func TestRawReadRegister_FaultDiagnosesAndClears(t *testing.T) {
	// The AP read's flush comes back FAULT; the handler reads CTRL/STAT
	// (sees sticky-err), issues a corrective ABORT, and still surfaces the
	// original FAULT to the caller.
	probe := newFakeSWDProbe([][]bool{
		append(swdAckOK(Read, 0), swdAckFault()...), // AP read, then its RDBUFF flush faults
		swdAckOK(Read, ctrlStatBitStickyErr),         // CTRL/STAT diagnostic read
		swdAckOK(Write, 0),                           // corrective ABORT
	})

	d := NewRawDapAccess(probe)
	_, err := d.RawReadRegister(context.Background(), APRegister(0, 0x4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFaultResponse)
	assert.Equal(t, uint64(1), probe.stats.Snapshot().FaultRecoveries)
}

func TestRawReadRegister_FaultOnCtrlStatAvoidsRecursion(t *testing.T) {
	probe := newFakeSWDProbe([][]bool{
		swdAckFault(),      // CTRL/STAT read itself faults
		swdAckOK(Write, 0), // direct corrective ABORT, no further CTRL/STAT read
	})
	d := NewRawDapAccess(probe)
	_, err := d.RawReadRegister(context.Background(), CtrlStat())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFaultResponse)
	assert.Equal(t, uint64(1), probe.stats.Snapshot().FaultRecoveries)
}

func TestClearOverrunAndStickyErr_Idempotent(t *testing.T) {
	probe := newFakeSWDProbe([][]bool{
		swdAckOK(Write, 0),
		swdAckOK(Write, 0),
	})
	d := NewRawDapAccess(probe)
	require.NoError(t, d.ClearOverrunAndStickyErr(context.Background()))
	require.NoError(t, d.ClearOverrunAndStickyErr(context.Background()))
}

func TestRawWriteRegister_FaultOnCtrlStatStillDiagnoses(t *testing.T) {
	// Unlike the read path, a write that faults on CTRL/STAT itself must
	// still perform the diagnostic CTRL/STAT read: a write carries no
	// response value to recurse on, so there is nothing to short-circuit.
	writeAndFlush := append(swdAckOK(Write, 0)[:5], swdAckFault()...)
	probe := newFakeSWDProbe([][]bool{
		writeAndFlush,
		swdAckOK(Read, ctrlStatBitStickyErr), // diagnostic CTRL/STAT read, not skipped
		swdAckOK(Write, 0),                   // corrective ABORT
	})

	d := NewRawDapAccess(probe)
	err := d.RawWriteRegister(context.Background(), CtrlStat(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFaultResponse)
	assert.Equal(t, uint64(1), probe.stats.Snapshot().FaultRecoveries)
}

func TestRawWriteBlock(t *testing.T) {
	// Three posted AP writes in a row don't need a flush between them
	// (nothing must-not-stall comes next); the batch gets a single trailing
	// RDBUFF flush at the end.
	writeAck := swdAckOK(Write, 0)[:5]
	var window []bool
	window = append(window, writeAck...)
	window = append(window, writeAck...)
	window = append(window, writeAck...)
	window = append(window, swdAckOK(Read, 0)...)

	probe := newFakeSWDProbe([][]bool{window})
	d := NewRawDapAccess(probe)
	err := d.RawWriteBlock(context.Background(), APRegister(0, 0x4), []uint32{1, 2, 3})
	require.NoError(t, err)
}
