package dap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformJTAGTransfers_SingleAPRead(t *testing.T) {
	// AP read schedules: [AP read, RDBUFF flush, CTRL/STAT, final RDBUFF].
	// The caller's read resolves from queued command 1's response.
	probe := newFakeJTAGProbe([][]uint64{
		{jtagOK(0), jtagOK(12), jtagOK(0), jtagOK(0)},
	})

	transfers := []DapTransfer{ReadTransfer(APRegister(0, 0x4))}
	err := PerformJTAGTransfers(context.Background(), probe, transfers)
	require.NoError(t, err)

	assert.True(t, transfers[0].Status.IsOK())
	assert.Equal(t, uint32(12), transfers[0].Value)
}

func TestPerformJTAGTransfers_WaitSurfacesAsPartialFailure(t *testing.T) {
	// The flush read comes back WAIT: the batch stops after 2/4 commands,
	// and the caller's read surfaces the WAIT so the outer retry loop can
	// recover it.
	probe := newFakeJTAGProbe([][]uint64{
		{jtagOK(0), jtagWait()},
	})

	transfers := []DapTransfer{ReadTransfer(APRegister(0, 0x4))}
	err := PerformJTAGTransfers(context.Background(), probe, transfers)
	require.NoError(t, err)
	assert.True(t, transfers[0].Status.IsFailed())
	assert.ErrorIs(t, transfers[0].Status.Err(), ErrWaitResponse)
}

func TestPerformJTAGTransfers_WaitRecoveredByRetryLoop(t *testing.T) {
	// End to end through WaitRetry: the first attempt partial-fails on
	// WAIT, a corrective ABORT is issued, and the retried attempt succeeds.
	probe := newFakeJTAGProbe([][]uint64{
		{jtagOK(0), jtagWait()},         // first attempt: partial
		{jtagOK(0)},                     // corrective ABORT
		{jtagOK(0), jtagOK(47), jtagOK(0), jtagOK(0)}, // retried attempt: full success
	})

	transfers := []DapTransfer{ReadTransfer(APRegister(0, 0x4))}
	err := WaitRetry(context.Background(), probe, transfers)
	require.NoError(t, err)

	assert.True(t, transfers[0].Status.IsOK())
	assert.Equal(t, uint32(47), transfers[0].Value)
}

func TestPerformJTAGTransfers_StickyErrDowngradesOkResults(t *testing.T) {
	probe := newFakeJTAGProbe([][]uint64{
		{jtagOK(0), jtagOK(12), jtagOK(ctrlStatBitStickyErr), jtagOK(0)},
		{jtagOK(0)}, // corrective ABORT
	})

	transfers := []DapTransfer{ReadTransfer(APRegister(0, 0x4))}
	err := PerformJTAGTransfers(context.Background(), probe, transfers)
	require.NoError(t, err)
	assert.True(t, transfers[0].Status.IsFailed())
	assert.ErrorIs(t, transfers[0].Status.Err(), ErrFaultResponse)
}

func TestPerformJTAGTransfers_AbortAndRDBUFFSkipBookkeeping(t *testing.T) {
	probe := newFakeJTAGProbe([][]uint64{
		{jtagOK(0)},
	})
	transfers := []DapTransfer{WriteTransfer(Abort(), 1)}
	err := PerformJTAGTransfers(context.Background(), probe, transfers)
	require.NoError(t, err)
	assert.True(t, transfers[0].Status.IsOK())
}
