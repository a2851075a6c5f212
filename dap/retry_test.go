package dap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitRetry_RecoversAfterOneWait(t *testing.T) {
	probe := newFakeSWDProbe([][]bool{
		swdAckWait(),        // first attempt: WAIT
		swdAckOK(Write, 0),  // corrective ABORT write
		swdAckOK(Read, 47),  // retried attempt: OK, value 47
	})

	transfers := []DapTransfer{ReadTransfer(RDBUFF())}
	err := WaitRetry(context.Background(), probe, transfers)
	require.NoError(t, err)

	assert.True(t, transfers[0].Status.IsOK())
	assert.Equal(t, uint32(47), transfers[0].Value)
	assert.Equal(t, uint64(1), probe.stats.Snapshot().WaitRetries)
}

func TestWaitRetry_GrowsIdleCyclesBetweenAttempts(t *testing.T) {
	probe := newFakeSWDProbe([][]bool{
		swdAckWait(),
		swdAckOK(Write, 0),
		swdAckWait(),
		swdAckOK(Write, 0),
		swdAckOK(Write, 0),
	})

	transfers := []DapTransfer{WriteTransfer(DPRegister(0x4), 1)}
	err := WaitRetry(context.Background(), probe, transfers)
	require.NoError(t, err)

	assert.True(t, transfers[0].Status.IsOK())
	assert.Greater(t, transfers[0].IdleCyclesAfter, 0)
}

func TestWaitRetry_NonWaitFailureStopsImmediately(t *testing.T) {
	probe := newFakeSWDProbe([][]bool{swdAckFault()})

	transfers := []DapTransfer{ReadTransfer(RDBUFF())}
	err := WaitRetry(context.Background(), probe, transfers)
	require.NoError(t, err)

	assert.True(t, transfers[0].Status.IsFailed())
	assert.ErrorIs(t, transfers[0].Status.Err(), ErrFaultResponse)
}

func TestWaitRetry_ExhaustsRetries(t *testing.T) {
	settings := DefaultSettings()
	settings.NumRetriesAfterWait = 2

	probe := newFakeSWDProbe([][]bool{
		swdAckWait(),
		swdAckOK(Write, 0),
		swdAckWait(),
		swdAckOK(Write, 0),
		swdAckOK(Write, 0), // final unconditional ABORT after exhaustion
	})
	probe.settings = settings

	transfers := []DapTransfer{ReadTransfer(RDBUFF())}
	err := WaitRetry(context.Background(), probe, transfers)
	require.NoError(t, err)
	assert.True(t, transfers[0].Status.IsFailed())
}
