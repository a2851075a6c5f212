package dap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_ScheduleAndFetch(t *testing.T) {
	q := NewCommandQueue()
	trA := ReadTransfer(APRegister(0, 0xC))
	trAbort := abortTransfer(AbortFlags{DapAbort: true})

	hA := q.Schedule(trA.jtagWriteCommand())
	hAbort := q.Schedule(trAbort.jtagWriteCommand())

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, CommandHandle(0), hA)
	assert.Equal(t, CommandHandle(1), hAbort)
	assert.Equal(t, TransformAsU32, q.Commands()[hA].Transform)
	assert.Equal(t, TransformAsNone, q.Commands()[hAbort].Transform)
}

func TestBatchResults_Take(t *testing.T) {
	q := NewCommandQueue()
	tr := ReadTransfer(APRegister(0, 0xC))
	h := q.Schedule(tr.jtagWriteCommand())

	results := NewBatchResults(q, []uint64{jtagOK(0xABCD)})
	res, err := results.Take(h)
	require.NoError(t, err)
	assert.Equal(t, ResultU32, res.Kind)
	assert.Equal(t, uint32(0xABCD), res.Value)
}

func TestBatchResults_Take_NoResponse(t *testing.T) {
	q := NewCommandQueue()
	tr := ReadTransfer(APRegister(0, 0xC))
	h := q.Schedule(tr.jtagWriteCommand())

	results := NewBatchResults(q, nil)
	_, err := results.Take(h)
	assert.Error(t, err)
}

func TestBatchResults_Take_FailedStatus(t *testing.T) {
	q := NewCommandQueue()
	tr := ReadTransfer(APRegister(0, 0xC))
	h := q.Schedule(tr.jtagWriteCommand())

	results := NewBatchResults(q, []uint64{jtagWait()})
	_, err := results.Take(h)
	assert.ErrorIs(t, err, ErrWaitResponse)
}

func TestBatchResults_Take_AbortIsResultNone(t *testing.T) {
	q := NewCommandQueue()
	tr := abortTransfer(AbortFlags{DapAbort: true})
	h := q.Schedule(tr.jtagWriteCommand())

	results := NewBatchResults(q, []uint64{jtagOK(0)})
	res, err := results.Take(h)
	require.NoError(t, err)
	assert.Equal(t, ResultNone, res.Kind)
}

func TestPartialBatchError(t *testing.T) {
	q := NewCommandQueue()
	tr := ReadTransfer(APRegister(0, 0xC))
	q.Schedule(tr.jtagWriteCommand())

	results := NewBatchResults(q, nil)
	e := &PartialBatchError{Results: results, Cause: ErrWaitResponse}
	assert.ErrorIs(t, e, ErrWaitResponse)
	assert.Contains(t, e.Error(), "0/1")
}
