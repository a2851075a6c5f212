package dap

import (
	"context"
	"errors"
)

// PerformJTAGTransfers executes transfers over JTAG: one DR write per
// transfer scheduled on the probe's command queue, plus bookkeeping reads
// to flush the one-step pipeline delay and inspect sticky-err, with results
// projected back onto transfers[i] from queued command i+1's response.
func PerformJTAGTransfers(ctx context.Context, probe Probe, transfers []DapTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	queue := NewCommandQueue()
	handles := make([]CommandHandle, 0, len(transfers))
	for i := range transfers {
		handles = append(handles, queue.Schedule(transfers[i].jtagWriteCommand()))
	}

	last := &transfers[len(transfers)-1]
	if !last.IsAbort() && !last.IsRDBUFF() {
		flush := ReadTransfer(RDBUFF())
		handles = append(handles, queue.Schedule(flush.jtagWriteCommand()))
		probe.ProbeStatistics().RecordExtraTransfer()
	}

	ctrlStatHandle := CommandHandle(-1)
	if !last.IsAbort() {
		ctrlRead := ReadTransfer(CtrlStat())
		ctrlStatHandle = queue.Schedule(ctrlRead.jtagWriteCommand())
		finalRDBUFF := ReadTransfer(RDBUFF())
		queue.Schedule(finalRDBUFF.jtagWriteCommand())
		probe.ProbeStatistics().RecordExtraTransfer()
		probe.ProbeStatistics().RecordExtraTransfer()
	}

	prevIdle := probe.IdleCycles()
	maxIdle := uint8(0)
	for i := range transfers {
		if transfers[i].IdleCyclesAfter > int(maxIdle) {
			maxIdle = uint8(transfers[i].IdleCyclesAfter)
		}
	}
	if err := probe.SetIdleCycles(maxIdle); err != nil {
		return WrapProbeError("jtag set_idle_cycles", err)
	}
	defer probe.SetIdleCycles(prevIdle)

	results, batchErr := probe.WriteRegisterBatch(ctx, queue)

	var partial *PartialBatchError
	if batchErr != nil && !errors.As(batchErr, &partial) {
		return WrapProbeError("jtag write_register_batch", batchErr)
	}

	var chunkErr *DapError
	if partial != nil {
		results = partial.Results
		if !errors.As(partial.Cause, &chunkErr) {
			return WrapProbeError("jtag write_register_batch", partial.Cause)
		}
	}

	// Project each caller transfer's status/value from queued command i+1's
	// response, the one-step pipeline delay. ABORT and RDBUFF transfers in
	// the caller's own batch are always Ok.
	for i := range transfers {
		t := &transfers[i]
		if t.IsAbort() || t.IsRDBUFF() {
			t.Status = OKStatus()
			continue
		}

		nextHandle := handles[i] + 1
		if int(nextHandle) >= results.Completed() {
			if chunkErr != nil {
				t.Status = FailedStatus(chunkErr)
			} else {
				trap("jtag executor: missing response for transfer")
			}
			continue
		}

		res, err := results.Take(nextHandle)
		if err != nil {
			var dapErr *DapError
			if errors.As(err, &dapErr) {
				t.Status = FailedStatus(dapErr)
			} else {
				return WrapProbeError("jtag decode response", err)
			}
			continue
		}

		t.Status = OKStatus()
		if t.Direction == Read {
			t.Value = res.Value
		}
		probe.ProbeStatistics().RecordBytes(4)
	}

	// Inspect the CTRL/STAT bookkeeping read, if it executed, for any
	// sticky bit. If set, every Ok result in this batch is suspect: issue
	// the corrective clear, then downgrade.
	if ctrlStatHandle >= 0 && int(ctrlStatHandle) < results.Completed() {
		ctrlRes, err := results.Take(ctrlStatHandle)
		flags := AbortFlags{}
		if err == nil && ctrlRes.Kind == ResultU32 {
			flags = stickyClearFlags(ctrlRes.Value)
		}
		if flags.any() {
			clearQueue := NewCommandQueue()
			clear := abortTransfer(flags)
			clearQueue.Schedule(clear.jtagWriteCommand())
			if _, err := probe.WriteRegisterBatch(ctx, clearQueue); err != nil {
				return WrapProbeError("jtag sticky-err clear", err)
			}
			probe.ProbeStatistics().RecordFaultRecovery()

			for i := range transfers {
				t := &transfers[i]
				if t.Status.IsOK() && !t.IsAbort() && !t.IsRDBUFF() {
					t.Status = FailedStatus(ErrFaultResponse)
				}
			}
		}
	}

	probe.ProbeStatistics().RecordJTAGTransfers(len(transfers))
	return nil
}
