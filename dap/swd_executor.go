package dap

import (
	"context"
	"errors"
)

// PerformSWDTransfers executes transfers over SWD: concatenate every
// transfer's bit frame into one I/O sequence, drive the probe once, then
// walk the response slicing each transfer's window out in order. Never
// retries, never interprets ADIv5 semantics - that is the WAIT-Retry
// layer's and the Transfer Planner's job.
func PerformSWDTransfers(ctx context.Context, probe Probe, transfers []DapTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	seq := make(IoSequence, 0)
	for i := range transfers {
		seq.Extend(transfers[i].ioSequence())
	}

	resp, err := probe.SwdIO(ctx, seq)
	if err != nil {
		return WrapProbeError("swd_io", err)
	}

	offset := 0
	for i := range transfers {
		t := &transfers[i]
		frameLen := t.swdResponseLength()

		// The first 8 bits of every frame are the output-only request
		// phase; the response window starts at bit 8.
		window := resp[offset+8 : offset+frameLen]
		ackAndData := window[:len(window)-t.IdleCyclesAfter]

		value, parseErr := ParseSWDResponse(ackAndData, t.Direction)
		if parseErr != nil {
			var dapErr *DapError
			if errors.As(parseErr, &dapErr) {
				t.Status = FailedStatus(dapErr)
			} else {
				return WrapProbeError("swd response parse", parseErr)
			}
		} else {
			t.Status = OKStatus()
			if t.Direction == Read {
				t.Value = value
			}
		}

		probe.ProbeStatistics().RecordBytes(4)
		offset += frameLen
	}

	probe.ProbeStatistics().RecordSWDTransfers(len(transfers))
	return nil
}
