package dap

import "context"

// planEntry records where caller transfer i landed in the extended batch,
// and whether its real result lives one slot further on.
type planEntry struct {
	index          int
	responseInNext bool
}

// PerformTransfers is the Transfer Planner: it rewrites a caller-supplied
// batch into the extended batch that must actually be sent on SWD
// (inserting RDBUFF flush reads around AP pipeline hazards), wraps the
// extended batch in the WAIT-Retry loop, then projects results back onto
// the caller's transfers.
//
// JTAG needs no extension - PerformJTAGTransfers handles its one-step
// pipeline internally - so the planner degenerates to a pass-through for
// that wire.
func PerformTransfers(ctx context.Context, probe Probe, transfers []DapTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	protocol, err := probe.ActiveProtocol()
	if err != nil {
		return WrapProbeError("active_protocol", err)
	}

	if protocol == ProtocolJTAG {
		return WaitRetry(ctx, probe, transfers)
	}

	settings := probe.SwdSettings()

	extended := make([]DapTransfer, 0, len(transfers)+len(transfers)/2+1)
	plan := make([]planEntry, len(transfers))

	for i := range transfers {
		t := transfers[i]
		if t.IsWrite() {
			t.IdleCyclesAfter = settings.NumIdleCyclesBetweenWrites
		}

		index := len(extended)
		extended = append(extended, t)

		responseInNext := t.IsAPRead() || (t.IsWrite() && !t.IsAbort())
		plan[i] = planEntry{index: index, responseInNext: responseInNext}

		hasNext := i+1 < len(transfers)
		var next *DapTransfer
		if hasNext {
			next = &transfers[i+1]
		}

		switch {
		case t.IsAPRead() && (!hasNext || !next.IsAPRead()):
			// Flush the AP read's pipelined result before the pipeline
			// might be disturbed by something other than another AP read.
			extended = append(extended, ReadTransfer(RDBUFF()))
			probe.ProbeStatistics().RecordExtraTransfer()
		case t.IsAPWrite() && hasNext && next.MustNotStall():
			flush := ReadTransfer(RDBUFF())
			flush.IdleCyclesAfter = settings.IdleCyclesBeforeWriteVerify
			extended = append(extended, flush)
			probe.ProbeStatistics().RecordExtraTransfer()
		case !hasNext && (t.IsAPRead() || (t.IsWrite() && !t.IsAbort())):
			extended = append(extended, ReadTransfer(RDBUFF()))
			probe.ProbeStatistics().RecordExtraTransfer()
		}
	}

	extended[len(extended)-1].IdleCyclesAfter += settings.IdleCyclesAfterTransfer

	if err := WaitRetry(ctx, probe, extended); err != nil {
		return err
	}

	for i := range transfers {
		p := plan[i]
		status := extended[p.index].Status
		valueIndex := p.index
		if p.responseInNext {
			valueIndex = p.index + 1
			if status.IsOK() {
				status = extended[valueIndex].Status
			}
		}
		transfers[i].Status = status
		if transfers[i].Direction == Read {
			transfers[i].Value = extended[valueIndex].Value
		}
	}

	return nil
}
