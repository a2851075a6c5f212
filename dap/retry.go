package dap

import (
	"context"
	"errors"
)

// WaitRetry is the WAIT-Retry loop: it re-executes the not-yet-successful
// tail of transfers against the raw executor, clearing WAIT with a
// sticky-clear ABORT and growing idle-cycle padding between attempts, until
// every transfer is resolved or retries are exhausted.
func WaitRetry(ctx context.Context, probe Probe, transfers []DapTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	settings := probe.SwdSettings()
	idleCycles := settings.NumIdleCyclesBetweenWrites
	if idleCycles < 1 {
		idleCycles = 1
	}

	successful := 0
	for attempt := 0; attempt < settings.NumRetriesAfterWait; attempt++ {
		chunk := transfers[successful:]
		currentLogger().Debug("dispatching transfers", "attempt", attempt, "count", len(chunk), "idle_cycles", idleCycles)
		if err := rawExecute(ctx, probe, chunk); err != nil {
			return err
		}

		leadingOK := 0
		for leadingOK < len(chunk) && chunk[leadingOK].Status.IsOK() {
			leadingOK++
		}
		successful += leadingOK

		if successful == len(transfers) {
			return nil
		}

		failing := &transfers[successful]
		if !errors.Is(failing.Status.Err(), ErrWaitResponse) {
			// Any other failure: stop, leaving statuses for the caller.
			return nil
		}

		probe.ProbeStatistics().RecordWaitRetry()
		currentLogger().Debug("WAIT response, retrying", "attempt", attempt, "successful", successful, "remaining", len(transfers)-successful)
		abort := abortTransfer(AbortFlags{StkErrClr: true, OrunErrClr: true})
		if err := rawExecute(ctx, probe, []DapTransfer{abort}); err != nil {
			return err
		}

		for i := successful; i < len(transfers); i++ {
			if transfers[i].IsWrite() {
				transfers[i].IdleCyclesAfter += idleCycles
			}
		}

		idleCycles *= 2
		if idleCycles > settings.MaxRetryIdleCyclesAfterWait {
			idleCycles = settings.MaxRetryIdleCyclesAfterWait
		}
	}

	currentLogger().Warn("WAIT retries exhausted, aborting", "retries", settings.NumRetriesAfterWait, "resolved", successful, "total", len(transfers))
	abort := abortTransfer(AbortFlags{DapAbort: true})
	_ = rawExecute(ctx, probe, []DapTransfer{abort})
	return nil
}

// rawExecute dispatches to the SWD or JTAG raw executor according to the
// probe's active wire protocol; core logic branches on ActiveProtocol(),
// never on the probe's concrete type.
func rawExecute(ctx context.Context, probe Probe, transfers []DapTransfer) error {
	protocol, err := probe.ActiveProtocol()
	if err != nil {
		return WrapProbeError("active_protocol", err)
	}

	switch protocol {
	case ProtocolSWD:
		return PerformSWDTransfers(ctx, probe, transfers)
	case ProtocolJTAG:
		return PerformJTAGTransfers(ctx, probe, transfers)
	default:
		trap("rawExecute: unknown wire protocol")
		return nil
	}
}
