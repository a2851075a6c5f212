package dap

import "context"

// RawDapAccess is the top-level API exposed to upper layers: single-register
// and block reads/writes, with FAULT diagnosis and sticky-error recovery
// wrapped around the Transfer Planner.
type RawDapAccess struct {
	probe  Probe
	banks  bankSelector
}

// NewRawDapAccess wraps probe in the top-level read/write API.
func NewRawDapAccess(probe Probe) *RawDapAccess {
	return &RawDapAccess{probe: probe}
}

// RawReadRegister reads one DAP register, diagnosing and clearing a sticky
// FAULT before surfacing it to the caller.
func (d *RawDapAccess) RawReadRegister(ctx context.Context, address RegisterAddress) (uint32, error) {
	if err := d.banks.ensure(ctx, d.probe, address); err != nil {
		return 0, err
	}

	transfers := []DapTransfer{ReadTransfer(address)}
	if err := PerformTransfers(ctx, d.probe, transfers); err != nil {
		return 0, armError(err)
	}

	t := &transfers[0]
	if t.Status.IsPending() {
		trap("raw_read_register: transfer left Pending")
	}
	if t.Status.IsFailed() {
		if dapErr := t.Status.Err(); dapErr.Kind == FaultResponse {
			d.diagnoseFaultOnRead(ctx, address)
		}
		return 0, armError(t.Status.Err())
	}

	return t.Value, nil
}

// RawWriteRegister writes one DAP register, diagnosing and clearing a
// sticky FAULT before surfacing it to the caller. The diagnostic read is
// always attempted on write, unlike the read path which skips it when the
// CTRL/STAT read itself was what faulted.
func (d *RawDapAccess) RawWriteRegister(ctx context.Context, address RegisterAddress, value uint32) error {
	if err := d.banks.ensure(ctx, d.probe, address); err != nil {
		return err
	}

	transfers := []DapTransfer{WriteTransfer(address, value)}
	if err := PerformTransfers(ctx, d.probe, transfers); err != nil {
		return armError(err)
	}

	t := &transfers[0]
	if t.Status.IsPending() {
		trap("raw_write_register: transfer left Pending")
	}
	if t.Status.IsFailed() {
		if dapErr := t.Status.Err(); dapErr.Kind == FaultResponse {
			d.diagnoseFaultOnWrite(ctx, address)
		}
		return armError(t.Status.Err())
	}

	return nil
}

// RawReadBlock reads len(out) times from address, the typical AP
// auto-increment access pattern.
func (d *RawDapAccess) RawReadBlock(ctx context.Context, address RegisterAddress, out []uint32) error {
	if err := d.banks.ensure(ctx, d.probe, address); err != nil {
		return err
	}

	transfers := make([]DapTransfer, len(out))
	for i := range transfers {
		transfers[i] = ReadTransfer(address)
	}

	if err := PerformTransfers(ctx, d.probe, transfers); err != nil {
		return armError(err)
	}

	for i := range transfers {
		t := &transfers[i]
		if t.Status.IsPending() {
			trap("raw_read_block: transfer left Pending")
		}
		if t.Status.IsFailed() {
			if dapErr := t.Status.Err(); dapErr.Kind == FaultResponse {
				d.diagnoseFaultOnRead(ctx, address)
			}
			return armError(t.Status.Err())
		}
		out[i] = t.Value
	}

	return nil
}

// RawWriteBlock writes each of values to address in order.
func (d *RawDapAccess) RawWriteBlock(ctx context.Context, address RegisterAddress, values []uint32) error {
	if err := d.banks.ensure(ctx, d.probe, address); err != nil {
		return err
	}

	transfers := make([]DapTransfer, len(values))
	for i, v := range values {
		transfers[i] = WriteTransfer(address, v)
	}

	if err := PerformTransfers(ctx, d.probe, transfers); err != nil {
		return armError(err)
	}

	for i := range transfers {
		t := &transfers[i]
		if t.Status.IsPending() {
			trap("raw_write_block: transfer left Pending")
		}
		if t.Status.IsFailed() {
			if dapErr := t.Status.Err(); dapErr.Kind == FaultResponse {
				d.diagnoseFaultOnWrite(ctx, address)
			}
			return armError(t.Status.Err())
		}
	}

	return nil
}

// diagnoseFaultOnRead is the FAULT handler for the read path: if the
// faulting address was CTRL/STAT itself, clear sticky bits directly to
// avoid recursing back into a CTRL/STAT read; otherwise read CTRL/STAT and
// clear whatever sticky bits it reports.
func (d *RawDapAccess) diagnoseFaultOnRead(ctx context.Context, faultingAddress RegisterAddress) {
	currentLogger().Warn("FAULT on read, diagnosing", "address", faultingAddress)
	if !faultingAddress.IsAP() && faultingAddress.Equal(CtrlStat()) {
		d.probe.ProbeStatistics().RecordFaultRecovery()
		d.clearStickyErrors(ctx, AbortFlags{StkErrClr: true, OrunErrClr: true})
		return
	}
	d.diagnoseFaultViaCtrlStatRead(ctx)
}

// diagnoseFaultOnWrite is the FAULT handler for the write path: the
// diagnostic CTRL/STAT read is always attempted, even when the write that
// faulted targeted CTRL/STAT itself, since a write carries no response
// value to recurse on.
func (d *RawDapAccess) diagnoseFaultOnWrite(ctx context.Context, faultingAddress RegisterAddress) {
	currentLogger().Warn("FAULT on write, diagnosing", "address", faultingAddress)
	d.diagnoseFaultViaCtrlStatRead(ctx)
}

// diagnoseFaultViaCtrlStatRead reads CTRL/STAT and clears whatever sticky
// bits it reports.
func (d *RawDapAccess) diagnoseFaultViaCtrlStatRead(ctx context.Context) {
	d.probe.ProbeStatistics().RecordFaultRecovery()

	ctrl := []DapTransfer{ReadTransfer(CtrlStat())}
	if err := PerformTransfers(ctx, d.probe, ctrl); err != nil || ctrl[0].Status.IsFailed() {
		return
	}

	value := ctrl[0].Value
	flags := stickyClearFlags(value)
	if flags.any() {
		currentLogger().Error("sticky error bits set, clearing", "ctrl_stat", value,
			"sticky_err", flags.StkErrClr, "sticky_orun", flags.OrunErrClr,
			"sticky_cmp", flags.StkCmpClr, "wdata_err", flags.WdErrClr)
		d.clearStickyErrors(ctx, flags)
	}
}

// ClearOverrunAndStickyErr issues the ABORT write that clears both the
// overrun and sticky-error bits. Idempotent: issuing it when nothing is
// set is a harmless write-1-to-clear no-op.
func (d *RawDapAccess) ClearOverrunAndStickyErr(ctx context.Context) error {
	return d.clearStickyErrors(ctx, AbortFlags{StkErrClr: true, OrunErrClr: true})
}

func (d *RawDapAccess) clearStickyErrors(ctx context.Context, flags AbortFlags) error {
	clear := []DapTransfer{abortTransfer(flags)}
	if err := PerformTransfers(ctx, d.probe, clear); err != nil {
		return armError(err)
	}
	return nil
}

// SwjSequence issues a raw SWDIO line-switching sequence.
func (d *RawDapAccess) SwjSequence(ctx context.Context, bitLen int, bits uint64) error {
	io, ok := d.probe.(RawSequenceIO)
	if !ok {
		trap("swj_sequence: probe does not implement RawSequenceIO")
	}
	return armError(SwjSequence(ctx, io, bitLen, bits))
}

// JtagSequence issues a raw TMS/TDI-driven JTAG sequence.
func (d *RawDapAccess) JtagSequence(ctx context.Context, bitLen int, tms bool, bits uint64) error {
	io, ok := d.probe.(JtagSequenceIO)
	if !ok {
		trap("jtag_sequence: probe does not implement JtagSequenceIO")
	}
	return armError(io.JtagSequence(ctx, bitLen, tms, bits))
}

// Statistics returns the probe's observability counters.
func (d *RawDapAccess) Statistics() StatisticsSnapshot {
	return d.probe.ProbeStatistics().Snapshot()
}
