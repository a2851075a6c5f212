package dap

// AbortFlags are the write-1-to-clear/abort bits of the DP ABORT register.
// WAIT-Retry always sets DapAbort or {OrunErrClr, StkErrClr}; the FAULT
// diagnosis path also sets StkCmpClr/WdErrClr when the CTRL/STAT read it
// performs reports STICKYCMP or WDATAERR.
type AbortFlags struct {
	DapAbort   bool
	StkCmpClr  bool
	StkErrClr  bool
	WdErrClr   bool
	OrunErrClr bool
}

const (
	abortBitDapAbort   uint32 = 1 << 0
	abortBitStkCmpClr  uint32 = 1 << 1
	abortBitStkErrClr  uint32 = 1 << 2
	abortBitWdErrClr   uint32 = 1 << 3
	abortBitOrunErrClr uint32 = 1 << 4
)

// Value packs the flags into the ABORT register's write value.
func (f AbortFlags) Value() uint32 {
	var v uint32
	if f.DapAbort {
		v |= abortBitDapAbort
	}
	if f.StkCmpClr {
		v |= abortBitStkCmpClr
	}
	if f.StkErrClr {
		v |= abortBitStkErrClr
	}
	if f.WdErrClr {
		v |= abortBitWdErrClr
	}
	if f.OrunErrClr {
		v |= abortBitOrunErrClr
	}
	return v
}

// abortTransfer builds the DP ABORT write transfer for the given flags.
func abortTransfer(f AbortFlags) DapTransfer {
	return WriteTransfer(Abort(), f.Value())
}

// CTRL/STAT sticky bits inspected by the FAULT handler and the JTAG
// executor's post-batch diagnosis.
const (
	ctrlStatBitStickyOrun uint32 = 1 << 1
	ctrlStatBitStickyCmp  uint32 = 1 << 4
	ctrlStatBitStickyErr  uint32 = 1 << 5
	ctrlStatBitWDataErr   uint32 = 1 << 7
)

func ctrlStatHasStickyErr(v uint32) bool  { return v&ctrlStatBitStickyErr != 0 }
func ctrlStatHasStickyOrun(v uint32) bool { return v&ctrlStatBitStickyOrun != 0 }
func ctrlStatHasStickyCmp(v uint32) bool  { return v&ctrlStatBitStickyCmp != 0 }
func ctrlStatHasWDataErr(v uint32) bool   { return v&ctrlStatBitWDataErr != 0 }

// stickyClearFlags builds the ABORT write that clears whichever sticky bits
// a CTRL/STAT value reports.
func stickyClearFlags(ctrlStat uint32) AbortFlags {
	return AbortFlags{
		StkErrClr:  ctrlStatHasStickyErr(ctrlStat),
		OrunErrClr: ctrlStatHasStickyOrun(ctrlStat),
		StkCmpClr:  ctrlStatHasStickyCmp(ctrlStat),
		WdErrClr:   ctrlStatHasWDataErr(ctrlStat),
	}
}

func (f AbortFlags) any() bool {
	return f.DapAbort || f.StkCmpClr || f.StkErrClr || f.WdErrClr || f.OrunErrClr
}
