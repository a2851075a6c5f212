package dap

import "sync/atomic"

// Statistics are the per-probe counters exposed through a probe's
// ProbeStatistics() leaf: per-kind transfer, retry, and byte counters.
type Statistics struct {
	swdTransfers     atomic.Uint64
	jtagTransfers    atomic.Uint64
	extraTransfers   atomic.Uint64
	waitRetries      atomic.Uint64
	faultRecoveries  atomic.Uint64
	bytesTransferred atomic.Uint64
}

// StatisticsSnapshot is a point-in-time copy of Statistics, safe to log or
// print without racing further updates.
type StatisticsSnapshot struct {
	SWDTransfers     uint64
	JTAGTransfers    uint64
	ExtraTransfers   uint64
	WaitRetries      uint64
	FaultRecoveries  uint64
	BytesTransferred uint64
}

func (s *Statistics) RecordSWDTransfers(n int)   { s.swdTransfers.Add(uint64(n)) }
func (s *Statistics) RecordJTAGTransfers(n int)  { s.jtagTransfers.Add(uint64(n)) }
func (s *Statistics) RecordExtraTransfer()       { s.extraTransfers.Add(1) }
func (s *Statistics) RecordWaitRetry()           { s.waitRetries.Add(1) }
func (s *Statistics) RecordFaultRecovery()       { s.faultRecoveries.Add(1) }
func (s *Statistics) RecordBytes(n int)          { s.bytesTransferred.Add(uint64(n)) }

// Snapshot returns a consistent-enough copy for logging.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		SWDTransfers:     s.swdTransfers.Load(),
		JTAGTransfers:    s.jtagTransfers.Load(),
		ExtraTransfers:   s.extraTransfers.Load(),
		WaitRetries:      s.waitRetries.Load(),
		FaultRecoveries:  s.faultRecoveries.Load(),
		BytesTransferred: s.bytesTransferred.Load(),
	}
}
