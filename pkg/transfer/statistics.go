package transfer

import (
	"sync/atomic"
	"time"
)

// Statistics tracks receiver metrics
type Statistics struct {
	// Fragment counts
	RxFragments uint64
	RxBytes     uint64

	// Completed transfers
	Transfers uint64

	// Error counts
	BufferOverflows    uint64
	OversizedFragments uint64
	Stalls             uint64
	DecodeFailures     uint64

	// Timing (stored as Unix nano for atomic operations)
	lastRxTimeNano       int64
	lastCompleteTimeNano int64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

// IncrementRxFragments counts an accepted fragment of n bytes
func (s *Statistics) IncrementRxFragments(n int) {
	atomic.AddUint64(&s.RxFragments, 1)
	atomic.AddUint64(&s.RxBytes, uint64(n))
	atomic.StoreInt64(&s.lastRxTimeNano, time.Now().UnixNano())
}

// IncrementTransfers increments completed transfer count
func (s *Statistics) IncrementTransfers() {
	atomic.AddUint64(&s.Transfers, 1)
	atomic.StoreInt64(&s.lastCompleteTimeNano, time.Now().UnixNano())
}

// IncrementBufferOverflows increments buffer overflow count
func (s *Statistics) IncrementBufferOverflows() {
	atomic.AddUint64(&s.BufferOverflows, 1)
}

// IncrementOversizedFragments increments oversized fragment count
func (s *Statistics) IncrementOversizedFragments() {
	atomic.AddUint64(&s.OversizedFragments, 1)
}

// IncrementStalls increments stalled transfer count
func (s *Statistics) IncrementStalls() {
	atomic.AddUint64(&s.Stalls, 1)
}

// IncrementDecodeFailures increments image decode failure count
func (s *Statistics) IncrementDecodeFailures() {
	atomic.AddUint64(&s.DecodeFailures, 1)
}

// GetRxFragments returns accepted fragment count
func (s *Statistics) GetRxFragments() uint64 {
	return atomic.LoadUint64(&s.RxFragments)
}

// GetRxBytes returns accepted payload byte count
func (s *Statistics) GetRxBytes() uint64 {
	return atomic.LoadUint64(&s.RxBytes)
}

// GetTransfers returns completed transfer count
func (s *Statistics) GetTransfers() uint64 {
	return atomic.LoadUint64(&s.Transfers)
}

// GetBufferOverflows returns buffer overflow count
func (s *Statistics) GetBufferOverflows() uint64 {
	return atomic.LoadUint64(&s.BufferOverflows)
}

// GetOversizedFragments returns oversized fragment count
func (s *Statistics) GetOversizedFragments() uint64 {
	return atomic.LoadUint64(&s.OversizedFragments)
}

// GetStalls returns stalled transfer count
func (s *Statistics) GetStalls() uint64 {
	return atomic.LoadUint64(&s.Stalls)
}

// GetDecodeFailures returns image decode failure count
func (s *Statistics) GetDecodeFailures() uint64 {
	return atomic.LoadUint64(&s.DecodeFailures)
}

// GetLastRxTime returns the time the last fragment was accepted
func (s *Statistics) GetLastRxTime() time.Time {
	nano := atomic.LoadInt64(&s.lastRxTimeNano)
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}

// GetLastCompleteTime returns the time the last transfer completed
func (s *Statistics) GetLastCompleteTime() time.Time {
	nano := atomic.LoadInt64(&s.lastCompleteTimeNano)
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}

// Reset resets all statistics to zero
func (s *Statistics) Reset() {
	atomic.StoreUint64(&s.RxFragments, 0)
	atomic.StoreUint64(&s.RxBytes, 0)
	atomic.StoreUint64(&s.Transfers, 0)
	atomic.StoreUint64(&s.BufferOverflows, 0)
	atomic.StoreUint64(&s.OversizedFragments, 0)
	atomic.StoreUint64(&s.Stalls, 0)
	atomic.StoreUint64(&s.DecodeFailures, 0)
	atomic.StoreInt64(&s.lastRxTimeNano, 0)
	atomic.StoreInt64(&s.lastCompleteTimeNano, 0)
}
