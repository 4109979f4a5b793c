package sender

import "sync/atomic"

// Statistics tracks sender activity
type Statistics struct {
	requests  atomic.Uint64
	pushes    atomic.Uint64
	fragments atomic.Uint64
	bytes     atomic.Uint64
	failures  atomic.Uint64
}

// IncrementRequests increments received image requests
func (s *Statistics) IncrementRequests() {
	s.requests.Add(1)
}

// IncrementPushes increments completed pushes
func (s *Statistics) IncrementPushes() {
	s.pushes.Add(1)
}

// IncrementFragments counts one fragment of n payload bytes
func (s *Statistics) IncrementFragments(n int) {
	s.fragments.Add(1)
	s.bytes.Add(uint64(n))
}

// IncrementFailures increments failed pushes
func (s *Statistics) IncrementFailures() {
	s.failures.Add(1)
}

// GetRequests returns received image requests
func (s *Statistics) GetRequests() uint64 {
	return s.requests.Load()
}

// GetPushes returns completed pushes
func (s *Statistics) GetPushes() uint64 {
	return s.pushes.Load()
}

// GetFragments returns fragments sent
func (s *Statistics) GetFragments() uint64 {
	return s.fragments.Load()
}

// GetBytes returns payload bytes sent
func (s *Statistics) GetBytes() uint64 {
	return s.bytes.Load()
}

// GetFailures returns failed pushes
func (s *Statistics) GetFailures() uint64 {
	return s.failures.Load()
}
