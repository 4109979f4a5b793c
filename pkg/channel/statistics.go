package channel

import "sync/atomic"

// Statistics tracks channel-level statistics
type Statistics struct {
	// Message statistics
	numMessagesTx  uint64
	numMessagesRx  uint64
	numBadMessages uint64
	numReadErrors  uint64

	// Delivery statistics
	numRoutingErrors uint64

	// Endpoint statistics
	numActiveEndpoints uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

// MessageTx increments transmitted messages
func (s *Statistics) MessageTx() {
	atomic.AddUint64(&s.numMessagesTx, 1)
}

// MessageRx increments received messages
func (s *Statistics) MessageRx() {
	atomic.AddUint64(&s.numMessagesRx, 1)
}

// BadMessage increments messages that failed to parse
func (s *Statistics) BadMessage() {
	atomic.AddUint64(&s.numBadMessages, 1)
}

// ReadError increments physical read errors
func (s *Statistics) ReadError() {
	atomic.AddUint64(&s.numReadErrors, 1)
}

// RoutingError increments messages an endpoint rejected
func (s *Statistics) RoutingError() {
	atomic.AddUint64(&s.numRoutingErrors, 1)
}

// SetActiveEndpoints sets the number of active endpoints
func (s *Statistics) SetActiveEndpoints(count uint64) {
	atomic.StoreUint64(&s.numActiveEndpoints, count)
}

// GetMessagesTx returns transmitted messages
func (s *Statistics) GetMessagesTx() uint64 {
	return atomic.LoadUint64(&s.numMessagesTx)
}

// GetMessagesRx returns received messages
func (s *Statistics) GetMessagesRx() uint64 {
	return atomic.LoadUint64(&s.numMessagesRx)
}

// GetBadMessages returns messages that failed to parse
func (s *Statistics) GetBadMessages() uint64 {
	return atomic.LoadUint64(&s.numBadMessages)
}

// GetReadErrors returns physical read errors
func (s *Statistics) GetReadErrors() uint64 {
	return atomic.LoadUint64(&s.numReadErrors)
}

// GetRoutingErrors returns messages an endpoint rejected
func (s *Statistics) GetRoutingErrors() uint64 {
	return atomic.LoadUint64(&s.numRoutingErrors)
}

// GetActiveEndpoints returns number of active endpoints
func (s *Statistics) GetActiveEndpoints() uint64 {
	return atomic.LoadUint64(&s.numActiveEndpoints)
}

// Reset resets all counters except the active endpoint count
func (s *Statistics) Reset() {
	atomic.StoreUint64(&s.numMessagesTx, 0)
	atomic.StoreUint64(&s.numMessagesRx, 0)
	atomic.StoreUint64(&s.numBadMessages, 0)
	atomic.StoreUint64(&s.numReadErrors, 0)
	atomic.StoreUint64(&s.numRoutingErrors, 0)
}
