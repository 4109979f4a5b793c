package transfer

import "fmt"

// State is the transfer state of a Receiver
type State int

const (
	StateIdle State = iota
	StateAccumulating
)

// String returns string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAccumulating:
		return "Accumulating"
	default:
		return "Unknown"
	}
}

// Completion is produced once per terminating fragment
type Completion struct {
	// Image aliases the reassembly buffer. It stays valid until the next
	// fragment is received.
	Image []byte

	// Fragments and Bytes count what was accepted during the transfer
	Fragments int
	Bytes     int
}

// Receiver reassembles fragments into a complete image blob.
// It is not safe for concurrent use; one goroutine drives it.
type Receiver struct {
	config Config
	buffer *Buffer
	state  State

	fragments int
	bytes     int

	stats *Statistics
}

// NewReceiver creates a receiver with a buffer of config.BufferCapacity bytes
func NewReceiver(config Config) *Receiver {
	r := &Receiver{
		config: config,
		buffer: NewBuffer(config.BufferCapacity),
		state:  StateIdle,
	}
	if config.EnableStatistics {
		r.stats = NewStatistics()
	}
	return r
}

// Receive applies one fragment.
// It returns a Completion when f terminates the transfer, nil otherwise.
// On error neither the buffer nor the transfer state changes.
func (r *Receiver) Receive(f Fragment) (*Completion, error) {
	if len(f.Data) > r.config.MaxChunkSize {
		r.count(func(s *Statistics) { s.IncrementOversizedFragments() })
		return nil, fmt.Errorf("%d bytes at offset %d, max %d: %w",
			len(f.Data), f.Offset, r.config.MaxChunkSize, ErrFragmentTooLarge)
	}
	if err := r.buffer.check(f.Offset, len(f.Data)); err != nil {
		r.count(func(s *Statistics) { s.IncrementBufferOverflows() })
		return nil, err
	}

	if r.state == StateIdle {
		r.begin()
	}

	if err := r.buffer.Write(f.Offset, f.Data); err != nil {
		return nil, err
	}
	r.fragments++
	r.bytes += len(f.Data)
	r.count(func(s *Statistics) { s.IncrementRxFragments(len(f.Data)) })

	if !IsFinal(f, r.config.MaxChunkSize) {
		return nil, nil
	}

	completion := &Completion{
		Image:     r.buffer.Snapshot(),
		Fragments: r.fragments,
		Bytes:     r.bytes,
	}
	r.state = StateIdle
	r.count(func(s *Statistics) { s.IncrementTransfers() })
	return completion, nil
}

// begin starts a new transfer
func (r *Receiver) begin() {
	r.buffer.Reset()
	r.fragments = 0
	r.bytes = 0
	r.state = StateAccumulating
}

// Reset abandons any in-progress transfer
func (r *Receiver) Reset() {
	r.buffer.Reset()
	r.fragments = 0
	r.bytes = 0
	r.state = StateIdle
}

// State returns the current transfer state
func (r *Receiver) State() State {
	return r.state
}

// InProgress returns true if a transfer is accumulating
func (r *Receiver) InProgress() bool {
	return r.state == StateAccumulating
}

// Buffer returns the reassembly buffer
func (r *Receiver) Buffer() *Buffer {
	return r.buffer
}

// MaxChunkSize returns the configured chunk size
func (r *Receiver) MaxChunkSize() int {
	return r.config.MaxChunkSize
}

// Stats returns receiver statistics, nil when disabled
func (r *Receiver) Stats() *Statistics {
	return r.stats
}

func (r *Receiver) count(fn func(*Statistics)) {
	if r.stats != nil {
		fn(r.stats)
	}
}
