package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrBufferOverflow   = errors.New("reassembly buffer overflow")
	ErrFragmentTooLarge = errors.New("fragment exceeds max chunk size")
)

// OverflowError describes a write that would fall outside the buffer
type OverflowError struct {
	Offset   uint32
	Length   int
	Capacity int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%v: offset %d + length %d > capacity %d",
		ErrBufferOverflow, e.Offset, e.Length, e.Capacity)
}

// Unwrap allows errors.Is(err, ErrBufferOverflow)
func (e *OverflowError) Unwrap() error {
	return ErrBufferOverflow
}

// Buffer is the fixed-capacity reassembly region.
// It is allocated once and never resized.
type Buffer struct {
	storage []byte
	extent  int
}

// NewBuffer creates a zeroed buffer of exactly capacity bytes
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		storage: make([]byte, capacity),
	}
}

// Write copies data into the buffer at offset.
// Storage is untouched when the write would not fit.
func (b *Buffer) Write(offset uint32, data []byte) error {
	if err := b.check(offset, len(data)); err != nil {
		return err
	}

	end := int(offset) + len(data)
	copy(b.storage[offset:end], data)
	if end > b.extent {
		b.extent = end
	}
	return nil
}

// check validates a write without performing it
func (b *Buffer) check(offset uint32, length int) error {
	if uint64(offset)+uint64(length) > uint64(len(b.storage)) {
		return &OverflowError{Offset: offset, Length: length, Capacity: len(b.storage)}
	}
	return nil
}

// Snapshot returns a view of the bytes written since the last Reset.
// The slice aliases the buffer and is valid until the next Write.
func (b *Buffer) Snapshot() []byte {
	return b.storage[:b.extent:b.extent]
}

// Reset starts a new extent. Content is left in place and overwritten by
// the next transfer.
func (b *Buffer) Reset() {
	b.extent = 0
}

// Cap returns the fixed capacity
func (b *Buffer) Cap() int {
	return len(b.storage)
}

// Len returns the current extent
func (b *Buffer) Len() int {
	return b.extent
}
