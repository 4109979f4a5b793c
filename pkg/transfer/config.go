package transfer

import (
	"errors"
	"fmt"
)

// Default sizes for the 144x168 1-bit screen
const (
	// DefaultMaxChunkSize is the largest fragment payload accepted
	DefaultMaxChunkSize = 1500

	// DefaultBufferCapacity fits a 144x168 bitmap at a 20-byte row stride plus
	// the 12-byte bitmap header.
	DefaultBufferCapacity = 20*168 + 12
)

// Config holds configuration for the transfer receiver
type Config struct {
	// MaxChunkSize is the fragment size the sender uses for every fragment
	// except the last. A shorter fragment terminates the transfer.
	// Default: 1500 bytes
	MaxChunkSize int

	// BufferCapacity is the fixed size of the reassembly buffer
	// Default: 3372 bytes
	BufferCapacity int

	// EnableStatistics enables statistics collection
	EnableStatistics bool
}

// DefaultConfig returns default transfer configuration
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:     DefaultMaxChunkSize,
		BufferCapacity:   DefaultBufferCapacity,
		EnableStatistics: true,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.MaxChunkSize)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", c.BufferCapacity)
	}
	if c.BufferCapacity > maxBufferCapacity {
		return errors.New("buffer capacity exceeds int32 offset range")
	}
	return nil
}

// offsets travel as int32 on the wire
const maxBufferCapacity = 1<<31 - 1
