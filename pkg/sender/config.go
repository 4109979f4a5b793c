package sender

import (
	"fmt"
	"time"

	"avaneesh/imgstream-go/pkg/transfer"
)

// Config holds configuration for a sender
type Config struct {
	// ID identifies the sender on its channel
	ID string

	// MaxChunkSize must match the viewer's chunk size
	// Default: 1500 bytes
	MaxChunkSize int

	// Interval re-sends the image periodically. Zero disables it.
	Interval time.Duration

	// SendOnRequest pushes the image whenever the viewer asks for it
	SendOnRequest bool

	// StatusText is sent as a MESSAGE before every push when not empty
	StatusText string

	// ChunkDelay paces fragments on lossy links. Zero sends back to back.
	ChunkDelay time.Duration
}

// DefaultConfig returns default sender configuration
func DefaultConfig() Config {
	return Config{
		ID:            "sender",
		MaxChunkSize:  transfer.DefaultMaxChunkSize,
		Interval:      0,
		SendOnRequest: true,
		StatusText:    "",
		ChunkDelay:    0,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("sender ID is required")
	}
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.MaxChunkSize)
	}
	if c.Interval < 0 || c.ChunkDelay < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
