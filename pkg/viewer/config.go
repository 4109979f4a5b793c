package viewer

import (
	"fmt"
	"time"

	"avaneesh/imgstream-go/pkg/transfer"
)

// Config holds configuration for a viewer
type Config struct {
	// ID identifies the viewer on its channel
	ID string

	// Transfer configures chunk size and reassembly buffer capacity
	Transfer transfer.Config

	// StallTimeout abandons a transfer when no fragment arrives for this
	// long while accumulating, then asks for the image again.
	// Zero disables the timeout.
	// Default: 30 seconds
	StallTimeout time.Duration

	// RequestOnStart sends the image request when the viewer is enabled
	RequestOnStart bool

	// RequestOnConnect sends the image request whenever the physical
	// channel reports a new connection
	RequestOnConnect bool

	// InitialStatus is shown when the viewer is enabled
	InitialStatus string

	// MaxImageWidth and MaxImageHeight reject decoded images larger than
	// the screen. Zero disables the check.
	MaxImageWidth  int
	MaxImageHeight int

	// InboxSize is the number of received messages queued for dispatch
	InboxSize int
}

// DefaultConfig returns default viewer configuration for a 144x168 screen
func DefaultConfig() Config {
	return Config{
		ID:               "viewer",
		Transfer:         transfer.DefaultConfig(),
		StallTimeout:     30 * time.Second,
		RequestOnStart:   true,
		RequestOnConnect: true,
		InitialStatus:    "",
		MaxImageWidth:    144,
		MaxImageHeight:   168,
		InboxSize:        64,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("viewer ID is required")
	}
	if err := c.Transfer.Validate(); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if c.StallTimeout < 0 {
		return fmt.Errorf("stall timeout must not be negative, got %v", c.StallTimeout)
	}
	if c.MaxImageWidth < 0 || c.MaxImageHeight < 0 {
		return fmt.Errorf("max image size must not be negative, got %dx%d", c.MaxImageWidth, c.MaxImageHeight)
	}
	return nil
}
