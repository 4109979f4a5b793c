// Package imgstream is the entry point for building viewers and senders on
// top of a physical channel.
package imgstream

import (
	"fmt"
	"sync"

	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/internal/logger"
)

// Manager is the root object for image streaming
// It manages channels and provides the main API entry point
type Manager struct {
	channels map[string]*channel.Channel
	mu       sync.RWMutex
	logger   logger.Logger
}

// NewManager creates a new manager using the default logger
func NewManager() *Manager {
	return NewManagerWithLogger(logger.GetDefault())
}

// NewManagerWithLogger creates a new manager with custom logger
func NewManagerWithLogger(log Logger) *Manager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Manager{
		channels: make(map[string]*channel.Channel),
		logger:   log,
	}
}

// AddChannel creates and opens a channel over the given physical channel
func (m *Manager) AddChannel(id string, physical channel.PhysicalChannel) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[id]; exists {
		return nil, fmt.Errorf("channel %s already exists", id)
	}

	ch := channel.New(id, physical, m.logger)

	if err := ch.Open(); err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	m.channels[id] = ch
	m.logger.Info("Manager: Added channel %s", id)

	return &channelImpl{channel: ch, manager: m}, nil
}

// RemoveChannel closes and removes a channel
func (m *Manager) RemoveChannel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, exists := m.channels[id]
	if !exists {
		return fmt.Errorf("channel %s not found", id)
	}

	if err := ch.Close(); err != nil {
		m.logger.Error("Error closing channel %s: %v", id, err)
	}

	delete(m.channels, id)
	m.logger.Info("Manager: Removed channel %s", id)
	return nil
}

// GetChannel returns a channel by ID
func (m *Manager) GetChannel(id string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, exists := m.channels[id]
	if !exists {
		return nil, false
	}

	return &channelImpl{channel: ch, manager: m}, true
}

// Shutdown closes all channels
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Manager: Shutting down")

	for id, ch := range m.channels {
		if err := ch.Close(); err != nil {
			m.logger.Error("Error closing channel %s: %v", id, err)
		}
	}

	m.channels = make(map[string]*channel.Channel)
	m.logger.Info("Manager: Shutdown complete")
	return nil
}

// ChannelCount returns the number of channels
func (m *Manager) ChannelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}

// Logger returns the manager's logger
func (m *Manager) Logger() Logger {
	return m.logger
}
