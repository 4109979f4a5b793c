package display

import (
	"image"
	"sync"
)

// Memory is a headless presenter that keeps the last image and status.
type Memory struct {
	mu     sync.Mutex
	image  image.Image
	status string
	closed bool

	imageCount int
	history    []string
}

// NewMemory creates a headless presenter
func NewMemory() *Memory {
	return &Memory{}
}

// ShowImage records img
func (m *Memory) ShowImage(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.image = img
	m.imageCount++
	return nil
}

// ShowStatus records text
func (m *Memory) ShowStatus(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.status = text
	m.history = append(m.history, text)
	return nil
}

// Close marks the presenter closed
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Image returns the last image shown
func (m *Memory) Image() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.image
}

// Status returns the last status text shown
func (m *Memory) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ImageCount returns how many images were shown
func (m *Memory) ImageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageCount
}

// StatusHistory returns every status text shown, oldest first
func (m *Memory) StatusHistory() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// Render composes the current state into a frame of the given size
func (m *Memory) Render(bounds image.Rectangle) *image.Gray {
	m.mu.Lock()
	img, status := m.image, m.status
	m.mu.Unlock()

	frame := image.NewGray(bounds)
	Compose(frame, img, status)
	return frame
}
