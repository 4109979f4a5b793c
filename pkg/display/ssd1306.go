package display

import (
	"fmt"
	"image"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"avaneesh/imgstream-go/pkg/internal/logger"
)

// SSD1306Config holds configuration for an I2C OLED panel
type SSD1306Config struct {
	// Bus is the I2C bus name passed to i2creg.Open; empty selects the first bus
	Bus string

	// Width and Height of the panel in pixels
	Width  int
	Height int

	// Rotated flips the panel 180 degrees
	Rotated bool
}

// DefaultSSD1306Config returns the 128x64 panel defaults
func DefaultSSD1306Config() SSD1306Config {
	return SSD1306Config{
		Bus:    "",
		Width:  ssd1306.DefaultOpts.W,
		Height: ssd1306.DefaultOpts.H,
	}
}

// SSD1306 presents on a periph.io SSD1306 OLED
type SSD1306 struct {
	mu     sync.Mutex
	bus    i2c.BusCloser
	dev    *ssd1306.Dev
	frame  *image1bit.VerticalLSB
	image  image.Image
	status string
	logger logger.Logger
}

// OpenSSD1306 initializes the host drivers and opens the panel
func OpenSSD1306(config SSD1306Config, log logger.Logger) (*SSD1306, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(config.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", config.Bus, err)
	}

	opts := ssd1306.DefaultOpts
	opts.W = config.Width
	opts.H = config.Height
	opts.Rotated = config.Rotated

	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ssd1306: %w", err)
	}

	log.Info("SSD1306: opened %dx%d panel on bus %q", config.Width, config.Height, config.Bus)

	return &SSD1306{
		bus:    bus,
		dev:    dev,
		frame:  image1bit.NewVerticalLSB(dev.Bounds()),
		logger: log,
	}, nil
}

// ShowImage draws img and the current status
func (s *SSD1306) ShowImage(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	return s.refresh()
}

// ShowStatus draws the current image with new status text
func (s *SSD1306) ShowStatus(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = text
	return s.refresh()
}

// refresh pushes a composed frame to the panel. Caller holds mu.
func (s *SSD1306) refresh() error {
	if s.dev == nil {
		return ErrClosed
	}
	Compose(s.frame, s.image, s.status)
	if err := s.dev.Draw(s.dev.Bounds(), s.frame, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 draw: %w", err)
	}
	return nil
}

// Close blanks the panel and releases the bus
func (s *SSD1306) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}

	err := s.dev.Halt()
	if cerr := s.bus.Close(); err == nil {
		err = cerr
	}
	s.dev = nil
	s.logger.Info("SSD1306: closed")
	return err
}
