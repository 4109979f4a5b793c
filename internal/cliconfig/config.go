package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/transfer"
)

// DefaultAddress is where imgsend listens and imgview connects by default.
const DefaultAddress = "127.0.0.1:9300"

// Supported transports and displays
var (
	Transports = []string{"udp", "tcp", "quic", "webrtc"}
	Displays   = []string{"headless", "ssd1306", "window"}
)

// Config holds CLI configuration shared by imgview and imgsend.
type Config struct {
	Transport      string
	Address        string
	Listen         bool
	ReconnectDelay time.Duration

	ChunkSize      int
	BufferCapacity int

	LogLevel   string
	FrameDebug bool

	// imgview
	Display      string
	I2CBus       string
	Width        int
	Height       int
	Scale        int
	StallTimeout time.Duration

	// imgsend
	Image      string
	Interval   time.Duration
	ChunkDelay time.Duration
	Status     string
	Watch      bool

	// webrtc
	Offer      bool
	ICEServers []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Transport:      "udp",
		Address:        DefaultAddress,
		ReconnectDelay: 5 * time.Second,
		ChunkSize:      transfer.DefaultMaxChunkSize,
		BufferCapacity: transfer.DefaultBufferCapacity,
		LogLevel:       "info",
		Display:        "headless",
		Width:          144,
		Height:         168,
		Scale:          3,
		StallTimeout:   30 * time.Second,
		ICEServers:     append([]string(nil), channel.DefaultICEServers...),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(c.Transport)
	if !oneOf(c.Transport, Transports) {
		return fmt.Errorf("transport must be one of %s, got %q", strings.Join(Transports, ", "), c.Transport)
	}
	if c.Transport != "webrtc" && c.Address == "" {
		return fmt.Errorf("address is required for %s", c.Transport)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive")
	}

	c.Display = strings.ToLower(c.Display)
	if !oneOf(c.Display, Displays) {
		return fmt.Errorf("display must be one of %s, got %q", strings.Join(Displays, ", "), c.Display)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.StallTimeout < 0 {
		return fmt.Errorf("stall timeout must not be negative")
	}
	if c.Interval < 0 || c.ChunkDelay < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

// ValidateSender checks the configuration for imgsend.
func (c *Config) ValidateSender() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Image == "" {
		return fmt.Errorf("image is required")
	}
	return nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.imgstream/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".imgstream", "config.toml")
	}
	return ""
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
