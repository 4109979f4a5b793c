package cliconfig

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Transport      string   `toml:"transport"`
	Address        string   `toml:"address"`
	Listen         *bool    `toml:"listen"`
	ReconnectDelay string   `toml:"reconnect_delay"`
	ChunkSize      int      `toml:"chunk_size"`
	BufferCapacity int      `toml:"buffer_capacity"`
	LogLevel       string   `toml:"log_level"`
	FrameDebug     *bool    `toml:"frame_debug"`
	Display        string   `toml:"display"`
	I2CBus         string   `toml:"i2c_bus"`
	Width          int      `toml:"width"`
	Height         int      `toml:"height"`
	Scale          int      `toml:"scale"`
	StallTimeout   string   `toml:"stall_timeout"`
	Image          string   `toml:"image"`
	Interval       string   `toml:"interval"`
	ChunkDelay     string   `toml:"chunk_delay"`
	Status         string   `toml:"status"`
	Watch          *bool    `toml:"watch"`
	Offer          *bool    `toml:"offer"`
	ICEServers     []string `toml:"ice_servers"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("address", fc.Address, &cfg.Address)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("display", fc.Display, &cfg.Display)
	s.setString("i2c-bus", fc.I2CBus, &cfg.I2CBus)
	s.setString("image", fc.Image, &cfg.Image)
	s.setString("status", fc.Status, &cfg.Status)
	s.setStrings("ice-servers", fc.ICEServers, &cfg.ICEServers)

	if err := s.setDuration("reconnect-delay", fc.ReconnectDelay, &cfg.ReconnectDelay); err != nil {
		return err
	}
	if err := s.setDuration("stall-timeout", fc.StallTimeout, &cfg.StallTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("chunk-delay", fc.ChunkDelay, &cfg.ChunkDelay); err != nil {
		return err
	}

	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
	s.setInt("buffer-capacity", fc.BufferCapacity, &cfg.BufferCapacity)
	s.setInt("width", fc.Width, &cfg.Width)
	s.setInt("height", fc.Height, &cfg.Height)
	s.setInt("scale", fc.Scale, &cfg.Scale)

	s.setBool("listen", fc.Listen, &cfg.Listen)
	s.setBool("frame-debug", fc.FrameDebug, &cfg.FrameDebug)
	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setBool("offer", fc.Offer, &cfg.Offer)

	return nil
}
