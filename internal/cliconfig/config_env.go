package cliconfig

import "os"

// ApplyEnvConfig applies IMGSTREAM_* environment variables to cfg.
// Explicitly set flags (changed map) take precedence.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", os.Getenv("IMGSTREAM_TRANSPORT"), &cfg.Transport)
	s.setString("address", os.Getenv("IMGSTREAM_ADDRESS"), &cfg.Address)
	s.setString("log-level", os.Getenv("IMGSTREAM_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("display", os.Getenv("IMGSTREAM_DISPLAY"), &cfg.Display)
	s.setString("i2c-bus", os.Getenv("IMGSTREAM_I2C_BUS"), &cfg.I2CBus)
	s.setString("image", os.Getenv("IMGSTREAM_IMAGE"), &cfg.Image)
	s.setString("status", os.Getenv("IMGSTREAM_STATUS"), &cfg.Status)
	s.setStrings("ice-servers", splitList(os.Getenv("IMGSTREAM_ICE_SERVERS")), &cfg.ICEServers)

	if err := s.setDuration("reconnect-delay", os.Getenv("IMGSTREAM_RECONNECT_DELAY"), &cfg.ReconnectDelay); err != nil {
		return err
	}
	if err := s.setDuration("stall-timeout", os.Getenv("IMGSTREAM_STALL_TIMEOUT"), &cfg.StallTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("IMGSTREAM_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("chunk-delay", os.Getenv("IMGSTREAM_CHUNK_DELAY"), &cfg.ChunkDelay); err != nil {
		return err
	}

	if err := s.setIntFromString("chunk-size", os.Getenv("IMGSTREAM_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-capacity", os.Getenv("IMGSTREAM_BUFFER_CAPACITY"), &cfg.BufferCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("width", os.Getenv("IMGSTREAM_WIDTH"), &cfg.Width); err != nil {
		return err
	}
	if err := s.setIntFromString("height", os.Getenv("IMGSTREAM_HEIGHT"), &cfg.Height); err != nil {
		return err
	}
	if err := s.setIntFromString("scale", os.Getenv("IMGSTREAM_SCALE"), &cfg.Scale); err != nil {
		return err
	}

	s.setBoolFromString("listen", os.Getenv("IMGSTREAM_LISTEN"), &cfg.Listen)
	s.setBoolFromString("frame-debug", os.Getenv("IMGSTREAM_FRAME_DEBUG"), &cfg.FrameDebug)
	s.setBoolFromString("watch", os.Getenv("IMGSTREAM_WATCH"), &cfg.Watch)
	s.setBoolFromString("offer", os.Getenv("IMGSTREAM_OFFER"), &cfg.Offer)

	return nil
}
