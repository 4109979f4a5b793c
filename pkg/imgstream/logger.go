package imgstream

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"avaneesh/imgstream-go/pkg/internal/logger"
)

// Logger is the printf-style logger used throughout the library
type Logger = logger.Logger

// LogLevel represents logging level
type LogLevel int

const (
	// LevelDebug shows all log messages (most verbose)
	LevelDebug LogLevel = iota
	// LevelInfo shows info, warn, and error messages (default)
	LevelInfo
	// LevelWarn shows warn and error messages
	LevelWarn
	// LevelError shows only error messages
	LevelError
)

// ParseLogLevel parses "debug", "info", "warn" or "error"
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLogLevel sets the global logging level
// Use this to enable/disable different levels of logging output
func SetLogLevel(level LogLevel) {
	logger.SetDefault(logger.NewDefaultLogger(logger.Level(level)))
}

// SetLogger replaces the global logger
func SetLogger(log Logger) {
	logger.SetDefault(log)
}

// NewLogger wraps a zerolog.Logger at the given level
func NewLogger(zl zerolog.Logger, level LogLevel) Logger {
	return logger.NewZerologLogger(zl, logger.Level(level))
}

// NewNoOpLogger returns a logger that discards everything
func NewNoOpLogger() Logger {
	return logger.NewNoOpLogger()
}

// EnableFrameDebug enables or disables detailed message debugging
// When enabled, shows hex dumps of all messages sent and received
func EnableFrameDebug(enable bool) {
	logger.SetFrameDebug(enable)
}
