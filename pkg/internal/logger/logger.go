package logger

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level represents logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns string representation of Level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// zerologLevel maps Level onto the zerolog level set
func (l Level) zerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the interface for logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level Level)
}

// DefaultLogger writes through a zerolog.Logger
type DefaultLogger struct {
	level  Level
	logger zerolog.Logger
}

// NewDefaultLogger creates a logger with console output on stderr
func NewDefaultLogger(level Level) *DefaultLogger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return NewZerologLogger(zerolog.New(output).With().Timestamp().Logger(), level)
}

// NewWriterLogger creates a logger emitting JSON lines to w
func NewWriterLogger(w io.Writer, level Level) *DefaultLogger {
	return NewZerologLogger(zerolog.New(w).With().Timestamp().Logger(), level)
}

// NewZerologLogger wraps an existing zerolog.Logger
func NewZerologLogger(zl zerolog.Logger, level Level) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		logger: zl.Level(level.zerologLevel()),
	}
}

// Debug logs debug message
func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Info logs info message
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

// Warn logs warning message
func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

// Error logs error message
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// SetLevel sets the logging level
func (l *DefaultLogger) SetLevel(level Level) {
	l.level = level
	l.logger = l.logger.Level(level.zerologLevel())
}

// Zerolog returns the underlying zerolog.Logger
func (l *DefaultLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// NoOpLogger is a logger that doesn't log anything
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that doesn't log
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug does nothing
func (l *NoOpLogger) Debug(format string, args ...interface{}) {}

// Info does nothing
func (l *NoOpLogger) Info(format string, args ...interface{}) {}

// Warn does nothing
func (l *NoOpLogger) Warn(format string, args ...interface{}) {}

// Error does nothing
func (l *NoOpLogger) Error(format string, args ...interface{}) {}

// SetLevel does nothing
func (l *NoOpLogger) SetLevel(level Level) {}

// Global default logger
var defaultLogger Logger = NewDefaultLogger(LevelInfo)

var frameDebug atomic.Bool

// SetDefault sets the default logger
func SetDefault(logger Logger) {
	defaultLogger = logger
}

// GetDefault returns the default logger
func GetDefault() Logger {
	return defaultLogger
}

// SetFrameDebug toggles hex dumps of every message sent and received
func SetFrameDebug(enable bool) {
	frameDebug.Store(enable)
}

// FrameDebug reports whether hex dumps are enabled
func FrameDebug() bool {
	return frameDebug.Load()
}

// Helper functions using default logger

// Debug logs debug message using default logger
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

// Info logs info message using default logger
func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

// Warn logs warning message using default logger
func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

// Error logs error message using default logger
func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

// Logf is a generic logging function
func Logf(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelDebug:
		defaultLogger.Debug("%s", msg)
	case LevelInfo:
		defaultLogger.Info("%s", msg)
	case LevelWarn:
		defaultLogger.Warn("%s", msg)
	case LevelError:
		defaultLogger.Error("%s", msg)
	}
}
