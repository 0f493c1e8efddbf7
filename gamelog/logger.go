// Package gamelog provides the shared structured logger for the core.
// Level comes from ROGUE_LOG_LEVEL and defaults to warn so loaders can
// report skipped lines without spamming test output.
package gamelog

import (
	"log/slog"
	"os"
	"strings"
)

var logger *slog.Logger

// Initialize sets up the global structured logger.
func Initialize() {
	l := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: getLogLevel(),
	}))
	logger = l
	slog.SetDefault(l)
}

func getLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("ROGUE_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	if logger == nil {
		Initialize()
	}
	logger.Debug(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	if logger == nil {
		Initialize()
	}
	logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	if logger == nil {
		Initialize()
	}
	logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	if logger == nil {
		Initialize()
	}
	logger.Error(msg, args...)
}

// WithContext returns a logger with additional context fields.
func WithContext(args ...any) *slog.Logger {
	if logger == nil {
		Initialize()
	}
	return logger.With(args...)
}
