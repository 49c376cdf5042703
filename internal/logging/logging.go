// Package logging provides structured logging for stpactl components.
//
// Output goes to stderr so command results on stdout stay scriptable.
// The level is controlled by the STPACTL_LOG environment variable
// (debug, info, warn, error); the default is warn so normal CLI use
// stays quiet.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing text records to stderr at the given level.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// Default returns a logger with the level taken from STPACTL_LOG.
func Default() *slog.Logger {
	return New(levelFromEnv())
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("STPACTL_LOG")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
