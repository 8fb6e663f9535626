// Package logging installs the process-wide slog default used by both the
// hub and the client binaries.
package logging

import (
	"log/slog"
	"os"
)

// Init sets a text handler on stderr. The level comes from
// LETSTALK_LOG_LEVEL; unset means errors only, so interactive CLI output
// stays free of log noise.
func Init() {
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: levelFromEnv(),
		}),
	)
	slog.SetDefault(logger)
}

func levelFromEnv() slog.Level {
	switch os.Getenv("LETSTALK_LOG_LEVEL") {
	case "debug", "dev", "development":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
