package logger

import (
	"log/slog"
	"os"
	"strings"
)

// L is the global logger instance
var L *slog.Logger

func init() {
	// Sensible default so packages can log before Init runs.
	L = slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// Init initializes the global logger.
// Call this once at application startup, after loading config.
func Init(logLevelStr string) {
	var level slog.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		slog.Warn("invalid LOG_LEVEL, defaulting to INFO", "configuredLevel", logLevelStr)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	L = slog.New(handler)
	slog.SetDefault(L)
}
