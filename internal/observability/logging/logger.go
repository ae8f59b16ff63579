package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func NewJSONLogger(service, level string) *slog.Logger {
	return newJSONLogger(os.Stdout, service, level, false)
}

// NewServiceLogger is NewJSONLogger with debug forced on when debugMode is set.
func NewServiceLogger(service, level string, debugMode bool) *slog.Logger {
	return newJSONLogger(os.Stdout, service, level, debugMode)
}

func newJSONLogger(w io.Writer, service, level string, debugMode bool) *slog.Logger {
	lvl := parseLevel(level)
	if debugMode {
		lvl = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
