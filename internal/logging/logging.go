package logging

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// New builds a logger writing to stderr. Stdout stays free for the stdio
// MCP channel.
func New(format, level string) *slog.Logger {
	return NewWithWriter(os.Stderr, format, level)
}

// NewWithWriter builds a logger writing to w. format is "json" or "text".
func NewWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
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

// StartService installs logger as the default and logs the start banner
func StartService(logger *slog.Logger, name, version string) {
	slog.SetDefault(logger)
	logger.Info("service starting",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("go", runtime.Version()),
		slog.Int("pid", os.Getpid()))
}
