package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"docqa/internal/config"
)

// New builds the application logger. The returned closer releases the log
// file when one is configured.
func New(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	out := stderr
	closer := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = f.Close
	}
	opts := slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(out, &opts)
	case "text":
		h = slog.NewTextHandler(out, &opts)
	case "pretty", "":
		h = NewPrettyHandler(out, PrettyHandlerOptions{SlogOpts: opts})
	default:
		return nil, nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}
	return slog.New(h), closer, nil
}

// ParseLevel maps debug/info/warn/error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level: %s", s)
}

// Discard returns a logger that drops everything, for tests and library use.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
