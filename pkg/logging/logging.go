// Package logging builds the slog loggers used by shelf's tools and
// backends. The core entity layer stays silent; packages that reach the
// outside world take a *slog.Logger and default to Nop.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler encoding.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config describes a logger. The zero value logs info-level text to stderr.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, or error.
	// Unrecognized values fall back to info.
	Level string

	// Format is the handler encoding, text or json.
	Format Format

	// Output receives the log stream. Defaults to os.Stderr.
	Output io.Writer

	// AddSource annotates entries with source file and line.
	AddSource bool
}

// New builds a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Nop returns a logger that discards everything. Use it where a logger is
// required but logging is off.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to its slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
