// Package logging builds the zerolog logger used for diagnostics. Diagnostics
// go to stderr so stdout carries only command output.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging level name.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format selects the writer: human-readable console lines or JSON objects.
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

// Config holds the logger configuration.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return l, nil
	}
	return "", fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case TextFormat, JSONFormat:
		return f, nil
	}
	return "", fmt.Errorf("unknown log format %q (want text|json)", s)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger. A nil Output discards everything.
func New(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		return zerolog.Nop()
	}
	w := cfg.Output
	if cfg.Format != JSONFormat {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).
		Level(cfg.Level.zerolog()).
		With().
		Timestamp().
		Str("app", "tokensend").
		Logger()
}

// ForVerbosity returns a text logger on w at debug level when verbose,
// otherwise at warn so routine progress stays quiet.
func ForVerbosity(w io.Writer, verbose bool) zerolog.Logger {
	level := WarnLevel
	if verbose {
		level = DebugLevel
	}
	return New(Config{Level: level, Format: TextFormat, Output: w})
}

// FromSettings builds the logger from the log_level and log_format settings.
// verbose forces debug level.
func FromSettings(w io.Writer, level, format string, verbose bool) (zerolog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return zerolog.Nop(), err
	}
	if verbose {
		l = DebugLevel
	}
	return New(Config{Level: l, Format: f, Output: w}), nil
}
