// Package logger builds the slog loggers used across frames: colourised
// lines for whoever is at the terminal, JSON lines for the session log file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Format selects the handler New builds.
type Format int

const (
	// FormatText is slog's key=value text handler.
	FormatText Format = iota

	// FormatPretty is charmbracelet/log, for interactive output.
	FormatPretty

	// FormatJSON is one JSON object per record.
	FormatJSON
)

type settings struct {
	level  slog.Level
	format Format
	out    io.Writer
}

// Option configures New.
type Option func(*settings)

// WithDebug lowers the level to Debug when debug is set.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(s *settings) { s.level = level }
}

// WithFormat picks the handler.
func WithFormat(f Format) Option {
	return func(s *settings) { s.format = f }
}

// WithWriter sets the destination. Defaults to stderr so command output on
// stdout stays clean.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// New builds a logger at Info level writing text to stderr unless
// configured otherwise.
func New(opts ...Option) *slog.Logger {
	s := settings{level: slog.LevelInfo, out: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}
	return slog.New(s.handler())
}

func (s settings) handler() slog.Handler {
	switch s.format {
	case FormatPretty:
		return charmlog.NewWithOptions(s.out, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	case FormatJSON:
		return slog.NewJSONHandler(s.out, &slog.HandlerOptions{Level: s.level})
	default:
		return slog.NewTextHandler(s.out, &slog.HandlerOptions{Level: s.level})
	}
}

// OpenFile appends debug-level JSON records to path, creating it with 0600.
// The caller closes the returned file.
func OpenFile(path string) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return New(WithFormat(FormatJSON), WithLevel(slog.LevelDebug), WithWriter(f)), f, nil
}

// Nop returns a logger that drops every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
