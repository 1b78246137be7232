// Package log builds the zerolog logger used by the imag command.
//
// There is no package-level logger. The command builds one from its
// configuration and hands it to the store explicitly.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	// Disabled turns logging off.
	Disabled Level = "off"
)

// Format selects the log encoding.
type Format string

const (
	// FormatConsole is human readable output via [zerolog.ConsoleWriter].
	FormatConsole Format = "console"
	// FormatJSON is one JSON object per line.
	FormatJSON Format = "json"
)

var (
	// ErrInvalidLevel indicates an unknown log level name.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidFormat indicates an unknown log format name.
	ErrInvalidFormat = errors.New("invalid log format")
)

// Config holds logging configuration.
type Config struct {
	Level  Level
	Format Format

	// Output defaults to os.Stderr.
	Output io.Writer

	// NoColor disables ANSI colors in console output.
	NoColor bool
}

// New builds a logger from cfg. Empty Level and Format mean warn and
// console.
func New(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var logger zerolog.Logger

	switch Format(strings.ToLower(string(cfg.Format))) {
	case FormatJSON:
		logger = zerolog.New(output)
	case FormatConsole, "":
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		})
	default:
		return zerolog.Nop(), fmt.Errorf("%w: %q (want console or json)", ErrInvalidFormat, cfg.Format)
	}

	return logger.Level(level).With().Timestamp().Logger(), nil
}

// ParseLevel maps a level name to its zerolog level. Empty means warn.
func ParseLevel(l Level) (zerolog.Level, error) {
	switch Level(strings.ToLower(string(l))) {
	case DebugLevel:
		return zerolog.DebugLevel, nil
	case InfoLevel:
		return zerolog.InfoLevel, nil
	case WarnLevel, "":
		return zerolog.WarnLevel, nil
	case ErrorLevel:
		return zerolog.ErrorLevel, nil
	case Disabled:
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, l)
	}
}

// WithComponent creates a child logger with component field.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
