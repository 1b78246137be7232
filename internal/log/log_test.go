package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/imag/internal/log"
)

func Test_New_Writes_JSON_When_Format_Is_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := log.New(log.Config{Level: log.DebugLevel, Format: log.FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	componentLogger := log.WithComponent(logger, "store")
	componentLogger.Debug().Str("id", "notes/a").Msg("entry locked")

	var rec map[string]any

	err = json.Unmarshal(buf.Bytes(), &rec)
	if err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	for key, want := range map[string]string{
		"level":     "debug",
		"component": "store",
		"id":        "notes/a",
		"message":   "entry locked",
	} {
		if rec[key] != want {
			t.Fatalf("%s=%v, want %q", key, rec[key], want)
		}
	}

	if _, ok := rec["time"]; !ok {
		t.Fatalf("missing time field: %v", rec)
	}
}

func Test_New_Drops_Events_Below_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := log.New(log.Config{Format: log.FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("output=%q, want only the warn event", out)
	}
}

func Test_New_Writes_Console_When_Format_Is_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := log.New(log.Config{Level: log.InfoLevel, Output: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info().Str("id", "a").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, "INF") || !strings.Contains(out, "hello") || !strings.Contains(out, "id=a") {
		t.Fatalf("output=%q, want console line", out)
	}
}

func Test_New_Fails_When_Level_Or_Format_Unknown(t *testing.T) {
	t.Parallel()

	_, err := log.New(log.Config{Level: "chatty"})
	if !errors.Is(err, log.ErrInvalidLevel) {
		t.Fatalf("err=%v, want %v", err, log.ErrInvalidLevel)
	}

	_, err = log.New(log.Config{Format: "xml"})
	if !errors.Is(err, log.ErrInvalidFormat) {
		t.Fatalf("err=%v, want %v", err, log.ErrInvalidFormat)
	}
}

func Test_ParseLevel_Accepts_Any_Case(t *testing.T) {
	t.Parallel()

	for in, want := range map[log.Level]zerolog.Level{
		"DEBUG": zerolog.DebugLevel,
		"Info":  zerolog.InfoLevel,
		"":      zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"off":   zerolog.Disabled,
	} {
		got, err := log.ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
}
