package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_WritesJSONWithFields(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Output: &buf, Fields: map[string]string{"service": "users-service"}})
	log.Debug().Str("k", "v").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "hello" || entry["k"] != "v" || entry["service"] != "users-service" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestInit_IsSingleton(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	Init(Options{Output: &second})
	l := Get()
	l.Info().Msg("once")

	if first.Len() == 0 || second.Len() != 0 {
		t.Fatalf("only the first Init must take effect")
	}
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	Get()
}

func TestInit_FileSink(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "users.log")
	var buf bytes.Buffer
	Init(Options{Output: &buf, File: path})
	l := Get()
	l.Warn().Msg("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Fatalf("expected entry in file and stdout sink")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_LeavesSingletonAlone(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: "error"})
	l.Info().Msg("filtered")
	if buf.Len() != 0 {
		t.Fatalf("info entry must be filtered at error level, got %q", buf.String())
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("New must not initialise the singleton")
		}
	}()
	Get()
}
