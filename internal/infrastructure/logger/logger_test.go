package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerFormatsOutput(t *testing.T) {
	t.Run("json carries service and message", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Format: "json", Level: "debug", Service: "blockpay", Output: &buf})
		log.Info().Msg("hello")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected json output, got %q: %v", buf.String(), err)
		}
		if line["message"] != "hello" || line["service"] != "blockpay" {
			t.Fatalf("unexpected fields %v", line)
		}
	})

	t.Run("console is human readable", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Format: "console", Level: "info", Output: &buf})
		log.Info().Msg("hello")

		out := buf.String()
		if strings.HasPrefix(strings.TrimSpace(out), "{") || !strings.Contains(out, "hello") {
			t.Fatalf("expected console output, got %q", out)
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Level: "warn", Output: &buf})
		log.Info().Msg("quiet")
		if buf.Len() != 0 {
			t.Fatalf("expected info to be filtered, got %q", buf.String())
		}
	})
}
