package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.WarnLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"verbose", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.raw); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info().Msg("hidden message")
	log.Warn().Str("component", "chat-session").Msg("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("info must be filtered at warn level")
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "chat-session") {
		t.Errorf("expected warn entry with fields, got: %q", out)
	}
}
