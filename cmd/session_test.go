package cmd

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arin/gallery-chat/internal/ai"
	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/stats"
)

func TestSourceFactory(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		wantSource bool
		wantErr    bool
	}{
		{"gemini without key", config.Config{Provider: config.ProviderGemini}, false, false},
		{"gemini with key", config.Config{Provider: config.ProviderGemini, APIKey: "k", Model: "m"}, true, false},
		{"ollama", config.Config{Provider: config.ProviderOllama, Model: "m"}, true, false},
		{"unknown provider", config.Config{Provider: "bard"}, false, true},
		{"missing persona", config.Config{Provider: config.ProviderOllama, PersonaFile: filepath.Join(t.TempDir(), "nope.md")}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			newSource, err := sourceFactory(&cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			src := newSource()
			if (src != nil) != tt.wantSource {
				t.Fatalf("wantSource=%v, got %#v", tt.wantSource, src)
			}
			if src != nil && src == newSource() {
				t.Error("each conversation needs its own source")
			}
		})
	}
}

func TestSourceFactory_NoKeyOpensSetupNotice(t *testing.T) {
	newSource, err := sourceFactory(&config.Config{Provider: config.ProviderGemini})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := chat.NewSession(newSource(), chat.Options{})
	if s.Ready() {
		t.Error("session without a key should not be ready")
	}
	if got := s.Snapshot()[0].Text; got != chat.SetupNoticeText {
		t.Errorf("expected setup notice, got %q", got)
	}
}

func TestRecordTurn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := &config.Config{Provider: config.ProviderGemini, Model: "gemini-2.5-flash"}
	save := recordTurn("serve", cfg, zerolog.Nop())

	save(chat.TurnReport{Outcome: chat.OutcomeNone, Err: chat.ErrBusy})
	save(chat.TurnReport{Outcome: chat.OutcomeFailed, Fragments: 1, Duration: time.Second, Err: errors.New("boom")})

	records, err := stats.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the finished turn to be recorded, got %d", len(records))
	}
	if records[0].Surface != "serve" || records[0].Outcome != "failed" {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestNewCapturer(t *testing.T) {
	if newCapturer(&config.Config{}) != nil {
		t.Error("expected no capturer without a command")
	}
	if newCapturer(&config.Config{CaptureCommand: "echo hi"}) == nil {
		t.Error("expected a capturer for a configured command")
	}
}

var _ chat.Source = (*ai.Chat)(nil)
