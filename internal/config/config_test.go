package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envKeyAPIKey, "")
	t.Setenv(envKeyGeminiAPIKey, "")
	t.Setenv(envKeyModel, "")
	t.Setenv(envKeyProvider, "")
	t.Setenv(envKeyLogLevel, "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Provider != ProviderGemini {
		t.Errorf("expected default provider %q, got %q", ProviderGemini, cfg.Provider)
	}
	if cfg.Model != defaultGeminiModel {
		t.Errorf("expected default model %q, got %q", defaultGeminiModel, cfg.Model)
	}
	if cfg.Timeout() != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", cfg.Timeout())
	}
	if cfg.Ready() {
		t.Error("gemini without a key should not be ready")
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(envKeyAPIKey, "from-api-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.APIKey != "from-api-key" {
		t.Errorf("expected key from API_KEY, got %q", cfg.APIKey)
	}
	if !cfg.Ready() {
		t.Error("expected config to be ready with a key")
	}
}

func TestLoad_GeminiKeyWins(t *testing.T) {
	isolate(t)
	t.Setenv(envKeyAPIKey, "generic")
	t.Setenv(envKeyGeminiAPIKey, "specific")

	cfg, _ := Load()
	if cfg.APIKey != "specific" {
		t.Errorf("expected GEMINI_API_KEY to take precedence, got %q", cfg.APIKey)
	}
}

func TestLoad_OllamaDefaults(t *testing.T) {
	isolate(t)
	t.Setenv(envKeyProvider, "OLLAMA")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Model != defaultOllamaModel {
		t.Errorf("expected ollama default model, got %q", cfg.Model)
	}
	if !cfg.Ready() {
		t.Error("ollama needs no key")
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	isolate(t)
	t.Setenv(envKeyProvider, "banana")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoad_CorruptFileFallsBackToDefaults(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, dirName)
	os.MkdirAll(dir, 0o700)
	os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0o600)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("corrupt file should not error, got: %v", err)
	}
	if cfg.Model != defaultGeminiModel {
		t.Errorf("expected defaults, got model %q", cfg.Model)
	}
}

func TestSetters_Persist(t *testing.T) {
	isolate(t)

	if err := SetAPIKey("abcd1234efgh"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if err := SetModel("gemini-2.5-pro"); err != nil {
		t.Fatalf("SetModel failed: %v", err)
	}
	if err := SetCaptureCommand("whisper-listen --once"); err != nil {
		t.Fatalf("SetCaptureCommand failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "abcd1234efgh" {
		t.Errorf("unexpected key: %q", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("unexpected model: %q", cfg.Model)
	}
	if cfg.CaptureCommand != "whisper-listen --once" {
		t.Errorf("unexpected capture command: %q", cfg.CaptureCommand)
	}
	if cfg.MaskedKey() != "abcd...efgh" {
		t.Errorf("unexpected masked key: %q", cfg.MaskedKey())
	}
}

func TestSetProvider_ResetsModel(t *testing.T) {
	isolate(t)

	SetModel("gemini-2.5-pro")
	if err := SetProvider("ollama"); err != nil {
		t.Fatalf("SetProvider failed: %v", err)
	}

	cfg, _ := Load()
	if cfg.Provider != ProviderOllama {
		t.Errorf("expected ollama, got %q", cfg.Provider)
	}
	if cfg.Model != defaultOllamaModel {
		t.Errorf("expected model reset to ollama default, got %q", cfg.Model)
	}
}

func TestSetProvider_Rejects(t *testing.T) {
	isolate(t)
	if err := SetProvider("openai"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestMaskedKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "*****"},
		{"AIzaSyExample1234", "AIza...1234"},
	}
	for _, tt := range tests {
		c := &Config{APIKey: tt.key}
		if got := c.MaskedKey(); got != tt.want {
			t.Errorf("MaskedKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
