package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/arin/gallery-chat/internal/config"
)

// ErrNoAPIKey is returned when the Gemini provider is requested without a key.
var ErrNoAPIKey = errors.New("no Gemini API key configured")

// Roles used in provider-agnostic messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string // RoleSystem, RoleUser or RoleAssistant
	Content string
}

// Provider is the interface that any AI backend must implement.
// This abstraction allows swapping between Gemini and Ollama
// without changing any business logic in Chat.
type Provider interface {
	// Complete sends a list of messages and returns the assistant's response text.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// NewProvider builds the provider selected by cfg.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.Model, cfg.OllamaURL, cfg.Timeout()), nil
	case config.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.GeminiURL, cfg.Timeout()), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
