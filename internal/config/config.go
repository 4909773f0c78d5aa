// Package config handles loading and persisting user configuration
// for gallery-chat. Configuration is stored in ~/.gallery-chat/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dirName  = ".gallery-chat"
	fileName = "config.json"

	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	defaultProvider    = ProviderGemini
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOllamaModel = "llama3.2:latest"
	defaultTimeoutSecs = 60
	defaultListenAddr  = ":8080"
	defaultLogLevel    = "warn"
	envKeyAPIKey       = "API_KEY"
	envKeyGeminiAPIKey = "GEMINI_API_KEY"
	envKeyModel        = "GALLERY_MODEL"
	envKeyProvider     = "GALLERY_PROVIDER"
	envKeyLogLevel     = "GALLERY_LOG_LEVEL"
)

// Config holds the user's configuration.
type Config struct {
	Provider       string `json:"provider"`
	APIKey         string `json:"api_key,omitempty"`
	Model          string `json:"model"`
	GeminiURL      string `json:"gemini_url,omitempty"`
	OllamaURL      string `json:"ollama_url,omitempty"`
	PersonaFile    string `json:"persona_file,omitempty"`
	CaptureCommand string `json:"capture_command,omitempty"`
	LogLevel       string `json:"log_level,omitempty"`
	RequestTimeout int    `json:"request_timeout,omitempty"` // seconds
	ListenAddr     string `json:"listen_addr,omitempty"`
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName)
}

// Load reads the configuration from disk and environment variables.
// A missing or unreadable file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := readFile()

	if key := os.Getenv(envKeyGeminiAPIKey); key != "" {
		cfg.APIKey = key
	} else if key := os.Getenv(envKeyAPIKey); key != "" {
		cfg.APIKey = key
	}
	if provider := os.Getenv(envKeyProvider); provider != "" {
		cfg.Provider = strings.ToLower(provider)
	}
	if model := os.Getenv(envKeyModel); model != "" {
		cfg.Model = model
	}
	if level := os.Getenv(envKeyLogLevel); level != "" {
		cfg.LogLevel = level
	}

	applyDefaults(cfg)

	if err := validateProvider(cfg.Provider); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile() *Config {
	cfg := &Config{}
	data, err := os.ReadFile(configPath())
	if err == nil {
		_ = json.Unmarshal(data, cfg)
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeoutSecs
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderOllama {
		return defaultOllamaModel
	}
	return defaultGeminiModel
}

func validateProvider(provider string) error {
	switch provider {
	case ProviderGemini, ProviderOllama:
		return nil
	default:
		return fmt.Errorf("unknown provider %q (expected %q or %q)", provider, ProviderGemini, ProviderOllama)
	}
}

// Ready reports whether the configured provider has what it needs to
// open a chat session.
func (c *Config) Ready() bool {
	if c.Provider == ProviderOllama {
		return true
	}
	return c.APIKey != ""
}

// Timeout returns the HTTP timeout for provider requests.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// MaskedKey returns the API key with everything but the edges hidden.
func (c *Config) MaskedKey() string {
	switch {
	case c.APIKey == "":
		return "(not set)"
	case len(c.APIKey) <= 8:
		return strings.Repeat("*", len(c.APIKey))
	default:
		return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
	}
}

// save persists the config to disk.
func save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}

// update applies fn to the on-disk config (without env overrides) and saves it.
func update(fn func(*Config)) error {
	cfg := readFile()
	fn(cfg)
	return save(cfg)
}

// SetAPIKey saves the API key to the config file.
func SetAPIKey(key string) error {
	return update(func(c *Config) { c.APIKey = key })
}

// SetModel saves the model preference to the config file.
func SetModel(model string) error {
	return update(func(c *Config) { c.Model = model })
}

// SetProvider saves the provider to the config file. Switching provider
// clears the model so the new provider's default applies.
func SetProvider(provider string) error {
	provider = strings.ToLower(provider)
	if err := validateProvider(provider); err != nil {
		return err
	}
	return update(func(c *Config) {
		if c.Provider != provider {
			c.Model = ""
		}
		c.Provider = provider
	})
}

// SetCaptureCommand saves the speech capture command to the config file.
func SetCaptureCommand(command string) error {
	return update(func(c *Config) { c.CaptureCommand = command })
}
