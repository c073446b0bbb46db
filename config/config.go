// Package config loads the webdevchat YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrMissingAPIKey is returned when no API key is configured for the provider.
var ErrMissingAPIKey = errors.New("API key is not set")

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application
type Config struct {
	Provider   ProviderConfig  `yaml:"provider"`
	Delegation CallConfig      `yaml:"delegation"`
	Answer     CallConfig      `yaml:"answer"`
	Guardrail  GuardrailConfig `yaml:"guardrail"`
	Cache      CacheConfig     `yaml:"cache"`
	Session    SessionConfig   `yaml:"session"`
	Server     ServerConfig    `yaml:"server"`
	Tracing    TracingConfig   `yaml:"tracing"`
	Log        LogConfig       `yaml:"log"`

	// Entry is the persona user messages start at.
	Entry string `yaml:"entry"`

	// Personas replaces the built-in catalog when non-empty.
	Personas []PersonaConfig `yaml:"personas"`
}

// ProviderConfig selects the hosted model API.
type ProviderConfig struct {
	// Name is openai or anthropic
	Name string `yaml:"name"`

	// Model is the provider model id
	Model string `yaml:"model"`

	// APIKey falls back to OPENAI_API_KEY or ANTHROPIC_API_KEY
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the API endpoint (proxies, compatible servers)
	BaseURL string `yaml:"base_url"`

	// MaxRetries is passed to the SDK client
	MaxRetries int `yaml:"max_retries"`
}

// CallConfig holds sampling parameters for one kind of completion call.
type CallConfig struct {
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// PromptTemplate overrides the delegation prompt. Ignored for answer calls.
	PromptTemplate string `yaml:"prompt_template"`
}

// GuardrailConfig enables the topic check before delegation.
type GuardrailConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig configures the completion cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PersonaConfig defines a persona in YAML.
type PersonaConfig struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Instructions string   `yaml:"instructions"`
	Candidates   []string `yaml:"candidates"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Name:  ProviderOpenAI,
			Model: "gpt-4-turbo",
		},
		Delegation: CallConfig{Temperature: 0.3, MaxTokens: 100},
		Answer:     CallConfig{Temperature: 0.7, MaxTokens: 1000},
		Guardrail:  GuardrailConfig{Temperature: 0, MaxTokens: 200},
		Cache:      CacheConfig{Size: 256, TTL: 10 * time.Minute},
		Session:    SessionConfig{MaxSessions: 1000},
		Server:     ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Tracing:    TracingConfig{Endpoint: "localhost:4317"},
		Log:        LogConfig{Level: "info", Format: "text"},
		Entry:      "Triage Agent",
	}
}

// Load reads path on top of Default, applies environment fallbacks and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.APIKey != "" {
		return
	}
	switch c.Provider.Name {
	case ProviderOpenAI:
		c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		c.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Validate checks that the configuration is valid. It does not require an
// API key; see RequireAPIKey.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return NewConfigError(fmt.Sprintf("provider.name must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.Provider.Name))
	}
	if c.Provider.Model == "" {
		return NewConfigError("provider.model must not be empty")
	}
	if c.Provider.MaxRetries < 0 {
		return NewConfigError("provider.max_retries must not be negative")
	}
	for name, call := range map[string]CallConfig{"delegation": c.Delegation, "answer": c.Answer} {
		if call.Temperature < 0 || call.Temperature > 2 {
			return NewConfigError(fmt.Sprintf("%s.temperature must be between 0 and 2", name))
		}
		if call.MaxTokens < 1 {
			return NewConfigError(fmt.Sprintf("%s.max_tokens must be at least 1", name))
		}
		if call.Timeout < 0 {
			return NewConfigError(fmt.Sprintf("%s.timeout must not be negative", name))
		}
	}
	if c.Guardrail.Enabled && c.Guardrail.MaxTokens < 1 {
		return NewConfigError("guardrail.max_tokens must be at least 1 when the guardrail is enabled")
	}
	if c.Cache.Enabled && c.Cache.Size < 1 {
		return NewConfigError("cache.size must be at least 1 when cache is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must not be empty when tracing is enabled")
	}
	if c.Entry == "" {
		return NewConfigError("entry must not be empty")
	}
	seen := make(map[string]bool, len(c.Personas))
	for i, p := range c.Personas {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return NewConfigError(fmt.Sprintf("personas[%d]: name is required", i))
		}
		if seen[name] {
			return NewConfigError(fmt.Sprintf("personas[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(p.Instructions) == "" {
			return NewConfigError(fmt.Sprintf("personas[%d] %q: instructions are required", i, name))
		}
	}
	return nil
}

// RequireAPIKey returns ErrMissingAPIKey when the configured provider has no key.
func (c *Config) RequireAPIKey() error {
	if c.Provider.APIKey == "" {
		env := "OPENAI_API_KEY"
		if c.Provider.Name == ProviderAnthropic {
			env = "ANTHROPIC_API_KEY"
		}
		return fmt.Errorf("%w for provider %s: set provider.api_key or %s", ErrMissingAPIKey, c.Provider.Name, env)
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
