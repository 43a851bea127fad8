// Package config builds the application configuration once at process start.
// Nothing else in the module reads the environment directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// ModelConfig holds the per-backend generation settings.
type ModelConfig struct {
	// Model is the provider model identifier
	Model string

	// BaseURL overrides the provider endpoint (empty = provider default)
	BaseURL string

	// APIKey authenticates against a cloud provider
	APIKey string
}

// OllamaConfig describes the locally hosted inference server.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// ImageConfig configures the illustration API.
type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Quality string
}

// Config holds all configuration for the application
type Config struct {
	OpenAI  ModelConfig
	Claude  ModelConfig
	Mistral ModelConfig
	Gemini  ModelConfig
	Ollama  OllamaConfig
	Image   ImageConfig

	// MaxTokens limits the response length of every text backend
	MaxTokens int

	// Temperature controls randomness for backends that accept it
	Temperature float32

	// ProbeTimeout bounds the local host availability check
	ProbeTimeout time.Duration

	ListenAddr string
	LogLevel   string
	LogFormat  string
}

// Defaults used when the matching environment variable is absent or unparsable.
const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultClaudeModel   = "claude-3-haiku-20240307"
	DefaultMistralModel  = "mistral-small-latest"
	DefaultGeminiModel   = "gemini-1.5-flash"
	DefaultMistralURL    = "https://api.mistral.ai/v1/"
	DefaultClaudeURL     = "https://api.anthropic.com"
	DefaultImageModel    = "dall-e-3"
	DefaultImageSize     = "1024x1024"
	DefaultImageQuality  = "standard"
	DefaultMaxTokens     = 1000
	DefaultTemperature   = 0.7
	DefaultProbeTimeout  = 5 * time.Second
	DefaultOllamaTimeout = 60 * time.Second
	DefaultListenAddr    = ":1337"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
)

// Load builds the configuration from the process environment.
// The caller is expected to have loaded any .env file beforehand.
func Load() (*Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	openAIKey := get("OPENAI_API_KEY", "")

	cfg := &Config{
		OpenAI: ModelConfig{
			APIKey:  openAIKey,
			Model:   get("OPENAI_MODEL", DefaultOpenAIModel),
			BaseURL: get("OPENAI_BASE_URL", ""),
		},
		Claude: ModelConfig{
			APIKey:  get("ANTHROPIC_API_KEY", ""),
			Model:   get("CLAUDE_MODEL", DefaultClaudeModel),
			BaseURL: get("ANTHROPIC_BASE_URL", DefaultClaudeURL),
		},
		Mistral: ModelConfig{
			APIKey:  get("MISTRAL_API_KEY", ""),
			Model:   get("MISTRAL_MODEL", DefaultMistralModel),
			BaseURL: get("MISTRAL_BASE_URL", DefaultMistralURL),
		},
		Gemini: ModelConfig{
			APIKey: get("GEMINI_API_KEY", ""),
			Model:  get("GEMINI_MODEL", DefaultGeminiModel),
		},
		Ollama: OllamaConfig{
			Host:  strings.TrimSuffix(get("OLLAMA_HOST", ""), "/"),
			Model: get("OLLAMA_MODEL", ""),
		},
		Image: ImageConfig{
			APIKey:  get("IMAGE_API_KEY", openAIKey),
			BaseURL: get("IMAGE_BASE_URL", get("OPENAI_BASE_URL", "")),
			Model:   get("IMAGE_MODEL", DefaultImageModel),
			Size:    get("IMAGE_SIZE", DefaultImageSize),
			Quality: get("IMAGE_QUALITY", DefaultImageQuality),
		},
		ListenAddr: get("LISTEN_ADDR", DefaultListenAddr),
		LogLevel:   get("LOG_LEVEL", DefaultLogLevel),
		LogFormat:  get("LOG_FORMAT", DefaultLogFormat),
	}

	if n, err := strconv.Atoi(getenv("MAX_TOKENS")); err == nil {
		cfg.MaxTokens = n
	} else {
		cfg.MaxTokens = DefaultMaxTokens
	}

	if t, err := strconv.ParseFloat(getenv("TEMPERATURE"), 32); err == nil {
		cfg.Temperature = float32(t)
	} else {
		cfg.Temperature = DefaultTemperature
	}

	if s, err := strconv.Atoi(getenv("PROBE_TIMEOUT_SECONDS")); err == nil {
		cfg.ProbeTimeout = time.Duration(s) * time.Second
	} else {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}

	if s, err := strconv.Atoi(getenv("OLLAMA_TIMEOUT_SECONDS")); err == nil {
		cfg.Ollama.Timeout = time.Duration(s) * time.Second
	} else {
		cfg.Ollama.Timeout = DefaultOllamaTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings no backend could work with. Missing credentials
// are not an error: they only hide the matching backend.
func (c *Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: MAX_TOKENS must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: TEMPERATURE must be within [0, 2], got %.2f", ErrInvalidConfig, c.Temperature)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: PROBE_TIMEOUT_SECONDS must be positive", ErrInvalidConfig)
	}
	if c.Ollama.Timeout <= 0 {
		return fmt.Errorf("%w: OLLAMA_TIMEOUT_SECONDS must be positive", ErrInvalidConfig)
	}
	if c.Ollama.Host != "" && !strings.HasPrefix(c.Ollama.Host, "http://") && !strings.HasPrefix(c.Ollama.Host, "https://") {
		return fmt.Errorf("%w: OLLAMA_HOST must be an http(s) URL, got %q", ErrInvalidConfig, c.Ollama.Host)
	}
	return nil
}

// OllamaConfigured reports whether both the local host and model are set.
func (c *Config) OllamaConfigured() bool {
	return c.Ollama.Host != "" && c.Ollama.Model != ""
}

// ImageConfigured reports whether illustrations can be requested at all.
func (c *Config) ImageConfigured() bool {
	return c.Image.APIKey != ""
}
