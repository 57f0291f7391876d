// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.askdocs/config.yaml, or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Paths: document folder and index persistence folder
//   - AI: provider, chat model, embedder model
//   - Serve: listen address, session lifetime, rate limiting
//
// Error Handling: sentinel errors enable errors.Is() checks; Load validates
// immediately so a misconfigured process fails fast.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidDataDir indicates the document folder path is invalid.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidPersistDir indicates the persistence folder path is invalid.
	ErrInvalidPersistDir = errors.New("invalid persist directory")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidSessionTTL indicates the session lifetime is out of range.
	ErrInvalidSessionTTL = errors.New("invalid session TTL")

	// ErrInvalidTranscriptCap indicates the transcript cap is out of range.
	ErrInvalidTranscriptCap = errors.New("invalid transcript cap")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOllama   = "ollama"
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
)

// Retrieval bounds for top_k validation.
const (
	MinTopK = 1
	MaxTopK = 20
)

// Config stores application configuration.
type Config struct {
	// Paths
	DataDir    string `mapstructure:"data_dir" json:"data_dir"`       // document folder
	PersistDir string `mapstructure:"persist_dir" json:"persist_dir"` // index + marker storage

	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "ollama" (default) or "gemini"
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k" json:"top_k"`

	// Serve configuration
	Addr                 string  `mapstructure:"addr" json:"addr"`
	SessionTTLHours      int     `mapstructure:"session_ttl_hours" json:"session_ttl_hours"`
	MaxTranscriptEntries int     `mapstructure:"max_transcript_entries" json:"max_transcript_entries"`
	RatePerSecond        float64 `mapstructure:"rate_per_second" json:"rate_per_second"`
	RateBurst            int     `mapstructure:"rate_burst" json:"rate_burst"`
	WatchData            bool    `mapstructure:"watch_data" json:"watch_data"`

	// SecureCookies marks session cookies Secure. Off by default because
	// the server speaks plain HTTP; enable it behind a TLS-terminating proxy.
	SecureCookies bool `mapstructure:"secure_cookies" json:"secure_cookies"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".askdocs")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Paths (matching the conventional data/ + storage/ layout)
	v.SetDefault("data_dir", "data")
	v.SetDefault("persist_dir", "storage")

	// AI defaults
	v.SetDefault("provider", ProviderOllama)
	v.SetDefault("model_name", "gemma3:1b")
	v.SetDefault("embedder_model", "nomic-embed-text")
	v.SetDefault("ollama_host", "http://localhost:11434")

	// Retrieval defaults
	v.SetDefault("top_k", 4)

	// Serve defaults
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("session_ttl_hours", 24)
	v.SetDefault("max_transcript_entries", 200)
	v.SetDefault("rate_per_second", 2.0)
	v.SetDefault("rate_burst", 5)
	v.SetDefault("watch_data", true)
	v.SetDefault("secure_cookies", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("data_dir", "ASKDOCS_DATA_DIR")
	mustBind("persist_dir", "ASKDOCS_PERSIST_DIR")
	mustBind("provider", "ASKDOCS_PROVIDER")
	mustBind("model_name", "ASKDOCS_MODEL_NAME")
	mustBind("embedder_model", "ASKDOCS_EMBEDDER_MODEL")
	mustBind("ollama_host", "ASKDOCS_OLLAMA_HOST")
	mustBind("addr", "ASKDOCS_ADDR")

	// NOTE: GEMINI_API_KEY is read directly by the Genkit googlegenai plugin,
	// not via Viper. Validate checks its presence for the gemini provider.
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidDataDir)
	}
	if strings.TrimSpace(c.PersistDir) == "" {
		return fmt.Errorf("%w: persist_dir must not be empty", ErrInvalidPersistDir)
	}

	switch c.Provider {
	case ProviderOllama:
		if err := validateHostURL(c.OllamaHost); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOllamaHost, err)
		}
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY must be set for provider %q", ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidProvider, c.Provider, ProviderOllama, ProviderGemini)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}

	if c.TopK < MinTopK || c.TopK > MaxTopK {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidTopK, c.TopK, MinTopK, MaxTopK)
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("%w: %d (must be at least 1 hour)", ErrInvalidSessionTTL, c.SessionTTLHours)
	}
	if c.MaxTranscriptEntries < 1 {
		return fmt.Errorf("%w: %d (must be at least 1)", ErrInvalidTranscriptCap, c.MaxTranscriptEntries)
	}

	return nil
}

// validateHostURL checks that a host string parses as an http(s) URL.
func validateHostURL(host string) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("host must not be empty")
	}
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("parsing host: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("host %q must use http or https", host)
	}
	return nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "ollama/gemma3:1b", "googleai/gemini-2.5-flash".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGemini:
		return ProviderGoogleAI + "/" + c.ModelName
	default:
		return ProviderOllama + "/" + c.ModelName
	}
}

// MarkerPath returns the path of the build-time marker file inside the
// persistence folder.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.PersistDir, ".last_built")
}
