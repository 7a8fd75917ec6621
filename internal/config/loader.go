package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidAnyLLMProviders lists the upstream provider names the anyllm backend
// can construct. Used by [Validate] to warn about unrecognised names.
var ValidAnyLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek",
	"mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills empty fields with the built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Provider.Backend == "" {
		cfg.Provider.Backend = BackendAnyLLM
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageFile
	}
	if cfg.Storage.Driver == StorageFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/storage.json"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider
	if !cfg.Provider.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("provider.backend %q is invalid; valid values: anyllm, openai", cfg.Provider.Backend))
	}
	if cfg.Provider.Model == "" {
		errs = append(errs, errors.New("provider.model is required"))
	}
	if cfg.Provider.Backend == BackendAnyLLM {
		if cfg.Provider.Name == "" {
			errs = append(errs, errors.New("provider.name is required for the anyllm backend"))
		} else if !slices.Contains(ValidAnyLLMProviders, cfg.Provider.Name) {
			slog.Warn("unknown provider name — may be a typo or third-party provider",
				"name", cfg.Provider.Name,
				"known", ValidAnyLLMProviders,
			)
		}
	}
	if cfg.Provider.APIKey == "" {
		slog.Warn("provider.api_key is empty; completions will fail unless the provider needs no key")
	}

	// Storage
	if !cfg.Storage.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("storage.driver %q is invalid; valid values: file, postgres", cfg.Storage.Driver))
	}
	if cfg.Storage.Driver == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.driver is postgres"))
	}

	// Chat
	if cfg.Chat.MaxRecentMessages < 0 {
		errs = append(errs, fmt.Errorf("chat.max_recent_messages %d must not be negative", cfg.Chat.MaxRecentMessages))
	}
	if cfg.Chat.SummarizeThreshold < 0 {
		errs = append(errs, fmt.Errorf("chat.summarize_threshold %d must not be negative", cfg.Chat.SummarizeThreshold))
	}
	if cfg.Chat.MaxRecentMessages > 0 && cfg.Chat.SummarizeThreshold > 0 &&
		cfg.Chat.SummarizeThreshold <= cfg.Chat.MaxRecentMessages {
		errs = append(errs, fmt.Errorf("chat.summarize_threshold %d must be greater than chat.max_recent_messages %d",
			cfg.Chat.SummarizeThreshold, cfg.Chat.MaxRecentMessages))
	}
	if cfg.Chat.GenerationTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("chat.generation_timeout_seconds %d must not be negative", cfg.Chat.GenerationTimeoutSeconds))
	}

	return errors.Join(errs...)
}
