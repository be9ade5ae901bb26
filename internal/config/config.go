/*
Package config handles loading, saving, and resolving slrkit configuration.

Settings are stored in ~/.slrkit.json (override the location with
SLRKIT_CONFIG). Every setting may also be overridden from the environment;
provider API keys are only ever read from the environment.

Schema:
  {
    "settings": {
      "databasePath": "~/.slrkit/slrkit.db",
      "logLevel": "warn",
      "ollamaURL": "http://127.0.0.1:11434",
      "ollamaStream": true,
      "togetherURL": "https://api.together.xyz",
      "arxivURL": "http://export.arxiv.org/api/query",
      "timeoutSeconds": 120,
      "retryDelayMillis": 1000,
      "questionCount": 10,
      "queryCount": 3
    }
  }
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
)

const (
	// DefaultOllamaURL is the local Ollama runtime.
	DefaultOllamaURL = "http://127.0.0.1:11434"

	// DefaultTogetherURL is the together.ai API root.
	DefaultTogetherURL = "https://api.together.xyz"

	// DefaultArxivURL is the arXiv export query endpoint.
	DefaultArxivURL = "http://export.arxiv.org/api/query"
)

// Config represents the root configuration structure.
type Config struct {
	// Settings contains options persisted in the settings file.
	Settings Settings `json:"settings"`

	// Credentials holds provider API keys read from the environment.
	Credentials Credentials `json:"-"`
}

// Settings contains global configuration options.
type Settings struct {
	// DatabasePath is the SQLite file holding all review records.
	DatabasePath string `json:"databasePath,omitempty" env:"SLRKIT_DB_PATH"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" env:"SLRKIT_LOG_LEVEL"`

	// OllamaURL is the root of the local Ollama runtime.
	OllamaURL string `json:"ollamaURL,omitempty" env:"OLLAMA_HOST"`

	// OllamaStream asks Ollama for a streamed response.
	OllamaStream bool `json:"ollamaStream" env:"SLRKIT_OLLAMA_STREAM"`

	// TogetherURL is the root of the together.ai API.
	TogetherURL string `json:"togetherURL,omitempty" env:"SLRKIT_TOGETHER_URL"`

	// ArxivURL is the arXiv export query endpoint.
	ArxivURL string `json:"arxivURL,omitempty" env:"SLRKIT_ARXIV_URL"`

	// TimeoutSeconds bounds every provider request attempt.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" env:"SLRKIT_REQUEST_TIMEOUT"`

	// RetryDelayMillis is the pause before retrying a transient failure.
	RetryDelayMillis int `json:"retryDelayMillis,omitempty" env:"SLRKIT_RETRY_DELAY_MS"`

	// QuestionCount is how many research questions to ask for by default.
	QuestionCount int `json:"questionCount,omitempty"`

	// QueryCount is how many search queries to ask for by default.
	QueryCount int `json:"queryCount,omitempty"`
}

// Credentials are never written to the settings file.
type Credentials struct {
	TogetherAPIKey  string `env:"TOGETHER_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

// NewConfig creates a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:         "warn",
			OllamaURL:        DefaultOllamaURL,
			OllamaStream:     true,
			TogetherURL:      DefaultTogetherURL,
			ArxivURL:         DefaultArxivURL,
			TimeoutSeconds:   120,
			RetryDelayMillis: 1000,
			QuestionCount:    10,
			QueryCount:       3,
		},
	}
}

// GetDefaultConfigPath returns $SLRKIT_CONFIG or ~/.slrkit.json
func GetDefaultConfigPath() (string, error) {
	if p := os.Getenv("SLRKIT_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".slrkit.json"), nil
}

// GetDefaultDatabasePath returns ~/.slrkit/slrkit.db
func GetDefaultDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".slrkit", "slrkit.db"), nil
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// Resolve builds the effective configuration: defaults, then the settings
// file if one exists, then environment overrides. The result is validated.
func Resolve() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		var notFound *ConfigNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		cfg = NewConfig()
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Settings.DatabasePath == "" {
		dbPath, err := GetDefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		cfg.Settings.DatabasePath = dbPath
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. Unset variables leave
// the current value untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(&cfg.Settings); err != nil {
		return fmt.Errorf("failed to parse environment settings: %w", err)
	}
	if err := env.Parse(&cfg.Credentials); err != nil {
		return fmt.Errorf("failed to parse environment credentials: %w", err)
	}
	return nil
}
