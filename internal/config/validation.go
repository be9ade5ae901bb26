/*
Package config provides validation helpers for slrkit settings.
*/
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks that every setting is usable.
func Validate(cfg *Config) error {
	s := cfg.Settings

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[s.LogLevel] {
		return invalid(fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", s.LogLevel))
	}

	for name, raw := range map[string]string{
		"ollamaURL":   s.OllamaURL,
		"togetherURL": s.TogetherURL,
		"arxivURL":    s.ArxivURL,
	} {
		if err := validateURL(raw); err != nil {
			return invalid(fmt.Sprintf("%s: %v", name, err))
		}
	}

	if s.TimeoutSeconds < 1 {
		return invalid("timeoutSeconds must be at least 1")
	}
	if s.RetryDelayMillis < 0 {
		return invalid("retryDelayMillis must not be negative")
	}
	if s.QuestionCount < 1 {
		return invalid("questionCount must be at least 1")
	}
	if s.QueryCount < 1 {
		return invalid("queryCount must be at least 1")
	}

	return nil
}

// RequestTimeout is the per-attempt bound on provider requests.
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryDelay is the pause before the single retry of a transient failure.
func (s Settings) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMillis) * time.Millisecond
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	// OLLAMA_HOST is commonly given as host:port without a scheme.
	if err != nil || u.Scheme == "" || u.Host == "" {
		u, err = url.Parse("http://" + raw)
		if err != nil {
			return err
		}
		if u.Host == "" {
			return fmt.Errorf("missing host in %q", raw)
		}
	}
	return nil
}

func invalid(msg string) error {
	return &InvalidConfigError{
		Message: msg,
		Hint:    "Fix the value in the settings file or the matching environment variable",
	}
}
