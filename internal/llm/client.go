/*
Package llm sends prompts to language models hosted by a closed set of
providers and returns the raw response text.

A provider is chosen by a case-insensitive substring match on the stored
provider name. Ollama and Together are spoken to over plain HTTP; Anthropic
and Gemini go through their official SDKs. Persisting the exchange is the
caller's job.
*/
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slrkit/slrkit/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrProviderUnsupported is returned when no adapter handles the
	// model's provider.
	ErrProviderUnsupported = errors.New("provider unsupported")

	// ErrRequestFailed wraps every transport or protocol failure.
	ErrRequestFailed = errors.New("request failed")
)

// Provider is one of the supported provider variants.
type Provider int

const (
	ProviderOllama Provider = iota + 1
	ProviderTogether
	ProviderAnthropic
	ProviderGemini
)

// providerMatches is checked in order; the first substring found wins.
var providerMatches = []struct {
	substr   string
	provider Provider
}{
	{"ollama", ProviderOllama},
	{"together", ProviderTogether},
	{"anthropic", ProviderAnthropic},
	{"gemini", ProviderGemini},
}

func (p Provider) String() string {
	switch p {
	case ProviderOllama:
		return "ollama"
	case ProviderTogether:
		return "together"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGemini:
		return "gemini"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// ResolveProvider maps a stored provider name to a variant.
func ResolveProvider(name string) (Provider, error) {
	lower := strings.ToLower(name)
	for _, m := range providerMatches {
		if strings.Contains(lower, m.substr) {
			return m.provider, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrProviderUnsupported, name)
}

// Options configures a Client.
type Options struct {
	OllamaURL    string
	OllamaStream bool
	TogetherURL  string

	TogetherAPIKey  string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// Timeout bounds each attempt.
	Timeout time.Duration
	// RetryDelay is the pause before the single retry.
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client sends prompts to models.
type Client struct {
	opts       Options
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. Zero timeouts fall back to two minutes.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		opts:       opts,
		httpClient: httpClient,
		logger:     logger.Named("llm"),
	}
}

// Send sends prompt to model and returns the full response text.
func (c *Client) Send(ctx context.Context, model storage.Model, prompt string) (string, error) {
	provider, err := ResolveProvider(model.ProviderName)
	if err != nil {
		return "", err
	}

	var call func(ctx context.Context) (string, error)
	switch provider {
	case ProviderOllama:
		call = func(ctx context.Context) (string, error) { return c.sendOllama(ctx, model, prompt) }
	case ProviderTogether:
		call = func(ctx context.Context) (string, error) { return c.sendTogether(ctx, model, prompt) }
	case ProviderAnthropic:
		call = func(ctx context.Context) (string, error) { return c.sendAnthropic(ctx, model, prompt) }
	case ProviderGemini:
		call = func(ctx context.Context) (string, error) { return c.sendGemini(ctx, model, prompt) }
	default:
		panic(fmt.Sprintf("llm: unhandled provider %v", provider))
	}

	c.logger.Debug("sending prompt",
		zap.Stringer("provider", provider),
		zap.String("model", model.Name),
		zap.Int("prompt_len", len(prompt)),
	)
	start := time.Now()

	text, err := c.withRetry(ctx, provider, call)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRequestFailed, provider, err)
	}

	c.logger.Debug("response received",
		zap.Stringer("provider", provider),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)),
	)
	return text, nil
}

// withRetry runs call with a per-attempt timeout and retries a transient
// failure exactly once.
func (c *Client) withRetry(ctx context.Context, provider Provider, call func(context.Context) (string, error)) (string, error) {
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		text, err := call(attemptCtx)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == maxAttempts || !isTransient(err) {
			break
		}
		c.logger.Warn("transient provider failure, retrying",
			zap.Stringer("provider", provider),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-time.After(c.opts.RetryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// modelWithVersion renders "name" or "name:version".
func modelWithVersion(m storage.Model) string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + ":" + m.Version
}

// apiKey prefers the model's stored credentials over the environment.
func apiKey(m storage.Model, fallback, envName string) (string, error) {
	if key := strings.TrimSpace(m.Credentials); key != "" {
		return key, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no API key: store credentials on the model or set %s", envName)
}

func baseURL(m storage.Model, fallback string) string {
	base := m.ProviderBaseURL
	if base == "" {
		base = fallback
	}
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}
