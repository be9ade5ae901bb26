package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/slrkit/slrkit/internal/storage"
	"google.golang.org/genai"
)

const anthropicMaxTokens = 4096

func (c *Client) sendAnthropic(ctx context.Context, m storage.Model, prompt string) (string, error) {
	key, err := apiKey(m, c.opts.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	if err != nil {
		return "", err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(c.httpClient),
		// Retries are handled by withRetry.
		option.WithMaxRetries(0),
	}
	if m.ProviderBaseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL(m, "")))
	}
	client := anthropic.NewClient(opts...)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.Name),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("malformed response: no text content")
	}
	return out.String(), nil
}

func (c *Client) sendGemini(ctx context.Context, m storage.Model, prompt string) (string, error) {
	key, err := apiKey(m, c.opts.GeminiAPIKey, "GEMINI_API_KEY")
	if err != nil {
		return "", err
	}

	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if m.ProviderBaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL(m, "") + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, m.Name, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("malformed response: no text candidates")
	}
	return text, nil
}
