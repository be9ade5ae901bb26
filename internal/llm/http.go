package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/slrkit/slrkit/internal/storage"
	"github.com/slrkit/slrkit/internal/version"
	"google.golang.org/genai"
)

// statusError is a non-2xx HTTP response.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// isTransient reports whether a failed attempt is worth one retry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return transientStatus(se.StatusCode)
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return transientStatus(anthropicErr.StatusCode)
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return transientStatus(geminiErr.Code)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// postJSON sends body as JSON and returns the response for the caller to
// consume. Non-2xx responses are turned into a statusError.
func (c *Client) postJSON(ctx context.Context, url string, body any, headers map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return resp, nil
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// sendOllama calls the local generate endpoint. A streamed reply is a
// sequence of JSON objects, one per line, whose response fields are
// concatenated in order.
func (c *Client) sendOllama(ctx context.Context, m storage.Model, prompt string) (string, error) {
	url := baseURL(m, c.opts.OllamaURL) + "/api/generate"
	resp, err := c.postJSON(ctx, url, ollamaRequest{
		Model:  modelWithVersion(m),
		Prompt: prompt,
		Stream: c.opts.OllamaStream,
	}, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if !c.opts.OllamaStream {
		var chunk ollamaChunk
		if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
			return "", fmt.Errorf("malformed response: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		return chunk.Response, nil
	}

	var (
		out     strings.Builder
		scanner = bufio.NewScanner(resp.Body)
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("malformed stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		out.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stream: %w", err)
	}
	return out.String(), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// sendTogether calls the OpenAI-compatible chat completions endpoint.
func (c *Client) sendTogether(ctx context.Context, m storage.Model, prompt string) (string, error) {
	key, err := apiKey(m, c.opts.TogetherAPIKey, "TOGETHER_API_KEY")
	if err != nil {
		return "", err
	}

	url := baseURL(m, c.opts.TogetherURL) + "/v1/chat/completions"
	resp, err := c.postJSON(ctx, url, chatRequest{
		Model:    modelWithVersion(m),
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}, map[string]string{"Authorization": "Bearer " + key})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("together error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("malformed response: no choices returned")
	}
	return parsed.Choices[0].Message.Content, nil
}
