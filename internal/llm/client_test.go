package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slrkit/slrkit/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name    string
		want    Provider
		wantErr bool
	}{
		{"ollama", ProviderOllama, false},
		{"Ollama Local", ProviderOllama, false},
		{"together.ai", ProviderTogether, false},
		{"TOGETHER", ProviderTogether, false},
		{"Anthropic", ProviderAnthropic, false},
		{"google-gemini", ProviderGemini, false},
		{"openai", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveProvider(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProviderUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendUnsupportedProviderMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	_, err := c.Send(context.Background(), storage.Model{ProviderName: "openai", ProviderBaseURL: srv.URL, Name: "gpt-4o"}, "hi")

	assert.ErrorIs(t, err, ErrProviderUnsupported)
	assert.NotErrorIs(t, err, ErrRequestFailed)
	assert.Zero(t, calls.Load())
}

func TestOllamaStreamConcatenatesChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-r1:7b", req.Model)
		assert.True(t, req.Stream)

		fmt.Fprintln(w, `{"response":"1. How does X ","done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"response":"affect Y?","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	c := NewClient(Options{OllamaURL: srv.URL, OllamaStream: true})
	text, err := c.Send(context.Background(), storage.Model{ProviderName: "ollama", Name: "deepseek-r1", Version: "7b"}, "prompt")

	require.NoError(t, err)
	assert.Equal(t, "1. How does X affect Y?", text)
}

func TestOllamaSingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-r1", req.Model)
		assert.False(t, req.Stream)
		fmt.Fprint(w, `{"response":"whole answer","done":true}`)
	}))
	defer srv.Close()

	// The provider's stored base URL wins over the configured default.
	c := NewClient(Options{OllamaURL: "http://127.0.0.1:1"})
	text, err := c.Send(context.Background(), storage.Model{ProviderName: "ollama", ProviderBaseURL: srv.URL, Name: "deepseek-r1"}, "prompt")

	require.NoError(t, err)
	assert.Equal(t, "whole answer", text)
}

func TestOllamaMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	c := NewClient(Options{OllamaURL: srv.URL})
	_, err := c.Send(context.Background(), storage.Model{ProviderName: "ollama", Name: "m"}, "p")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestTogetherChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer stored-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "meta-llama/Llama-3:70b", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "the prompt", req.Messages[0].Content)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"1. Q one\n2. Q two"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{TogetherURL: srv.URL, TogetherAPIKey: "env-key"})
	text, err := c.Send(context.Background(), storage.Model{
		ProviderName: "Together",
		Name:         "meta-llama/Llama-3",
		Version:      "70b",
		Credentials:  "stored-key",
	}, "the prompt")

	require.NoError(t, err)
	assert.Equal(t, "1. Q one\n2. Q two", text)
}

func TestTogetherRequiresKey(t *testing.T) {
	c := NewClient(Options{TogetherURL: "http://127.0.0.1:1"})
	_, err := c.Send(context.Background(), storage.Model{ProviderName: "together", Name: "m"}, "p")

	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "TOGETHER_API_KEY")
}

func TestTogetherNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{TogetherURL: srv.URL, TogetherAPIKey: "k"})
	_, err := c.Send(context.Background(), storage.Model{ProviderName: "together", Name: "m"}, "p")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{"success first try", []int{200}, 1, false},
		{"5xx then success", []int{503, 200}, 2, false},
		{"429 then success", []int{429, 200}, 2, false},
		{"5xx twice", []int{500, 502}, 2, true},
		{"4xx is not retried", []int{400, 200}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[n-1]
				if status != http.StatusOK {
					w.WriteHeader(status)
					return
				}
				fmt.Fprint(w, `{"response":"ok","done":true}`)
			}))
			defer srv.Close()

			c := NewClient(Options{OllamaURL: srv.URL, RetryDelay: time.Millisecond})
			text, err := c.Send(context.Background(), storage.Model{ProviderName: "ollama", Name: "m"}, "p")

			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRequestFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", text)
		})
	}
}

func TestAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{OllamaURL: srv.URL, Timeout: 50 * time.Millisecond, RetryDelay: time.Millisecond})
	_, err := c.Send(context.Background(), storage.Model{ProviderName: "ollama", Name: "m"}, "p")

	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, int32(2), calls.Load(), "a timed-out attempt is retried once")
}

func TestAnthropicMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "anthropic-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5", body["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "--1-- How does X affect Y?"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`)
	}))
	defer srv.Close()

	c := NewClient(Options{AnthropicAPIKey: "anthropic-key"})
	text, err := c.Send(context.Background(), storage.Model{
		ProviderName:    "Anthropic",
		ProviderBaseURL: srv.URL,
		Name:            "claude-sonnet-4-5",
		Version:         "ignored",
	}, "prompt")

	require.NoError(t, err)
	assert.Equal(t, "--1-- How does X affect Y?", text)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(&statusError{StatusCode: 503}))
	assert.True(t, isTransient(fmt.Errorf("wrapped: %w", &statusError{StatusCode: 429})))
	assert.False(t, isTransient(&statusError{StatusCode: 404}))
	assert.False(t, isTransient(errors.New("malformed response")))
}
