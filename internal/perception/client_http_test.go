package perception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_CompleteWithSystem(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"  {\"speech\":\"hi\"}  "}]}`))
	}))
	defer srv.Close()

	cfg := DefaultAnthropicConfig("k")
	cfg.BaseURL, cfg.Model = srv.URL, "haiku"
	c := NewAnthropicClient(cfg)

	out, err := c.CompleteWithSystem(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"speech":"hi"}`, out)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, "haiku", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Content)
}

func TestAnthropicClient_MissingKey(t *testing.T) {
	c := NewAnthropicClient(DefaultAnthropicConfig(""))
	_, err := c.CompleteWithSystem(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "API key")
}

func TestOpenAIClient_CompleteWithSystem(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "AI Mafia", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"vote\":null}"}}]}`))
	}))
	defer srv.Close()

	cfg := DefaultOpenRouterConfig("k", "openai/gpt-oss-120b:free")
	cfg.BaseURL = srv.URL
	out, err := NewOpenAIClient(cfg).CompleteWithSystem(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"vote":null}`, out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Nil(t, got.ResponseFormat, "openrouter runs without JSON mode")
}

func TestOpenAIClient_JSONMode(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := DefaultXAIConfig("k", "grok-3-mini")
	cfg.BaseURL = srv.URL
	_, err := NewOpenAIClient(cfg).CompleteWithSystem(context.Background(), "s", "u")
	require.NoError(t, err)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestHTTPErrors(t *testing.T) {
	t.Run("429 is a rate limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`slow down`))
		}))
		defer srv.Close()

		cfg := DefaultOpenAIConfig("k", "gpt")
		cfg.BaseURL = srv.URL
		_, err := NewOpenAIClient(cfg).CompleteWithSystem(context.Background(), "s", "u")

		var rl *RateLimitError
		require.True(t, errors.As(err, &rl))
		assert.Equal(t, "openai", rl.Provider)
		assert.Equal(t, 7*time.Second, rl.RetryAfter)
	})

	t.Run("500 is a provider error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`boom`))
		}))
		defer srv.Close()

		cfg := DefaultAnthropicConfig("k")
		cfg.BaseURL = srv.URL
		_, err := NewAnthropicClient(cfg).CompleteWithSystem(context.Background(), "s", "u")

		var pe *ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 500, pe.StatusCode)
		assert.Equal(t, "boom", pe.Body)
	})
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
