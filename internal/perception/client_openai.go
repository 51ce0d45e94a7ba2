package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aimafia/internal/logging"
)

// Base URLs of the OpenAI-compatible chat completion endpoints.
const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	XAIBaseURL        = "https://api.x.ai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIConfig configures any OpenAI-compatible /chat/completions endpoint.
type OpenAIConfig struct {
	Provider string // used in errors and logs
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	// JSONMode requests response_format json_object.
	JSONMode bool
	// Headers are sent on every request (OpenRouter attribution).
	Headers map[string]string
}

// DefaultOpenAIConfig returns defaults for api.openai.com.
func DefaultOpenAIConfig(apiKey, model string) OpenAIConfig {
	return OpenAIConfig{
		Provider: "openai",
		APIKey:   apiKey,
		BaseURL:  OpenAIBaseURL,
		Model:    model,
		Timeout:  2 * time.Minute,
		JSONMode: true,
	}
}

// DefaultXAIConfig returns defaults for xAI.
func DefaultXAIConfig(apiKey, model string) OpenAIConfig {
	cfg := DefaultOpenAIConfig(apiKey, model)
	cfg.Provider = "xai"
	cfg.BaseURL = XAIBaseURL
	return cfg
}

// DefaultOpenRouterConfig returns defaults for OpenRouter. Free models often
// reject response_format, so JSON mode is off.
func DefaultOpenRouterConfig(apiKey, model string) OpenAIConfig {
	cfg := DefaultOpenAIConfig(apiKey, model)
	cfg.Provider = "openrouter"
	cfg.BaseURL = OpenRouterBaseURL
	cfg.JSONMode = false
	cfg.Headers = map[string]string{
		"HTTP-Referer": "https://github.com/aimafia/aimafia",
		"X-Title":      "AI Mafia",
	}
	return cfg
}

// OpenAIClient implements LLMClient for OpenAI-compatible chat APIs.
type OpenAIClient struct {
	provider   string
	apiKey     string
	baseURL    string
	model      string
	jsonMode   bool
	headers    map[string]string
	httpClient *http.Client
	throttle   throttle
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	provider := config.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAIClient{
		provider:   provider,
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
		jsonMode:   config.JSONMode,
		headers:    config.Headers,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// CompleteWithSystem sends a prompt with a system message.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	startTime := time.Now()
	logging.APIDebug("[%s] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.provider, c.model, len(systemPrompt), len(userPrompt))

	if c.apiKey == "" {
		return "", fmt.Errorf("%s API key not configured", c.provider)
	}

	c.throttle.wait()

	req := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if c.jsonMode {
		req.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	for k, v := range c.headers {
		headers[k] = v
	}

	body, err := postJSON(ctx, c.httpClient, c.provider, c.baseURL+"/chat/completions", headers, req)
	if err != nil {
		logging.APIError("[%s] CompleteWithSystem: %v", c.provider, err)
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		if isRateLimitError(resp.Error.Message) || isRateLimitError(resp.Error.Type) {
			return "", &RateLimitError{Provider: c.provider, RawResponse: resp.Error.Message}
		}
		return "", &ProviderError{Provider: c.provider, Body: resp.Error.Message}
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	logging.API("[%s] CompleteWithSystem: completed in %v response_len=%d", c.provider, time.Since(startTime), len(text))
	return text, nil
}
