package perception

import (
	"context"
	"fmt"
	"time"

	"aimafia/internal/config"
)

// cliToolForProvider maps a roster provider to its local CLI tool.
var cliToolForProvider = map[string]CLITool{
	config.ProviderOpenAI:    ToolCodex,
	config.ProviderAnthropic: ToolClaude,
	config.ProviderGoogle:    ToolGemini,
	config.ProviderQwen:      ToolQwen,
	config.ProviderOllama:    ToolOllama,
}

// NewClientFromEntry builds the backend for one roster seat.
func NewClientFromEntry(ctx context.Context, entry config.RosterEntry, cfg *config.Config) (LLMClient, error) {
	if entry.IsHuman() {
		return nil, fmt.Errorf("player %s is human and has no provider backend", entry.Name)
	}

	if entry.UseCLI {
		tool, ok := cliToolForProvider[entry.Provider]
		if !ok {
			return nil, fmt.Errorf("player %s: no CLI tool for provider %q", entry.Name, entry.Provider)
		}
		timeout := time.Duration(cfg.CLI.Timeout) * time.Second
		return NewCLIClient(CLIConfig{
			Tool:    tool,
			Command: cfg.CLI.Command(string(tool)),
			Model:   entry.Model,
			Timeout: timeout,
			Sandbox: cfg.CLI.CodexSandbox,
		})
	}

	apiKey := cfg.LLM.APIKeys[entry.Provider]
	baseURL := cfg.LLM.BaseURLs[entry.Provider]
	timeout := cfg.GetLLMTimeout()

	switch entry.Provider {
	case config.ProviderAnthropic:
		c := DefaultAnthropicConfig(apiKey)
		c.Model, c.Timeout = entry.Model, timeout
		if baseURL != "" {
			c.BaseURL = baseURL
		}
		return NewAnthropicClient(c), nil

	case config.ProviderOpenAI, config.ProviderXAI, config.ProviderOpenRouter:
		var c OpenAIConfig
		switch entry.Provider {
		case config.ProviderXAI:
			c = DefaultXAIConfig(apiKey, entry.Model)
		case config.ProviderOpenRouter:
			c = DefaultOpenRouterConfig(apiKey, entry.Model)
		default:
			c = DefaultOpenAIConfig(apiKey, entry.Model)
		}
		c.Timeout = timeout
		if baseURL != "" {
			c.BaseURL = baseURL
		}
		return NewOpenAIClient(c), nil

	case config.ProviderGoogle:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Model:   entry.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("player %s: unsupported API provider %q", entry.Name, entry.Provider)
	}
}

// Describe names the backend a roster seat resolves to, for display.
func Describe(entry config.RosterEntry) string {
	switch {
	case entry.IsHuman():
		return "console"
	case entry.UseCLI:
		if tool, ok := cliToolForProvider[entry.Provider]; ok {
			return fmt.Sprintf("%s CLI (%s)", tool, entry.Model)
		}
		return "unsupported CLI"
	default:
		return fmt.Sprintf("%s API (%s)", entry.Provider, entry.Model)
	}
}
