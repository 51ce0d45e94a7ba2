package config

// LLMConfig configures network providers and the per-turn retry policy.
type LLMConfig struct {
	Timeout string `yaml:"timeout"`

	// MaxAttempts bounds provider call + parse attempts per turn.
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is the fixed pause between attempts.
	RetryDelay string `yaml:"retry_delay"`

	// APIKeys by provider name; environment variables override.
	APIKeys map[string]string `yaml:"api_keys,omitempty"`

	// BaseURLs by provider name, for proxies and compatible endpoints.
	BaseURLs map[string]string `yaml:"base_urls,omitempty"`
}

// CLIConfig configures local command-line backends.
//
// CLI tools are used as SUBPROCESS completion APIs, not as agents:
// one prompt in, one answer out, no tool use.
type CLIConfig struct {
	// Timeout in seconds for a single CLI execution (default: 300)
	Timeout int `yaml:"timeout"`

	// Commands overrides the binary used per tool ("claude", "codex",
	// "gemini", "qwen", "ollama"), e.g. to point at a wrapper script.
	Commands map[string]string `yaml:"commands,omitempty"`

	// CodexSandbox is passed as --sandbox to codex exec (default "read-only").
	CodexSandbox string `yaml:"codex_sandbox,omitempty"`
}

// Command returns the binary for a CLI tool, honoring overrides.
func (c CLIConfig) Command(tool string) string {
	if cmd, ok := c.Commands[tool]; ok && cmd != "" {
		return cmd
	}
	return tool
}
