package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_APIKeys(t *testing.T) {
	t.Run("each provider reads its variable", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		t.Setenv("OPENROUTER_API_KEY", "or-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "oa-key", cfg.LLM.APIKeys[ProviderOpenAI])
		assert.Equal(t, "ant-key", cfg.LLM.APIKeys[ProviderAnthropic])
		assert.Equal(t, "or-key", cfg.LLM.APIKeys[ProviderOpenRouter])
	})

	t.Run("GROQ_API_KEY is an xAI fallback", func(t *testing.T) {
		t.Setenv("XAI_API_KEY", "")
		t.Setenv("GROQ_API_KEY", "groq-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "groq-key", cfg.LLM.APIKeys[ProviderXAI])
	})

	t.Run("XAI_API_KEY wins over GROQ_API_KEY", func(t *testing.T) {
		t.Setenv("XAI_API_KEY", "xai-key")
		t.Setenv("GROQ_API_KEY", "groq-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "xai-key", cfg.LLM.APIKeys[ProviderXAI])
	})

	t.Run("environment overrides file value", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-gem")

		cfg := &Config{LLM: LLMConfig{APIKeys: map[string]string{ProviderGoogle: "file-gem"}}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-gem", cfg.LLM.APIKeys[ProviderGoogle])
	})
}

func TestEnvOverrides_Database(t *testing.T) {
	t.Setenv("MAFIA_DB", "/tmp/custom.db")
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, "/tmp/custom.db", cfg.Store.Database)
}
