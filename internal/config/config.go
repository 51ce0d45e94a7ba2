package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config file read when --config is not given.
const DefaultConfigPath = "mafia.yaml"

// Config holds all game configuration.
type Config struct {
	Game      GameConfig      `yaml:"game"`
	Roster    []RosterEntry   `yaml:"roster"`
	LLM       LLMConfig       `yaml:"llm"`
	CLI       CLIConfig       `yaml:"cli"`
	Narration NarrationConfig `yaml:"narration"`
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
}

// GameConfig holds rule and pacing switches.
type GameConfig struct {
	// RevealRoleOnDeath announces the role of every eliminated player.
	RevealRoleOnDeath bool `yaml:"reveal_role_on_death"`

	// AutoContinue runs turns without waiting for the operator.
	// When false the engine waits at the pause gate before every turn.
	AutoContinue bool `yaml:"auto_continue"`

	// MemoryEnabled feeds each player's long-term memory into prompts
	// and persists the Reflection output.
	MemoryEnabled bool `yaml:"memory_enabled"`

	// CopEnabled seats one Cop among the town.
	CopEnabled bool `yaml:"cop_enabled"`

	// Seed for the game's random source; 0 means time-based.
	Seed int64 `yaml:"seed"`

	// MaxDays ends the game as a draw after this many days; 0 means unlimited.
	MaxDays int `yaml:"max_days"`

	// Worker pool sizes for concurrent collection.
	VoteWorkers       int `yaml:"vote_workers"`
	ReflectionWorkers int `yaml:"reflection_workers"`
}

// NarrationConfig configures text-to-speech playback.
type NarrationConfig struct {
	Enabled bool `yaml:"enabled"`
	// Command is the playback binary, invoked as
	// <command> --voice <voice> --rate <rate> --text <text>.
	Command       string `yaml:"command"`
	Rate          string `yaml:"rate"`
	NarratorVoice string `yaml:"narrator_voice"`
}

// StoreConfig locates persisted artifacts.
type StoreConfig struct {
	// Dir holds memories/, transcripts/ and debug/ subdirectories.
	Dir string `yaml:"dir"`
	// Database is the sqlite game record file.
	Database string `yaml:"database"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			RevealRoleOnDeath: true,
			AutoContinue:      true,
			MemoryEnabled:     false,
			CopEnabled:        true,
			VoteWorkers:       4,
			ReflectionWorkers: 8,
		},
		Roster: DefaultRoster(),
		LLM: LLMConfig{
			Timeout:     "120s",
			MaxAttempts: 3,
			RetryDelay:  "2s",
		},
		CLI: CLIConfig{
			Timeout: 300,
		},
		Narration: NarrationConfig{
			Enabled:       false,
			Command:       "edge-playback",
			Rate:          "+30%",
			NarratorVoice: "en-US-AriaNeural",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(".mafia", "logs"),
		},
		Store: StoreConfig{
			Dir:      ".mafia",
			Database: filepath.Join(".mafia", "games.db"),
		},
	}
}

// Load loads configuration from a YAML file, layering .env and environment
// variables on top. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// .env is optional; variables already in the environment win.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if c.LLM.APIKeys == nil {
		c.LLM.APIKeys = make(map[string]string)
	}
	for provider, envVars := range apiKeyEnv {
		for _, name := range envVars {
			if key := os.Getenv(name); key != "" {
				c.LLM.APIKeys[provider] = key
				break
			}
		}
	}

	if path := os.Getenv("MAFIA_DB"); path != "" {
		c.Store.Database = path
	}
}

// apiKeyEnv lists, per provider, the environment variables checked in order.
var apiKeyEnv = map[string][]string{
	ProviderOpenAI:     {"OPENAI_API_KEY"},
	ProviderAnthropic:  {"ANTHROPIC_API_KEY"},
	ProviderGoogle:     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ProviderXAI:        {"XAI_API_KEY", "GROQ_API_KEY"},
	ProviderOpenRouter: {"OPENROUTER_API_KEY"},
}

// GetLLMTimeout returns the provider call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// GetRetryDelay returns the fixed delay between turn attempts.
func (c *Config) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.LLM.RetryDelay)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// GetMaxAttempts returns the number of attempts per turn (at least 1).
func (c *Config) GetMaxAttempts() int {
	if c.LLM.MaxAttempts < 1 {
		return 3
	}
	return c.LLM.MaxAttempts
}

// MinPlayers is the smallest roster that can seat two Mafia against a town
// that does not start at parity.
const MinPlayers = 5

// Validate validates the configuration.
func (c *Config) Validate() error {
	active := c.ActiveRoster()
	if len(active) < MinPlayers {
		return fmt.Errorf("need at least %d active players, have %d", MinPlayers, len(active))
	}

	seen := make(map[string]bool, len(active))
	humans := 0
	for _, e := range active {
		if err := e.Validate(); err != nil {
			return err
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate player name: %s", e.Name)
		}
		seen[e.Name] = true
		if e.IsHuman() {
			humans++
		}
	}
	if humans > 1 {
		return fmt.Errorf("at most one human player is supported, have %d", humans)
	}

	if c.Game.VoteWorkers < 1 || c.Game.ReflectionWorkers < 1 {
		return fmt.Errorf("worker pool sizes must be positive")
	}
	if c.Game.MaxDays < 0 {
		return fmt.Errorf("max_days must not be negative")
	}
	return nil
}
