package config

import (
	"fmt"
	"strings"
)

// Provider names accepted in roster entries.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderXAI        = "xai"
	ProviderOpenRouter = "openrouter"
	ProviderQwen       = "qwen"
	ProviderOllama     = "ollama"
	ProviderHuman      = "human"
)

// Role preferences accepted in roster entries.
const (
	PreferRandom   = "random"
	PreferMafia    = "mafia"
	PreferCop      = "cop"
	PreferVillager = "villager"
)

// apiProviders can be reached over the network; cliProviders through a local tool.
var (
	apiProviders = map[string]bool{
		ProviderOpenAI: true, ProviderAnthropic: true, ProviderGoogle: true,
		ProviderXAI: true, ProviderOpenRouter: true,
	}
	cliProviders = map[string]bool{
		ProviderOpenAI: true, ProviderAnthropic: true, ProviderGoogle: true,
		ProviderQwen: true, ProviderOllama: true,
	}
)

// RosterEntry describes one seat at the table.
type RosterEntry struct {
	Active   bool   `yaml:"active"`
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	UseCLI   bool   `yaml:"use_cli"`
	Voice    string `yaml:"voice"`
	// Role is a preference: random (default), mafia, cop or villager.
	Role string `yaml:"role"`
}

// IsHuman reports whether the seat is played from the console.
func (e RosterEntry) IsHuman() bool {
	return e.Provider == ProviderHuman
}

// RolePreference returns the normalized role preference.
func (e RosterEntry) RolePreference() string {
	switch p := strings.ToLower(strings.TrimSpace(e.Role)); p {
	case PreferMafia, PreferCop, PreferVillager:
		return p
	default:
		return PreferRandom
	}
}

// Validate checks a single roster entry.
func (e RosterEntry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("roster entry missing name")
	}
	switch strings.ToLower(strings.TrimSpace(e.Role)) {
	case "", PreferRandom, PreferMafia, PreferCop, PreferVillager:
	default:
		return fmt.Errorf("player %s: invalid role preference %q", e.Name, e.Role)
	}
	if e.IsHuman() {
		return nil
	}
	if e.Model == "" {
		return fmt.Errorf("player %s: model required", e.Name)
	}
	if e.UseCLI {
		if !cliProviders[e.Provider] {
			return fmt.Errorf("player %s: provider %q has no CLI backend", e.Name, e.Provider)
		}
		return nil
	}
	if !apiProviders[e.Provider] {
		return fmt.Errorf("player %s: provider %q has no API backend", e.Name, e.Provider)
	}
	return nil
}

// ActiveRoster returns the entries marked active, in file order.
func (c *Config) ActiveRoster() []RosterEntry {
	var out []RosterEntry
	for _, e := range c.Roster {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// DefaultRoster returns the built-in table: CLI-backed models plus disabled
// API-only seats that can be switched on in mafia.yaml.
func DefaultRoster() []RosterEntry {
	return []RosterEntry{
		{Active: true, UseCLI: true, Name: "Gpt", Provider: ProviderOpenAI, Model: "gpt-5.1-codex-mini", Voice: "en-US-EricNeural"},
		{Active: false, UseCLI: true, Name: "Rick", Provider: ProviderOpenAI, Model: "gpt-5.2", Voice: "en-US-GuyNeural"},
		{Active: true, UseCLI: true, Name: "Haiku", Provider: ProviderAnthropic, Model: "haiku", Voice: "en-GB-RyanNeural"},
		{Active: true, UseCLI: true, Name: "Sonnet", Provider: ProviderAnthropic, Model: "sonnet", Voice: "en-GB-SoniaNeural"},
		{Active: false, UseCLI: false, Name: "Chimera", Provider: ProviderOpenRouter, Model: "tngtech/deepseek-r1t2-chimera:free", Voice: "en-AU-NatashaNeural"},
		{Active: false, UseCLI: false, Name: "Oss", Provider: ProviderOpenRouter, Model: "openai/gpt-oss-120b:free", Voice: "en-PH-JamesNeural"},
		{Active: false, UseCLI: false, Name: "Grok", Provider: ProviderXAI, Model: "grok-3-mini", Voice: "en-CA-LiamNeural"},
		{Active: true, UseCLI: true, Name: "Pro", Provider: ProviderGoogle, Model: "gemini-2.5-pro", Voice: "en-NZ-MitchellNeural"},
		{Active: true, UseCLI: true, Name: "Flash", Provider: ProviderGoogle, Model: "gemini-2.5-flash", Voice: "en-IE-ConnorNeural"},
		{Active: true, UseCLI: true, Name: "Qwen", Provider: ProviderQwen, Model: "coder-model", Voice: "en-ZA-LukeNeural"},
		{Active: false, UseCLI: true, Name: "Nemotron", Provider: ProviderOllama, Model: "nemotron-3-nano:30b-cloud", Voice: "en-IN-PrabhatNeural"},
		{Active: false, UseCLI: true, Name: "Player 1", Provider: ProviderHuman, Model: "human", Voice: "en-US-AriaNeural"},
	}
}
