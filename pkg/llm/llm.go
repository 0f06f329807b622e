// Package llm holds the language-model handle the orchestrator builds at
// startup.
package llm

import (
	"context"
	"time"
)

// Defaults used when the config leaves a field empty.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
)

// Config describes an OpenAI-compatible chat endpoint. A nil Temperature
// means DefaultTemperature; an explicit 0 is sent as 0.
type Config struct {
	Enabled     bool          `toml:"enabled" mapstructure:"enabled"`
	Model       string        `toml:"model" mapstructure:"model"`
	APIKey      string        `toml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `toml:"base_url" mapstructure:"base_url"`
	Temperature *float64      `toml:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int           `toml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// Generator produces a completion for a system + user prompt pair.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == nil {
		c.Temperature = Float(DefaultTemperature)
	}
	return c
}

// Float returns a pointer to v, for Config.Temperature.
func Float(v float64) *float64 { return &v }
