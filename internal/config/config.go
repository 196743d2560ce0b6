// Package config provides configuration loading and validation for the
// fit-check agent.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied when neither the config file nor the environment sets a
// value.
const (
	DefaultPort             = 8080
	DefaultMaxConcurrentLLM = 10
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 60 * time.Second
)

// Config is the agent configuration. It can be loaded from a JSON file,
// with credentials supplied via environment variables. All fields are
// optional; missing values use defaults.
type Config struct {
	// Credentials
	APIKey       string `json:"api_key,omitempty"`        // Gemini API key
	SearchAPIKey string `json:"search_api_key,omitempty"` // Google Custom Search API key
	SearchCX     string `json:"search_cx,omitempty"`      // Custom Search engine ID

	// Paths
	ProfilePath string `json:"profile,omitempty"`     // Candidate profile markdown (embedded default if empty)
	PromptsDir  string `json:"prompts_dir,omitempty"` // Prompt override directory (embedded defaults if empty)

	// Limits
	Port             int `json:"port,omitempty"`
	MaxConcurrentLLM int `json:"max_concurrent_llm,omitempty"`
	BreakerThreshold int `json:"breaker_threshold,omitempty"`
	BreakerCooldown  int `json:"breaker_cooldown_seconds,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills empty credential and port fields from the environment.
// File values win over environment values so a config file stays
// self-contained.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.SearchAPIKey == "" {
		c.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	}
	if c.SearchCX == "" {
		c.SearchCX = os.Getenv("SEARCH_ENGINE_ID")
	}
	if c.ProfilePath == "" {
		c.ProfilePath = os.Getenv("FITCHECK_PROFILE")
	}
}

// ApplyDefaults fills zero-valued limits with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxConcurrentLLM == 0 {
		c.MaxConcurrentLLM = DefaultMaxConcurrentLLM
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = int(DefaultBreakerCooldown.Seconds())
	}
}

// Validate checks that the configuration has usable values. Credentials
// are checked by the components that need them, not here, so a dry run
// without keys still works.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.MaxConcurrentLLM < 0 {
		return fmt.Errorf("config error: 'max_concurrent_llm' must be non-negative")
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("config error: 'breaker_threshold' must be non-negative")
	}
	if c.BreakerCooldown < 0 {
		return fmt.Errorf("config error: 'breaker_cooldown_seconds' must be non-negative")
	}

	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: profile file not found: %s", c.ProfilePath)
		}
	}
	if c.PromptsDir != "" {
		if _, err := os.Stat(c.PromptsDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: prompts directory not found: %s", c.PromptsDir)
		}
	}

	return nil
}

// CooldownDuration returns the breaker cooldown as a duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.BreakerCooldown) * time.Second
}
