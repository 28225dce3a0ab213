package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

const (
	EnvModelProvider          = "ARBITER_MODEL_PROVIDER"
	EnvModelName              = "ARBITER_MODEL_NAME"
	EnvModelSafetyProvider    = "ARBITER_MODEL_SAFETY_PROVIDER"
	EnvModelSafetyName        = "ARBITER_MODEL_SAFETY_NAME"
	EnvModelAPIKey            = "ARBITER_MODEL_API_KEY"
	EnvModelBaseURL           = "ARBITER_MODEL_BASE_URL"
	EnvModelMaxTokens         = "ARBITER_MODEL_MAX_TOKENS"
	EnvModelRequestsPerSecond = "ARBITER_MODEL_REQUESTS_PER_SECOND"
	EnvModelBurst             = "ARBITER_MODEL_BURST"
	EnvModelTimeout           = "ARBITER_MODEL_TIMEOUT"
	EnvModelPromptsFile       = "ARBITER_MODEL_PROMPTS_FILE"
)

var providers = []string{"anthropic", "openai", "google"}

var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-5",
	"openai":    "gpt-4o",
	"google":    "gemini-1.5-flash",
}

// ModelConfig selects the model providers used for drafting and for the
// model-backed safety layers. The safety model defaults to the drafting model.
// An empty APIKey defers to the provider's own environment variable.
type ModelConfig struct {
	Provider          string  `toml:"provider"`
	Name              string  `toml:"name"`
	SafetyProvider    string  `toml:"safety_provider"`
	SafetyName        string  `toml:"safety_name"`
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	MaxTokens         int     `toml:"max_tokens"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	Timeout           string  `toml:"timeout"`
	PromptsFile       string  `toml:"prompts_file"`
}

// TimeoutDuration parses Timeout into a time.Duration.
func (c *ModelConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment overrides, and validation.
func (c *ModelConfig) Finalize() error {
	c.loadEnv()
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ModelConfig) Merge(overlay *ModelConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.SafetyProvider != "" {
		c.SafetyProvider = overlay.SafetyProvider
	}
	if overlay.SafetyName != "" {
		c.SafetyName = overlay.SafetyName
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.PromptsFile != "" {
		c.PromptsFile = overlay.PromptsFile
	}
}

func (c *ModelConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = "google"
	}
	if c.Name == "" {
		c.Name = defaultModels[c.Provider]
	}
	if c.SafetyProvider == "" {
		c.SafetyProvider = c.Provider
	}
	if c.SafetyName == "" {
		if c.SafetyProvider == c.Provider {
			c.SafetyName = c.Name
		} else {
			c.SafetyName = defaultModels[c.SafetyProvider]
		}
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

// loadEnv runs before loadDefaults: safety defaults derive from the
// resolved provider.
func (c *ModelConfig) loadEnv() {
	if v := os.Getenv(EnvModelProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvModelName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvModelSafetyProvider); v != "" {
		c.SafetyProvider = v
	}
	if v := os.Getenv(EnvModelSafetyName); v != "" {
		c.SafetyName = v
	}
	if v := os.Getenv(EnvModelAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvModelBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvModelMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv(EnvModelRequestsPerSecond); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv(EnvModelBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Burst = n
		}
	}
	if v := os.Getenv(EnvModelTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvModelPromptsFile); v != "" {
		c.PromptsFile = v
	}
}

func (c *ModelConfig) validate() error {
	if !slices.Contains(providers, c.Provider) {
		return fmt.Errorf("provider must be one of %v, got %q", providers, c.Provider)
	}
	if !slices.Contains(providers, c.SafetyProvider) {
		return fmt.Errorf("safety_provider must be one of %v, got %q", providers, c.SafetyProvider)
	}
	if c.Name == "" || c.SafetyName == "" {
		return fmt.Errorf("model name required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
