// Package openai adapts github.com/sashabaranov/go-openai to the
// engine.ModelEngine capability boundary.
package openai

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/xlog"
)

var configLog = xlog.New("Engine/OpenAI")

// Config holds OpenAI-compatible model configuration.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     *float32
	MaxTokens       int
	MaxRetries      int
	HTTPTimeout     int // seconds
	ReasoningEffort string
}

// NewConfigFromEnv builds a Config from LLM_API_KEY, LLM_BASE_URL, LLM_MODEL,
// LLM_TEMPERATURE, LLM_MAX_TOKENS, LLM_MAX_RETRIES, LLM_HTTP_TIMEOUT,
// LLM_REASONING_EFFORT.
func NewConfigFromEnv() (*Config, error) {
	c := &Config{
		APIKey:          getEnvOrDefault("LLM_API_KEY", ""),
		BaseURL:         getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:           getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		Temperature:     getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:       getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:      getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout:     getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
		ReasoningEffort: getEnvOrDefault("LLM_REASONING_EFFORT", "medium"),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("engine/openai: LLM_API_KEY is required")
	}
	if c.Model == "" {
		return fmt.Errorf("engine/openai: LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("engine/openai: LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("engine/openai: LLM_MAX_RETRIES cannot be negative")
	}
	switch c.ReasoningEffort {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("engine/openai: LLM_REASONING_EFFORT must be low/medium/high, got %q", c.ReasoningEffort)
	}
	return nil
}

// ResolveCapability reports the effective Capability for this config's
// model, auto-detecting from the model name.
func (c *Config) ResolveCapability() engine.Capability {
	cp := engine.DetectCapability(c.Model)
	if cp.SupportsNativeThinking {
		configLog.Printf("auto-detected native thinking for model %q", c.Model)
	}
	return cp
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		configLog.Printf("WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		configLog.Printf("WARNING: invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
