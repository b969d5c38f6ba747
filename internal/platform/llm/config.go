package llm

import (
	"fmt"
	"time"

	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "mock".
	Provider  string
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Retry     RetryConfig
	// Timeout bounds one Generate call including its retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:  "anthropic",
		Anthropic: AnthropicConfig{Model: "claude-sonnet"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 120 * time.Second,
	}
}

// ConfigFromEnv reads LLM_PROVIDER, the vendor API key variables
// (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY), *_MODEL overrides,
// LLM_TIMEOUT and LLM_MAX_ATTEMPTS.
func ConfigFromEnv(log *logger.Logger) Config {
	cfg := DefaultConfig()
	cfg.Provider = envutil.String("LLM_PROVIDER", cfg.Provider, log)

	cfg.Anthropic.APIKey = envutil.String("ANTHROPIC_API_KEY", "", log)
	cfg.Anthropic.Model = envutil.String("ANTHROPIC_MODEL", cfg.Anthropic.Model, log)
	cfg.Anthropic.BaseURL = envutil.String("ANTHROPIC_BASE_URL", "", log)

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", "", log)
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model, log)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", "", log)

	cfg.Gemini.APIKey = envutil.String("GEMINI_API_KEY", "", log)
	cfg.Gemini.Model = envutil.String("GEMINI_MODEL", cfg.Gemini.Model, log)

	cfg.Timeout = envutil.Duration("LLM_TIMEOUT", cfg.Timeout, log)
	cfg.Retry.MaxAttempts = envutil.Int("LLM_MAX_ATTEMPTS", cfg.Retry.MaxAttempts, log)
	return cfg
}

// WithModel returns a copy whose selected provider uses model. Empty model
// leaves the config unchanged.
func (c Config) WithModel(model string) Config {
	if model == "" {
		return c
	}
	switch c.Provider {
	case "anthropic":
		c.Anthropic.Model = model
	case "openai":
		c.OpenAI.Model = model
	case "gemini":
		c.Gemini.Model = model
	}
	return c
}

func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
