package llm

import (
	"context"
	"fmt"

	"github.com/yungbote/school-backend/internal/platform/logger"
)

// NewProvider builds the configured backend wrapped as
// caller -> timeout -> retry -> logging -> backend, so each attempt is logged
// and the whole call is bounded.
func NewProvider(ctx context.Context, cfg Config, recorder Recorder, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return Wrap(base, cfg, recorder, log), nil
}

// Wrap applies the standard decorators to an existing provider.
func Wrap(base Provider, cfg Config, recorder Recorder, log *logger.Logger) Provider {
	logged := WithLogging(base, recorder, log)
	retried := WithRetry(logged, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout)
}
