package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrNoProvider is returned when no LLM provider is configured
var ErrNoProvider = errors.New("no LLM provider configured")

// NewProvider creates a new LLM provider based on configuration
func NewProvider(ctx context.Context, config Config, logger *zap.Logger) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config, logger)

	case "anthropic", "claude":
		return NewAnthropicProvider(config, logger)

	case "gemini":
		return NewGeminiProvider(ctx, config, logger)

	case "ollama":
		return NewOllamaProvider(config, logger)

	case "":
		return nil, ErrNoProvider

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, gemini, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
		NoProxy:    modelConfig.NoProxy,
	}
}
