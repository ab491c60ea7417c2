package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/util"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicProvider implements the Provider interface for Anthropic Claude models
type AnthropicProvider struct {
	client *anthropic.Client
	config Config
	logger *zap.Logger
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config, logger *zap.Logger) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := util.NewHTTPClient(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
	httpClient.Timeout = timeoutOf(config, 30*time.Second)

	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(httpClient)}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(config.BaseURL, "/")))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(config.APIKey, opts...),
		config: config,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable makes a minimal completion call
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.Complete(ctx, CompletionRequest{Prompt: "Hi", MaxTokens: 10})
	if err != nil {
		p.logger.Warn("Anthropic API check failed", zap.Error(err))
		return false
	}
	return true
}

// Complete generates a response using Anthropic's Messages API
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(req.Images) > 0 {
		return nil, ErrImagesUnsupported
	}

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(p.config.model(req, defaultAnthropicModel)),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(req.Prompt),
				},
			},
		},
		System:    req.System,
		MaxTokens: p.config.maxTokens(req),
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, content := range resp.Content {
		if content.Text != nil {
			text.WriteString(*content.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text content in Anthropic response")
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      string(resp.Model),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
