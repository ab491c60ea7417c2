package llm

import (
	"context"
	"errors"
	"regexp"
)

// ErrImagesUnsupported is returned by providers that cannot accept image input
var ErrImagesUnsupported = errors.New("provider does not support image input")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs a single prompt/response exchange
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Image is an inline image attached to a completion request
type Image struct {
	MIMEType string // e.g. "image/jpeg"
	Data     []byte
}

// CompletionRequest contains the input for a completion
type CompletionRequest struct {
	// System sets the assistant's role
	System string

	// Prompt is the user message
	Prompt string

	// Images are attached to the user message (vision-capable providers only)
	Images []Image

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse contains the provider's output
type CompletionResponse struct {
	// Text is the generated text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "gemini", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 1000,
	}
}

func (c Config) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}

func (c Config) model(req CompletionRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

var jsonObjectPattern = regexp.MustCompile(`(?s)[\{\[].*[\}\]]`)

// ExtractJSON pulls the outermost JSON object or array out of a model reply,
// which is often wrapped in markdown fences or prose.
func ExtractJSON(s string) string {
	if match := jsonObjectPattern.FindString(s); match != "" {
		return match
	}
	return s
}
