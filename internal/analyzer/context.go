package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
)

const contextSystem = `You describe the background and ideological framing of a claim.
Reply with a JSON object only, with fields "background" (string),
"bias" (one of Left, Center, Right, Mixed, Unknown), "confidence_bias" (0-1)
and "keywords" (array of strings).`

// BiasUnknown is reported when the model gives no bias label
const BiasUnknown = "Unknown"

// Context assesses background and bias with an LLM
type Context struct {
	provider llm.Provider
}

// NewContext creates a context analyzer backed by provider
func NewContext(provider llm.Provider) *Context {
	return &Context{provider: provider}
}

// Kind returns model.KindContext
func (c *Context) Kind() model.AnalyzerKind { return model.KindContext }

// Analyze assesses in.Text
func (c *Context) Analyze(ctx context.Context, in Input) (model.AnalyzerResult, error) {
	if in.Text == "" {
		return model.AnalyzerResult{}, errors.New("context: empty text")
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		System: contextSystem,
		Prompt: "CLAIM:\n" + in.Text,
	})
	if err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("context: %w", err)
	}

	var payload model.ContextPayload
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Text)), &payload); err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("context: parse analysis: %w", err)
	}
	if payload.Bias == "" {
		payload.Bias = BiasUnknown
	}

	return model.Succeeded(model.KindContext, payload.ConfidenceBias, &payload), nil
}
