package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
)

const claritySystem = `You extract checkable factual claims from text.
Reply with a JSON array only. Each element has the string fields
"text", "subject", "predicate", "object" and "quantifier" (empty when absent).`

// ClarityConfidence scores a list of extracted claims by count and structure:
// min(min(0.2*n, 0.8) + 0.2*avgCompleteness, 1.0). No claims scores 0.
func ClarityConfidence(claims []model.ClaimComponents) float64 {
	if len(claims) == 0 {
		return 0
	}

	base := math.Min(0.2*float64(len(claims)), 0.8)

	total := 0.0
	for _, c := range claims {
		total += c.Completeness()
	}
	avg := total / float64(len(claims))

	return math.Min(base+0.2*avg, 1.0)
}

// Clarity extracts structured claims with an LLM and scores their clarity
type Clarity struct {
	provider llm.Provider
}

// NewClarity creates a clarity analyzer backed by provider
func NewClarity(provider llm.Provider) *Clarity {
	return &Clarity{provider: provider}
}

// Kind returns model.KindClarity
func (c *Clarity) Kind() model.AnalyzerKind { return model.KindClarity }

// Analyze extracts claims from in.Text
func (c *Clarity) Analyze(ctx context.Context, in Input) (model.AnalyzerResult, error) {
	if in.Text == "" {
		return model.AnalyzerResult{}, errors.New("clarity: empty text")
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		System: claritySystem,
		Prompt: "INPUT:\n" + in.Text,
	})
	if err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("clarity: %w", err)
	}

	var claims []model.ClaimComponents
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Text)), &claims); err != nil {
		return model.AnalyzerResult{}, fmt.Errorf("clarity: parse claims: %w", err)
	}

	return model.Succeeded(model.KindClarity, ClarityConfidence(claims), &model.ClarityPayload{Claims: claims}), nil
}
