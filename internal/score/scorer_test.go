package score

import (
	"errors"
	"math"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func clarity(conf float64) model.AnalyzerResult {
	return model.Succeeded(model.KindClarity, conf, &model.ClarityPayload{})
}

func contextResult(conf float64, bias string) model.AnalyzerResult {
	return model.Succeeded(model.KindContext, conf, &model.ContextPayload{Bias: bias, ConfidenceBias: conf})
}

func media(conf float64) model.AnalyzerResult {
	return model.Succeeded(model.KindMedia, conf, &model.MediaPayload{Verdict: model.MediaVerdictFor(conf), ConfidenceScore: conf})
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		confidence float64
		want       model.VerdictLevel
	}{
		{1.0, model.LevelHigh},
		{0.8, model.LevelHigh},
		{0.79999, model.LevelModerate},
		{0.6, model.LevelModerate},
		{0.59999, model.LevelLow},
		{0.4, model.LevelLow},
		{0.39999, model.LevelInsufficient},
		{0, model.LevelInsufficient},
	}

	for _, tt := range tests {
		if got := Classify(tt.confidence); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestScorer_Calculate_NoRenormalization(t *testing.T) {
	scorer := NewScorer(model.DefaultWeights(), model.DefaultConflictRules())

	// Clarity 0.6 and context 0.5 with media absent: 0.6*0.4 + 0.5*0.3 = 0.39
	result := scorer.Calculate([]model.AnalyzerResult{clarity(0.6), contextResult(0.5, "Center")})

	if math.Abs(result.Confidence-0.39) > 1e-9 {
		t.Errorf("Expected confidence 0.39, got %v", result.Confidence)
	}
	if result.Level != model.LevelInsufficient {
		t.Errorf("Expected %q, got %q", model.LevelInsufficient, result.Level)
	}
	if result.Summary != "Bias: Center" {
		t.Errorf("Unexpected summary: %q", result.Summary)
	}
}

func TestScorer_Calculate_AllAnalyzers(t *testing.T) {
	scorer := NewScorer(model.DefaultWeights(), nil)

	result := scorer.Calculate([]model.AnalyzerResult{clarity(1.0), contextResult(1.0, "Left"), media(1.0)})

	if math.Abs(result.Confidence-1.0) > 1e-9 {
		t.Errorf("Expected confidence 1.0, got %v", result.Confidence)
	}
	if result.Level != model.LevelHigh {
		t.Errorf("Expected high confidence, got %q", result.Level)
	}
	if result.Summary != "Has verifiable claims | Bias: Left | Media: AI-Generated" {
		t.Errorf("Unexpected summary: %q", result.Summary)
	}
}

func TestScorer_Calculate_SkipsFailures(t *testing.T) {
	scorer := NewScorer(model.DefaultWeights(), nil)

	result := scorer.Calculate([]model.AnalyzerResult{
		clarity(0.9),
		model.Failed(model.KindMedia, errors.New("decode error")),
		model.Failed(model.KindContext, errors.New("timeout")),
	})

	if math.Abs(result.Confidence-0.36) > 1e-9 {
		t.Errorf("Expected confidence 0.36, got %v", result.Confidence)
	}
	if len(result.Tags) != 1 || result.Tags[0] != model.TagVerifiableClaims {
		t.Errorf("Unexpected tags: %v", result.Tags)
	}
}

func TestScorer_Calculate_Empty(t *testing.T) {
	result := NewScorer(model.DefaultWeights(), nil).Calculate(nil)

	if result.Confidence != 0 {
		t.Errorf("Expected 0 confidence, got %v", result.Confidence)
	}
	if result.Level != model.LevelInsufficient {
		t.Errorf("Expected insufficient data, got %q", result.Level)
	}
	if result.Summary != "Insufficient data" {
		t.Errorf("Unexpected summary: %q", result.Summary)
	}
	if result.Conflicts != nil {
		t.Errorf("Expected no conflicts, got %v", result.Conflicts)
	}
}

func TestScorer_Calculate_ClampsOverweight(t *testing.T) {
	scorer := NewScorer(model.Weights{Clarity: 1, Media: 1, Context: 1}, nil)

	result := scorer.Calculate([]model.AnalyzerResult{clarity(0.9), contextResult(0.9, "Center")})
	if result.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", result.Confidence)
	}
}

func TestScorer_Calculate_Conflict(t *testing.T) {
	scorer := NewScorer(model.DefaultWeights(), model.DefaultConflictRules())

	result := scorer.Calculate([]model.AnalyzerResult{clarity(0.8), media(0.6)})

	if len(result.Conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %v", result.Conflicts)
	}
	if result.Conflicts[0] != "Conflicting evidence between media authenticity and claim verifiability" {
		t.Errorf("Unexpected conflict: %q", result.Conflicts[0])
	}
}

func TestScorer_Calculate_NoConflictWhenClarityLow(t *testing.T) {
	scorer := NewScorer(model.DefaultWeights(), model.DefaultConflictRules())

	// Clarity exactly 0.6 is not "verifiable" (strictly greater required)
	result := scorer.Calculate([]model.AnalyzerResult{clarity(0.6), media(0.6)})
	if len(result.Conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %v", result.Conflicts)
	}
}

func TestDetectConflicts_CustomRules(t *testing.T) {
	rules := append(model.DefaultConflictRules(), model.ConflictRule{
		A:           model.TagMedia(model.MediaAIGenerated),
		B:           model.TagVerifiableClaims,
		Description: "Synthetic media attached to verifiable claims",
	})

	tags := []string{model.TagVerifiableClaims, model.TagMedia(model.MediaAIGenerated), model.TagBias("Left")}
	got := DetectConflicts(tags, rules)

	if len(got) != 1 || got[0] != "Synthetic media attached to verifiable claims" {
		t.Errorf("Unexpected conflicts: %v", got)
	}

	if got := DetectConflicts([]string{model.TagVerifiableClaims}, rules); got != nil {
		t.Errorf("Expected nil for a single tag, got %v", got)
	}
}

func TestTags_FailedResult(t *testing.T) {
	if tags := Tags(model.Failed(model.KindMedia, errors.New("x"))); tags != nil {
		t.Errorf("Expected no tags for a failed result, got %v", tags)
	}
}
