package score

import (
	"math"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Verdict-level lower bounds (inclusive)
const (
	HighThreshold     = 0.8
	ModerateThreshold = 0.6
	LowThreshold      = 0.4

	// verifiableThreshold is the clarity confidence above which a text is
	// tagged as having verifiable claims
	verifiableThreshold = 0.6
)

// Scorer combines analyzer results into an aggregate assessment
type Scorer struct {
	weights model.Weights
	rules   []model.ConflictRule
}

// Assessment is the scorer's output for one set of results
type Assessment struct {
	Confidence float64
	Level      model.VerdictLevel
	Summary    string
	Tags       []string
	Conflicts  []string
}

// NewScorer creates a new scorer
func NewScorer(weights model.Weights, rules []model.ConflictRule) *Scorer {
	return &Scorer{weights: weights, rules: rules}
}

// Weights returns the configured analyzer weights
func (s *Scorer) Weights() model.Weights {
	return s.weights
}

// Calculate weights successful results, classifies the total and checks
// the qualitative tags against the conflict rules.
// Weights of analyzers that failed or did not run are not redistributed.
func (s *Scorer) Calculate(results []model.AnalyzerResult) Assessment {
	var (
		total float64
		tags  []string
	)

	for _, r := range results {
		if !r.OK() {
			continue
		}
		total += r.Confidence * s.weights.For(r.Kind)
		tags = append(tags, Tags(r)...)
	}

	confidence := clamp(total)

	summary := "Insufficient data"
	if len(tags) > 0 {
		summary = strings.Join(tags, " | ")
	}

	return Assessment{
		Confidence: confidence,
		Level:      Classify(confidence),
		Summary:    summary,
		Tags:       tags,
		Conflicts:  DetectConflicts(tags, s.rules),
	}
}

// Classify maps an aggregate confidence to a verdict level
func Classify(confidence float64) model.VerdictLevel {
	switch {
	case confidence >= HighThreshold:
		return model.LevelHigh
	case confidence >= ModerateThreshold:
		return model.LevelModerate
	case confidence >= LowThreshold:
		return model.LevelLow
	default:
		return model.LevelInsufficient
	}
}

// Tags derives the qualitative tags of a successful result
func Tags(r model.AnalyzerResult) []string {
	if !r.OK() {
		return nil
	}

	switch r.Kind {
	case model.KindClarity:
		if r.Confidence > verifiableThreshold {
			return []string{model.TagVerifiableClaims}
		}
	case model.KindMedia:
		if r.Media != nil && r.Media.Verdict != "" {
			return []string{model.TagMedia(r.Media.Verdict)}
		}
	case model.KindContext:
		if r.Context != nil && r.Context.Bias != "" {
			return []string{model.TagBias(r.Context.Bias)}
		}
	}
	return nil
}

func clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
