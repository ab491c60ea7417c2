package model

import (
	"fmt"
	"time"
)

// AnalysisRequest is the input to a single orchestrated analysis
type AnalysisRequest struct {
	Text     string `json:"text_claim,omitempty"` // Optional text claim
	MediaRef string `json:"media_ref,omitempty"`  // Optional media path or URL
}

// AnalyzerKind identifies which analysis procedure produced a result
type AnalyzerKind string

const (
	KindClarity AnalyzerKind = "clarity" // Claim structure extraction
	KindMedia   AnalyzerKind = "media"   // Media authenticity
	KindContext AnalyzerKind = "context" // Background and bias
)

// AllKinds lists analyzer kinds in dispatch order
var AllKinds = []AnalyzerKind{KindClarity, KindContext, KindMedia}

// ResultStatus tags an AnalyzerResult as success or failure
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"
)

// MediaVerdict is the media analyzer's qualitative call
type MediaVerdict string

const (
	MediaAuthentic   MediaVerdict = "Authentic"
	MediaManipulated MediaVerdict = "Manipulated"
	MediaAIGenerated MediaVerdict = "AI-Generated"
)

// MediaVerdictFor maps a manipulation confidence to a verdict
func MediaVerdictFor(confidence float64) MediaVerdict {
	switch {
	case confidence >= 0.85:
		return MediaAIGenerated
	case confidence >= 0.5:
		return MediaManipulated
	default:
		return MediaAuthentic
	}
}

// ClarityPayload is the clarity analyzer's fixed schema
type ClarityPayload struct {
	Claims []ClaimComponents `json:"claims"`
}

// MediaPayload is the media analyzer's fixed schema
type MediaPayload struct {
	Verdict         MediaVerdict `json:"verdict"`
	ConfidenceScore float64      `json:"confidence_score"`
	Reasoning       string       `json:"reasoning,omitempty"`
}

// ContextPayload is the context analyzer's fixed schema
type ContextPayload struct {
	Bias           string   `json:"bias"`
	ConfidenceBias float64  `json:"confidence_bias"`
	Background     string   `json:"background,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// AnalyzerResult is the outcome of one analyzer invocation.
// A success carries a confidence and exactly the payload for its kind;
// a failure carries an error description and zero confidence.
type AnalyzerResult struct {
	Kind       AnalyzerKind    `json:"kind"`
	Status     ResultStatus    `json:"status"`
	Confidence float64         `json:"confidence"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration_ns,omitempty"`
	Clarity    *ClarityPayload `json:"clarity,omitempty"`
	Media      *MediaPayload   `json:"media,omitempty"`
	Context    *ContextPayload `json:"context,omitempty"`
}

// Succeeded builds a success result. payload must be the pointer type matching kind.
func Succeeded(kind AnalyzerKind, confidence float64, payload any) AnalyzerResult {
	r := AnalyzerResult{Kind: kind, Status: StatusSuccess, Confidence: confidence}
	switch p := payload.(type) {
	case *ClarityPayload:
		r.Clarity = p
	case *MediaPayload:
		r.Media = p
	case *ContextPayload:
		r.Context = p
	}
	return r
}

// Failed builds a failure result
func Failed(kind AnalyzerKind, err error) AnalyzerResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return AnalyzerResult{Kind: kind, Status: StatusFailed, Error: msg}
}

// InUnitRange reports whether v lies in [0,1]. NaN and infinities do not.
func InUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// OK reports whether the result is a success
func (r AnalyzerResult) OK() bool {
	return r.Status == StatusSuccess
}

// Validate checks the result against the schema for its kind
func (r AnalyzerResult) Validate() error {
	switch r.Status {
	case StatusFailed:
		if r.Error == "" {
			return fmt.Errorf("%s: failed result without error", r.Kind)
		}
		if r.Confidence != 0 {
			return fmt.Errorf("%s: failed result with confidence %.2f", r.Kind, r.Confidence)
		}
		return nil
	case StatusSuccess:
	default:
		return fmt.Errorf("%s: unknown status %q", r.Kind, r.Status)
	}

	if r.Error != "" {
		return fmt.Errorf("%s: success result carries error %q", r.Kind, r.Error)
	}
	if !InUnitRange(r.Confidence) {
		return fmt.Errorf("%s: confidence %.4f outside [0,1]", r.Kind, r.Confidence)
	}

	var payloads int
	if r.Clarity != nil {
		payloads++
	}
	if r.Media != nil {
		payloads++
	}
	if r.Context != nil {
		payloads++
	}
	if payloads != 1 {
		return fmt.Errorf("%s: expected exactly one payload, got %d", r.Kind, payloads)
	}

	switch r.Kind {
	case KindClarity:
		if r.Clarity == nil {
			return fmt.Errorf("clarity: missing clarity payload")
		}
	case KindMedia:
		if r.Media == nil {
			return fmt.Errorf("media: missing media payload")
		}
		if r.Media.Verdict == "" {
			return fmt.Errorf("media: empty verdict")
		}
		if !InUnitRange(r.Media.ConfidenceScore) {
			return fmt.Errorf("media: confidence_score %.4f outside [0,1]", r.Media.ConfidenceScore)
		}
	case KindContext:
		if r.Context == nil {
			return fmt.Errorf("context: missing context payload")
		}
		if !InUnitRange(r.Context.ConfidenceBias) {
			return fmt.Errorf("context: confidence_bias %.4f outside [0,1]", r.Context.ConfidenceBias)
		}
	default:
		return fmt.Errorf("unknown analyzer kind %q", r.Kind)
	}
	return nil
}

// VerdictLevel is the closed classification of aggregate confidence
type VerdictLevel string

const (
	LevelHigh         VerdictLevel = "High Confidence"
	LevelModerate     VerdictLevel = "Moderate Confidence"
	LevelLow          VerdictLevel = "Low Confidence"
	LevelInsufficient VerdictLevel = "Insufficient Data"
)

// Weights are the static per-analyzer contributions to the aggregate
type Weights struct {
	Clarity float64 `json:"clarity" yaml:"clarity" mapstructure:"clarity" validate:"gte=0,lte=1"`
	Media   float64 `json:"media" yaml:"media" mapstructure:"media" validate:"gte=0,lte=1"`
	Context float64 `json:"context" yaml:"context" mapstructure:"context" validate:"gte=0,lte=1"`
}

// DefaultWeights returns the standard 0.4/0.3/0.3 split
func DefaultWeights() Weights {
	return Weights{Clarity: 0.4, Media: 0.3, Context: 0.3}
}

// For returns the weight of an analyzer kind
func (w Weights) For(kind AnalyzerKind) float64 {
	switch kind {
	case KindClarity:
		return w.Clarity
	case KindMedia:
		return w.Media
	case KindContext:
		return w.Context
	}
	return 0
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Clarity + w.Media + w.Context
}

// AggregateVerdict is the orchestrator's combined output for one request
type AggregateVerdict struct {
	Request    AnalysisRequest  `json:"input"`
	Confidence float64          `json:"confidence_score"` // Weighted aggregate (0-1)
	Level      VerdictLevel     `json:"verdict_level"`
	Summary    string           `json:"overall_verdict"`     // Human-readable tags joined by " | "
	Conflicts  []string         `json:"conflicts,omitempty"` // Detected contradictory tag pairs
	Results    []AnalyzerResult `json:"results"`             // Per-analyzer outcomes, in dispatch order
	Weights    Weights          `json:"analysis_weights"`
	AnalyzedAt time.Time        `json:"timestamp"`
}

// Result returns the result for a kind, if that analyzer was dispatched
func (v *AggregateVerdict) Result(kind AnalyzerKind) (AnalyzerResult, bool) {
	for _, r := range v.Results {
		if r.Kind == kind {
			return r, true
		}
	}
	return AnalyzerResult{}, false
}
