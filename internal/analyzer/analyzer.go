// Package analyzer defines the port the orchestrator dispatches to and the
// LLM-backed adapters that implement it.
package analyzer

import (
	"context"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Input is what an analyzer receives; which field is used depends on its kind
type Input struct {
	Text     string
	MediaRef string
}

// Analyzer is a single fallible analysis procedure.
// Implementations may return an error or a failed result; the orchestrator
// treats both the same way.
type Analyzer interface {
	Kind() model.AnalyzerKind
	Analyze(ctx context.Context, in Input) (model.AnalyzerResult, error)
}

// Func adapts a plain function to the Analyzer interface
type Func struct {
	K  model.AnalyzerKind
	Fn func(ctx context.Context, in Input) (model.AnalyzerResult, error)
}

// Kind returns the analyzer kind
func (f Func) Kind() model.AnalyzerKind { return f.K }

// Analyze calls the wrapped function
func (f Func) Analyze(ctx context.Context, in Input) (model.AnalyzerResult, error) {
	return f.Fn(ctx, in)
}

// Waiter blocks until a call for key is permitted
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

type limited struct {
	Analyzer
	waiter Waiter
}

// WithLimiter throttles calls to a, keyed by its kind
func WithLimiter(a Analyzer, w Waiter) Analyzer {
	if w == nil {
		return a
	}
	return &limited{Analyzer: a, waiter: w}
}

func (l *limited) Analyze(ctx context.Context, in Input) (model.AnalyzerResult, error) {
	if err := l.waiter.Wait(ctx, string(l.Kind())); err != nil {
		return model.AnalyzerResult{}, err
	}
	return l.Analyzer.Analyze(ctx, in)
}
