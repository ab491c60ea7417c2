package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ppiankov/claimcheck/internal/analyzer"
	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		// Started at init by opencensus, pulled in through the Gemini client
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func fullClaim() model.ClaimComponents {
	return model.ClaimComponents{Text: "t", Subject: "s", Predicate: "p", Object: "o", Quantifier: "all"}
}

func clarityOK(conf float64) analyzer.Analyzer {
	return analyzer.Func{K: model.KindClarity, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		return model.Succeeded(model.KindClarity, conf, &model.ClarityPayload{Claims: []model.ClaimComponents{fullClaim(), fullClaim()}}), nil
	}}
}

func contextOK(bias string, conf float64) analyzer.Analyzer {
	return analyzer.Func{K: model.KindContext, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		return model.Succeeded(model.KindContext, conf, &model.ContextPayload{Bias: bias, ConfidenceBias: conf}), nil
	}}
}

func mediaOK(verdict model.MediaVerdict, conf float64) analyzer.Analyzer {
	return analyzer.Func{K: model.KindMedia, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		return model.Succeeded(model.KindMedia, conf, &model.MediaPayload{Verdict: verdict, ConfidenceScore: conf}), nil
	}}
}

func failing(kind model.AnalyzerKind, err error) analyzer.Analyzer {
	return analyzer.Func{K: kind, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		return model.AnalyzerResult{}, err
	}}
}

func newTestOrchestrator(analyzers []analyzer.Analyzer, opts ...Option) *Orchestrator {
	scorer := score.NewScorer(model.DefaultWeights(), model.DefaultConflictRules())
	return NewOrchestrator(scorer, analyzers, opts...)
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	o := newTestOrchestrator(nil)

	for _, req := range []model.AnalysisRequest{{}, {Text: "   ", MediaRef: "\t"}} {
		verdict, err := o.Analyze(context.Background(), req)
		assert.Nil(t, verdict)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestAnalyzeTextOnlyScoring(t *testing.T) {
	clarity := analyzer.ClarityConfidence([]model.ClaimComponents{fullClaim(), fullClaim()})
	require.InDelta(t, 0.6, clarity, 1e-9)

	o := newTestOrchestrator([]analyzer.Analyzer{
		clarityOK(clarity),
		contextOK("Neutral", 0.5),
		mediaOK(model.MediaAuthentic, 1.0),
	})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "Vaccines cause autism"})
	require.NoError(t, err)

	assert.InDelta(t, 0.39, verdict.Confidence, 1e-9)
	assert.Equal(t, model.LevelInsufficient, verdict.Level)
	assert.Len(t, verdict.Results, 2, "media analyzer must not run without a media reference")
	assert.Equal(t, "Bias: Neutral", verdict.Summary)
	_, ran := verdict.Result(model.KindMedia)
	assert.False(t, ran)
}

func TestAnalyzeIsolatesFailures(t *testing.T) {
	o := newTestOrchestrator([]analyzer.Analyzer{
		failing(model.KindClarity, errors.New("provider timeout")),
		contextOK("Left", 0.8),
	})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)

	clarity, ok := verdict.Result(model.KindClarity)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, clarity.Status)
	assert.Equal(t, "provider timeout", clarity.Error)
	assert.Zero(t, clarity.Confidence)

	assert.InDelta(t, 0.24, verdict.Confidence, 1e-9)
	assert.Equal(t, "Bias: Left", verdict.Summary)
}

func TestAnalyzeAllFailed(t *testing.T) {
	o := newTestOrchestrator([]analyzer.Analyzer{
		failing(model.KindClarity, errors.New("a")),
		failing(model.KindContext, errors.New("b")),
		failing(model.KindMedia, nil),
	})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim", MediaRef: "photo.jpg"})
	require.NoError(t, err)

	assert.Zero(t, verdict.Confidence)
	assert.Equal(t, model.LevelInsufficient, verdict.Level)
	assert.Equal(t, "Insufficient data", verdict.Summary)
	assert.Len(t, verdict.Results, 3)
}

func TestAnalyzeMissingAnalyzer(t *testing.T) {
	o := newTestOrchestrator([]analyzer.Analyzer{clarityOK(0.7)})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)

	ctxResult, ok := verdict.Result(model.KindContext)
	require.True(t, ok)
	assert.Equal(t, "analyzer not configured", ctxResult.Error)
}

func TestAnalyzeRecoversPanic(t *testing.T) {
	panicky := analyzer.Func{K: model.KindContext, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		panic("boom")
	}}
	o := newTestOrchestrator([]analyzer.Analyzer{clarityOK(0.7), panicky})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)

	r, ok := verdict.Result(model.KindContext)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, r.Status)
	assert.Contains(t, r.Error, "boom")
}

func TestAnalyzeRejectsInvalidResult(t *testing.T) {
	outOfRange := analyzer.Func{K: model.KindContext, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		return model.Succeeded(model.KindContext, 1.5, &model.ContextPayload{Bias: "Right"}), nil
	}}
	o := newTestOrchestrator([]analyzer.Analyzer{clarityOK(0.7), outOfRange})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)

	r, ok := verdict.Result(model.KindContext)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, r.Status)
	assert.NotContains(t, verdict.Summary, "Bias: Right")
}

func TestAnalyzeRejectsNaNConfidence(t *testing.T) {
	nan := analyzer.Func{K: model.KindContext, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		return model.Succeeded(model.KindContext, math.NaN(), &model.ContextPayload{Bias: "Left"}), nil
	}}
	o := newTestOrchestrator([]analyzer.Analyzer{clarityOK(0.7), nan})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)

	r, ok := verdict.Result(model.KindContext)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, r.Status)
	assert.Zero(t, r.Confidence)
	assert.NotContains(t, verdict.Summary, "Bias: Left")
	assert.False(t, math.IsNaN(verdict.Confidence))

	_, err = json.Marshal(verdict)
	assert.NoError(t, err)
}

func TestAnalyzeDetectsConflict(t *testing.T) {
	o := newTestOrchestrator([]analyzer.Analyzer{
		clarityOK(0.8),
		mediaOK(model.MediaManipulated, 0.6),
		contextOK("Neutral", 0.5),
	})

	verdict, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim", MediaRef: "photo.jpg"})
	require.NoError(t, err)

	assert.Equal(t, "Has verifiable claims | Media: Manipulated | Bias: Neutral", verdict.Summary)
	assert.Equal(t, []string{"Conflicting evidence between media authenticity and claim verifiability"}, verdict.Conflicts)
	assert.InDelta(t, 0.4*0.8+0.3*0.6+0.3*0.5, verdict.Confidence, 1e-9)
	assert.Equal(t, model.LevelModerate, verdict.Level)
}

func TestAnalyzeRunsConcurrently(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})

	slow := func(kind model.AnalyzerKind, payload any) analyzer.Analyzer {
		return analyzer.Func{K: kind, Fn: func(ctx context.Context, _ analyzer.Input) (model.AnalyzerResult, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if n == 3 {
				close(release)
			}
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
			running.Add(-1)
			return model.Succeeded(kind, 0.5, payload), nil
		}}
	}

	o := newTestOrchestrator([]analyzer.Analyzer{
		slow(model.KindClarity, &model.ClarityPayload{}),
		slow(model.KindMedia, &model.MediaPayload{Verdict: model.MediaAuthentic}),
		slow(model.KindContext, &model.ContextPayload{Bias: "Neutral"}),
	})

	_, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim", MediaRef: "x.png"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), peak.Load())
}

func TestAnalyzeUsesCache(t *testing.T) {
	var calls atomic.Int32
	counting := analyzer.Func{K: model.KindClarity, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		calls.Add(1)
		return model.Succeeded(model.KindClarity, 0.7, &model.ClarityPayload{}), nil
	}}

	c := cache.NewMemoryCache(time.Minute, 0)
	o := newTestOrchestrator([]analyzer.Analyzer{counting, contextOK("Neutral", 0.5)}, WithCache(c, time.Minute))

	first, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "  claim  "})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.Summary, second.Summary)
	assert.InDelta(t, first.Confidence, second.Confidence, 1e-12)
}

func TestAnalyzeDoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int32
	flaky := analyzer.Func{K: model.KindClarity, Fn: func(context.Context, analyzer.Input) (model.AnalyzerResult, error) {
		calls.Add(1)
		return model.AnalyzerResult{}, errors.New("rate limited")
	}}

	c := cache.NewMemoryCache(time.Minute, 0)
	o := newTestOrchestrator([]analyzer.Analyzer{flaky, contextOK("Neutral", 0.5)}, WithCache(c, time.Minute))

	for range 2 {
		_, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	o := newTestOrchestrator([]analyzer.Analyzer{
		clarityOK(0.9),
		failing(model.KindContext, errors.New("down")),
	}, WithMetrics(metrics))

	_, err := o.Analyze(context.Background(), model.AnalysisRequest{Text: "claim"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.analyzerResults.WithLabelValues("clarity", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.analyzerResults.WithLabelValues("context", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.verdicts.WithLabelValues(string(model.LevelInsufficient))))
}
