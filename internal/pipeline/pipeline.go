package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/claimcheck/internal/analyzer"
	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

// Orchestrator fans a request out to the applicable analyzers and combines
// their results into an AggregateVerdict.
// Each call runs validate -> dispatch -> collect -> aggregate -> classify.
type Orchestrator struct {
	analyzers map[model.AnalyzerKind]analyzer.Analyzer
	scorer    *score.Scorer
	logger    *zap.Logger
	metrics   *Metrics
	cache     cache.Cache
	cacheTTL  time.Duration
	now       func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records analyzer and verdict metrics
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCache memoizes verdicts of fully successful requests
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// NewOrchestrator creates an orchestrator. If two analyzers share a kind,
// the last one wins.
func NewOrchestrator(scorer *score.Scorer, analyzers []analyzer.Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzers: make(map[model.AnalyzerKind]analyzer.Analyzer, len(analyzers)),
		scorer:    scorer,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, a := range analyzers {
		o.analyzers[a.Kind()] = a
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs every analyzer applicable to req concurrently and aggregates
// the results. Analyzer failures are recorded in the verdict, never returned;
// the only error is a *ValidationError for an empty request.
func (o *Orchestrator) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AggregateVerdict, error) {
	req.Text = strings.TrimSpace(req.Text)
	req.MediaRef = strings.TrimSpace(req.MediaRef)

	if req.Text == "" && req.MediaRef == "" {
		return nil, &ValidationError{Reason: "at least one of text claim or media reference must be provided"}
	}

	key := ""
	if o.cache != nil {
		key = cache.CacheKey("analyze", req.Text, req.MediaRef)
		if verdict, ok := o.cached(key); ok {
			o.logger.Debug("verdict cache hit", zap.String("key", key))
			return verdict, nil
		}
	}

	kinds := dispatchKinds(req)
	results := o.dispatch(ctx, req, kinds)

	assessment := o.scorer.Calculate(results)
	verdict := &model.AggregateVerdict{
		Request:    req,
		Confidence: assessment.Confidence,
		Level:      assessment.Level,
		Summary:    assessment.Summary,
		Conflicts:  assessment.Conflicts,
		Results:    results,
		Weights:    o.scorer.Weights(),
		AnalyzedAt: o.now().UTC(),
	}

	o.metrics.observeVerdict(verdict.Level)
	o.logger.Info("analysis complete",
		zap.Float64("confidence", verdict.Confidence),
		zap.String("verdict_level", string(verdict.Level)),
		zap.Int("analyzers", len(results)),
		zap.Int("conflicts", len(verdict.Conflicts)))

	if o.cache != nil && allSucceeded(results) {
		o.store(key, verdict)
	}

	return verdict, nil
}

// dispatchKinds selects analyzers from the inputs present, in summary order
func dispatchKinds(req model.AnalysisRequest) []model.AnalyzerKind {
	var kinds []model.AnalyzerKind
	if req.Text != "" {
		kinds = append(kinds, model.KindClarity)
	}
	if req.MediaRef != "" {
		kinds = append(kinds, model.KindMedia)
	}
	if req.Text != "" {
		kinds = append(kinds, model.KindContext)
	}
	return kinds
}

// dispatch runs one goroutine per kind and waits for all of them.
// Each goroutine owns its slot in results, so no locking is needed.
func (o *Orchestrator) dispatch(ctx context.Context, req model.AnalysisRequest, kinds []model.AnalyzerKind) []model.AnalyzerResult {
	results := make([]model.AnalyzerResult, len(kinds))
	in := analyzer.Input{Text: req.Text, MediaRef: req.MediaRef}

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			results[i] = o.invoke(ctx, kind, in)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures are data

	return results
}

// invoke calls one analyzer and converts every failure mode into a failed result
func (o *Orchestrator) invoke(ctx context.Context, kind model.AnalyzerKind, in analyzer.Input) (result model.AnalyzerResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = model.Failed(kind, fmt.Errorf("analyzer panicked: %v", r))
		}
		result.Duration = time.Since(start)
		o.metrics.observeAnalyzer(kind, result)
		if !result.OK() {
			o.logger.Warn("analyzer failed", zap.String("analyzer", string(kind)), zap.String("error", result.Error))
		}
	}()

	a, ok := o.analyzers[kind]
	if !ok {
		return model.Failed(kind, errors.New("analyzer not configured"))
	}

	res, err := a.Analyze(ctx, in)
	if err != nil {
		return model.Failed(kind, err)
	}

	res.Kind = kind
	if err := res.Validate(); err != nil {
		return model.Failed(kind, fmt.Errorf("invalid analyzer result: %w", err))
	}
	return res
}

func (o *Orchestrator) cached(key string) (*model.AggregateVerdict, bool) {
	data, ok := o.cache.Get(key)
	if !ok {
		return nil, false
	}
	var verdict model.AggregateVerdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		o.logger.Warn("discarding unreadable cached verdict", zap.Error(err))
		_ = o.cache.Delete(key)
		return nil, false
	}
	return &verdict, true
}

func (o *Orchestrator) store(key string, verdict *model.AggregateVerdict) {
	data, err := json.Marshal(verdict)
	if err != nil {
		o.logger.Warn("marshal verdict for cache", zap.Error(err))
		return
	}
	if err := o.cache.Set(key, data, o.cacheTTL); err != nil {
		o.logger.Warn("cache verdict", zap.Error(err))
	}
}

func allSucceeded(results []model.AnalyzerResult) bool {
	for _, r := range results {
		if !r.OK() {
			return false
		}
	}
	return true
}
