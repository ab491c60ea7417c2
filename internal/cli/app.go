package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/analyzer"
	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/graph"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// loadConfig merges defaults, the config file, CLAIMCHECK_* env vars and
// provider env vars, then validates the result
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(v, cfg); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	applyEnvFallbacks(&cfg)

	if v.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}

	if dir, err := configDir(); err == nil {
		if cfg.Cache.Dir == "" {
			cfg.Cache.Dir = filepath.Join(dir, "cache")
		}
		if cfg.Graph.Path == "" {
			cfg.Graph.Path = filepath.Join(dir, "graph.json")
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// registerDefaults exposes every config key to viper so env vars can
// override keys the config file does not set
func registerDefaults(v *viper.Viper, cfg model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)

	// Empty optional keys are omitted from the YAML above
	for _, key := range optionalKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

var optionalKeys = []string{
	"graph.path",
	"llm.api_key",
	"llm.base_url",
	"llm.http_proxy",
	"llm.https_proxy",
	"llm.no_proxy",
	"cache.dir",
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// applyEnvFallbacks fills provider settings from the conventional env vars
func applyEnvFallbacks(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

// newLogger builds a production logger at level, writing to stderr
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = lvl > zapcore.DebugLevel

	return zcfg.Build()
}

// buildOrchestrator wires the provider, analyzers, scorer, cache and metrics.
// The returned cleanup releases provider resources.
func buildOrchestrator(ctx context.Context, cfg model.Config, logger *zap.Logger, reg prometheus.Registerer) (*pipeline.Orchestrator, func(), error) {
	provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg.LLM), logger)
	if errors.Is(err, llm.ErrNoProvider) {
		return nil, nil, fmt.Errorf("%w: set llm.provider in the config file or CLAIMCHECK_LLM_PROVIDER (openai, anthropic, gemini, ollama)", err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create LLM provider: %w", err)
	}

	cleanup := func() {
		if closer, ok := provider.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("close LLM provider", zap.Error(err))
			}
		}
	}

	var waiter analyzer.Waiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		waiter = worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	httpClient := util.NewHTTPClient(cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)
	analyzers := analyzer.NewLLMAnalyzers(provider, httpClient, waiter)

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipeline.NewMetrics(reg)),
	}
	if c := cache.New(cfg.Cache); c != nil {
		opts = append(opts, pipeline.WithCache(c, cfg.Cache.MemoryTTL))
	}

	logger.Debug("orchestrator ready",
		zap.String("provider", provider.Name()),
		zap.Int("analyzers", len(analyzers)),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Float64("rps", cfg.RateLimit.RequestsPerSecond))

	scorer := score.NewScorer(cfg.Weights, cfg.Conflicts)
	return pipeline.NewOrchestrator(scorer, analyzers, opts...), cleanup, nil
}

// openGraph loads the snapshot at path (or cfg.Graph.Path when empty)
func openGraph(cfg model.Config, path string, logger *zap.Logger) (*graph.ClaimGraph, string, error) {
	if path == "" {
		path = cfg.Graph.Path
	}

	detector, err := graph.NewDetector(cfg.Graph.Community, cfg.Graph.Resolution)
	if err != nil {
		return nil, "", err
	}

	g := graph.New(
		graph.WithThreshold(cfg.Graph.SimilarityThreshold),
		graph.WithDetector(detector),
		graph.WithLogger(logger),
	)
	if err := g.Load(path); err != nil {
		return nil, "", fmt.Errorf("load graph %s: %w", path, err)
	}
	return g, path, nil
}

// setup loads config and builds the logger for a command
func setup() (model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
