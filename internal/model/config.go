package model

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// configValidate is shared; validator.Validate caches struct metadata and is safe for concurrent use
var configValidate = validator.New()

// Config is the complete claimcheck configuration
type Config struct {
	Weights     Weights           `yaml:"weights" mapstructure:"weights"`
	Conflicts   []ConflictRule    `yaml:"conflicts,omitempty" mapstructure:"conflicts" validate:"dive"`
	Graph       GraphConfig       `yaml:"graph" mapstructure:"graph"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ConflictRule declares two qualitative tags that contradict each other
type ConflictRule struct {
	A           string `yaml:"a" mapstructure:"a" validate:"required"`
	B           string `yaml:"b" mapstructure:"b" validate:"required,nefield=A"`
	Description string `yaml:"description" mapstructure:"description" validate:"required"`
}

// GraphConfig configures the claim similarity graph
type GraphConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold" validate:"gte=0,lt=1"`
	DefaultDepth        int     `yaml:"default_depth" mapstructure:"default_depth" validate:"gte=1"`
	DefaultTopN         int     `yaml:"default_top_n" mapstructure:"default_top_n" validate:"gte=1"`
	Community           string  `yaml:"community" mapstructure:"community" validate:"oneof=components louvain label_propagation"`
	Resolution          float64 `yaml:"resolution" mapstructure:"resolution" validate:"gt=0"` // Louvain resolution
	Path                string  `yaml:"path,omitempty" mapstructure:"path"`                   // Snapshot file; default ~/.claimcheck/graph.json
}

// LLMConfig configures the provider backing the analyzer adapters
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai anthropic claude gemini ollama"`
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig throttles analyzer calls per analyzer kind
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"` // 0 disables
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// ConcurrencyConfig bounds batch processing
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers" validate:"gte=1"`
}

// CacheConfig configures the verdict cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
}

// DefaultConflictRules returns the built-in contradictory tag pairs
func DefaultConflictRules() []ConflictRule {
	return []ConflictRule{
		{
			A:           TagMedia(MediaManipulated),
			B:           TagVerifiableClaims,
			Description: "Conflicting evidence between media authenticity and claim verifiability",
		},
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Weights:   DefaultWeights(),
		Conflicts: DefaultConflictRules(),
		Graph: GraphConfig{
			SimilarityThreshold: 0.3,
			DefaultDepth:        2,
			DefaultTopN:         5,
			Community:           "components",
			Resolution:          1.0,
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Timeout:   30,
			MaxTokens: 1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks field constraints and that weights sum to at most 1
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if sum := c.Weights.Sum(); sum > 1+1e-9 || math.IsNaN(sum) {
		return fmt.Errorf("invalid config: analyzer weights sum to %.3f (must be <= 1)", sum)
	}
	return nil
}
