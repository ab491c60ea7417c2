package analyzer

import (
	"net/http"

	"github.com/ppiankov/claimcheck/internal/llm"
)

// NewLLMAnalyzers builds the clarity, context and media adapters over one
// provider, each throttled by w when it is non-nil.
func NewLLMAnalyzers(provider llm.Provider, httpClient *http.Client, w Waiter) []Analyzer {
	return []Analyzer{
		WithLimiter(NewClarity(provider), w),
		WithLimiter(NewContext(provider), w),
		WithLimiter(NewMedia(provider, httpClient), w),
	}
}
