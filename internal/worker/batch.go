package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Analyzer produces a verdict for one request
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AggregateVerdict, error)
}

// AnalyzeJob analyzes a single claim
type AnalyzeJob struct {
	Index    int
	Request  model.AnalysisRequest
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	verdict, err := j.Analyzer.Analyze(ctx, j.Request)
	return &AnalyzeResult{
		Index:   j.Index,
		Request: j.Request,
		Verdict: verdict,
		Error:   err,
	}
}

// AnalyzeResult is the outcome of an AnalyzeJob
type AnalyzeResult struct {
	Index   int
	Request model.AnalysisRequest
	Verdict *model.AggregateVerdict
	Error   error
}

// GetError returns the error from the analysis
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many claims concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Process analyzes every request and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, requests []model.AnalysisRequest) []*AnalyzeResult {
	if len(requests) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submit from a separate goroutine so a full queue never blocks result draining
	go func() {
		for i, req := range requests {
			pool.Submit(&AnalyzeJob{
				Index:    i,
				Request:  req,
				Analyzer: b.analyzer,
			})
		}
		pool.Close()
	}()

	results := pool.Collect()

	analyzed := make([]*AnalyzeResult, 0, len(results))
	for _, result := range results {
		analyzed = append(analyzed, result.(*AnalyzeResult))
	}
	sort.Slice(analyzed, func(i, j int) bool { return analyzed[i].Index < analyzed[j].Index })

	return analyzed
}

// ProcessFile reads text claims from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	requests := make([]model.AnalysisRequest, len(claims))
	for i, claim := range claims {
		requests[i] = model.AnalysisRequest{Text: claim}
	}
	return b.Process(ctx, requests), nil
}

// ReadClaimsFromFile reads claims from a file, one per line.
// Blank lines and lines starting with # are skipped; duplicates are dropped.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
