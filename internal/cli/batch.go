package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchJSON    string
	batchGraph   string
	batchToGraph bool
	metricsAddr  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many text claims from a file in parallel",
	Long: `Batch analyzes text claims concurrently:
- Read claims from the input file (one per line, # comments allowed)
- Drop blank lines and duplicates
- Analyze claims in parallel with a bounded worker pool
- Print one verdict line per claim, in input order

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrency 8 --json verdicts.json
  claimcheck batch claims.txt --add-to-graph --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.batch_workers)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchJSON, "json", "", "write all verdicts as JSON to this path ('-' for stdout)")
	batchCmd.Flags().StringVar(&batchGraph, "graph", "", "claim graph snapshot (default: graph.path from config)")
	batchCmd.Flags().BoolVar(&batchToGraph, "add-to-graph", false, "add every analyzed claim to the claim graph")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the batch runs")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if concurrency <= 0 {
		concurrency = cfg.Concurrency.BatchWorkers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	reg := prometheus.NewRegistry()
	if metricsAddr != "" {
		stop := serveMetrics(metricsAddr, reg, logger)
		defer stop()
	}

	orchestrator, cleanup, err := buildOrchestrator(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	fmt.Fprintf(os.Stderr, "Analyzing claims from %s with %d workers\n\n", file, concurrency)

	processor := worker.NewBatchProcessor(orchestrator, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", result.Request.Text, result.Error)
			continue
		}
		successCount++
		fmt.Fprintf(out, "✓ [%.2f %s] %s\n", result.Verdict.Confidence, result.Verdict.Level, result.Request.Text)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d\n",
		len(results), successCount, len(results)-successCount)

	if batchJSON != "" {
		verdicts := make([]any, 0, len(results))
		for _, result := range results {
			if result.Verdict != nil {
				verdicts = append(verdicts, result.Verdict)
			}
		}
		if err := writeJSON(batchJSON, out, verdicts); err != nil {
			return err
		}
	}

	if batchToGraph || batchGraph != "" {
		g, path, err := openGraph(cfg, batchGraph, logger)
		if err != nil {
			return err
		}
		added := 0
		for _, result := range results {
			if result.Verdict == nil {
				continue
			}
			if _, err := g.AddClaim(claimFromVerdict(result.Verdict)); err != nil {
				logger.Warn("skip claim", zap.String("text", result.Request.Text), zap.Error(err))
				continue
			}
			added++
		}
		if err := g.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Added %d claims to %s (%d total)\n", added, path, g.Len())
	}

	return nil
}

// serveMetrics exposes reg on addr until the returned stop function is called
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
