package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	analyzeText    string
	analyzeMedia   string
	analyzeJSON    string
	analyzeGraph   string
	addToGraph     bool
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a claim and/or a media reference",
	Long: `Analyze runs every applicable analyzer concurrently:
- clarity: structural decomposition of the text claim
- context: background and bias of the text claim
- media: authenticity of the referenced image

The per-analyzer confidences are combined into a weighted verdict.
A failing analyzer is reported and contributes nothing to the score.

Example:
  claimcheck analyze --text "The policy will increase energy costs by 30%"
  claimcheck analyze --media ./photo.jpg --json verdict.json
  claimcheck analyze --text "..." --add-to-graph`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "text claim to analyze")
	analyzeCmd.Flags().StringVar(&analyzeMedia, "media", "", "image URL or local path to analyze")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "write the verdict as JSON to this path ('-' for stdout)")
	analyzeCmd.Flags().StringVar(&analyzeGraph, "graph", "", "claim graph snapshot (default: graph.path from config)")
	analyzeCmd.Flags().BoolVar(&addToGraph, "add-to-graph", false, "add the text claim to the claim graph")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	orchestrator, cleanup, err := buildOrchestrator(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer cleanup()

	verdict, err := orchestrator.Analyze(ctx, model.AnalysisRequest{Text: analyzeText, MediaRef: analyzeMedia})
	if err != nil {
		return err
	}

	printVerdict(cmd.OutOrStdout(), verdict)

	if analyzeJSON != "" {
		if err := writeJSON(analyzeJSON, cmd.OutOrStdout(), verdict); err != nil {
			return err
		}
	}

	if (addToGraph || analyzeGraph != "") && verdict.Request.Text != "" {
		g, path, err := openGraph(cfg, analyzeGraph, logger)
		if err != nil {
			return err
		}
		id, err := g.AddClaim(claimFromVerdict(verdict))
		if err != nil {
			return fmt.Errorf("add claim to graph: %w", err)
		}
		if err := g.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nAdded claim %s to %s (%d claims)\n", id, path, g.Len())
		logger.Debug("graph updated", zap.String("path", path), zap.String("claim_id", id))
	}

	return nil
}

// claimFromVerdict turns an analyzed text claim into a graph node,
// taking the structure from the first clarity claim when present
func claimFromVerdict(v *model.AggregateVerdict) model.Claim {
	claim := model.Claim{
		Text:       v.Request.Text,
		Confidence: v.Confidence,
		Status:     string(v.Level),
		CreatedAt:  v.AnalyzedAt,
	}
	if r, ok := v.Result(model.KindClarity); ok && r.Clarity != nil && len(r.Clarity.Claims) > 0 {
		first := r.Clarity.Claims[0]
		claim.Subject = first.Subject
		claim.Predicate = first.Predicate
		claim.Object = first.Object
	}
	return claim
}

func printVerdict(w io.Writer, v *model.AggregateVerdict) {
	fmt.Fprintf(w, "Verdict:     %s\n", v.Level)
	fmt.Fprintf(w, "Confidence:  %.2f\n", v.Confidence)
	if v.Summary != "" {
		fmt.Fprintf(w, "Summary:     %s\n", v.Summary)
	}
	for _, c := range v.Conflicts {
		fmt.Fprintf(w, "Conflict:    %s\n", c)
	}

	fmt.Fprintln(w)
	for _, r := range v.Results {
		if r.Status == model.StatusFailed {
			fmt.Fprintf(w, "  ✗ %-8s failed: %s\n", r.Kind, r.Error)
			continue
		}
		fmt.Fprintf(w, "  ✓ %-8s %.2f%s\n", r.Kind, r.Confidence, resultDetail(r))
	}
}

func resultDetail(r model.AnalyzerResult) string {
	switch {
	case r.Clarity != nil:
		return fmt.Sprintf("  (%d claims)", len(r.Clarity.Claims))
	case r.Media != nil:
		return fmt.Sprintf("  (%s)", r.Media.Verdict)
	case r.Context != nil && r.Context.Bias != "":
		return fmt.Sprintf("  (bias: %s)", strings.ToLower(r.Context.Bias))
	}
	return ""
}

// writeJSON writes v to path, or to stdout when path is "-"
func writeJSON(path string, stdout io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
