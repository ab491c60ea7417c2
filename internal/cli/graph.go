package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	graphPath       string
	graphDepth      int
	graphTop        int
	graphID         string
	graphSubject    string
	graphPredicate  string
	graphObject     string
	graphConfidence float64
	graphStatus     string
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Query and maintain the claim similarity graph",
	Long: `The claim graph links claims whose TF-IDF cosine similarity exceeds
graph.similarity_threshold. It is stored as a JSON snapshot
(default: ~/.claimcheck/graph.json).`,
}

var graphAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a claim to the graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		g, path, err := openGraph(cfg, graphPath, logger)
		if err != nil {
			return err
		}

		id, err := g.AddClaim(model.Claim{
			ID:         graphID,
			Text:       args[0],
			Subject:    graphSubject,
			Predicate:  graphPredicate,
			Object:     graphObject,
			Confidence: graphConfidence,
			Status:     graphStatus,
		})
		if err != nil {
			return err
		}
		if err := g.Save(path); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var graphRelatedCmd = &cobra.Command{
	Use:   "related <claim-id>",
	Short: "List claims connected to a claim within --depth hops",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		g, _, err := openGraph(cfg, graphPath, logger)
		if err != nil {
			return err
		}
		if _, ok := g.Claim(args[0]); !ok {
			return fmt.Errorf("claim %s not found", args[0])
		}

		depth := graphDepth
		if depth <= 0 {
			depth = cfg.Graph.DefaultDepth
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCONFIDENCE\tTEXT")
		for _, c := range g.ConnectedClaims(args[0], depth) {
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", c.ID, c.Confidence, c.Text)
		}
		return w.Flush()
	},
}

var graphCommunitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "List groups of related claims",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		g, _, err := openGraph(cfg, graphPath, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, members := range g.CommunityClaims() {
			fmt.Fprintf(out, "Community %d (%d claims)\n", i+1, len(members))
			for _, id := range members {
				c, _ := g.Claim(id)
				fmt.Fprintf(out, "  %s  %s\n", id, c.Text)
			}
		}
		return nil
	},
}

var graphCentralCmd = &cobra.Command{
	Use:   "central",
	Short: "List the most central claims by betweenness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		g, _, err := openGraph(cfg, graphPath, logger)
		if err != nil {
			return err
		}

		top := graphTop
		if top <= 0 {
			top = cfg.Graph.DefaultTopN
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCENTRALITY\tTEXT")
		for _, c := range g.CentralClaims(top) {
			fmt.Fprintf(w, "%s\t%.4f\t%s\n", c.ID, c.Centrality, c.Text)
		}
		return w.Flush()
	},
}

var graphExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the graph as JSON to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		g, _, err := openGraph(cfg, graphPath, logger)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return g.Save(args[0])
		}
		data, err := g.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

var graphImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the graph with a JSON document",
	Long: `Import validates the whole document before replacing the stored graph.
A malformed document leaves the stored graph unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		g, path, err := openGraph(cfg, graphPath, logger)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if err := g.FromJSON(data); err != nil {
			return err
		}
		if err := g.Save(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d claims into %s\n", g.Len(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphAddCmd, graphRelatedCmd, graphCommunitiesCmd, graphCentralCmd, graphExportCmd, graphImportCmd)

	graphCmd.PersistentFlags().StringVar(&graphPath, "graph", "", "graph snapshot (default: graph.path from config)")

	graphAddCmd.Flags().StringVar(&graphID, "id", "", "claim ID (default: generated UUID)")
	graphAddCmd.Flags().StringVar(&graphSubject, "subject", "", "claim subject")
	graphAddCmd.Flags().StringVar(&graphPredicate, "predicate", "", "claim predicate")
	graphAddCmd.Flags().StringVar(&graphObject, "object", "", "claim object")
	graphAddCmd.Flags().Float64Var(&graphConfidence, "confidence", 0, "claim confidence (0-1)")
	graphAddCmd.Flags().StringVar(&graphStatus, "status", "", "claim status (default: Unknown)")

	graphRelatedCmd.Flags().IntVar(&graphDepth, "depth", 0, "maximum hops (default: graph.default_depth)")
	graphCentralCmd.Flags().IntVar(&graphTop, "top", 0, "number of claims (default: graph.default_top_n)")
}
