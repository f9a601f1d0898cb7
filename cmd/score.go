package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/talent-matcher/internal/scoring"
	"github.com/sells-group/talent-matcher/internal/source"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single gig/reviewer pair",
	Long: `Compute the full score breakdown for one gig against one reviewer.

Prints every rule factor, the semantic contributions, and the combined
total, plus whether the semantic provider degraded to heuristics.

Examples:
  matcher score --gig gig.yaml --reviewer rev-042 --candidates pool.yaml
  matcher score --gig gig.yaml --reviewer rev-042 --format json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("gig", "", "gig YAML file (required)")
	f.String("reviewer", "", "reviewer id to score (required)")
	f.String("candidates", "", "candidate pool YAML file (default: configured store)")
	f.String("format", "table", "output format: table or json")
	_ = scoreCmd.MarkFlagRequired("gig")
	_ = scoreCmd.MarkFlagRequired("reviewer")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("matching"); err != nil {
		return err
	}

	gigPath, _ := cmd.Flags().GetString("gig")
	reviewerID, _ := cmd.Flags().GetString("reviewer")
	poolPath, _ := cmd.Flags().GetString("candidates")
	format, _ := cmd.Flags().GetString("format")

	proposers, err := loadProposers(gigPath)
	if err != nil {
		return err
	}
	gig := &proposers[0]

	candidates, err := loadCandidates(ctx, poolPath, source.Criteria{})
	if err != nil {
		return err
	}

	for i := range candidates {
		if candidates[i].ID != reviewerID {
			continue
		}
		engine := scoring.NewEngine(cfg.Matching, newProvider())
		breakdown := engine.Score(ctx, gig, &candidates[i])

		if format == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(breakdown), "encode breakdown")
		}

		factors := make([]string, 0, len(breakdown.Factors))
		for name := range breakdown.Factors {
			factors = append(factors, name)
		}
		sort.Strings(factors)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FACTOR\tPOINTS")
		for _, name := range factors {
			fmt.Fprintf(tw, "%s\t%.1f\n", name, breakdown.Factors[name])
		}
		fmt.Fprintf(tw, "total\t%d\n", breakdown.Total)
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nalgorithm=%s semantic_unavailable=%v\n",
			breakdown.Algorithm, breakdown.SemanticUnavailable)
		return nil
	}

	return eris.Errorf("reviewer %s not found in pool", reviewerID)
}
