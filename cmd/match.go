package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/matcher"
	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/source"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run matching for one or more gigs",
	Long: `Score a candidate pool against the given gig(s), then match.

Algorithm auto picks deferred acceptance when the pool fits the
candidate cap and stable matching is enabled, otherwise ranked scoring.
Every stable result is audited for blocking pairs before the stability
guarantee is reported.

Examples:
  # Match one gig against a YAML pool
  matcher match --gig gig.yaml --candidates pool.yaml

  # Force ranked mode, top 10 over 55 points, save the run
  matcher match --gig gig.yaml --candidates pool.yaml \
    --algorithm ranked --limit 10 --min-score 55 --save

  # Use reviewer profiles previously imported into the store
  matcher match --gig gig.yaml`,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.String("gig", "", "gig YAML file (required)")
	f.String("candidates", "", "candidate pool YAML file (default: configured store)")
	f.String("algorithm", "auto", "matching algorithm: auto, stable, or ranked")
	f.Int("limit", 0, "maximum matches per gig (0=candidate cap)")
	f.Float64("min-score", 0, "qualifying score threshold (overrides config)")
	f.String("format", "table", "output format: table, csv, or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "persist the run and its matches to the store")
	_ = matchCmd.MarkFlagRequired("gig")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("matching"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "match"))

	gigPath, _ := cmd.Flags().GetString("gig")
	poolPath, _ := cmd.Flags().GetString("candidates")
	algoName, _ := cmd.Flags().GetString("algorithm")
	limit, _ := cmd.Flags().GetInt("limit")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	algo, err := model.ParseAlgorithm(algoName)
	if err != nil {
		return err
	}

	proposers, err := loadProposers(gigPath)
	if err != nil {
		return err
	}
	for i := range proposers {
		if proposers[i].ID == "" {
			proposers[i].ID = uuid.NewString()
		}
	}

	criteria := source.Criteria{Limit: cfg.Matching.CandidateCap}
	if len(proposers) == 1 {
		criteria.Category = proposers[0].Category
		if !proposers[0].RemoteOK {
			criteria.City = proposers[0].City
		}
	}
	candidates, err := loadCandidates(ctx, poolPath, criteria)
	if err != nil {
		return err
	}

	log.Info("starting matching run",
		zap.Int("proposers", len(proposers)),
		zap.Int("candidates", len(candidates)),
		zap.String("algorithm", algo.String()),
	)

	orch := newOrchestrator()
	result, err := orch.FindMatches(ctx, matcher.Request{
		Proposers:  proposers,
		Candidates: candidates,
		Limit:      limit,
		Algorithm:  algo,
		MinScore:   minScore,
	})
	if err != nil {
		return eris.Wrap(err, "matching run")
	}

	log.Info("matching run complete",
		zap.String("algorithm", result.Metadata.Algorithm),
		zap.String("stability", string(result.Metadata.Stability)),
		zap.Int("matched", result.Metadata.MatchedCount),
		zap.Bool("degraded", result.Metadata.Degraded),
		zap.Int64("elapsed_ms", result.Metadata.ProcessingTimeMs),
	)

	runID := uuid.NewString()
	if save {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		run := &model.MatchRun{
			ID:        runID,
			Proposers: proposers,
			Reviewers: candidates,
			Result:    *result,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.SaveRun(ctx, run); err != nil {
			return eris.Wrap(err, "save run")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run saved: %s\n", runID)
	}

	return writeMatches(cmd, result, format, output)
}

func writeMatches(cmd *cobra.Command, result *model.MatchResult, format, output string) error {
	out := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "create %s", output)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "encode result")

	case "csv":
		w := csv.NewWriter(out)
		if err := w.Write([]string{"proposer_id", "reviewer_id", "rank", "score", "type", "stability_verified"}); err != nil {
			return eris.Wrap(err, "write csv header")
		}
		for _, m := range result.Matches {
			rec := []string{
				m.ProposerID, m.ReviewerID,
				strconv.Itoa(m.Rank), strconv.Itoa(m.Score.Total),
				string(m.MatchType), strconv.FormatBool(m.StabilityVerified),
			}
			if err := w.Write(rec); err != nil {
				return eris.Wrap(err, "write csv row")
			}
		}
		w.Flush()
		return eris.Wrap(w.Error(), "flush csv")

	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tPROPOSER\tREVIEWER\tSCORE\tTYPE\tVERIFIED")
		for _, m := range result.Matches {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%v\n",
				m.Rank, m.ProposerID, m.ReviewerID, m.Score.Total, m.MatchType, m.StabilityVerified)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}
		fmt.Fprintf(out, "\nalgorithm=%s stability=%s matched=%d/%d degraded=%v elapsed=%dms\n",
			result.Metadata.Algorithm, result.Metadata.Stability,
			result.Metadata.MatchedCount, result.Metadata.TotalCandidates,
			result.Metadata.Degraded, result.Metadata.ProcessingTimeMs)
		return nil

	default:
		return eris.Errorf("unknown format %q", format)
	}
}
