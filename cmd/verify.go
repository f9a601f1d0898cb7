package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/prefs"
	"github.com/sells-group/talent-matcher/internal/scoring"
	"github.com/sells-group/talent-matcher/internal/stable"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Audit a saved run for blocking pairs",
	Long: `Recompute preference lists for a saved matching run and check the
stored assignment for blocking pairs. Exits non-zero when the matching
is not stable.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("run", "", "run id to audit (required)")
	_ = verifyCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("all"); err != nil {
		return err
	}

	runID, _ := cmd.Flags().GetString("run")

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	engine := scoring.NewEngine(cfg.Matching, newProvider())
	built, err := prefs.NewBuilder(engine).Build(ctx, run.Proposers, run.Reviewers)
	if err != nil {
		return eris.Wrap(err, "rebuild preference lists")
	}

	// Take each proposer's best stored match as the assignment under audit.
	matching := make(map[string]string, len(run.Proposers))
	for _, m := range run.Result.Matches {
		if cur, ok := matching[m.ProposerID]; ok && cur != "" {
			continue
		}
		matching[m.ProposerID] = m.ReviewerID
	}

	audit := stable.Verify(matching, built.ProposerPrefs, built.ReviewerPrefs)

	zap.L().Info("stability audit complete",
		zap.String("run", runID),
		zap.Bool("stable", audit.IsStable),
		zap.Int("blocking_pairs", len(audit.BlockingPairs)),
	)

	if audit.IsStable {
		fmt.Fprintf(cmd.OutOrStdout(), "run %s is stable (%d assignments audited)\n", runID, len(matching))
		return nil
	}

	for _, bp := range audit.BlockingPairs {
		fmt.Fprintf(cmd.OutOrStdout(), "blocking pair: proposer=%s reviewer=%s\n", bp.ProposerID, bp.ReviewerID)
	}
	return eris.Errorf("run %s is not stable: %d blocking pairs", runID, len(audit.BlockingPairs))
}
