package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/store"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage reviewer profiles in the store",
}

var candidatesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import reviewer profiles from a YAML file",
	RunE:  runCandidatesImport,
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reviewer profiles",
	RunE:  runCandidatesList,
}

func init() {
	candidatesImportCmd.Flags().String("file", "", "reviewer pool YAML file (required)")
	_ = candidatesImportCmd.MarkFlagRequired("file")

	f := candidatesListCmd.Flags()
	f.String("category", "", "filter by skill category")
	f.String("city", "", "filter by home city")
	f.Int("min-experience", 0, "minimum years of experience")
	f.Int("limit", 50, "maximum rows")

	candidatesCmd.AddCommand(candidatesImportCmd, candidatesListCmd)
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidatesImport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("store"); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	var pool struct {
		Reviewers []model.Reviewer `yaml:"reviewers"`
	}
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}

	valid := pool.Reviewers[:0]
	for i := range pool.Reviewers {
		if err := pool.Reviewers[i].Validate(); err != nil {
			zap.L().Warn("skipping invalid reviewer", zap.Error(err))
			continue
		}
		valid = append(valid, pool.Reviewers[i])
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	n, err := st.UpsertReviewers(ctx, valid)
	if err != nil {
		return eris.Wrap(err, "upsert reviewers")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d reviewers\n", n)
	return nil
}

func runCandidatesList(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("store"); err != nil {
		return err
	}

	category, _ := cmd.Flags().GetString("category")
	city, _ := cmd.Flags().GetString("city")
	minExp, _ := cmd.Flags().GetInt("min-experience")
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	reviewers, err := st.ListReviewers(ctx, store.ReviewerQuery{
		Category:      category,
		City:          city,
		MinExperience: minExp,
		Limit:         limit,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCITY\tYEARS\tRATING")
	for i := range reviewers {
		r := &reviewers[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\n", r.ID, r.Name, r.City, r.ExperienceYears, r.Rating)
	}
	return eris.Wrap(tw.Flush(), "flush table")
}
