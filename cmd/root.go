package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/talent-matcher/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "matcher",
	Short: "Creative-talent matching engine",
	Long:  "Scores gig/reviewer pairs with a hybrid rule+semantic engine, builds preference lists, and solves stable or ranked matchings with audited stability.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
