package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var runMigrate bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one matching pass and print its summary",
	Long: `Run loads both source batches, blocks and scores them, adjudicates the
candidates and upserts unified companies. The summary is written to stdout as
JSON. A fatal error exits non-zero.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if cfg.MatchRunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.MatchRunTimeout)
			defer cancel()
		}

		a, stop, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer stop()

		if runMigrate {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
		}

		p, err := a.Pipeline()
		if err != nil {
			return err
		}

		release, err := a.RunLock().Acquire(ctx)
		if err != nil {
			logger.WithContext(ctx).WithError(err).Error("Could not acquire the run lock")
			return err
		}
		defer func() {
			_ = release(context.WithoutCancel(ctx))
		}()

		summary, runErr := p.Run(ctx)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().BoolVar(&runMigrate, "migrate", false, "apply database migrations before running")
}
