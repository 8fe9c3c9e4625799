package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, stop, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer stop()

		if err := a.Migrate(ctx); err != nil {
			logger.WithContext(ctx).WithError(err).Error("Migration failed")
			return err
		}
		return nil
	},
}
