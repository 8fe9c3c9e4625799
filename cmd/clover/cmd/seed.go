package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/fixtures"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Stage crawl and registry batches from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := fixtures.Load(seedFile)
		if err != nil {
			return err
		}

		a, stop, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer stop()

		return a.Seed(ctx, f)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "testdata/fixtures.yaml", "fixtures file to stage")
}
