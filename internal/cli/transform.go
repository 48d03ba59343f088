package cli

import (
	"github.com/spf13/cobra"

	"github.com/mbruun/artsearch/internal/etl"
)

func newTransformCommand(a *app) *cobra.Command {
	var (
		museumSlug string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Standardize raw records into artworks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			size := a.cfg.ETL.BatchSize
			if batchSize > 0 {
				size = batchSize
			}

			runner := etl.NewTransformRunner(a.rawRepo(), a.artworkRepo())
			report, err := runner.Run(runContext(cmd), museumSlug, size)
			printReport(cmd, report)
			return err
		},
	}

	cmd.Flags().StringVarP(&museumSlug, "museum", "m", "", "museum slug to transform; empty means all")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "raw records per database page (default from config)")
	return cmd
}
