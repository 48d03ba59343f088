package cli

import (
	"github.com/spf13/cobra"

	"github.com/mbruun/artsearch/internal/etl"
)

func newLoadImagesCommand(a *app) *cobra.Command {
	flags := &stageFlags{}

	cmd := &cobra.Command{
		Use:   "load-images",
		Short: "Download, normalize, and store artwork thumbnails",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			store, err := a.objectStorage()
			if err != nil {
				return err
			}

			loader := etl.NewImageLoader(a.artworkRepo(), store, a.cfg.ETL.ImageMaxDimension, a.cfg.ETL.JPEGQuality)
			report, err := loader.Run(runContext(cmd), flags.museum, flags.loadOptions(a.cfg))
			printReport(cmd, report)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
