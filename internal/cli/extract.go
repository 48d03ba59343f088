package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mbruun/artsearch/internal/etl"
)

func newExtractCommand(a *app) *cobra.Command {
	var (
		museumSlug string
		maxPages   int
		delay      float64
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch artwork records from museum APIs into the raw store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			recordDelay := time.Duration(a.cfg.ETL.Delay * float64(time.Second))
			if delay >= 0 {
				recordDelay = time.Duration(delay * float64(time.Second))
			}

			extractor := etl.NewExtractor(a.rawRepo(), a.museumRegistry())
			report, err := extractor.Run(runContext(cmd), museumSlug, etl.ExtractOptions{
				MaxPages:        maxPages,
				PageDelay:       recordDelay,
				RequestDelay:    recordDelay,
				Force:           force,
				FreshnessWindow: time.Duration(a.cfg.ETL.METRefreshDays) * 24 * time.Hour,
			})
			printReport(cmd, report)
			return err
		},
	}

	cmd.Flags().StringVarP(&museumSlug, "museum", "m", "", "museum slug to extract; empty means all")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages per museum; 0 means run to completion")
	cmd.Flags().Float64Var(&delay, "delay", -1, "seconds between requests (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "re-fetch objects even when a fresh record exists")
	return cmd
}
