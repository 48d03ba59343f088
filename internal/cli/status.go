package cli

import (
	"github.com/spf13/cobra"

	"github.com/mbruun/artsearch/internal/domain"
)

func newStatusCommand(a *app) *cobra.Command {
	var museumSlug string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline progress counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			rawCount, err := a.rawRepo().CountByMuseum(cmd.Context(), museumSlug)
			if err != nil {
				return err
			}
			counts, err := a.artworkRepo().CountPipeline(cmd.Context(), museumSlug)
			if err != nil {
				return err
			}

			cmd.Printf("raw records:     %d\n", rawCount)
			cmd.Printf("artworks:        %d\n", counts.Total)
			cmd.Printf("images loaded:   %d (failed %d)\n", counts.ImagesLoaded, counts.ImagesFailed)
			for _, vt := range domain.AllVectorTypes {
				cmd.Printf("%-16s %d\n", vt.String()+":", counts.VectorsLoaded[vt])
			}
			cmd.Printf("embed failures:  %d\n", counts.EmbedsFailed)

			if qdrantRepo, err := a.qdrantRepo(); err == nil {
				defer qdrantRepo.Close()
				if points, err := qdrantRepo.Count(cmd.Context()); err == nil {
					cmd.Printf("index points:    %d\n", points)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&museumSlug, "museum", "m", "", "museum slug to report on; empty means all")
	return cmd
}
