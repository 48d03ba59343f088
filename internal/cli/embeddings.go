package cli

import (
	"github.com/spf13/cobra"

	"github.com/mbruun/artsearch/internal/embedder"
	"github.com/mbruun/artsearch/internal/etl"
)

func newLoadEmbeddingsCommand(a *app) *cobra.Command {
	flags := &stageFlags{}

	cmd := &cobra.Command{
		Use:   "load-embeddings",
		Short: "Compute embeddings and load them into the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			active, err := a.activeVectorTypes()
			if err != nil {
				return err
			}

			store, err := a.objectStorage()
			if err != nil {
				return err
			}

			qdrantRepo, err := a.qdrantRepo()
			if err != nil {
				return err
			}
			defer qdrantRepo.Close()

			embedders := embedder.NewRegistry(
				&embedder.CLIPConfig{BaseURL: a.cfg.CLIP.BaseURL},
				&embedder.JinaConfig{
					APIKey:     a.cfg.Jina.APIKey,
					Model:      a.cfg.Jina.Model,
					Dimensions: a.cfg.Jina.Dimensions,
				},
			)

			loader, err := etl.NewEmbeddingLoader(a.artworkRepo(), store, qdrantRepo, embedders, active)
			if err != nil {
				return err
			}
			report, err := loader.Run(runContext(cmd), flags.museum, flags.loadOptions(a.cfg))
			printReport(cmd, report)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
