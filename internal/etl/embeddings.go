package etl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/embedder"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/repository"
	"github.com/mbruun/artsearch/internal/storage"
)

// VectorIndex is the slice of the vector store the embedding loader needs.
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	HasPoint(ctx context.Context, pointID string) (bool, error)
	UpsertPoint(ctx context.Context, pointID string, vectors map[domain.VectorType][]float32, payload *repository.ArtworkPayload) error
	UpdateVectors(ctx context.Context, pointID string, vectors map[domain.VectorType][]float32) error
	SetPayload(ctx context.Context, pointID string, payload *repository.ArtworkPayload) error
}

// EmbeddingLoader computes embeddings for artworks with stored thumbnails and
// writes them to the vector index. Each run computes only the active vector
// types a record is still missing, so activating a new type later backfills
// it without recomputing the others.
type EmbeddingLoader struct {
	artworks  *repository.ArtworkRepository
	store     storage.ObjectStorage
	index     VectorIndex
	embedders embedder.Registry
	active    []domain.VectorType
}

// NewEmbeddingLoader creates an EmbeddingLoader.
// Parameters:
//   - artworks: artwork repository to select candidates from.
//   - store: object storage holding processed thumbnails.
//   - index: vector index to write embeddings into.
//   - embedders: embedder registry covering the active vector types.
//   - active: vector types to compute this deployment.
// Returns:
//   - *EmbeddingLoader: loader instance.
//   - error: non-nil if an active type has no registered embedder.
func NewEmbeddingLoader(artworks *repository.ArtworkRepository, store storage.ObjectStorage, index VectorIndex, embedders embedder.Registry, active []domain.VectorType) (*EmbeddingLoader, error) {
	for _, vt := range active {
		if _, err := embedders.ForVectorType(vt); err != nil {
			return nil, err
		}
	}
	return &EmbeddingLoader{
		artworks:  artworks,
		store:     store,
		index:     index,
		embedders: embedders,
		active:    active,
	}, nil
}

// Run processes embedding candidates in batches until none remain or the
// batch cap is reached. The collection is created on first use.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - opts: run options.
// Returns:
//   - *Report: per-record outcome counts.
//   - error: non-nil only on infrastructure failure.
func (l *EmbeddingLoader) Run(ctx context.Context, museumSlug string, opts LoadOptions) (*Report, error) {
	ctx = logger.SetStage(ctx, "load-embeddings")
	if museumSlug != "" {
		ctx = logger.SetMuseum(ctx, museumSlug)
	}
	log := logger.FromContext(ctx)

	report := &Report{}
	if len(l.active) == 0 {
		log.Warn("No active vector types configured, nothing to do")
		return report, nil
	}

	if err := l.index.EnsureCollection(ctx); err != nil {
		return report, fmt.Errorf("failed to ensure collection: %w", err)
	}

	if opts.Force && !opts.DryRun {
		reset, err := l.artworks.ResetVectorFlags(ctx, museumSlug, l.active)
		if err != nil {
			return report, fmt.Errorf("failed to reset vector flags: %w", err)
		}
		log.WithField(logger.FieldCount, reset).Info("Reset vector flags for forced run")
	}

	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		candidates, err := l.artworks.ListEmbeddingCandidates(ctx, museumSlug, l.active, opts.RetryFailed, opts.batchSize())
		if err != nil {
			return report, fmt.Errorf("failed to list embedding candidates: %w", err)
		}
		if len(candidates) == 0 {
			break
		}
		batches++

		if opts.DryRun {
			for i := range candidates {
				log.WithFields(map[string]interface{}{
					logger.FieldMuseum:       candidates[i].MuseumSlug,
					logger.FieldObjectNumber: candidates[i].ObjectNumber,
				}).Info("Would load embeddings")
			}
			report.Skipped += len(candidates)
			break
		}

		before := batchProgress(report, opts.RetryFailed)
		for i := range candidates {
			l.loadOne(ctx, &candidates[i], report)

			if opts.RecordDelay > 0 {
				select {
				case <-time.After(opts.RecordDelay):
				case <-ctx.Done():
					return report, ctx.Err()
				}
			}
		}

		log.WithFields(map[string]interface{}{
			"batch":     batches,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
		}).Info("Embedding batch complete")

		// A batch that removed nothing from the selection would be
		// re-selected forever.
		if batchProgress(report, opts.RetryFailed) == before {
			break
		}
		if opts.MaxBatches > 0 && batches >= opts.MaxBatches {
			break
		}

		if opts.BatchDelay > 0 {
			select {
			case <-time.After(opts.BatchDelay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Embedding load complete")
	return report, nil
}

func (l *EmbeddingLoader) loadOne(ctx context.Context, artwork *domain.Artwork, report *Report) {
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		logger.FieldMuseum:       artwork.MuseumSlug,
		logger.FieldObjectNumber: artwork.ObjectNumber,
	})

	missing := l.missingTypes(artwork)
	if len(missing) == 0 {
		report.Skipped++
		return
	}

	vectors, err := l.computeVectors(ctx, artwork, missing)
	if err == nil {
		err = l.writePoint(ctx, artwork, vectors)
	}
	if err != nil {
		log.WithField("error", err.Error()).Warn("Embedding load failed")
		artwork.EmbedFailed = true
		if uerr := l.artworks.Update(ctx, artwork); uerr != nil {
			log.WithField("error", uerr.Error()).Error("Failed to mark embedding failure")
		}
		report.Failed++
		return
	}

	for vt := range vectors {
		artwork.SetVectorFlag(vt, true)
	}
	artwork.EmbedFailed = false
	if err := l.artworks.Update(ctx, artwork); err != nil {
		log.WithField("error", err.Error()).Error("Failed to mark embeddings loaded")
		report.Failed++
		return
	}
	report.Succeeded++
}

// missingTypes returns the active vector types this record has not loaded yet.
func (l *EmbeddingLoader) missingTypes(artwork *domain.Artwork) []domain.VectorType {
	var missing []domain.VectorType
	for _, vt := range l.active {
		if !artwork.VectorFlag(vt) {
			missing = append(missing, vt)
		}
	}
	return missing
}

// computeVectors computes embeddings for the given vector types. Image-derived
// types embed the stored thumbnail, so every embedder sees the identical
// normalized bytes; text types embed the artwork's metadata text.
func (l *EmbeddingLoader) computeVectors(ctx context.Context, artwork *domain.Artwork, types []domain.VectorType) (map[domain.VectorType][]float32, error) {
	var imageData []byte
	vectors := make(map[domain.VectorType][]float32, len(types))
	for _, vt := range types {
		emb, err := l.embedders.ForVectorType(vt)
		if err != nil {
			return nil, err
		}

		var vector []float32
		if vt.IsImage() {
			if imageData == nil {
				imageData, err = l.downloadThumbnail(ctx, artwork.StorageKey())
				if err != nil {
					return nil, err
				}
			}
			vector, err = emb.EmbedImage(ctx, imageData)
		} else {
			vector, err = emb.EmbedText(ctx, artwork.EmbeddingText())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", vt, err)
		}
		if len(vector) != vt.Dimensions() {
			return nil, fmt.Errorf("embedder returned %d dimensions for %s, want %d", len(vector), vt, vt.Dimensions())
		}
		vectors[vt] = vector
	}
	return vectors, nil
}

func (l *EmbeddingLoader) downloadThumbnail(ctx context.Context, key string) ([]byte, error) {
	reader, err := l.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download thumbnail %s: %w", key, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail %s: %w", key, err)
	}
	return data, nil
}

// writePoint stores the computed vectors. An existing point gets a partial
// vector update plus a payload refresh; a new point is created with zero
// placeholders for every type not computed in this run.
func (l *EmbeddingLoader) writePoint(ctx context.Context, artwork *domain.Artwork, vectors map[domain.VectorType][]float32) error {
	pointID := repository.PointID(artwork.MuseumSlug, artwork.ObjectNumber)
	payload := repository.NewArtworkPayload(artwork)

	exists, err := l.index.HasPoint(ctx, pointID)
	if err != nil {
		return fmt.Errorf("failed to check point: %w", err)
	}

	if exists {
		if err := l.index.UpdateVectors(ctx, pointID, vectors); err != nil {
			return fmt.Errorf("failed to update vectors: %w", err)
		}
		if err := l.index.SetPayload(ctx, pointID, payload); err != nil {
			return fmt.Errorf("failed to set payload: %w", err)
		}
		return nil
	}

	if err := l.index.UpsertPoint(ctx, pointID, vectors, payload); err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}
