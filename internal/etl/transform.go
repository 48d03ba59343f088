package etl

import (
	"context"
	"fmt"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/repository"
)

// RejectionReason classifies why a raw record was not transformed.
type RejectionReason string

const (
	RejectNotPublicDomain     RejectionReason = "not_public_domain"
	RejectMissingImage        RejectionReason = "missing_image"
	RejectUnsupportedWorkType RejectionReason = "unsupported_work_type"
	RejectMissingIdentifier   RejectionReason = "missing_identifier"
)

// Rejection marks a raw record as ineligible. Rejections are expected
// outcomes of transformation, not errors: the record is counted and no
// artwork row is written.
type Rejection struct {
	Reason RejectionReason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s (%s)", r.Reason, r.Detail)
}

// Transformer standardizes one museum's raw payloads into artworks. A
// transformer is a pure function of the raw record: it never touches
// pipeline-state flags and never performs I/O.
type Transformer interface {
	// Slug returns the museum this transformer handles.
	Slug() string

	// Transform builds a standardized artwork from a raw record. Exactly
	// one of artwork and rejection is non-nil on a nil error.
	Transform(raw *domain.ArtworkRaw) (*domain.Artwork, *Rejection, error)
}

// NewTransformerRegistry builds the static museum-to-transformer mapping.
func NewTransformerRegistry() map[string]Transformer {
	transformers := []Transformer{
		&SMKTransformer{},
		&CMATransformer{},
		&RMATransformer{},
		&METTransformer{},
		&AICTransformer{},
	}
	registry := make(map[string]Transformer, len(transformers))
	for _, t := range transformers {
		registry[t.Slug()] = t
	}
	return registry
}

// TransformRunner walks the raw store and upserts standardized artworks.
// It runs unconditionally over all eligible raw records: correctness comes
// from the idempotence of the flag-preserving upsert, not from change
// detection.
type TransformRunner struct {
	raws         *repository.RawRepository
	artworks     *repository.ArtworkRepository
	transformers map[string]Transformer
}

// NewTransformRunner creates a TransformRunner.
// Parameters:
//   - raws: raw record repository to read from.
//   - artworks: artwork repository to upsert into.
// Returns:
//   - *TransformRunner: runner with the full transformer registry.
func NewTransformRunner(raws *repository.RawRepository, artworks *repository.ArtworkRepository) *TransformRunner {
	return &TransformRunner{
		raws:         raws,
		artworks:     artworks,
		transformers: NewTransformerRegistry(),
	}
}

// Run transforms all raw records, optionally narrowed to one museum.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - batchSize: number of raw records read per database page.
// Returns:
//   - *Report: per-record outcome counts.
//   - error: non-nil only on infrastructure failure; per-record problems
//     are counted, logged, and do not abort the run.
func (t *TransformRunner) Run(ctx context.Context, museumSlug string, batchSize int) (*Report, error) {
	ctx = logger.SetStage(ctx, "transform")
	log := logger.FromContext(ctx)

	if batchSize <= 0 {
		batchSize = 1000
	}

	report := &Report{}
	offset := 0
	for {
		batch, err := t.raws.ListByMuseum(ctx, museumSlug, batchSize, offset)
		if err != nil {
			return report, fmt.Errorf("failed to read raw records: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			t.transformOne(ctx, &batch[i], report)
		}

		log.WithFields(map[string]interface{}{
			logger.FieldCount: report.Total(),
			"succeeded":       report.Succeeded,
			"rejected":        report.Rejected,
			"failed":          report.Failed,
		}).Info("Transform batch complete")

		offset += len(batch)
	}

	logger.With(logger.Fields{
		"succeeded": report.Succeeded,
		"rejected":  report.Rejected,
		"failed":    report.Failed,
	}).WithCount(report.Total()).Info(ctx, "Transform run complete")
	return report, nil
}

func (t *TransformRunner) transformOne(ctx context.Context, raw *domain.ArtworkRaw, report *Report) {
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		logger.FieldMuseum:       raw.MuseumSlug,
		logger.FieldObjectNumber: raw.ObjectNumber,
	})

	transformer, ok := t.transformers[raw.MuseumSlug]
	if !ok {
		log.Warn("No transformer registered for museum")
		report.Failed++
		return
	}

	artwork, rejection, err := transformer.Transform(raw)
	if err != nil {
		log.WithField("error", err.Error()).Error("Transform failed")
		report.Failed++
		return
	}
	if rejection != nil {
		log.WithField("reason", rejection.String()).Debug("Record rejected")
		report.Rejected++
		return
	}

	if err := t.artworks.Upsert(ctx, artwork); err != nil {
		log.WithField("error", err.Error()).Error("Artwork upsert failed")
		report.Failed++
		return
	}
	report.Succeeded++
}
