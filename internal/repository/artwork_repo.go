package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mbruun/artsearch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// artworkContentColumns are the columns the transformer owns. A conflicting
// upsert overwrites exactly these; the pipeline-state flags are deliberately
// absent so re-transforming never rolls back loader progress.
var artworkContentColumns = []string{
	"museum_db_id",
	"title",
	"artists",
	"work_types",
	"searchable_work_types",
	"production_date_start",
	"production_date_end",
	"period",
	"thumbnail_url",
	"image_url",
	"frontend_url",
	"updated_at",
}

// vectorFlagColumn maps a vector type to its state-flag column.
func vectorFlagColumn(vt domain.VectorType) string {
	switch vt {
	case domain.VectorImageCLIP:
		return "image_vector_clip_loaded"
	case domain.VectorTextCLIP:
		return "text_vector_clip_loaded"
	case domain.VectorImageJina:
		return "image_vector_jina_loaded"
	case domain.VectorTextJina:
		return "text_vector_jina_loaded"
	}
	return ""
}

// ArtworkRepository handles standardized artwork operations.
type ArtworkRepository struct {
	db *gorm.DB
}

// NewArtworkRepository creates a new ArtworkRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ArtworkRepository: repository instance bound to db.
func NewArtworkRepository(db *gorm.DB) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

// Upsert creates or updates an artwork keyed by (museum_slug, object_number).
// On conflict only content columns are assigned, so existing state flags
// survive the update.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - artwork: artwork record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ArtworkRepository) Upsert(ctx context.Context, artwork *domain.Artwork) error {
	artwork.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "museum_slug"}, {Name: "object_number"}},
		DoUpdates: clause.AssignmentColumns(artworkContentColumns),
	}).Create(artwork).Error
}

// Update persists all fields of an existing artwork, flags included.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - artwork: artwork record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *ArtworkRepository) Update(ctx context.Context, artwork *domain.Artwork) error {
	return r.db.WithContext(ctx).Save(artwork).Error
}

// GetByMuseumObject retrieves an artwork by museum slug and object number.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier.
//   - objectNumber: museum-assigned object number.
// Returns:
//   - *domain.Artwork: artwork record if found.
//   - error: non-nil if lookup fails.
func (r *ArtworkRepository) GetByMuseumObject(ctx context.Context, museumSlug, objectNumber string) (*domain.Artwork, error) {
	var artwork domain.Artwork
	if err := r.db.WithContext(ctx).
		First(&artwork, "museum_slug = ? AND object_number = ?", museumSlug, objectNumber).Error; err != nil {
		return nil, err
	}
	return &artwork, nil
}

// ListImageCandidates retrieves artworks whose thumbnail has not been stored
// yet. Normal runs skip records whose previous attempt failed; retry-failed
// runs select exactly those.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - retryFailed: select previously failed records instead of fresh ones.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.Artwork: matching artwork records.
//   - error: non-nil if the query fails.
func (r *ArtworkRepository) ListImageCandidates(ctx context.Context, museumSlug string, retryFailed bool, limit int) ([]domain.Artwork, error) {
	var artworks []domain.Artwork
	query := r.db.WithContext(ctx).Where("image_loaded = ?", false)
	if museumSlug != "" {
		query = query.Where("museum_slug = ?", museumSlug)
	}
	query = query.Where("image_load_failed = ?", retryFailed)
	if err := query.Order("id").Limit(limit).Find(&artworks).Error; err != nil {
		return nil, err
	}
	return artworks, nil
}

// ListEmbeddingCandidates retrieves artworks with a stored thumbnail that are
// still missing at least one of the given vector types. Normal runs skip
// records whose previous attempt failed; retry-failed runs select exactly
// those.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - vectorTypes: vector types active for this run.
//   - retryFailed: select previously failed records instead of fresh ones.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.Artwork: matching artwork records.
//   - error: non-nil if the query fails.
func (r *ArtworkRepository) ListEmbeddingCandidates(ctx context.Context, museumSlug string, vectorTypes []domain.VectorType, retryFailed bool, limit int) ([]domain.Artwork, error) {
	if len(vectorTypes) == 0 {
		return []domain.Artwork{}, nil
	}

	var artworks []domain.Artwork
	query := r.db.WithContext(ctx).Where("image_loaded = ?", true)
	if museumSlug != "" {
		query = query.Where("museum_slug = ?", museumSlug)
	}
	query = query.Where("embed_failed = ?", retryFailed)

	// Missing any one of the active vector types makes the record eligible.
	missing := r.db
	for i, vt := range vectorTypes {
		col := vectorFlagColumn(vt)
		if col == "" {
			return nil, fmt.Errorf("unknown vector type %q", vt)
		}
		cond := fmt.Sprintf("%s = ?", col)
		if i == 0 {
			missing = missing.Where(cond, false)
		} else {
			missing = missing.Or(cond, false)
		}
	}
	query = query.Where(missing)

	if err := query.Order("id").Limit(limit).Find(&artworks).Error; err != nil {
		return nil, err
	}
	return artworks, nil
}

// ResetImageFlags clears the image-loaded flag and failure marker, scoped to
// one museum or to all records when museumSlug is empty. Used by forced runs
// to make every record eligible again.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
// Returns:
//   - int64: number of rows updated.
//   - error: non-nil if the update fails.
func (r *ArtworkRepository) ResetImageFlags(ctx context.Context, museumSlug string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Artwork{})
	if museumSlug != "" {
		query = query.Where("museum_slug = ?", museumSlug)
	}
	result := query.Updates(map[string]interface{}{
		"image_loaded":      false,
		"image_load_failed": false,
	})
	return result.RowsAffected, result.Error
}

// ResetVectorFlags clears the state flags for the given vector types along
// with the failure marker, scoped to one museum or to all records when
// museumSlug is empty.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - vectorTypes: vector types whose flags should be cleared.
// Returns:
//   - int64: number of rows updated.
//   - error: non-nil if the update fails.
func (r *ArtworkRepository) ResetVectorFlags(ctx context.Context, museumSlug string, vectorTypes []domain.VectorType) (int64, error) {
	updates := map[string]interface{}{"embed_failed": false}
	for _, vt := range vectorTypes {
		col := vectorFlagColumn(vt)
		if col == "" {
			return 0, fmt.Errorf("unknown vector type %q", vt)
		}
		updates[col] = false
	}
	query := r.db.WithContext(ctx).Model(&domain.Artwork{})
	if museumSlug != "" {
		query = query.Where("museum_slug = ?", museumSlug)
	}
	result := query.Updates(updates)
	return result.RowsAffected, result.Error
}

// PipelineCounts summarizes pipeline progress for the status report.
type PipelineCounts struct {
	Total        int64 `json:"total"`
	ImagesLoaded int64 `json:"images_loaded"`
	ImagesFailed int64 `json:"images_failed"`
	EmbedsFailed int64 `json:"embeds_failed"`

	// VectorsLoaded maps each vector type to the number of records whose
	// flag for that type is set.
	VectorsLoaded map[domain.VectorType]int64 `json:"vectors_loaded"`
}

// CountPipeline gathers per-stage progress counts.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
// Returns:
//   - *PipelineCounts: aggregated counts.
//   - error: non-nil if any query fails.
func (r *ArtworkRepository) CountPipeline(ctx context.Context, museumSlug string) (*PipelineCounts, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.Artwork{})
		if museumSlug != "" {
			q = q.Where("museum_slug = ?", museumSlug)
		}
		return q
	}

	counts := &PipelineCounts{VectorsLoaded: make(map[domain.VectorType]int64)}
	if err := scoped().Count(&counts.Total).Error; err != nil {
		return nil, err
	}
	if err := scoped().Where("image_loaded = ?", true).Count(&counts.ImagesLoaded).Error; err != nil {
		return nil, err
	}
	if err := scoped().Where("image_load_failed = ?", true).Count(&counts.ImagesFailed).Error; err != nil {
		return nil, err
	}
	if err := scoped().Where("embed_failed = ?", true).Count(&counts.EmbedsFailed).Error; err != nil {
		return nil, err
	}
	for _, vt := range domain.AllVectorTypes {
		col := vectorFlagColumn(vt)
		var n int64
		if err := scoped().Where(fmt.Sprintf("%s = ?", col), true).Count(&n).Error; err != nil {
			return nil, err
		}
		counts.VectorsLoaded[vt] = n
	}
	return counts, nil
}
