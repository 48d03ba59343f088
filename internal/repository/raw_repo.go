package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mbruun/artsearch/internal/domain"
	"gorm.io/gorm"
)

// UpsertOutcome reports what an upsert into the raw store did.
type UpsertOutcome string

const (
	// OutcomeCreated means a new row was inserted.
	OutcomeCreated UpsertOutcome = "created"
	// OutcomeUpdated means an existing row's payload was refreshed.
	OutcomeUpdated UpsertOutcome = "updated"
	// OutcomeSkipped means the row belongs to a different source record
	// with the same object number and was left untouched.
	OutcomeSkipped UpsertOutcome = "skipped"
)

// RawRepository handles raw artwork payload operations.
type RawRepository struct {
	db *gorm.DB
}

// NewRawRepository creates a new RawRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RawRepository: repository instance bound to db.
func NewRawRepository(db *gorm.DB) *RawRepository {
	return &RawRepository{db: db}
}

// Upsert creates or refreshes a raw record keyed by (museum_slug, object_number).
// An existing row is only overwritten when its museum-internal database ID
// matches the incoming record; a mismatch means two distinct source records
// claim the same object number, and the first stored one wins.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - raw: raw record to persist.
// Returns:
//   - UpsertOutcome: created, updated, or skipped.
//   - error: non-nil if the operation fails.
func (r *RawRepository) Upsert(ctx context.Context, raw *domain.ArtworkRaw) (UpsertOutcome, error) {
	var existing domain.ArtworkRaw
	err := r.db.WithContext(ctx).
		First(&existing, "museum_slug = ? AND object_number = ?", raw.MuseumSlug, raw.ObjectNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if raw.FetchedAt.IsZero() {
			raw.FetchedAt = time.Now().UTC()
		}
		if err := r.db.WithContext(ctx).Create(raw).Error; err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	}
	if err != nil {
		return "", err
	}

	if existing.MuseumDBID != raw.MuseumDBID {
		return OutcomeSkipped, nil
	}

	existing.Payload = raw.Payload
	existing.FetchedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return "", err
	}
	raw.ID = existing.ID
	return OutcomeUpdated, nil
}

// GetByMuseumObject retrieves a raw record by museum slug and object number.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier.
//   - objectNumber: museum-assigned object number.
// Returns:
//   - *domain.ArtworkRaw: raw record if found.
//   - error: non-nil if lookup fails.
func (r *RawRepository) GetByMuseumObject(ctx context.Context, museumSlug, objectNumber string) (*domain.ArtworkRaw, error) {
	var raw domain.ArtworkRaw
	if err := r.db.WithContext(ctx).
		First(&raw, "museum_slug = ? AND object_number = ?", museumSlug, objectNumber).Error; err != nil {
		return nil, err
	}
	return &raw, nil
}

// RecentlyFetched reports whether a raw record exists and was fetched within
// the given freshness window. Used to avoid re-downloading slow per-object
// sources on every run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier.
//   - objectNumber: museum-assigned object number.
//   - window: freshness window.
// Returns:
//   - bool: true if a fresh record exists.
//   - error: non-nil if the lookup fails.
func (r *RawRepository) RecentlyFetched(ctx context.Context, museumSlug, objectNumber string, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ArtworkRaw{}).
		Where("museum_slug = ? AND object_number = ? AND fetched_at > ?", museumSlug, objectNumber, cutoff).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecentlyFetchedByDBID is RecentlyFetched keyed by the museum-internal
// database ID, for sources whose catalogue is enumerated by that ID before
// the object number is known.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier.
//   - museumDBID: museum-internal database ID.
//   - window: freshness window.
// Returns:
//   - bool: true if a fresh record exists.
//   - error: non-nil if the lookup fails.
func (r *RawRepository) RecentlyFetchedByDBID(ctx context.Context, museumSlug, museumDBID string, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ArtworkRaw{}).
		Where("museum_slug = ? AND museum_db_id = ? AND fetched_at > ?", museumSlug, museumDBID, cutoff).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByMuseum retrieves raw records for a museum with pagination, ordered
// by ID so repeated passes walk the store deterministically.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.ArtworkRaw: matching raw records.
//   - error: non-nil if the query fails.
func (r *RawRepository) ListByMuseum(ctx context.Context, museumSlug string, limit, offset int) ([]domain.ArtworkRaw, error) {
	var raws []domain.ArtworkRaw
	query := r.db.WithContext(ctx)
	if museumSlug != "" {
		query = query.Where("museum_slug = ?", museumSlug)
	}
	if err := query.
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&raws).Error; err != nil {
		return nil, err
	}
	return raws, nil
}

// CountByMuseum counts raw records for a museum.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *RawRepository) CountByMuseum(ctx context.Context, museumSlug string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.ArtworkRaw{})
	if museumSlug != "" {
		query = query.Where("museum_slug = ?", museumSlug)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
