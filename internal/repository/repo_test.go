package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbruun/artsearch/internal/config"
	"github.com/mbruun/artsearch/internal/domain"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	return db
}

func TestRawRepositoryUpsert(t *testing.T) {
	repo := NewRawRepository(testDB(t))
	ctx := context.Background()

	first := &domain.ArtworkRaw{
		MuseumSlug:   "smk",
		ObjectNumber: "KMS1",
		MuseumDBID:   "100",
		Payload:      domain.JSONMap{"title": "first"},
	}
	outcome, err := repo.Upsert(ctx, first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("expected created, got %s", outcome)
	}

	refresh := &domain.ArtworkRaw{
		MuseumSlug:   "smk",
		ObjectNumber: "KMS1",
		MuseumDBID:   "100",
		Payload:      domain.JSONMap{"title": "refreshed"},
	}
	outcome, err = repo.Upsert(ctx, refresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("expected updated, got %s", outcome)
	}

	// A different source record claiming the same object number must not
	// overwrite the stored one.
	intruder := &domain.ArtworkRaw{
		MuseumSlug:   "smk",
		ObjectNumber: "KMS1",
		MuseumDBID:   "200",
		Payload:      domain.JSONMap{"title": "intruder"},
	}
	outcome, err = repo.Upsert(ctx, intruder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("expected skipped, got %s", outcome)
	}

	stored, err := repo.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.MuseumDBID != "100" {
		t.Errorf("expected first record to win, got db id %s", stored.MuseumDBID)
	}
	if stored.Payload["title"] != "refreshed" {
		t.Errorf("expected refreshed payload, got %v", stored.Payload["title"])
	}
}

func TestRawRepositoryRecentlyFetched(t *testing.T) {
	repo := NewRawRepository(testDB(t))
	ctx := context.Background()

	raw := &domain.ArtworkRaw{
		MuseumSlug:   "met",
		ObjectNumber: "89.15.21",
		MuseumDBID:   "435809",
		Payload:      domain.JSONMap{},
	}
	if _, err := repo.Upsert(ctx, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fresh, err := repo.RecentlyFetched(ctx, "met", "89.15.21", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fresh {
		t.Error("expected record to be fresh within an hour")
	}

	fresh, err = repo.RecentlyFetchedByDBID(ctx, "met", "435809", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fresh {
		t.Error("expected record to be fresh by db id")
	}

	fresh, err = repo.RecentlyFetchedByDBID(ctx, "met", "999999", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh {
		t.Error("expected unknown db id to be stale")
	}

	// A zero-length window means everything already stored counts as stale.
	fresh, err = repo.RecentlyFetched(ctx, "met", "89.15.21", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh {
		t.Error("expected zero window to report stale")
	}
}

func TestRawRepositoryListByMuseum(t *testing.T) {
	repo := NewRawRepository(testDB(t))
	ctx := context.Background()

	records := []struct{ slug, objectNumber string }{
		{"smk", "KMS1"},
		{"smk", "KMS2"},
		{"cma", "1916.1044"},
	}
	for _, rec := range records {
		raw := &domain.ArtworkRaw{
			MuseumSlug:   rec.slug,
			ObjectNumber: rec.objectNumber,
			MuseumDBID:   rec.objectNumber,
			Payload:      domain.JSONMap{},
		}
		if _, err := repo.Upsert(ctx, raw); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	smkOnly, err := repo.ListByMuseum(ctx, "smk", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(smkOnly) != 2 {
		t.Errorf("expected 2 smk records, got %d", len(smkOnly))
	}

	all, err := repo.ListByMuseum(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records, got %d", len(all))
	}

	page, err := repo.ListByMuseum(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 record on second page, got %d", len(page))
	}

	count, err := repo.CountByMuseum(ctx, "smk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func seedArtwork(t *testing.T, repo *ArtworkRepository, slug, objectNumber string) *domain.Artwork {
	t.Helper()
	artwork := &domain.Artwork{
		MuseumSlug:          slug,
		ObjectNumber:        objectNumber,
		MuseumDBID:          objectNumber,
		Title:               "Untitled",
		ThumbnailURL:        "https://example.org/" + objectNumber + ".jpg",
		SearchableWorkTypes: domain.StringArray{"painting"},
	}
	if err := repo.Upsert(context.Background(), artwork); err != nil {
		t.Fatalf("failed to seed artwork: %v", err)
	}
	return artwork
}

func TestArtworkUpsertPreservesFlags(t *testing.T) {
	repo := NewArtworkRepository(testDB(t))
	ctx := context.Background()

	artwork := seedArtwork(t, repo, "smk", "KMS1")

	// Loader records progress.
	artwork.ImageLoaded = true
	artwork.SetVectorFlag(domain.VectorImageCLIP, true)
	if err := repo.Update(ctx, artwork); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-transform overwrites content only.
	retransformed := &domain.Artwork{
		MuseumSlug:   "smk",
		ObjectNumber: "KMS1",
		MuseumDBID:   "KMS1",
		Title:        "New Title",
		ThumbnailURL: "https://example.org/new.jpg",
	}
	if err := repo.Upsert(ctx, retransformed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := repo.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Title != "New Title" {
		t.Errorf("expected content updated, got title %q", stored.Title)
	}
	if !stored.ImageLoaded {
		t.Error("expected image_loaded flag to survive re-transform")
	}
	if !stored.VectorFlag(domain.VectorImageCLIP) {
		t.Error("expected vector flag to survive re-transform")
	}
}

func TestListImageCandidates(t *testing.T) {
	repo := NewArtworkRepository(testDB(t))
	ctx := context.Background()

	pending := seedArtwork(t, repo, "smk", "KMS1")
	_ = pending

	loaded := seedArtwork(t, repo, "smk", "KMS2")
	loaded.ImageLoaded = true
	if err := repo.Update(ctx, loaded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failed := seedArtwork(t, repo, "smk", "KMS3")
	failed.ImageLoadFailed = true
	if err := repo.Update(ctx, failed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seedArtwork(t, repo, "cma", "1916.1044")

	normal, err := repo.ListImageCandidates(ctx, "smk", false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(normal) != 1 || normal[0].ObjectNumber != "KMS1" {
		t.Errorf("expected only the pending record, got %v", normal)
	}

	retries, err := repo.ListImageCandidates(ctx, "smk", true, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(retries) != 1 || retries[0].ObjectNumber != "KMS3" {
		t.Errorf("expected only the failed record, got %v", retries)
	}

	allMuseums, err := repo.ListImageCandidates(ctx, "", false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allMuseums) != 2 {
		t.Errorf("expected 2 pending records across museums, got %d", len(allMuseums))
	}
}

func TestListEmbeddingCandidates(t *testing.T) {
	repo := NewArtworkRepository(testDB(t))
	ctx := context.Background()

	// No stored thumbnail: never eligible.
	seedArtwork(t, repo, "smk", "KMS1")

	// Thumbnail stored, no vectors yet.
	missingAll := seedArtwork(t, repo, "smk", "KMS2")
	missingAll.ImageLoaded = true
	if err := repo.Update(ctx, missingAll); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Thumbnail stored, image vector done, text vector missing.
	partial := seedArtwork(t, repo, "smk", "KMS3")
	partial.ImageLoaded = true
	partial.SetVectorFlag(domain.VectorImageCLIP, true)
	if err := repo.Update(ctx, partial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fully embedded for the active set.
	done := seedArtwork(t, repo, "smk", "KMS4")
	done.ImageLoaded = true
	done.SetVectorFlag(domain.VectorImageCLIP, true)
	done.SetVectorFlag(domain.VectorTextCLIP, true)
	if err := repo.Update(ctx, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	single, err := repo.ListEmbeddingCandidates(ctx, "smk", []domain.VectorType{domain.VectorImageCLIP}, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(single) != 1 || single[0].ObjectNumber != "KMS2" {
		t.Errorf("expected only KMS2 for image_clip alone, got %v", single)
	}

	both, err := repo.ListEmbeddingCandidates(ctx, "smk",
		[]domain.VectorType{domain.VectorImageCLIP, domain.VectorTextCLIP}, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(both) != 2 {
		t.Errorf("expected KMS2 and KMS3 when text_clip activates, got %d records", len(both))
	}

	none, err := repo.ListEmbeddingCandidates(ctx, "smk", nil, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no candidates for empty vector set, got %d", len(none))
	}
}

func TestResetFlags(t *testing.T) {
	repo := NewArtworkRepository(testDB(t))
	ctx := context.Background()

	smk := seedArtwork(t, repo, "smk", "KMS1")
	smk.ImageLoaded = true
	smk.ImageLoadFailed = true
	smk.SetVectorFlag(domain.VectorImageCLIP, true)
	smk.SetVectorFlag(domain.VectorTextCLIP, true)
	if err := repo.Update(ctx, smk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cma := seedArtwork(t, repo, "cma", "1916.1044")
	cma.ImageLoaded = true
	cma.SetVectorFlag(domain.VectorImageCLIP, true)
	if err := repo.Update(ctx, cma); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	affected, err := repo.ResetImageFlags(ctx, "smk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 row affected, got %d", affected)
	}

	stored, err := repo.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ImageLoaded || stored.ImageLoadFailed {
		t.Error("expected image flags cleared")
	}

	// Reset only the image_clip flag; text_clip stays set.
	if _, err := repo.ResetVectorFlags(ctx, "smk", []domain.VectorType{domain.VectorImageCLIP}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err = repo.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.VectorFlag(domain.VectorImageCLIP) {
		t.Error("expected image_clip flag cleared")
	}
	if !stored.VectorFlag(domain.VectorTextCLIP) {
		t.Error("expected text_clip flag untouched")
	}

	// Museum scope: the cma record keeps its flag.
	other, err := repo.GetByMuseumObject(ctx, "cma", "1916.1044")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !other.VectorFlag(domain.VectorImageCLIP) {
		t.Error("expected other museum's flags untouched")
	}
}

func TestCountPipeline(t *testing.T) {
	repo := NewArtworkRepository(testDB(t))
	ctx := context.Background()

	a := seedArtwork(t, repo, "smk", "KMS1")
	a.ImageLoaded = true
	a.SetVectorFlag(domain.VectorImageCLIP, true)
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := seedArtwork(t, repo, "smk", "KMS2")
	b.ImageLoadFailed = true
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seedArtwork(t, repo, "cma", "1916.1044")

	counts, err := repo.CountPipeline(ctx, "smk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Total != 2 {
		t.Errorf("expected total 2, got %d", counts.Total)
	}
	if counts.ImagesLoaded != 1 {
		t.Errorf("expected 1 image loaded, got %d", counts.ImagesLoaded)
	}
	if counts.ImagesFailed != 1 {
		t.Errorf("expected 1 image failed, got %d", counts.ImagesFailed)
	}
	if counts.VectorsLoaded[domain.VectorImageCLIP] != 1 {
		t.Errorf("expected 1 image_clip vector, got %d", counts.VectorsLoaded[domain.VectorImageCLIP])
	}
	if counts.VectorsLoaded[domain.VectorTextCLIP] != 0 {
		t.Errorf("expected 0 text_clip vectors, got %d", counts.VectorsLoaded[domain.VectorTextCLIP])
	}
}
