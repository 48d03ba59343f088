package etl

import (
	"context"
	"fmt"
	"testing"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/embedder"
	"github.com/mbruun/artsearch/internal/repository"
)

// fakeIndex records vector-index writes in memory.
type fakeIndex struct {
	points        map[string]map[domain.VectorType][]float32
	upserts       int
	vectorUpdates []map[domain.VectorType][]float32
	ensured       bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[string]map[domain.VectorType][]float32{}}
}

func (f *fakeIndex) EnsureCollection(ctx context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeIndex) HasPoint(ctx context.Context, pointID string) (bool, error) {
	_, ok := f.points[pointID]
	return ok, nil
}

func (f *fakeIndex) UpsertPoint(ctx context.Context, pointID string, vectors map[domain.VectorType][]float32, payload *repository.ArtworkPayload) error {
	stored := make(map[domain.VectorType][]float32, len(vectors))
	for vt, v := range vectors {
		stored[vt] = v
	}
	f.points[pointID] = stored
	f.upserts++
	return nil
}

func (f *fakeIndex) UpdateVectors(ctx context.Context, pointID string, vectors map[domain.VectorType][]float32) error {
	point, ok := f.points[pointID]
	if !ok {
		return fmt.Errorf("point %s not found", pointID)
	}
	for vt, v := range vectors {
		point[vt] = v
	}
	f.vectorUpdates = append(f.vectorUpdates, vectors)
	return nil
}

func (f *fakeIndex) SetPayload(ctx context.Context, pointID string, payload *repository.ArtworkPayload) error {
	if _, ok := f.points[pointID]; !ok {
		return fmt.Errorf("point %s not found", pointID)
	}
	return nil
}

// fakeEmbedder returns constant vectors of the right dimension.
type fakeEmbedder struct {
	name       string
	dimensions int
	calls      int
	fail       bool
}

func (f *fakeEmbedder) Name() string    { return f.name }
func (f *fakeEmbedder) Dimensions() int { return f.dimensions }

func (f *fakeEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return f.embed()
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.embed()
}

func (f *fakeEmbedder) embed() ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	vector := make([]float32, f.dimensions)
	vector[0] = 1
	return vector, nil
}

func embeddingFixture(t *testing.T) (*repository.ArtworkRepository, *fakeStorage, *fakeIndex, *fakeEmbedder) {
	t.Helper()
	artworks := repository.NewArtworkRepository(testDB(t))
	store := newFakeStorage()
	index := newFakeIndex()
	clip := &fakeEmbedder{name: "clip", dimensions: domain.CLIPDimensions}
	return artworks, store, index, clip
}

func seedEmbeddable(t *testing.T, artworks *repository.ArtworkRepository, store *fakeStorage, objectNumber string) {
	t.Helper()
	ctx := context.Background()
	artwork := &domain.Artwork{
		MuseumSlug:   "smk",
		ObjectNumber: objectNumber,
		MuseumDBID:   objectNumber,
		Title:        "Untitled",
		ThumbnailURL: "https://example.org/" + objectNumber + ".jpg",
	}
	if err := artworks.Upsert(ctx, artwork); err != nil {
		t.Fatalf("failed to seed artwork: %v", err)
	}
	artwork.ImageLoaded = true
	if err := artworks.Update(ctx, artwork); err != nil {
		t.Fatalf("failed to mark image loaded: %v", err)
	}
	store.objects[artwork.StorageKey()] = []byte("jpeg bytes")
}

func TestEmbeddingLoaderIncrementalActivation(t *testing.T) {
	artworks, store, index, clip := embeddingFixture(t)
	registry := embedder.Registry{"clip": clip}
	ctx := context.Background()

	seedEmbeddable(t, artworks, store, "KMS1")

	loader, err := NewEmbeddingLoader(artworks, store, index, registry, []domain.VectorType{domain.VectorImageCLIP})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := loader.Run(ctx, "smk", LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("expected 1 success, got %+v", report)
	}
	if !index.ensured {
		t.Error("expected collection to be ensured")
	}
	if index.upserts != 1 {
		t.Errorf("expected a fresh point upsert, got %d", index.upserts)
	}

	stored, err := artworks.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.VectorFlag(domain.VectorImageCLIP) {
		t.Error("expected image_clip flag set")
	}
	if stored.VectorFlag(domain.VectorTextCLIP) {
		t.Error("expected text_clip flag untouched")
	}

	// Activating text_clip later computes only the missing type and patches
	// the existing point instead of rewriting it.
	loader, err = NewEmbeddingLoader(artworks, store, index, registry,
		[]domain.VectorType{domain.VectorImageCLIP, domain.VectorTextCLIP})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	imageCalls := clip.calls

	report, err = loader.Run(ctx, "smk", LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("expected 1 success, got %+v", report)
	}
	if index.upserts != 1 {
		t.Errorf("expected no second upsert, got %d", index.upserts)
	}
	if len(index.vectorUpdates) != 1 {
		t.Fatalf("expected 1 partial vector update, got %d", len(index.vectorUpdates))
	}
	update := index.vectorUpdates[0]
	if _, ok := update[domain.VectorTextCLIP]; !ok || len(update) != 1 {
		t.Errorf("expected update to carry only text_clip, got %v", update)
	}
	if clip.calls != imageCalls+1 {
		t.Errorf("expected exactly one extra embedding call, got %d", clip.calls-imageCalls)
	}

	stored, err = artworks.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.VectorFlag(domain.VectorTextCLIP) {
		t.Error("expected text_clip flag set after backfill")
	}
}

func TestEmbeddingLoaderRequiresStoredThumbnail(t *testing.T) {
	artworks, store, index, clip := embeddingFixture(t)
	registry := embedder.Registry{"clip": clip}
	ctx := context.Background()

	// Transformed but never image-loaded: not a candidate.
	artwork := &domain.Artwork{
		MuseumSlug:   "smk",
		ObjectNumber: "KMS1",
		MuseumDBID:   "KMS1",
		ThumbnailURL: "https://example.org/kms1.jpg",
	}
	if err := artworks.Upsert(ctx, artwork); err != nil {
		t.Fatalf("failed to seed artwork: %v", err)
	}

	loader, err := NewEmbeddingLoader(artworks, store, index, registry, []domain.VectorType{domain.VectorImageCLIP})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := loader.Run(ctx, "smk", LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total() != 0 {
		t.Errorf("expected no candidates without a stored thumbnail, got %+v", report)
	}
}

func TestEmbeddingLoaderFailureMarksRecord(t *testing.T) {
	artworks, store, index, clip := embeddingFixture(t)
	clip.fail = true
	registry := embedder.Registry{"clip": clip}
	ctx := context.Background()

	seedEmbeddable(t, artworks, store, "KMS1")

	loader, err := NewEmbeddingLoader(artworks, store, index, registry, []domain.VectorType{domain.VectorImageCLIP})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := loader.Run(ctx, "smk", LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", report)
	}

	stored, err := artworks.GetByMuseumObject(ctx, "smk", "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.EmbedFailed {
		t.Error("expected embed_failed marker set")
	}
	if stored.VectorFlag(domain.VectorImageCLIP) {
		t.Error("expected vector flag unset after failure")
	}

	// Normal runs skip it; a retry-failed run attempts it again and stops
	// after one batch even though the record stays failed.
	report, err = loader.Run(ctx, "smk", LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total() != 0 {
		t.Errorf("expected normal run to ignore failed record, got %+v", report)
	}

	report, err = loader.Run(ctx, "smk", LoadOptions{RetryFailed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("expected retry run to re-attempt the record once, got %+v", report)
	}
}

func TestEmbeddingLoaderForceResetScope(t *testing.T) {
	artworks, store, index, clip := embeddingFixture(t)
	registry := embedder.Registry{"clip": clip}
	ctx := context.Background()

	seedEmbeddable(t, artworks, store, "KMS1")

	loader, err := NewEmbeddingLoader(artworks, store, index, registry, []domain.VectorType{domain.VectorImageCLIP})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := loader.Run(ctx, "smk", LoadOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstCalls := clip.calls

	// Without force there is nothing left to compute.
	report, err := loader.Run(ctx, "smk", LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total() != 0 || clip.calls != firstCalls {
		t.Errorf("expected idempotent re-run, got %+v with %d calls", report, clip.calls)
	}

	report, err = loader.Run(ctx, "smk", LoadOptions{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 || clip.calls != firstCalls+1 {
		t.Errorf("expected forced recompute, got %+v with %d calls", report, clip.calls)
	}
}

func TestNewEmbeddingLoaderValidatesEmbedders(t *testing.T) {
	artworks, store, index, clip := embeddingFixture(t)
	registry := embedder.Registry{"clip": clip}

	_, err := NewEmbeddingLoader(artworks, store, index, registry, []domain.VectorType{domain.VectorImageJina})
	if err == nil {
		t.Fatal("expected error for vector type without embedder")
	}
}
