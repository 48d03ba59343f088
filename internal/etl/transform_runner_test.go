package etl

import (
	"context"
	"testing"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
	"github.com/mbruun/artsearch/internal/repository"
)

func TestTransformRunner(t *testing.T) {
	db := testDB(t)
	raws := repository.NewRawRepository(db)
	artworks := repository.NewArtworkRepository(db)
	runner := NewTransformRunner(raws, artworks)
	ctx := context.Background()

	eligible := &domain.ArtworkRaw{
		MuseumSlug:   museum.SlugSMK,
		ObjectNumber: "KMS1",
		MuseumDBID:   "id-1",
		Payload:      smkPayload(),
	}
	if _, err := raws.Upsert(ctx, eligible); err != nil {
		t.Fatalf("failed to seed raw record: %v", err)
	}

	sculpture := smkPayload()
	sculpture["object_number"] = "KMS2"
	sculpture["object_names"] = []interface{}{
		map[string]interface{}{"name": "Skulptur"},
	}
	rejected := &domain.ArtworkRaw{
		MuseumSlug:   museum.SlugSMK,
		ObjectNumber: "KMS2",
		MuseumDBID:   "id-2",
		Payload:      sculpture,
	}
	if _, err := raws.Upsert(ctx, rejected); err != nil {
		t.Fatalf("failed to seed raw record: %v", err)
	}

	report, err := runner.Run(ctx, museum.SlugSMK, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 || report.Rejected != 1 {
		t.Fatalf("expected 1 succeeded and 1 rejected, got %+v", report)
	}

	artwork, err := artworks.GetByMuseumObject(ctx, museum.SlugSMK, "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artwork.Title != "Portrait of a Man" {
		t.Errorf("unexpected title %q", artwork.Title)
	}

	// Loader progress recorded between runs must survive a re-transform.
	artwork.ImageLoaded = true
	artwork.SetVectorFlag(domain.VectorImageCLIP, true)
	if err := artworks.Update(ctx, artwork); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := smkPayload()
	updated["titles"] = []interface{}{
		map[string]interface{}{"title": "Portrait of a Woman"},
	}
	refresh := &domain.ArtworkRaw{
		MuseumSlug:   museum.SlugSMK,
		ObjectNumber: "KMS1",
		MuseumDBID:   "id-1",
		Payload:      updated,
	}
	if _, err := raws.Upsert(ctx, refresh); err != nil {
		t.Fatalf("failed to refresh raw record: %v", err)
	}

	report, err = runner.Run(ctx, museum.SlugSMK, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("expected 1 succeeded on re-run, got %+v", report)
	}

	artwork, err = artworks.GetByMuseumObject(ctx, museum.SlugSMK, "KMS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artwork.Title != "Portrait of a Woman" {
		t.Errorf("expected content refreshed, got title %q", artwork.Title)
	}
	if !artwork.ImageLoaded || !artwork.VectorFlag(domain.VectorImageCLIP) {
		t.Error("expected pipeline flags to survive re-transform")
	}
}

func TestTransformRunnerUnknownMuseum(t *testing.T) {
	db := testDB(t)
	raws := repository.NewRawRepository(db)
	artworks := repository.NewArtworkRepository(db)
	runner := NewTransformRunner(raws, artworks)
	ctx := context.Background()

	raw := &domain.ArtworkRaw{
		MuseumSlug:   "louvre",
		ObjectNumber: "INV-779",
		MuseumDBID:   "779",
		Payload:      domain.JSONMap{},
	}
	if _, err := raws.Upsert(ctx, raw); err != nil {
		t.Fatalf("failed to seed raw record: %v", err)
	}

	report, err := runner.Run(ctx, "", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("expected unknown museum to count as failure, got %+v", report)
	}
}
