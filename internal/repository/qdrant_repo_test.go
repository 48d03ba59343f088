package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mbruun/artsearch/internal/domain"
)

func TestPointID(t *testing.T) {
	first := PointID("smk", "KMS1")
	again := PointID("smk", "KMS1")
	if first != again {
		t.Errorf("expected deterministic ID, got %s and %s", first, again)
	}

	other := PointID("cma", "KMS1")
	if first == other {
		t.Error("expected distinct IDs for distinct museums")
	}

	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("expected canonical UUID, got %q: %v", first, err)
	}
}

func TestNewArtworkPayload(t *testing.T) {
	year := 1642
	artwork := &domain.Artwork{
		MuseumSlug:          "rma",
		ObjectNumber:        "SK-C-5",
		Title:               "The Night Watch",
		Artists:             domain.StringArray{"Rembrandt van Rijn"},
		WorkTypes:           domain.StringArray{"schilderij"},
		SearchableWorkTypes: domain.StringArray{"painting"},
		ProductionDateStart: &year,
		ProductionDateEnd:   &year,
		ThumbnailURL:        "https://example.org/thumb.jpg",
		FrontendURL:         "https://www.rijksmuseum.nl/en/collection/SK-C-5",
	}

	payload := NewArtworkPayload(artwork)
	if payload.Museum != "rma" || payload.ObjectNumber != "SK-C-5" {
		t.Errorf("unexpected identity: %s/%s", payload.Museum, payload.ObjectNumber)
	}
	// The raw museum labels and the standardized projection are both stored.
	if len(payload.WorkTypes) != 1 || payload.WorkTypes[0] != "schilderij" {
		t.Errorf("expected raw museum work types, got %v", payload.WorkTypes)
	}
	if len(payload.SearchableWorkTypes) != 1 || payload.SearchableWorkTypes[0] != "painting" {
		t.Errorf("expected searchable work types, got %v", payload.SearchableWorkTypes)
	}
	if payload.ProductionDateStart == nil || *payload.ProductionDateStart != 1642 {
		t.Errorf("unexpected production start %v", payload.ProductionDateStart)
	}

	values := payloadToValues(payload)
	roundTrip := parsePayload(values)
	if roundTrip.Title != payload.Title {
		t.Errorf("expected title to round-trip, got %q", roundTrip.Title)
	}
	if len(roundTrip.Artists) != 1 || roundTrip.Artists[0] != "Rembrandt van Rijn" {
		t.Errorf("expected artists to round-trip, got %v", roundTrip.Artists)
	}
	if len(roundTrip.WorkTypes) != 1 || roundTrip.WorkTypes[0] != "schilderij" {
		t.Errorf("expected raw work types to round-trip, got %v", roundTrip.WorkTypes)
	}
	if len(roundTrip.SearchableWorkTypes) != 1 || roundTrip.SearchableWorkTypes[0] != "painting" {
		t.Errorf("expected searchable work types to round-trip, got %v", roundTrip.SearchableWorkTypes)
	}
	if roundTrip.ProductionDateEnd == nil || *roundTrip.ProductionDateEnd != 1642 {
		t.Errorf("expected production end to round-trip, got %v", roundTrip.ProductionDateEnd)
	}
}

func TestBuildFilter(t *testing.T) {
	if buildFilter(&SearchFilters{}) != nil {
		t.Error("expected nil filter for empty criteria")
	}

	filter := buildFilter(&SearchFilters{
		Museums:   []string{"smk", "cma"},
		WorkTypes: []string{"painting"},
	})
	if filter == nil {
		t.Fatal("expected a filter")
	}
	if len(filter.Must) != 2 {
		t.Errorf("expected 2 must conditions, got %d", len(filter.Must))
	}
	// Work-type filtering targets the standardized projection, not the
	// museums' own labels.
	keys := make(map[string]bool)
	for _, cond := range filter.Must {
		if field := cond.GetField(); field != nil {
			keys[field.Key] = true
		}
	}
	if !keys["museum"] || !keys["searchable_work_types"] {
		t.Errorf("unexpected filter keys %v", keys)
	}
}
