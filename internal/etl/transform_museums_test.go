package etl

import (
	"testing"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
)

func rawRecord(slug, objectNumber, dbID string, payload domain.JSONMap) *domain.ArtworkRaw {
	return &domain.ArtworkRaw{
		MuseumSlug:   slug,
		ObjectNumber: objectNumber,
		MuseumDBID:   dbID,
		Payload:      payload,
	}
}

func smkPayload() domain.JSONMap {
	return domain.JSONMap{
		"object_number":   "KMS1",
		"image_thumbnail": "https://iip-thumb.smk.dk/iiif/KMS1.jpg",
		"image_iiif_id":   "https://iip.smk.dk/iiif/KMS1",
		"object_names": []interface{}{
			map[string]interface{}{"name": "Maleri"},
		},
		"titles": []interface{}{
			map[string]interface{}{"title": "Portrait of a Man"},
		},
		"artist": []interface{}{"Vilhelm Hammershøi"},
		"production_date": []interface{}{
			map[string]interface{}{
				"period": "1890-1900",
				"start":  "1890-01-01",
				"end":    "1900-12-31",
			},
		},
	}
}

func TestSMKTransformer(t *testing.T) {
	transformer := &SMKTransformer{}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugSMK, "KMS1", "id-1", smkPayload()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}

	if artwork.ObjectNumber != "KMS1" || artwork.MuseumSlug != museum.SlugSMK {
		t.Errorf("unexpected identity: %s/%s", artwork.MuseumSlug, artwork.ObjectNumber)
	}
	if artwork.Title != "Portrait of a Man" {
		t.Errorf("unexpected title %q", artwork.Title)
	}
	if len(artwork.Artists) != 1 || artwork.Artists[0] != "Vilhelm Hammershøi" {
		t.Errorf("unexpected artists %v", artwork.Artists)
	}
	if len(artwork.SearchableWorkTypes) != 1 || artwork.SearchableWorkTypes[0] != "painting" {
		t.Errorf("unexpected searchable work types %v", artwork.SearchableWorkTypes)
	}
	if artwork.ProductionDateStart == nil || *artwork.ProductionDateStart != 1890 {
		t.Errorf("unexpected production start %v", artwork.ProductionDateStart)
	}
	if artwork.ProductionDateEnd == nil || *artwork.ProductionDateEnd != 1900 {
		t.Errorf("unexpected production end %v", artwork.ProductionDateEnd)
	}
	if artwork.Period != "1890-1900" {
		t.Errorf("unexpected period %q", artwork.Period)
	}
	if artwork.FrontendURL != "https://open.smk.dk/artwork/image/kms1" {
		t.Errorf("unexpected frontend URL %q", artwork.FrontendURL)
	}
}

func TestSMKTransformer_Rejections(t *testing.T) {
	transformer := &SMKTransformer{}

	tests := []struct {
		name   string
		mutate func(domain.JSONMap)
		reason RejectionReason
	}{
		{
			name:   "missing identifier",
			mutate: func(p domain.JSONMap) { delete(p, "object_number") },
			reason: RejectMissingIdentifier,
		},
		{
			name:   "missing thumbnail",
			mutate: func(p domain.JSONMap) { delete(p, "image_thumbnail") },
			reason: RejectMissingImage,
		},
		{
			name: "unsupported work type",
			mutate: func(p domain.JSONMap) {
				p["object_names"] = []interface{}{
					map[string]interface{}{"name": "Skulptur"},
				}
			},
			reason: RejectUnsupportedWorkType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := smkPayload()
			tt.mutate(payload)

			artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugSMK, "KMS1", "id-1", payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if artwork != nil {
				t.Fatal("expected no artwork")
			}
			if rejection == nil || rejection.Reason != tt.reason {
				t.Errorf("expected rejection %s, got %v", tt.reason, rejection)
			}
		})
	}
}

func TestCMATransformer(t *testing.T) {
	transformer := &CMATransformer{}

	payload := domain.JSONMap{
		"accession_number": "1916.1044",
		"title":            "Water Lilies",
		"type":             "Painting",
		"images": map[string]interface{}{
			"web":   map[string]interface{}{"url": "https://openaccess-cdn.clevelandart.org/1916.1044/web.jpg"},
			"print": map[string]interface{}{"url": "https://openaccess-cdn.clevelandart.org/1916.1044/print.jpg"},
		},
		"creators": []interface{}{
			map[string]interface{}{"description": "Claude Monet (French, 1840-1926)"},
		},
		"creation_date":          "1916",
		"creation_date_earliest": float64(1915),
		"creation_date_latest":   float64(1916),
	}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugCMA, "1916.1044", "cma-1", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}

	if len(artwork.Artists) != 1 || artwork.Artists[0] != "Claude Monet" {
		t.Errorf("expected parenthetical stripped from creator, got %v", artwork.Artists)
	}
	if artwork.ProductionDateStart == nil || *artwork.ProductionDateStart != 1915 {
		t.Errorf("unexpected production start %v", artwork.ProductionDateStart)
	}
	if artwork.ThumbnailURL != "https://openaccess-cdn.clevelandart.org/1916.1044/web.jpg" {
		t.Errorf("unexpected thumbnail %q", artwork.ThumbnailURL)
	}
	if artwork.ImageURL != "https://openaccess-cdn.clevelandart.org/1916.1044/print.jpg" {
		t.Errorf("unexpected image URL %q", artwork.ImageURL)
	}
	if artwork.FrontendURL != "https://clevelandart.org/art/1916.1044" {
		t.Errorf("unexpected frontend URL %q", artwork.FrontendURL)
	}
}

func TestCMATransformer_CultureFallback(t *testing.T) {
	transformer := &CMATransformer{}

	payload := domain.JSONMap{
		"accession_number": "2000.1",
		"type":             "Drawing",
		"images": map[string]interface{}{
			"web": map[string]interface{}{"url": "https://example.org/web.jpg"},
		},
		"creators": []interface{}{},
		"culture":  []interface{}{"Netherlands, 17th century"},
	}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugCMA, "2000.1", "cma-2", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}
	if len(artwork.Artists) != 1 || artwork.Artists[0] != "Netherlands, 17th century" {
		t.Errorf("expected culture fallback, got %v", artwork.Artists)
	}
}

func TestMETTransformer(t *testing.T) {
	transformer := &METTransformer{}

	payload := domain.JSONMap{
		"isPublicDomain":    true,
		"accessionNumber":   "89.15.21",
		"title":             "The Harvesters",
		"primaryImageSmall": "https://images.metmuseum.org/small.jpg",
		"primaryImage":      "https://images.metmuseum.org/full.jpg",
		"classification":    "Paintings & Drawings",
		"constituents": []interface{}{
			map[string]interface{}{"name": "Pieter Bruegel the Elder"},
		},
		"objectBeginDate": float64(1565),
		"objectEndDate":   float64(1565),
		"objectDate":      "1565",
		"objectURL":       "https://www.metmuseum.org/art/collection/search/435809",
	}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugMET, "89.15.21", "435809", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}

	if len(artwork.WorkTypes) != 2 {
		t.Errorf("expected both classification parts mapped, got %v", artwork.WorkTypes)
	}
	if artwork.Period != "1565" {
		t.Errorf("expected objectDate fallback for period, got %q", artwork.Period)
	}
	if artwork.ProductionDateStart == nil || *artwork.ProductionDateStart != 1565 {
		t.Errorf("unexpected production start %v", artwork.ProductionDateStart)
	}
}

func TestMETTransformer_NotPublicDomain(t *testing.T) {
	transformer := &METTransformer{}

	payload := domain.JSONMap{
		"isPublicDomain":  false,
		"accessionNumber": "89.15.21",
	}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugMET, "89.15.21", "435809", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artwork != nil {
		t.Fatal("expected no artwork")
	}
	if rejection == nil || rejection.Reason != RejectNotPublicDomain {
		t.Errorf("expected not-public-domain rejection, got %v", rejection)
	}
}

func TestAICTransformer(t *testing.T) {
	transformer := &AICTransformer{}

	payload := domain.JSONMap{
		"is_public_domain":      true,
		"main_reference_number": "1942.51",
		"title":                 "Nighthawks",
		"image_id":              "831a05de-d3f6-f4fa-a460-23008dd58dda",
		"artwork_type_title":    "Painting",
		"classification_title":  "oil on canvas",
		"artist_title":          "Edward Hopper",
		"date_start":            float64(1942),
		"date_end":              float64(1942),
		"date_display":          "1942",
	}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugAIC, "1942.51", "111628", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}

	wantThumb := "https://www.artic.edu/iiif/2/831a05de-d3f6-f4fa-a460-23008dd58dda/full/843,/0/default.jpg"
	if artwork.ThumbnailURL != wantThumb {
		t.Errorf("unexpected thumbnail %q", artwork.ThumbnailURL)
	}
	if artwork.FrontendURL != "https://www.artic.edu/artworks/111628" {
		t.Errorf("unexpected frontend URL %q", artwork.FrontendURL)
	}
	if len(artwork.Artists) != 1 || artwork.Artists[0] != "Edward Hopper" {
		t.Errorf("unexpected artists %v", artwork.Artists)
	}
	if len(artwork.SearchableWorkTypes) != 1 || artwork.SearchableWorkTypes[0] != "painting" {
		t.Errorf("unexpected searchable work types %v", artwork.SearchableWorkTypes)
	}
}

func TestAICTransformer_WorkTypeCombinations(t *testing.T) {
	transformer := &AICTransformer{}

	tests := []struct {
		name           string
		artworkType    string
		classification string
		expected       []string
	}{
		{
			name:           "watercolor classification kept",
			artworkType:    "Drawing and Watercolor",
			classification: "watercolor",
			expected:       []string{"watercolor"},
		},
		{
			name:           "generic drawing classification",
			artworkType:    "Drawing and Watercolor",
			classification: "graphite",
			expected:       []string{"drawing"},
		},
		{
			name:        "miniature painting splits",
			artworkType: "Miniature Painting",
			expected:    []string{"miniature", "painting"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := domain.JSONMap{
				"is_public_domain":      true,
				"main_reference_number": "X.1",
				"image_id":              "img-1",
				"artwork_type_title":    tt.artworkType,
				"classification_title":  tt.classification,
			}

			artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugAIC, "X.1", "1", payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rejection != nil {
				t.Fatalf("unexpected rejection: %s", rejection)
			}
			if len(artwork.SearchableWorkTypes) != len(tt.expected) {
				t.Fatalf("expected searchable %v, got %v", tt.expected, artwork.SearchableWorkTypes)
			}
			for i, want := range tt.expected {
				if artwork.SearchableWorkTypes[i] != want {
					t.Errorf("expected searchable %v, got %v", tt.expected, artwork.SearchableWorkTypes)
				}
			}
		})
	}
}

func TestRMATransformer(t *testing.T) {
	transformer := &RMATransformer{}

	record := &museum.RMARecord{
		Identifier: "SK-C-5",
		Title:      "The Night Watch",
		Artists:    []string{"Rembrandt van Rijn"},
		WorkTypes:  []string{"painting"},
		Rights:     "http://creativecommons.org/publicdomain/mark/1.0/",
		ImageURL:   "https://iiif.micr.io/abc123/full/max/0/default.jpg",
		Created:    "1642",
	}

	artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugRMA, "SK-C-5", "200107924", record.Payload()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}

	wantThumb := "https://iiif.micr.io/abc123/full/800,/0/default.jpg"
	if artwork.ThumbnailURL != wantThumb {
		t.Errorf("expected 800px rendition %q, got %q", wantThumb, artwork.ThumbnailURL)
	}
	if artwork.ImageURL != record.ImageURL {
		t.Errorf("expected full image URL kept, got %q", artwork.ImageURL)
	}
	if artwork.ProductionDateStart == nil || *artwork.ProductionDateStart != 1642 {
		t.Errorf("unexpected production start %v", artwork.ProductionDateStart)
	}
	if artwork.FrontendURL != "https://www.rijksmuseum.nl/en/collection/SK-C-5" {
		t.Errorf("unexpected frontend URL %q", artwork.FrontendURL)
	}
}

func TestRMATransformer_Rejections(t *testing.T) {
	transformer := &RMATransformer{}

	base := func() *museum.RMARecord {
		return &museum.RMARecord{
			Identifier: "SK-A-1",
			WorkTypes:  []string{"drawing"},
			Rights:     "https://creativecommons.org/publicdomain/zero/1.0/",
			ImageURL:   "https://example.org/a.jpg",
		}
	}

	tests := []struct {
		name   string
		mutate func(*museum.RMARecord)
		reason RejectionReason
	}{
		{
			name:   "rights not public domain",
			mutate: func(r *museum.RMARecord) { r.Rights = "https://rightsstatements.org/vocab/InC/1.0/" },
			reason: RejectNotPublicDomain,
		},
		{
			name:   "missing identifier",
			mutate: func(r *museum.RMARecord) { r.Identifier = "" },
			reason: RejectMissingIdentifier,
		},
		{
			name:   "non-https image",
			mutate: func(r *museum.RMARecord) { r.ImageURL = "http://example.org/a.jpg" },
			reason: RejectMissingImage,
		},
		{
			name:   "unmapped work type",
			mutate: func(r *museum.RMARecord) { r.WorkTypes = []string{"sculpture"} },
			reason: RejectUnsupportedWorkType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := base()
			tt.mutate(record)

			artwork, rejection, err := transformer.Transform(rawRecord(museum.SlugRMA, "SK-A-1", "1", record.Payload()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if artwork != nil {
				t.Fatal("expected no artwork")
			}
			if rejection == nil || rejection.Reason != tt.reason {
				t.Errorf("expected rejection %s, got %v", tt.reason, rejection)
			}
		})
	}
}
