package etl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
)

// aicDrawingClassifications are the classification labels kept as-is when the
// artwork type is the umbrella "drawing and watercolor".
var aicDrawingClassifications = map[string]bool{
	"watercolor": true,
	"pastel":     true,
	"gouache":    true,
	"aquatint":   true,
}

// AICTransformer standardizes raw records from the Art Institute of Chicago.
// Thumbnails are constructed from the IIIF image ID; 843px wide is AIC's
// recommended rendition because it matches their website's most common size
// and therefore their CDN cache.
type AICTransformer struct{}

// Slug returns the museum this transformer handles.
func (t *AICTransformer) Slug() string { return museum.SlugAIC }

// Transform builds a standardized artwork from an AIC payload.
func (t *AICTransformer) Transform(raw *domain.ArtworkRaw) (*domain.Artwork, *Rejection, error) {
	payload := raw.Payload

	// Defensive check; extraction already filters on public domain.
	if !payloadBool(payload, "is_public_domain") {
		return nil, &Rejection{Reason: RejectNotPublicDomain}, nil
	}

	objectNumber := payloadString(payload, "main_reference_number")
	if objectNumber == "" {
		return nil, &Rejection{Reason: RejectMissingIdentifier}, nil
	}

	imageID := payloadString(payload, "image_id")
	if imageID == "" {
		return nil, &Rejection{Reason: RejectMissingImage}, nil
	}

	workTypes := aicWorkTypes(payload)
	searchable := SearchableWorkTypes(workTypes)
	if len(searchable) == 0 {
		return nil, &Rejection{Reason: RejectUnsupportedWorkType, Detail: strings.Join(workTypes, ", ")}, nil
	}

	var artists []string
	if artist := payloadString(payload, "artist_title"); artist != "" {
		artists = []string{artist}
	}

	return &domain.Artwork{
		MuseumSlug:          museum.SlugAIC,
		ObjectNumber:        objectNumber,
		MuseumDBID:          raw.MuseumDBID,
		Title:               payloadString(payload, "title"),
		Artists:             artists,
		WorkTypes:           workTypes,
		SearchableWorkTypes: searchable,
		ProductionDateStart: payloadInt(payload, "date_start"),
		ProductionDateEnd:   payloadInt(payload, "date_end"),
		Period:              payloadString(payload, "date_display"),
		ThumbnailURL:        fmt.Sprintf("https://www.artic.edu/iiif/2/%s/full/843,/0/default.jpg", imageID),
		ImageURL:            fmt.Sprintf("https://www.artic.edu/iiif/2/%s/full/full/0/default.jpg", imageID),
		FrontendURL:         fmt.Sprintf("https://www.artic.edu/artworks/%s", raw.MuseumDBID),
	}, nil, nil
}

// aicWorkTypes derives work types from the artwork type and the more specific
// classification label.
func aicWorkTypes(payload domain.JSONMap) []string {
	artworkType := strings.ToLower(payloadString(payload, "artwork_type_title"))
	classification := strings.ToLower(payloadString(payload, "classification_title"))

	types := make(map[string]bool)
	switch artworkType {
	case "drawing and watercolor":
		if aicDrawingClassifications[classification] {
			types[classification] = true
		} else {
			types["drawing"] = true
		}
	case "miniature painting":
		types["miniature"] = true
		types["painting"] = true
	case "painting", "print", "design":
		types[artworkType] = true
	default:
		if artworkType != "" {
			types[artworkType] = true
		}
	}
	if classification != "" {
		types[classification] = true
	}

	result := make([]string, 0, len(types))
	for t := range types {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}
