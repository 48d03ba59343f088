package etl

import (
	"strings"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
)

// CMATransformer standardizes raw records from the Cleveland Museum of Art.
type CMATransformer struct{}

// Slug returns the museum this transformer handles.
func (t *CMATransformer) Slug() string { return museum.SlugCMA }

// Transform builds a standardized artwork from a CMA payload.
func (t *CMATransformer) Transform(raw *domain.ArtworkRaw) (*domain.Artwork, *Rejection, error) {
	payload := raw.Payload

	objectNumber := payloadString(payload, "accession_number")
	if objectNumber == "" {
		return nil, &Rejection{Reason: RejectMissingIdentifier}, nil
	}

	images := payloadMap(payload["images"])
	thumbnailURL := payloadString(payloadMap(images["web"]), "url")
	if thumbnailURL == "" {
		return nil, &Rejection{Reason: RejectMissingImage}, nil
	}

	var workTypes []string
	if workType := payloadString(payload, "type"); workType != "" {
		workTypes = []string{strings.ToLower(workType)}
	}
	searchable := SearchableWorkTypes(workTypes)
	if len(searchable) == 0 {
		return nil, &Rejection{Reason: RejectUnsupportedWorkType, Detail: strings.Join(workTypes, ", ")}, nil
	}

	// CMA often has an empty creators array; culture is the fallback.
	var artists []string
	for _, v := range payloadList(payload, "creators") {
		description := payloadString(payloadMap(v), "description")
		if description == "" {
			continue
		}
		// "Claude Monet (French, 1840-1926)" -> "Claude Monet"
		name := strings.TrimSpace(strings.SplitN(description, "(", 2)[0])
		if name != "" {
			artists = append(artists, name)
		}
	}
	if len(artists) == 0 {
		artists = payloadStrings(payload, "culture")
	}

	var dateStart, dateEnd *int
	if start := payloadNumber(payload, "creation_date_earliest"); start != "" {
		dateStart = YearFromString(start)
	}
	if end := payloadNumber(payload, "creation_date_latest"); end != "" {
		dateEnd = YearFromString(end)
	}

	frontendURL := payloadString(payload, "url")
	if frontendURL == "" {
		frontendURL = "https://clevelandart.org/art/" + objectNumber
	}

	return &domain.Artwork{
		MuseumSlug:          museum.SlugCMA,
		ObjectNumber:        objectNumber,
		MuseumDBID:          raw.MuseumDBID,
		Title:               payloadString(payload, "title"),
		Artists:             artists,
		WorkTypes:           workTypes,
		SearchableWorkTypes: searchable,
		ProductionDateStart: dateStart,
		ProductionDateEnd:   dateEnd,
		Period:              payloadString(payload, "creation_date"),
		ThumbnailURL:        thumbnailURL,
		ImageURL:            payloadString(payloadMap(images["print"]), "url"),
		FrontendURL:         frontendURL,
	}, nil, nil
}
