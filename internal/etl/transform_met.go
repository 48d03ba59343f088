package etl

import (
	"strings"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
)

// metClassifications maps MET classification labels to standardized work
// types.
var metClassifications = map[string]string{
	"paintings":             "painting",
	"miniatures":            "miniature",
	"pastels":               "pastel",
	"oil sketches on paper": "oil sketch on paper",
	"drawings":              "drawing",
	"prints":                "print",
}

// METTransformer standardizes raw records from the Metropolitan Museum of
// Art. The MET API has no server-side public-domain filter, so the
// eligibility check happens here.
type METTransformer struct{}

// Slug returns the museum this transformer handles.
func (t *METTransformer) Slug() string { return museum.SlugMET }

// Transform builds a standardized artwork from a MET payload.
func (t *METTransformer) Transform(raw *domain.ArtworkRaw) (*domain.Artwork, *Rejection, error) {
	payload := raw.Payload

	if !payloadBool(payload, "isPublicDomain") {
		return nil, &Rejection{Reason: RejectNotPublicDomain}, nil
	}

	objectNumber := payloadString(payload, "accessionNumber")
	if objectNumber == "" {
		return nil, &Rejection{Reason: RejectMissingIdentifier}, nil
	}

	thumbnailURL := payloadString(payload, "primaryImageSmall")
	if thumbnailURL == "" {
		return nil, &Rejection{Reason: RejectMissingImage}, nil
	}

	// Classification can carry several labels joined by "&"; objectName is
	// the fallback when classification is absent.
	var workTypes []string
	classification := strings.ToLower(strings.TrimSpace(payloadString(payload, "classification")))
	objectName := strings.ToLower(strings.TrimSpace(payloadString(payload, "objectName")))
	if classification != "" {
		for _, part := range strings.Split(classification, "&") {
			if mapped, ok := metClassifications[strings.TrimSpace(part)]; ok {
				workTypes = append(workTypes, mapped)
			}
		}
	} else if objectName != "" {
		workTypes = []string{objectName}
	}
	searchable := SearchableWorkTypes(workTypes)
	if len(searchable) == 0 {
		return nil, &Rejection{Reason: RejectUnsupportedWorkType, Detail: classification}, nil
	}

	var artists []string
	for _, v := range payloadList(payload, "constituents") {
		if name := payloadString(payloadMap(v), "name"); name != "" {
			artists = append(artists, name)
		}
	}
	if len(artists) == 0 {
		if displayName := payloadString(payload, "artistDisplayName"); displayName != "" {
			artists = []string{displayName}
		}
	}

	period := payloadString(payload, "period")
	if period == "" {
		period = payloadString(payload, "objectDate")
	}

	frontendURL := payloadString(payload, "objectURL")
	if frontendURL == "" {
		frontendURL = "https://www.metmuseum.org/art/collection/search/" + raw.MuseumDBID
	}

	return &domain.Artwork{
		MuseumSlug:          museum.SlugMET,
		ObjectNumber:        objectNumber,
		MuseumDBID:          raw.MuseumDBID,
		Title:               payloadString(payload, "title"),
		Artists:             artists,
		WorkTypes:           workTypes,
		SearchableWorkTypes: searchable,
		ProductionDateStart: payloadInt(payload, "objectBeginDate"),
		ProductionDateEnd:   payloadInt(payload, "objectEndDate"),
		Period:              period,
		ThumbnailURL:        thumbnailURL,
		ImageURL:            payloadString(payload, "primaryImage"),
		FrontendURL:         frontendURL,
	}, nil, nil
}
