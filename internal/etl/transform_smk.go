package etl

import (
	"strings"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
)

// SMKTransformer standardizes raw records from Statens Museum for Kunst.
// Public-domain and has-image filtering already happened server-side during
// extraction, so rejections here are mostly missing fields and unmapped work
// types.
type SMKTransformer struct{}

// Slug returns the museum this transformer handles.
func (t *SMKTransformer) Slug() string { return museum.SlugSMK }

// Transform builds a standardized artwork from an SMK payload.
func (t *SMKTransformer) Transform(raw *domain.ArtworkRaw) (*domain.Artwork, *Rejection, error) {
	payload := raw.Payload

	objectNumber := payloadString(payload, "object_number")
	if objectNumber == "" {
		return nil, &Rejection{Reason: RejectMissingIdentifier}, nil
	}

	thumbnailURL := payloadString(payload, "image_thumbnail")
	if thumbnailURL == "" {
		return nil, &Rejection{Reason: RejectMissingImage}, nil
	}

	var workTypes []string
	for _, v := range payloadList(payload, "object_names") {
		if name := payloadString(payloadMap(v), "name"); name != "" {
			workTypes = append(workTypes, strings.ToLower(name))
		}
	}
	searchable := SearchableWorkTypes(workTypes)
	if len(searchable) == 0 {
		return nil, &Rejection{Reason: RejectUnsupportedWorkType, Detail: strings.Join(workTypes, ", ")}, nil
	}

	title := ""
	if titles := payloadList(payload, "titles"); len(titles) > 0 {
		title = payloadString(payloadMap(titles[0]), "title")
	}

	artists := payloadStrings(payload, "artist")

	var dateStart, dateEnd *int
	period := ""
	if dates := payloadList(payload, "production_date"); len(dates) > 0 {
		if dateObj := payloadMap(dates[0]); dateObj != nil {
			period = payloadString(dateObj, "period")
			if start := payloadString(dateObj, "start"); start != "" {
				dateStart = YearFromString(start)
			}
			if end := payloadString(dateObj, "end"); end != "" {
				dateEnd = YearFromString(end)
			}
		}
	}

	frontendURL := payloadString(payload, "frontend_url")
	if frontendURL == "" {
		frontendURL = "https://open.smk.dk/artwork/image/" + strings.ToLower(objectNumber)
	}

	return &domain.Artwork{
		MuseumSlug:          museum.SlugSMK,
		ObjectNumber:        objectNumber,
		MuseumDBID:          raw.MuseumDBID,
		Title:               title,
		Artists:             artists,
		WorkTypes:           workTypes,
		SearchableWorkTypes: searchable,
		ProductionDateStart: dateStart,
		ProductionDateEnd:   dateEnd,
		Period:              period,
		ThumbnailURL:        thumbnailURL,
		ImageURL:            payloadString(payload, "image_iiif_id"),
		FrontendURL:         frontendURL,
	}, nil, nil
}
