package etl

import (
	"strings"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/museum"
)

// rmaPublicDomainRights are the rights statement URLs the Rijksmuseum uses
// for works free of copyright.
var rmaPublicDomainRights = map[string]bool{
	"http://creativecommons.org/publicdomain/zero/1.0/":  true,
	"https://creativecommons.org/publicdomain/zero/1.0/": true,
	"http://creativecommons.org/publicdomain/mark/1.0/":  true,
	"https://creativecommons.org/publicdomain/mark/1.0/": true,
}

// RMATransformer standardizes raw records from the Rijksmuseum. Extraction
// stores the normalized OAI-PMH record, so this transformer works on that
// shape rather than on museum API JSON.
type RMATransformer struct{}

// Slug returns the museum this transformer handles.
func (t *RMATransformer) Slug() string { return museum.SlugRMA }

// Transform builds a standardized artwork from a Rijksmuseum record payload.
func (t *RMATransformer) Transform(raw *domain.ArtworkRaw) (*domain.Artwork, *Rejection, error) {
	record, err := museum.RMARecordFromPayload(raw.Payload)
	if err != nil {
		return nil, nil, err
	}

	if !rmaPublicDomainRights[record.Rights] {
		return nil, &Rejection{Reason: RejectNotPublicDomain, Detail: record.Rights}, nil
	}
	if record.Identifier == "" {
		return nil, &Rejection{Reason: RejectMissingIdentifier}, nil
	}
	if !strings.HasPrefix(record.ImageURL, "https://") || !strings.HasSuffix(record.ImageURL, ".jpg") {
		return nil, &Rejection{Reason: RejectMissingImage, Detail: record.ImageURL}, nil
	}

	workTypes := make([]string, 0, len(record.WorkTypes))
	for _, wt := range record.WorkTypes {
		workTypes = append(workTypes, strings.ToLower(wt))
	}
	searchable := SearchableWorkTypes(workTypes)
	if len(searchable) == 0 {
		return nil, &Rejection{Reason: RejectUnsupportedWorkType, Detail: strings.Join(workTypes, ", ")}, nil
	}

	start, end := ProductionYears(record.Created)

	return &domain.Artwork{
		MuseumSlug:          museum.SlugRMA,
		ObjectNumber:        record.Identifier,
		MuseumDBID:          raw.MuseumDBID,
		Title:               record.Title,
		Artists:             record.Artists,
		WorkTypes:           workTypes,
		SearchableWorkTypes: searchable,
		ProductionDateStart: start,
		ProductionDateEnd:   end,
		ThumbnailURL:        rmaThumbnailURL(record.ImageURL),
		ImageURL:            record.ImageURL,
		FrontendURL:         "https://www.rijksmuseum.nl/en/collection/" + record.Identifier,
	}, nil, nil
}

// rmaThumbnailURL rewrites a full-size IIIF image URL to an 800px-wide
// rendition. Non-IIIF URLs are returned unchanged.
func rmaThumbnailURL(imageURL string) string {
	if strings.Contains(imageURL, "iiif.micr.io") {
		return strings.Replace(imageURL, "/full/max/", "/full/800,/", 1)
	}
	return imageURL
}
