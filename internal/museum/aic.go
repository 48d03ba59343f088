package museum

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

const (
	// Listing endpoint: the search endpoint caps results at 1K/10K, the
	// plain listing does not.
	aicListURL  = "https://api.artic.edu/api/v1/artworks"
	aicPageSize = 100 // maximum allowed by the AIC API
)

// aicAllowedTypes is the artwork-type whitelist applied client-side; the
// listing endpoint has no type filter.
var aicAllowedTypes = map[string]bool{
	"Painting":               true,
	"Drawing and Watercolor": true,
	"Print":                  true,
	"Miniature Painting":     true,
	"Design":                 true,
}

// aicFields limits the response to the fields the pipeline consumes.
var aicFields = []string{
	"id",
	"title",
	"artist_display",
	"date_start",
	"date_end",
	"date_display",
	"main_reference_number",
	"image_id",
	"is_public_domain",
	"artwork_type_title",
	"artist_title",
	"classification_title",
}

// AICClient fetches artworks from the Art Institute of Chicago API.
// Page-number pagination over the full collection with client-side
// eligibility filtering.
type AICClient struct {
	http *resty.Client
}

// NewAICClient creates a client for the AIC API.
func NewAICClient() *AICClient {
	return &AICClient{http: newRestyClient(30 * time.Second)}
}

// Slug returns the museum identifier.
func (c *AICClient) Slug() string { return SlugAIC }

// UniqueObjectNumbers reports that AIC main reference numbers are unique.
func (c *AICClient) UniqueObjectNumbers() bool { return true }

type aicListResponse struct {
	Pagination struct {
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
	Data []domain.JSONMap `json:"data"`
}

// FetchPage fetches one page. The cursor is the page number.
func (c *AICClient) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	pageNum := 1
	if cursor != "" {
		var err error
		pageNum, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
	}

	var result aicListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields": strings.Join(aicFields, ","),
			"limit":  strconv.Itoa(aicPageSize),
			"page":   strconv.Itoa(pageNum),
		}).
		SetResult(&result).
		Get(aicListURL)
	if err != nil {
		return nil, fmt.Errorf("aic listing failed at page %d: %w", pageNum, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("aic listing returned status %d at page %d", resp.StatusCode(), pageNum)
	}

	page := &Page{Total: result.Pagination.Total}
	for _, item := range result.Data {
		if !c.eligible(item) {
			page.Filtered++
			continue
		}
		objectNumber, _ := item["main_reference_number"].(string)
		page.Items = append(page.Items, RawItem{
			ObjectNumber: objectNumber,
			MuseumDBID:   stringField(item, "id"),
			Payload:      item,
		})
	}

	if pageNum < result.Pagination.TotalPages {
		page.NextCursor = strconv.Itoa(pageNum + 1)
	}
	return page, nil
}

// eligible applies the client-side filters: public domain, has an image,
// has a reference number, and is a supported artwork type.
func (c *AICClient) eligible(item domain.JSONMap) bool {
	if pd, _ := item["is_public_domain"].(bool); !pd {
		return false
	}
	if imageID, _ := item["image_id"].(string); imageID == "" {
		return false
	}
	if refNum, _ := item["main_reference_number"].(string); refNum == "" {
		return false
	}
	artworkType, _ := item["artwork_type_title"].(string)
	return aicAllowedTypes[artworkType]
}
