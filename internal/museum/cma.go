package museum

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

const (
	cmaSearchURL = "https://openaccess-api.clevelandart.org/api/artworks/"
	cmaPageSize  = 100
)

var cmaWorkTypes = []string{
	"Print",
	"Painting",
	"Drawing",
}

// CMAClient fetches artworks from the Cleveland Museum of Art Open Access
// API. Offset-paginated per work type; CC0 and has-image filters are applied
// server-side.
type CMAClient struct {
	http *resty.Client
}

// NewCMAClient creates a client for the CMA API.
func NewCMAClient() *CMAClient {
	return &CMAClient{http: newRestyClient(60 * time.Second)}
}

// Slug returns the museum identifier.
func (c *CMAClient) Slug() string { return SlugCMA }

// UniqueObjectNumbers reports that CMA accession numbers are unique.
func (c *CMAClient) UniqueObjectNumbers() bool { return true }

type cmaSearchResponse struct {
	Info struct {
		Total int `json:"total"`
	} `json:"info"`
	Data []domain.JSONMap `json:"data"`
}

// FetchPage fetches one page. The cursor encodes the work-type index and the
// offset within that work type's result set.
func (c *CMAClient) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	wtIdx, offset, err := parseOffsetCursor(cursor)
	if err != nil {
		return nil, err
	}
	if wtIdx >= len(cmaWorkTypes) {
		return &Page{}, nil
	}
	workType := cmaWorkTypes[wtIdx]

	var result cmaSearchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":         "",
			"has_image": "1",
			"cc0":       "1",
			"limit":     strconv.Itoa(cmaPageSize),
			"type":      workType,
			"skip":      strconv.Itoa(offset),
		}).
		SetResult(&result).
		Get(cmaSearchURL)
	if err != nil {
		return nil, fmt.Errorf("cma search failed for %q at offset %d: %w", workType, offset, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("cma search returned status %d for %q at offset %d", resp.StatusCode(), workType, offset)
	}

	page := &Page{Total: result.Info.Total}
	for _, item := range result.Data {
		objectNumber, _ := item["accession_number"].(string)
		if objectNumber == "" {
			page.Filtered++
			continue
		}
		page.Items = append(page.Items, RawItem{
			ObjectNumber: objectNumber,
			MuseumDBID:   stringField(item, "id"),
			Payload:      item,
		})
	}

	if offset+cmaPageSize < result.Info.Total {
		page.NextCursor = formatOffsetCursor(wtIdx, offset+cmaPageSize)
	} else if wtIdx+1 < len(cmaWorkTypes) {
		page.NextCursor = formatOffsetCursor(wtIdx+1, 0)
	}
	return page, nil
}
