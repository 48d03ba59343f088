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
	smkSearchURL = "https://api.smk.dk/api/v1/art/search/"
	smkPageSize  = 100
)

// smkWorkTypes are the object_names queried from SMK, in the museum's own
// vocabulary (Danish).
var smkWorkTypes = []string{
	"pastel",
	"akvatinte",
	"akvarel",
	"Buste",
	"maleri",
	"tegning",
}

// SMKClient fetches artworks from the Statens Museum for Kunst API. The API
// is offset-paginated per work type; public-domain and has-image filters are
// applied server-side.
type SMKClient struct {
	http *resty.Client
}

// NewSMKClient creates a client for the SMK API.
func NewSMKClient() *SMKClient {
	return &SMKClient{http: newRestyClient(30 * time.Second)}
}

// Slug returns the museum identifier.
func (c *SMKClient) Slug() string { return SlugSMK }

// UniqueObjectNumbers reports that SMK inventory numbers are registrar-grade
// unique.
func (c *SMKClient) UniqueObjectNumbers() bool { return true }

type smkSearchResponse struct {
	Found int              `json:"found"`
	Items []domain.JSONMap `json:"items"`
}

// FetchPage fetches one page. The cursor encodes the work-type index and the
// offset within that work type's result set.
func (c *SMKClient) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	wtIdx, offset, err := parseOffsetCursor(cursor)
	if err != nil {
		return nil, err
	}
	if wtIdx >= len(smkWorkTypes) {
		return &Page{}, nil
	}
	workType := smkWorkTypes[wtIdx]

	var result smkSearchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"keys":    "*",
			"rows":    strconv.Itoa(smkPageSize),
			"offset":  strconv.Itoa(offset),
			"filters": fmt.Sprintf("[has_image:true],[object_names:%s],[public_domain:true]", workType),
		}).
		SetResult(&result).
		Get(smkSearchURL)
	if err != nil {
		return nil, fmt.Errorf("smk search failed for %q at offset %d: %w", workType, offset, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("smk search returned status %d for %q at offset %d", resp.StatusCode(), workType, offset)
	}

	page := &Page{Total: result.Found}
	for _, item := range result.Items {
		objectNumber, _ := item["object_number"].(string)
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

	if offset+smkPageSize < result.Found {
		page.NextCursor = formatOffsetCursor(wtIdx, offset+smkPageSize)
	} else if wtIdx+1 < len(smkWorkTypes) {
		page.NextCursor = formatOffsetCursor(wtIdx+1, 0)
	}
	return page, nil
}

// parseOffsetCursor decodes a "workTypeIndex:offset" cursor. An empty cursor
// addresses the first page of the first work type.
func parseOffsetCursor(cursor string) (wtIdx, offset int, err error) {
	if cursor == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	wtIdx, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	offset, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	return wtIdx, offset, nil
}

func formatOffsetCursor(wtIdx, offset int) string {
	return fmt.Sprintf("%d:%d", wtIdx, offset)
}

// stringField reads a payload field as a string, converting numeric IDs.
func stringField(m domain.JSONMap, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
