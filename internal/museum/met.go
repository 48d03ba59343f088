package museum

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

const (
	metBaseURL    = "https://collectionapi.metmuseum.org/public/collection/v1"
	metObjectsURL = metBaseURL + "/objects"
	metSearchURL  = metBaseURL + "/search"

	// metPageSize bounds how many per-object fetches a single FetchPage
	// call performs when the client is driven through the paged contract.
	metPageSize = 25
)

// metDepartments are the department IDs covered by extraction.
var metDepartments = []int{
	11, // European Paintings
	15, // The Robert Lehman Collection
	9,  // Drawings and Prints
}

// metSearchQueries broaden coverage beyond the fixed departments.
var metSearchQueries = []string{"paintings"}

// METClient fetches artworks from the Metropolitan Museum of Art API. The API
// exposes an object-ID catalogue, not a paged listing, so each artwork costs
// one request. MET accession numbers are not guaranteed unique, which is why
// the extractor reconciles duplicates for this museum.
type METClient struct {
	http *resty.Client

	// ids caches the catalogue between FetchPage calls within one run.
	ids []string
}

// NewMETClient creates a client for the MET API.
func NewMETClient() *METClient {
	return &METClient{http: newRestyClient(30 * time.Second)}
}

// Slug returns the museum identifier.
func (c *METClient) Slug() string { return SlugMET }

// UniqueObjectNumbers reports that MET accession numbers can collide.
func (c *METClient) UniqueObjectNumbers() bool { return false }

type metObjectIDsResponse struct {
	ObjectIDs []int `json:"objectIDs"`
}

// ListObjectIDs enumerates the object IDs of the covered departments and
// search queries, deduplicated and sorted numerically.
func (c *METClient) ListObjectIDs(ctx context.Context) ([]string, error) {
	idSet := make(map[int]struct{})

	for _, dept := range metDepartments {
		var result metObjectIDsResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("departmentIds", strconv.Itoa(dept)).
			SetResult(&result).
			Get(metObjectsURL)
		if err != nil {
			return nil, fmt.Errorf("met department %d listing failed: %w", dept, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("met department %d listing returned status %d", dept, resp.StatusCode())
		}
		for _, id := range result.ObjectIDs {
			idSet[id] = struct{}{}
		}
	}

	for _, query := range metSearchQueries {
		var result metObjectIDsResponse
		// The q parameter has to come last or the API ignores the other
		// filters.
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("hasImages", "true").
			SetQueryParam("q", query).
			SetResult(&result).
			Get(metSearchURL)
		if err != nil {
			return nil, fmt.Errorf("met search %q failed: %w", query, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("met search %q returned status %d", query, resp.StatusCode())
		}
		for _, id := range result.ObjectIDs {
			idSet[id] = struct{}{}
		}
	}

	numeric := make([]int, 0, len(idSet))
	for id := range idSet {
		numeric = append(numeric, id)
	}
	sort.Ints(numeric)

	ids := make([]string, len(numeric))
	for i, id := range numeric {
		ids[i] = strconv.Itoa(id)
	}
	return ids, nil
}

// FetchObject fetches a single object. Returns a nil item when the object has
// no accession number, which downstream counts as filtered.
func (c *METClient) FetchObject(ctx context.Context, objectID string) (*RawItem, error) {
	var item domain.JSONMap
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&item).
		Get(metObjectsURL + "/" + objectID)
	if err != nil {
		return nil, fmt.Errorf("met object %s fetch failed: %w", objectID, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("met object %s fetch returned status %d", objectID, resp.StatusCode())
	}

	objectNumber, _ := item["accessionNumber"].(string)
	if objectNumber == "" {
		return nil, nil
	}

	return &RawItem{
		ObjectNumber: objectNumber,
		MuseumDBID:   objectID,
		Payload:      item,
	}, nil
}

// FetchPage drives the object catalogue through the paged contract: the
// cursor is an index into the cached, sorted ID list.
func (c *METClient) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	if c.ids == nil {
		ids, err := c.ListObjectIDs(ctx)
		if err != nil {
			return nil, err
		}
		c.ids = ids
	}

	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(c.ids) {
		return &Page{Total: len(c.ids)}, nil
	}

	end := start + metPageSize
	if end > len(c.ids) {
		end = len(c.ids)
	}

	page := &Page{Total: len(c.ids)}
	for _, id := range c.ids[start:end] {
		item, err := c.FetchObject(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			page.Filtered++
			continue
		}
		page.Items = append(page.Items, *item)
	}

	if end < len(c.ids) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
