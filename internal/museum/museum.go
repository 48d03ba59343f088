// Package museum contains one API client per supported museum. Each client
// encapsulates its museum's pagination scheme and payload quirks behind a
// common page-fetching contract; everything downstream sees uniform RawItems.
package museum

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

// RawItem is one artwork record as returned by a museum API, before any
// standardization.
type RawItem struct {
	// ObjectNumber is the museum's public identifier for the artwork.
	// Uniqueness is not guaranteed by every museum.
	ObjectNumber string

	// MuseumDBID is the museum's internal database ID, unique per museum.
	MuseumDBID string

	// Payload is the record as delivered by the API.
	Payload domain.JSONMap
}

// Page is one page of results from a museum API.
type Page struct {
	Items []RawItem

	// Total is the number of records matching the current query, when the
	// API reports it; 0 otherwise.
	Total int

	// Filtered counts records dropped by client-side eligibility filters
	// before they ever reached the caller.
	Filtered int

	// NextCursor requests the following page; empty means end of results.
	NextCursor string
}

// Client fetches pages of artwork records from one museum API.
type Client interface {
	// Slug returns the museum's identifier (e.g. "smk").
	Slug() string

	// UniqueObjectNumbers reports whether the museum guarantees object
	// numbers are unique. When false, the extractor applies its duplicate
	// reconciliation policy.
	UniqueObjectNumbers() bool

	// FetchPage returns the page addressed by cursor; an empty cursor
	// requests the first page.
	FetchPage(ctx context.Context, cursor string) (*Page, error)
}

// ObjectLister is implemented by clients whose API is an object-ID catalogue
// rather than a paged listing. The extractor enumerates IDs first, then
// fetches objects one at a time.
type ObjectLister interface {
	Client

	// ListObjectIDs returns every object ID the extraction should cover.
	ListObjectIDs(ctx context.Context) ([]string, error)

	// FetchObject fetches a single object by its museum-internal ID.
	// A nil item with nil error means the object is not eligible.
	FetchObject(ctx context.Context, objectID string) (*RawItem, error)
}

const (
	maxRetries   = 3
	retryWait    = 1 * time.Second
	retryMaxWait = 8 * time.Second
)

// newRestyClient builds the shared HTTP client used by all museum clients:
// bounded exponential-backoff retry on transport errors and 5xx responses.
func newRestyClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
}

// Registry maps museum slugs to their clients.
type Registry map[string]Client

// NewRegistry constructs clients for every supported museum.
func NewRegistry() Registry {
	return Registry{
		SlugSMK: NewSMKClient(),
		SlugCMA: NewCMAClient(),
		SlugRMA: NewRMAClient(),
		SlugMET: NewMETClient(),
		SlugAIC: NewAICClient(),
	}
}

// Get returns the client for slug, or nil if the museum is not supported.
func (r Registry) Get(slug string) Client {
	return r[slug]
}

// Slugs returns the supported museum slugs in stable order.
func (r Registry) Slugs() []string {
	return []string{SlugSMK, SlugCMA, SlugRMA, SlugMET, SlugAIC}
}

// Supported museum slugs.
const (
	SlugSMK = "smk" // Statens Museum for Kunst, Copenhagen
	SlugCMA = "cma" // Cleveland Museum of Art
	SlugRMA = "rma" // Rijksmuseum, Amsterdam
	SlugMET = "met" // Metropolitan Museum of Art, New York
	SlugAIC = "aic" // Art Institute of Chicago
)
