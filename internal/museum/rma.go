package museum

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

const (
	rmaSearchURL    = "https://data.rijksmuseum.nl/search/collection"
	rmaOAIRecordURL = "https://data.rijksmuseum.nl/oai?verb=GetRecord&metadataPrefix=edm&identifier=https://id.rijksmuseum.nl/"
)

var rmaWorkTypes = []string{
	"painting",
	"drawing",
}

// RMAClient fetches artworks from the Rijksmuseum linked-data API. The search
// endpoint pages with an opaque pageToken and returns item references only;
// each referenced record is then fetched individually as OAI-PMH EDM XML and
// normalized. RMA object numbers are not guaranteed unique, which is why the
// extractor reconciles duplicates for this museum.
type RMAClient struct {
	http *resty.Client
}

// NewRMAClient creates a client for the RMA API.
func NewRMAClient() *RMAClient {
	return &RMAClient{http: newRestyClient(30 * time.Second)}
}

// Slug returns the museum identifier.
func (c *RMAClient) Slug() string { return SlugRMA }

// UniqueObjectNumbers reports that RMA object numbers can collide.
func (c *RMAClient) UniqueObjectNumbers() bool { return false }

type rmaSearchResponse struct {
	PartOf struct {
		TotalItems int `json:"totalItems"`
	} `json:"partOf"`
	OrderedItems []struct {
		ID string `json:"id"`
	} `json:"orderedItems"`
	Next *struct {
		ID string `json:"id"`
	} `json:"next"`
}

// FetchPage fetches one search page and resolves every referenced record via
// the OAI-PMH endpoint. The cursor encodes the work-type index and the
// museum's opaque page token.
func (c *RMAClient) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	wtIdx, pageToken, err := parseTokenCursor(cursor)
	if err != nil {
		return nil, err
	}
	if wtIdx >= len(rmaWorkTypes) {
		return &Page{}, nil
	}
	workType := rmaWorkTypes[wtIdx]

	var result rmaSearchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("type", workType).
		SetQueryParam("pageToken", pageToken).
		SetResult(&result).
		Get(rmaSearchURL)
	if err != nil {
		return nil, fmt.Errorf("rma search failed for %q at token %q: %w", workType, pageToken, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("rma search returned status %d for %q at token %q", resp.StatusCode(), workType, pageToken)
	}

	page := &Page{Total: result.PartOf.TotalItems}
	for _, ref := range result.OrderedItems {
		itemID := ref.ID[strings.LastIndex(ref.ID, "/")+1:]
		record, err := c.fetchRecord(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if record == nil || record.Identifier == "" {
			page.Filtered++
			continue
		}
		page.Items = append(page.Items, RawItem{
			ObjectNumber: record.Identifier,
			MuseumDBID:   itemID,
			Payload:      record.Payload(),
		})
	}

	nextToken := ""
	if result.Next != nil {
		nextToken = queryParam(result.Next.ID, "pageToken")
	}
	if nextToken != "" {
		page.NextCursor = formatTokenCursor(wtIdx, nextToken)
	} else if wtIdx+1 < len(rmaWorkTypes) {
		page.NextCursor = formatTokenCursor(wtIdx+1, "")
	}
	return page, nil
}

// fetchRecord retrieves and normalizes one OAI-PMH EDM record.
func (c *RMAClient) fetchRecord(ctx context.Context, itemID string) (*RMARecord, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(rmaOAIRecordURL + itemID)
	if err != nil {
		return nil, fmt.Errorf("rma record %s fetch failed: %w", itemID, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("rma record %s fetch returned status %d", itemID, resp.StatusCode())
	}
	return ParseRMARecord(resp.Body())
}

// parseTokenCursor decodes a "workTypeIndex:pageToken" cursor.
func parseTokenCursor(cursor string) (wtIdx int, token string, err error) {
	if cursor == "" {
		return 0, "", nil
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid cursor %q", cursor)
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &wtIdx); err != nil {
		return 0, "", fmt.Errorf("invalid cursor %q", cursor)
	}
	return wtIdx, parts[1], nil
}

func formatTokenCursor(wtIdx int, token string) string {
	return fmt.Sprintf("%d:%s", wtIdx, token)
}

// queryParam extracts a single query parameter from a URL, or "".
func queryParam(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(name)
}

// RMARecord is the normalized form of one EDM record. It preserves the
// source's descriptive fields verbatim; eligibility decisions (rights,
// work-type mapping) are made later by the transformer.
type RMARecord struct {
	Identifier string   `json:"identifier"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	WorkTypes  []string `json:"work_types"`
	Rights     string   `json:"rights"`
	ImageURL   string   `json:"image_url"`
	Created    string   `json:"created"`
}

// Payload converts the record to the raw-store payload shape.
func (r *RMARecord) Payload() domain.JSONMap {
	b, _ := json.Marshal(r)
	var m domain.JSONMap
	_ = json.Unmarshal(b, &m)
	return m
}

// RMARecordFromPayload reconstructs a record from a raw-store payload.
func RMARecordFromPayload(m domain.JSONMap) (*RMARecord, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var r RMARecord
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EDM XML wire types. Namespaces are matched explicitly; RMA records reference
// agents and concepts either inline or indirectly via rdf:resource.

type oaiEnvelope struct {
	XMLName   xml.Name `xml:"http://www.openarchives.org/OAI/2.0/ OAI-PMH"`
	GetRecord struct {
		Record struct {
			Metadata struct {
				RDF edmRDF `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
			} `xml:"metadata"`
		} `xml:"record"`
	} `xml:"GetRecord"`
}

type edmRDF struct {
	ProvidedCHO  *edmProvidedCHO  `xml:"http://www.europeana.eu/schemas/edm/ ProvidedCHO"`
	Aggregation  *edmAggregation  `xml:"http://www.openarchives.org/ore/terms/ Aggregation"`
	Concepts     []edmLabeledNode `xml:"http://www.w3.org/2004/02/skos/core# Concept"`
	Agents       []edmLabeledNode `xml:"http://www.europeana.eu/schemas/edm/ Agent"`
	Descriptions []edmLabeledNode `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type edmProvidedCHO struct {
	About      string         `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# about,attr"`
	Identifier string         `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Titles     []edmLangText  `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators   []edmCreator   `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Created    []edmLangText  `xml:"http://purl.org/dc/terms/ created"`
	Rights     []edmReference `xml:"http://purl.org/dc/elements/1.1/ rights"`
	Types      []edmTypeRef   `xml:"http://purl.org/dc/elements/1.1/ type"`
}

type edmAggregation struct {
	IsShownBy     *edmWebResourceRef  `xml:"http://www.europeana.eu/schemas/edm/ isShownBy"`
	Objects       []edmWebResourceRef `xml:"http://www.europeana.eu/schemas/edm/ object"`
	AggregatedCHO *struct {
		ProvidedCHO *edmProvidedCHO `xml:"http://www.europeana.eu/schemas/edm/ ProvidedCHO"`
	} `xml:"http://www.europeana.eu/schemas/edm/ aggregatedCHO"`
}

type edmLangText struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Text string `xml:",chardata"`
}

type edmReference struct {
	Resource string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# resource,attr"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Text     string `xml:",chardata"`
}

type edmCreator struct {
	Resource    string          `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# resource,attr"`
	Agent       *edmLabeledNode `xml:"http://www.europeana.eu/schemas/edm/ Agent"`
	Description *edmLabeledNode `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
	Text        string          `xml:",chardata"`
}

type edmTypeRef struct {
	Resource string          `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# resource,attr"`
	Concept  *edmLabeledNode `xml:"http://www.w3.org/2004/02/skos/core# Concept"`
}

type edmLabeledNode struct {
	About      string        `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# about,attr"`
	PrefLabels []edmLangText `xml:"http://www.w3.org/2004/02/skos/core# prefLabel"`
}

type edmWebResourceRef struct {
	Resource    string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# resource,attr"`
	WebResource *struct {
		About string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# about,attr"`
	} `xml:"http://www.europeana.eu/schemas/edm/ WebResource"`
}

// ParseRMARecord parses one OAI-PMH GetRecord response into a normalized
// record. Returns nil when the envelope carries no ProvidedCHO.
func ParseRMARecord(data []byte) (*RMARecord, error) {
	var env oaiEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse OAI-PMH record: %w", err)
	}

	rdf := env.GetRecord.Record.Metadata.RDF
	cho := rdf.providedCHO()
	if cho == nil {
		return nil, nil
	}

	record := &RMARecord{
		Identifier: strings.TrimSpace(cho.Identifier),
		Title:      preferredText(cho.Titles),
		Created:    preferredText(cho.Created),
		Rights:     pickRights(cho.Rights),
		ImageURL:   rdf.imageURL(),
	}

	for _, creator := range cho.Creators {
		if name := rdf.creatorName(creator); name != "" {
			record.Artists = append(record.Artists, name)
		}
	}

	for _, typeRef := range cho.Types {
		if label := rdf.conceptLabel(typeRef); label != "" {
			record.WorkTypes = append(record.WorkTypes, label)
		}
	}

	return record, nil
}

// providedCHO finds the ProvidedCHO at either of the two places RMA records
// put it.
func (r *edmRDF) providedCHO() *edmProvidedCHO {
	if r.Aggregation != nil && r.Aggregation.AggregatedCHO != nil && r.Aggregation.AggregatedCHO.ProvidedCHO != nil {
		return r.Aggregation.AggregatedCHO.ProvidedCHO
	}
	return r.ProvidedCHO
}

// imageURL resolves the artwork image: edm:isShownBy first, edm:object as
// fallback. Only https JPEG URLs are accepted.
func (r *edmRDF) imageURL() string {
	if r.Aggregation == nil {
		return ""
	}
	if url := webResourceURL(r.Aggregation.IsShownBy); validImageURL(url) {
		return url
	}
	for i := range r.Aggregation.Objects {
		if url := webResourceURL(&r.Aggregation.Objects[i]); validImageURL(url) {
			return url
		}
	}
	return ""
}

func webResourceURL(ref *edmWebResourceRef) string {
	if ref == nil {
		return ""
	}
	if ref.WebResource != nil && ref.WebResource.About != "" {
		return ref.WebResource.About
	}
	return ref.Resource
}

func validImageURL(url string) bool {
	return strings.HasPrefix(url, "https://") && strings.HasSuffix(url, ".jpg")
}

// creatorName resolves one dc:creator to an artist name: inline agent or
// description node, an rdf:resource reference into the record's agent list,
// or a plain string.
func (r *edmRDF) creatorName(creator edmCreator) string {
	if creator.Agent != nil {
		return preferredText(creator.Agent.PrefLabels)
	}
	if creator.Description != nil {
		return preferredText(creator.Description.PrefLabels)
	}
	if creator.Resource != "" {
		return r.resolveLabel(creator.Resource)
	}
	return strings.TrimSpace(creator.Text)
}

// resolveLabel looks up an rdf:about reference among the record's agents and
// descriptions.
func (r *edmRDF) resolveLabel(ref string) string {
	for i := range r.Agents {
		if r.Agents[i].About == ref {
			return preferredText(r.Agents[i].PrefLabels)
		}
	}
	for i := range r.Descriptions {
		if r.Descriptions[i].About == ref {
			return preferredText(r.Descriptions[i].PrefLabels)
		}
	}
	return ""
}

// conceptLabel resolves one dc:type to a work-type label: inline skos:Concept
// or an rdf:resource reference into the record's concept list.
func (r *edmRDF) conceptLabel(typeRef edmTypeRef) string {
	if typeRef.Concept != nil {
		return preferredText(typeRef.Concept.PrefLabels)
	}
	if typeRef.Resource != "" {
		for i := range r.Concepts {
			if r.Concepts[i].About == typeRef.Resource {
				return preferredText(r.Concepts[i].PrefLabels)
			}
		}
	}
	return ""
}

// preferredText selects a language-tagged text: English first, Dutch second,
// then whatever comes first.
func preferredText(texts []edmLangText) string {
	for _, t := range texts {
		if t.Lang == "en" && strings.TrimSpace(t.Text) != "" {
			return strings.TrimSpace(t.Text)
		}
	}
	for _, t := range texts {
		if t.Lang == "nl" && strings.TrimSpace(t.Text) != "" {
			return strings.TrimSpace(t.Text)
		}
	}
	for _, t := range texts {
		if strings.TrimSpace(t.Text) != "" {
			return strings.TrimSpace(t.Text)
		}
	}
	return ""
}

// pickRights prefers an rdf:resource rights URI; text entries (English first)
// are the fallback.
func pickRights(rights []edmReference) string {
	for _, r := range rights {
		if r.Resource != "" {
			return r.Resource
		}
	}
	for _, r := range rights {
		if r.Lang == "en" && strings.TrimSpace(r.Text) != "" {
			return strings.TrimSpace(r.Text)
		}
	}
	for _, r := range rights {
		if strings.TrimSpace(r.Text) != "" {
			return strings.TrimSpace(r.Text)
		}
	}
	return ""
}
