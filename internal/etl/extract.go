package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/museum"
	"github.com/mbruun/artsearch/internal/repository"
)

// defaultFreshnessWindow is how long a per-object fetch stays fresh before
// the extractor will re-download it. Catalogue-style sources require one HTTP
// request per object, so re-fetching everything on every run is prohibitive.
const defaultFreshnessWindow = 30 * 24 * time.Hour

// ExtractOptions tunes an extraction run.
type ExtractOptions struct {
	// MaxPages caps the number of pages fetched per museum; 0 means no cap.
	MaxPages int

	// PageDelay is slept between page fetches to stay polite towards
	// museum APIs.
	PageDelay time.Duration

	// RequestDelay is slept between per-object fetches for catalogue-style
	// sources.
	RequestDelay time.Duration

	// Force re-fetches objects even when a fresh raw record already exists.
	// Only meaningful for catalogue-style sources.
	Force bool

	// FreshnessWindow overrides the default per-object freshness window.
	FreshnessWindow time.Duration
}

func (o ExtractOptions) freshnessWindow() time.Duration {
	if o.FreshnessWindow > 0 {
		return o.FreshnessWindow
	}
	return defaultFreshnessWindow
}

// Extractor pulls artwork records from museum APIs into the raw store. Raw
// payloads are stored as delivered; all interpretation happens in the
// transform stage so a parsing change never requires re-downloading.
type Extractor struct {
	raws     *repository.RawRepository
	registry museum.Registry
}

// NewExtractor creates an Extractor.
// Parameters:
//   - raws: raw record repository to write into.
//   - registry: museum clients to extract from.
// Returns:
//   - *Extractor: extractor instance.
func NewExtractor(raws *repository.RawRepository, registry museum.Registry) *Extractor {
	return &Extractor{raws: raws, registry: registry}
}

// Run extracts records from one museum, or from every supported museum when
// museumSlug is empty. A fetch failure aborts the current museum's run; the
// report returned alongside the error reflects what was persisted before the
// failure.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - opts: run options.
// Returns:
//   - *Report: per-record outcome counts.
//   - error: non-nil if any museum's run fails.
func (e *Extractor) Run(ctx context.Context, museumSlug string, opts ExtractOptions) (*Report, error) {
	ctx = logger.SetStage(ctx, "extract")

	slugs := e.registry.Slugs()
	if museumSlug != "" {
		if e.registry.Get(museumSlug) == nil {
			return &Report{}, fmt.Errorf("unsupported museum: %s", museumSlug)
		}
		slugs = []string{museumSlug}
	}

	report := &Report{}
	for _, slug := range slugs {
		if err := e.runMuseum(ctx, e.registry.Get(slug), opts, report); err != nil {
			return report, fmt.Errorf("extraction from %s failed: %w", slug, err)
		}
	}
	return report, nil
}

func (e *Extractor) runMuseum(ctx context.Context, client museum.Client, opts ExtractOptions, report *Report) error {
	ctx = logger.SetMuseum(ctx, client.Slug())
	log := logger.FromContext(ctx)

	// Seen object numbers for this run. Sources that do not guarantee
	// unique object numbers can return the same number for two distinct
	// records; the first occurrence wins and later ones are skipped.
	var seen map[string]string
	if !client.UniqueObjectNumbers() {
		seen = make(map[string]string)
	}

	if lister, ok := client.(museum.ObjectLister); ok {
		return e.runCatalogue(ctx, lister, opts, seen, report)
	}

	cursor := ""
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := client.FetchPage(ctx, cursor)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		pages++

		for i := range page.Items {
			e.storeItem(ctx, client.Slug(), &page.Items[i], seen, report)
		}
		report.Rejected += page.Filtered

		log.WithFields(map[string]interface{}{
			"page":            pages,
			logger.FieldCount: len(page.Items),
			"total":           page.Total,
			"created":         report.Created,
			"updated":         report.Updated,
		}).Info("Extracted page")

		if page.NextCursor == "" {
			break
		}
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			log.WithField("pages", pages).Info("Page cap reached, stopping")
			break
		}
		cursor = page.NextCursor

		if opts.PageDelay > 0 {
			select {
			case <-time.After(opts.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"created":  report.Created,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
		"rejected": report.Rejected,
	}).Info("Extraction complete")
	return nil
}

// runCatalogue extracts from a source that exposes an object-ID catalogue
// instead of a paged listing. Objects fetched within the freshness window are
// skipped unless the run is forced.
func (e *Extractor) runCatalogue(ctx context.Context, client museum.ObjectLister, opts ExtractOptions, seen map[string]string, report *Report) error {
	log := logger.FromContext(ctx)

	ids, err := client.ListObjectIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list object IDs: %w", err)
	}
	log.WithField(logger.FieldCount, len(ids)).Info("Listed catalogue objects")

	window := opts.freshnessWindow()
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !opts.Force {
			fresh, err := e.freshByID(ctx, client.Slug(), id, window)
			if err != nil {
				return err
			}
			if fresh {
				report.Skipped++
				continue
			}
		}

		item, err := client.FetchObject(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch object %s: %w", id, err)
		}
		if item == nil {
			report.Rejected++
			continue
		}
		e.storeItem(ctx, client.Slug(), item, seen, report)

		if (i+1)%100 == 0 {
			log.WithFields(map[string]interface{}{
				"processed": i + 1,
				"created":   report.Created,
				"updated":   report.Updated,
				"skipped":   report.Skipped,
			}).Info("Catalogue extraction progress")
		}

		if opts.RequestDelay > 0 {
			select {
			case <-time.After(opts.RequestDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"created":  report.Created,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
		"rejected": report.Rejected,
	}).Info("Extraction complete")
	return nil
}

// freshByID reports whether the object was fetched within the window. The
// raw store is keyed by object number, which for catalogue sources equals
// neither the catalogue ID nor anything knowable before fetching; freshness
// is therefore checked against the museum-internal database ID instead.
func (e *Extractor) freshByID(ctx context.Context, slug, museumDBID string, window time.Duration) (bool, error) {
	return e.raws.RecentlyFetchedByDBID(ctx, slug, museumDBID, window)
}

func (e *Extractor) storeItem(ctx context.Context, slug string, item *museum.RawItem, seen map[string]string, report *Report) {
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		logger.FieldObjectNumber: item.ObjectNumber,
	})

	if item.ObjectNumber == "" {
		report.Rejected++
		return
	}

	if seen != nil {
		if prior, ok := seen[item.ObjectNumber]; ok {
			if prior != item.MuseumDBID {
				log.WithField("museum_db_id", item.MuseumDBID).Debug("Duplicate object number, keeping first occurrence")
				report.Skipped++
				return
			}
		} else {
			seen[item.ObjectNumber] = item.MuseumDBID
		}
	}

	raw := &domain.ArtworkRaw{
		MuseumSlug:   slug,
		ObjectNumber: item.ObjectNumber,
		MuseumDBID:   item.MuseumDBID,
		Payload:      item.Payload,
	}
	outcome, err := e.raws.Upsert(ctx, raw)
	if err != nil {
		log.WithField("error", err.Error()).Error("Raw upsert failed")
		report.Failed++
		return
	}
	switch outcome {
	case repository.OutcomeCreated:
		report.Succeeded++
		report.Created++
	case repository.OutcomeUpdated:
		report.Succeeded++
		report.Updated++
	case repository.OutcomeSkipped:
		log.Debug("Object number already stored for a different record")
		report.Skipped++
	}
}
