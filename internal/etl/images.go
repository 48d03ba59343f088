package etl

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/go-resty/resty/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/repository"
	"github.com/mbruun/artsearch/internal/storage"
)

// thumbnailCacheControl is set on every stored thumbnail: 30 days, matching
// how often upstream collections realistically change imagery.
const thumbnailCacheControl = "max-age=2592000"

// LoadOptions tunes an image or embedding load run.
type LoadOptions struct {
	// BatchSize is the number of candidates selected per database query.
	BatchSize int

	// MaxBatches caps the number of batches processed; 0 means run until no
	// candidates remain.
	MaxBatches int

	// RecordDelay is slept between records.
	RecordDelay time.Duration

	// BatchDelay is slept between batches.
	BatchDelay time.Duration

	// DryRun lists what would be processed without performing any work.
	DryRun bool

	// Force resets state flags first so every record is processed again.
	Force bool

	// RetryFailed selects records whose previous attempt failed instead of
	// fresh ones.
	RetryFailed bool
}

func (o LoadOptions) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 100
}

// batchProgress counts records a batch removed from the candidate selection.
// Normal runs deselect on success or failure; retry-failed runs keep failing
// records selected, so only successes count there.
func batchProgress(report *Report, retryFailed bool) int {
	if retryFailed {
		return report.Succeeded
	}
	return report.Succeeded + report.Failed
}

// ImageLoader downloads artwork thumbnails, normalizes them, and stores them
// in object storage. A record is only marked loaded after a successful store,
// so an interrupted run resumes exactly where it stopped.
type ImageLoader struct {
	artworks     *repository.ArtworkRepository
	store        storage.ObjectStorage
	client       *resty.Client
	maxDimension int
	jpegQuality  int
}

// NewImageLoader creates an ImageLoader.
// Parameters:
//   - artworks: artwork repository to select candidates from.
//   - store: object storage for processed thumbnails.
//   - maxDimension: longest-edge pixel bound for stored thumbnails.
//   - jpegQuality: JPEG encode quality (1-100).
// Returns:
//   - *ImageLoader: loader instance.
func NewImageLoader(artworks *repository.ArtworkRepository, store storage.ObjectStorage, maxDimension, jpegQuality int) *ImageLoader {
	if maxDimension <= 0 {
		maxDimension = 800
	}
	if jpegQuality <= 0 {
		jpegQuality = 85
	}
	return &ImageLoader{
		artworks:     artworks,
		store:        store,
		client:       newDownloadClient(),
		maxDimension: maxDimension,
		jpegQuality:  jpegQuality,
	}
}

func newDownloadClient() *resty.Client {
	return resty.New().
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
}

// Run processes image-load candidates in batches until none remain or the
// batch cap is reached.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier; empty means all museums.
//   - opts: run options.
// Returns:
//   - *Report: per-record outcome counts.
//   - error: non-nil only on infrastructure failure.
func (l *ImageLoader) Run(ctx context.Context, museumSlug string, opts LoadOptions) (*Report, error) {
	ctx = logger.SetStage(ctx, "load-images")
	if museumSlug != "" {
		ctx = logger.SetMuseum(ctx, museumSlug)
	}
	log := logger.FromContext(ctx)

	report := &Report{}

	if opts.Force && !opts.DryRun {
		reset, err := l.artworks.ResetImageFlags(ctx, museumSlug)
		if err != nil {
			return report, fmt.Errorf("failed to reset image flags: %w", err)
		}
		log.WithField(logger.FieldCount, reset).Info("Reset image flags for forced run")
	}

	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		candidates, err := l.artworks.ListImageCandidates(ctx, museumSlug, opts.RetryFailed, opts.batchSize())
		if err != nil {
			return report, fmt.Errorf("failed to list image candidates: %w", err)
		}
		if len(candidates) == 0 {
			break
		}
		batches++

		if opts.DryRun {
			for i := range candidates {
				log.WithFields(map[string]interface{}{
					logger.FieldMuseum:       candidates[i].MuseumSlug,
					logger.FieldObjectNumber: candidates[i].ObjectNumber,
				}).Info("Would load image")
			}
			report.Skipped += len(candidates)
			break
		}

		before := batchProgress(report, opts.RetryFailed)
		for i := range candidates {
			l.loadOne(ctx, &candidates[i], report)

			if opts.RecordDelay > 0 {
				select {
				case <-time.After(opts.RecordDelay):
				case <-ctx.Done():
					return report, ctx.Err()
				}
			}
		}

		log.WithFields(map[string]interface{}{
			"batch":     batches,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
		}).Info("Image batch complete")

		// A batch that removed nothing from the selection would be
		// re-selected forever.
		if batchProgress(report, opts.RetryFailed) == before {
			break
		}
		if opts.MaxBatches > 0 && batches >= opts.MaxBatches {
			break
		}

		if opts.BatchDelay > 0 {
			select {
			case <-time.After(opts.BatchDelay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Image load complete")
	return report, nil
}

func (l *ImageLoader) loadOne(ctx context.Context, artwork *domain.Artwork, report *Report) {
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		logger.FieldMuseum:       artwork.MuseumSlug,
		logger.FieldObjectNumber: artwork.ObjectNumber,
	})

	processed, err := l.fetchAndProcess(ctx, artwork.ThumbnailURL)
	if err == nil {
		err = l.store.Upload(ctx, artwork.StorageKey(), bytes.NewReader(processed), int64(len(processed)), "image/jpeg", thumbnailCacheControl)
	}
	if err != nil {
		log.WithField("error", err.Error()).Warn("Image load failed")
		artwork.ImageLoadFailed = true
		if uerr := l.artworks.Update(ctx, artwork); uerr != nil {
			log.WithField("error", uerr.Error()).Error("Failed to mark image load failure")
		}
		report.Failed++
		return
	}

	artwork.ImageLoaded = true
	artwork.ImageLoadFailed = false
	if err := l.artworks.Update(ctx, artwork); err != nil {
		log.WithField("error", err.Error()).Error("Failed to mark image loaded")
		report.Failed++
		return
	}
	report.Succeeded++
}

// fetchAndProcess downloads the thumbnail and re-encodes it as a bounded
// JPEG.
func (l *ImageLoader) fetchAndProcess(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("no thumbnail URL")
	}

	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode())
	}
	contentType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}

	return normalizeImage(resp.Body(), l.maxDimension, l.jpegQuality)
}

// normalizeImage decodes an image in any supported format, scales it down so
// its longest edge is at most maxDimension, and encodes it as JPEG. Images
// already within bounds are re-encoded without scaling.
func normalizeImage(data []byte, maxDimension, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxDimension || height > maxDimension {
		if width >= height {
			height = height * maxDimension / width
			width = maxDimension
		} else {
			width = width * maxDimension / height
			height = maxDimension
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
