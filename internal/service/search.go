package service

import (
	"context"
	"fmt"

	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/embedder"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/repository"
	"github.com/mbruun/artsearch/internal/storage"
)

// SearchConfig holds configuration for the search service.
type SearchConfig struct {
	ScoreThreshold float32
	DefaultModel   string // "clip" or "jina"
}

// SearchService answers text queries against the artwork vector index. The
// query text is embedded with the chosen model's text encoder and matched
// against the image vectors of the same model, so results are ranked by
// how well each artwork's image matches the query.
type SearchService struct {
	artworkRepo    *repository.ArtworkRepository
	qdrantRepo     *repository.QdrantRepository
	embedders      embedder.Registry
	storage        storage.ObjectStorage
	logger         *logger.Logger
	scoreThreshold float32
	defaultModel   string
}

// NewSearchService creates a new search service.
// Parameters:
//   - artworkRepo: repository for artwork records.
//   - qdrantRepo: Qdrant repository for vector search.
//   - embedders: embedder registry for query embedding.
//   - objectStorage: object storage client for thumbnail URL generation.
//   - log: logger instance.
//   - cfg: search configuration settings.
//
// Returns:
//   - *SearchService: initialized search service.
func NewSearchService(
	artworkRepo *repository.ArtworkRepository,
	qdrantRepo *repository.QdrantRepository,
	embedders embedder.Registry,
	objectStorage storage.ObjectStorage,
	log *logger.Logger,
	cfg *SearchConfig,
) *SearchService {
	var threshold float32
	defaultModel := "clip"
	if cfg != nil {
		threshold = cfg.ScoreThreshold
		if cfg.DefaultModel != "" {
			defaultModel = cfg.DefaultModel
		}
	}
	return &SearchService{
		artworkRepo:    artworkRepo,
		qdrantRepo:     qdrantRepo,
		embedders:      embedders,
		storage:        objectStorage,
		logger:         log,
		scoreThreshold: threshold,
		defaultModel:   defaultModel,
	}
}

// log returns a logger from context if available, otherwise the default logger.
func (s *SearchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// SearchRequest represents a text search request.
type SearchRequest struct {
	Query     string   `json:"query" binding:"required"`
	TopK      int      `json:"top_k"`
	Model     string   `json:"model,omitempty"` // "clip" or "jina"; empty uses the default
	Museums   []string `json:"museums,omitempty"`
	WorkTypes []string `json:"work_types,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Museum              string   `json:"museum"`
	ObjectNumber        string   `json:"object_number"`
	Score               float32  `json:"score"`
	Title               string   `json:"title"`
	Artists             []string `json:"artists"`
	WorkTypes           []string `json:"work_types"`
	SearchableWorkTypes []string `json:"searchable_work_types"`
	ProductionDateStart *int     `json:"production_date_start,omitempty"`
	ProductionDateEnd   *int     `json:"production_date_end,omitempty"`
	Period              string   `json:"period,omitempty"`
	ThumbnailURL        string   `json:"thumbnail_url"`
	FrontendURL         string   `json:"frontend_url,omitempty"`
}

// SearchResponse represents the search response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Query   string         `json:"query"`
	Model   string         `json:"model"`
}

// TextSearch embeds the query and performs similarity search against the
// chosen model's image vector space.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: search request parameters.
//
// Returns:
//   - *SearchResponse: search results and metadata.
//   - error: non-nil if search fails.
func (s *SearchService) TextSearch(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req.TopK <= 0 {
		req.TopK = 20
	}
	if req.TopK > 100 {
		req.TopK = 100
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	emb, err := s.embedders.ForModel(model)
	if err != nil {
		return nil, err
	}
	vectorType, err := domain.VectorTypeFor(model, true)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "search",
	})
	s.log(ctx).WithFields(logger.Fields{
		"query": req.Query,
		"model": model,
		"top_k": req.TopK,
	}).Info("Performing text search")

	queryVector, err := emb.EmbedText(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	var filters *repository.SearchFilters
	if len(req.Museums) > 0 || len(req.WorkTypes) > 0 {
		filters = &repository.SearchFilters{
			Museums:   req.Museums,
			WorkTypes: req.WorkTypes,
		}
	}

	qdrantResults, err := s.qdrantRepo.Search(ctx, vectorType, queryVector, req.TopK, s.scoreThreshold, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Qdrant: %w", err)
	}

	results := make([]SearchResult, 0, len(qdrantResults))
	for _, qr := range qdrantResults {
		if qr.Payload == nil {
			continue
		}
		results = append(results, SearchResult{
			Museum:              qr.Payload.Museum,
			ObjectNumber:        qr.Payload.ObjectNumber,
			Score:               qr.Score,
			Title:               qr.Payload.Title,
			Artists:             qr.Payload.Artists,
			WorkTypes:           qr.Payload.WorkTypes,
			SearchableWorkTypes: qr.Payload.SearchableWorkTypes,
			ProductionDateStart: qr.Payload.ProductionDateStart,
			ProductionDateEnd:   qr.Payload.ProductionDateEnd,
			Period:              qr.Payload.Period,
			ThumbnailURL:        s.thumbnailURL(qr.Payload),
			FrontendURL:         qr.Payload.FrontendURL,
		})
	}

	return &SearchResponse{
		Results: results,
		Total:   len(results),
		Query:   req.Query,
		Model:   model,
	}, nil
}

// thumbnailURL prefers the processed thumbnail in object storage and falls
// back to the museum's own URL.
func (s *SearchService) thumbnailURL(p *repository.ArtworkPayload) string {
	if s.storage != nil {
		if url := s.storage.GetURL(domain.StorageKey(p.Museum, p.ObjectNumber)); url != "" {
			return url
		}
	}
	return p.ThumbnailURL
}

// GetArtwork retrieves an artwork by museum slug and object number.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - museumSlug: museum identifier.
//   - objectNumber: museum-assigned object number.
//
// Returns:
//   - *domain.Artwork: artwork record if found.
//   - error: non-nil if lookup fails.
func (s *SearchService) GetArtwork(ctx context.Context, museumSlug, objectNumber string) (*domain.Artwork, error) {
	return s.artworkRepo.GetByMuseumObject(ctx, museumSlug, objectNumber)
}

// GetStats returns pipeline and index statistics.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - map[string]interface{}: aggregated stats.
//   - error: non-nil if statistics cannot be computed.
func (s *SearchService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	counts, err := s.artworkRepo.CountPipeline(ctx, "")
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"total_artworks": counts.Total,
		"images_loaded":  counts.ImagesLoaded,
		"vectors_loaded": counts.VectorsLoaded,
	}

	if points, err := s.qdrantRepo.Count(ctx); err != nil {
		s.log(ctx).WithField("error", err.Error()).Warn("Failed to count index points")
	} else {
		stats["index_points"] = points
	}

	return stats, nil
}
