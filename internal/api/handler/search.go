package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/service"
)

// SearchHandler handles search-related endpoints.
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searchService: search service instance.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// TextSearch handles GET /api/v1/search.
// Query parameters: q (required), top_k, model, museum (repeatable),
// work_type (repeatable).
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) TextSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	req := service.SearchRequest{
		Query:     query,
		Model:     c.Query("model"),
		Museums:   c.QueryArray("museum"),
		WorkTypes: c.QueryArray("work_type"),
	}
	if topK := c.Query("top_k"); topK != "" {
		if n, err := strconv.Atoi(topK); err == nil {
			req.TopK = n
		}
	}

	result, err := h.searchService.TextSearch(c.Request.Context(), &req)
	if err != nil {
		// The request ID lets a failure report be matched to its log lines.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Search failed: " + err.Error(),
			"request_id": logger.GetRequestID(c.Request.Context()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) GetStats(c *gin.Context) {
	stats, err := h.searchService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to get stats: " + err.Error(),
			"request_id": logger.GetRequestID(c.Request.Context()),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
