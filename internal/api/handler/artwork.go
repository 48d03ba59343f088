package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbruun/artsearch/internal/service"
)

// ArtworkHandler handles artwork-related endpoints.
type ArtworkHandler struct {
	searchService *service.SearchService
}

// NewArtworkHandler creates a new artwork handler.
// Parameters:
//   - searchService: search service instance.
// Returns:
//   - *ArtworkHandler: initialized handler.
func NewArtworkHandler(searchService *service.SearchService) *ArtworkHandler {
	return &ArtworkHandler{
		searchService: searchService,
	}
}

// GetArtwork handles GET /api/v1/artworks/:museum/:objectNumber.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ArtworkHandler) GetArtwork(c *gin.Context) {
	museum := c.Param("museum")
	objectNumber := c.Param("objectNumber")
	if museum == "" || objectNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Museum and object number are required",
		})
		return
	}

	artwork, err := h.searchService.GetArtwork(c.Request.Context(), museum, objectNumber)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Artwork not found",
		})
		return
	}

	c.JSON(http.StatusOK, artwork)
}
