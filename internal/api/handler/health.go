package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbruun/artsearch/internal/repository"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db         *gorm.DB
	qdrantRepo *repository.QdrantRepository
}

// NewHealthHandler creates a new health handler.
// Parameters:
//   - db: GORM database handle for connectivity checks.
//   - qdrantRepo: Qdrant repository for collection checks; may be nil.
// Returns:
//   - *HealthHandler: initialized handler.
func NewHealthHandler(db *gorm.DB, qdrantRepo *repository.QdrantRepository) *HealthHandler {
	return &HealthHandler{db: db, qdrantRepo: qdrantRepo}
}

// Health returns the health status of the service and its dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	result := gin.H{"status": "ok"}

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = err.Error()
	}
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
		result["status"] = "degraded"
	}
	result["database"] = dbStatus

	if h.qdrantRepo != nil {
		if points, err := h.qdrantRepo.Count(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			result["status"] = "degraded"
			result["index"] = err.Error()
		} else {
			result["index"] = "ok"
			result["index_points"] = points
		}
	}

	c.JSON(status, result)
}
