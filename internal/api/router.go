package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbruun/artsearch/internal/api/handler"
	"github.com/mbruun/artsearch/internal/api/middleware"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/repository"
	"github.com/mbruun/artsearch/internal/service"
)

// RouterConfig holds dependencies and settings for the HTTP router.
type RouterConfig struct {
	SearchService *service.SearchService
	DB            *gorm.DB
	QdrantRepo    *repository.QdrantRepository
	Logger        *logger.Logger
	Mode          string
	CORS          middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.QdrantRepo)
	searchHandler := handler.NewSearchHandler(cfg.SearchService)
	artworkHandler := handler.NewArtworkHandler(cfg.SearchService)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/search", searchHandler.TextSearch)
		v1.GET("/artworks/:museum/:objectNumber", artworkHandler.GetArtwork)
		v1.GET("/stats", searchHandler.GetStats)
	}

	return r
}
