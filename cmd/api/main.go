package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbruun/artsearch/internal/api"
	"github.com/mbruun/artsearch/internal/api/middleware"
	"github.com/mbruun/artsearch/internal/config"
	"github.com/mbruun/artsearch/internal/embedder"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/repository"
	"github.com/mbruun/artsearch/internal/service"
	"github.com/mbruun/artsearch/internal/storage"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH overrides the default search locations in deployments.
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	artworkRepo := repository.NewArtworkRepository(db)
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		Collection: cfg.Qdrant.Collection,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	embedders := embedder.NewRegistry(
		&embedder.CLIPConfig{BaseURL: cfg.CLIP.BaseURL},
		&embedder.JinaConfig{
			APIKey:     cfg.Jina.APIKey,
			Model:      cfg.Jina.Model,
			Dimensions: cfg.Jina.Dimensions,
		},
	)

	searchService := service.NewSearchService(
		artworkRepo,
		qdrantRepo,
		embedders,
		objectStorage,
		appLogger,
		&service.SearchConfig{
			ScoreThreshold: cfg.Search.ScoreThreshold,
			DefaultModel:   cfg.Search.DefaultModel,
		},
	)

	router := api.SetupRouter(&api.RouterConfig{
		SearchService: searchService,
		DB:            db,
		QdrantRepo:    qdrantRepo,
		Logger:        appLogger,
		Mode:          cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
