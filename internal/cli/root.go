// Package cli implements the pipeline command-line interface. Each stage is
// an independent subcommand; there is no cross-stage orchestration, a failed
// stage is re-run on its own.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mbruun/artsearch/internal/config"
	"github.com/mbruun/artsearch/internal/domain"
	"github.com/mbruun/artsearch/internal/etl"
	"github.com/mbruun/artsearch/internal/logger"
	"github.com/mbruun/artsearch/internal/museum"
	"github.com/mbruun/artsearch/internal/repository"
	"github.com/mbruun/artsearch/internal/storage"
)

// stageFlags are the options shared by the batch-driven stage commands.
type stageFlags struct {
	museum      string
	batchSize   int
	maxBatches  int
	delay       float64
	batchDelay  int
	dryRun      bool
	force       bool
	retryFailed bool
}

func (f *stageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.museum, "museum", "m", "", "museum slug to process; empty means all")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "records per batch (default from config)")
	cmd.Flags().IntVar(&f.maxBatches, "max-batches", 0, "stop after this many batches; 0 means run to completion")
	cmd.Flags().Float64Var(&f.delay, "delay", -1, "seconds between records (default from config)")
	cmd.Flags().IntVar(&f.batchDelay, "batch-delay", -1, "seconds between batches (default from config)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "list what would be processed without doing it")
	cmd.Flags().BoolVar(&f.force, "force", false, "reset state flags first and process everything again")
	cmd.Flags().BoolVar(&f.retryFailed, "retry-failed", false, "process only records whose previous attempt failed")
}

// loadOptions folds flags and config defaults into stage options.
func (f *stageFlags) loadOptions(cfg *config.Config) etl.LoadOptions {
	opts := etl.LoadOptions{
		BatchSize:   cfg.ETL.BatchSize,
		MaxBatches:  f.maxBatches,
		RecordDelay: time.Duration(cfg.ETL.Delay * float64(time.Second)),
		BatchDelay:  time.Duration(cfg.ETL.BatchDelay) * time.Second,
		DryRun:      f.dryRun,
		Force:       f.force,
		RetryFailed: f.retryFailed,
	}
	if f.batchSize > 0 {
		opts.BatchSize = f.batchSize
	}
	if f.delay >= 0 {
		opts.RecordDelay = time.Duration(f.delay * float64(time.Second))
	}
	if f.batchDelay >= 0 {
		opts.BatchDelay = time.Duration(f.batchDelay) * time.Second
	}
	return opts
}

// app holds dependencies built once per invocation.
type app struct {
	configPath string

	cfg *config.Config
	db  *gorm.DB
	log *logger.Logger
}

// setup loads configuration and opens the database. Called from every
// subcommand's RunE so `--help` never needs a working environment.
func (a *app) setup() error {
	a.log = logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "artsearch-etl",
	})
	logger.SetDefaultLogger(a.log)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	return nil
}

func (a *app) rawRepo() *repository.RawRepository {
	return repository.NewRawRepository(a.db)
}

func (a *app) artworkRepo() *repository.ArtworkRepository {
	return repository.NewArtworkRepository(a.db)
}

func (a *app) qdrantRepo() (*repository.QdrantRepository, error) {
	return repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:       a.cfg.Qdrant.Host,
		Port:       a.cfg.Qdrant.Port,
		Collection: a.cfg.Qdrant.Collection,
		APIKey:     a.cfg.Qdrant.APIKey,
		UseTLS:     a.cfg.Qdrant.UseTLS,
	})
}

func (a *app) objectStorage() (storage.ObjectStorage, error) {
	return storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(a.cfg.Storage.Type),
		Endpoint:  a.cfg.Storage.Endpoint,
		AccessKey: a.cfg.Storage.AccessKey,
		SecretKey: a.cfg.Storage.SecretKey,
		UseSSL:    a.cfg.Storage.UseSSL,
		Bucket:    a.cfg.Storage.Bucket,
		Region:    a.cfg.Storage.Region,
		PublicURL: a.cfg.Storage.PublicURL,
	})
}

func (a *app) museumRegistry() museum.Registry {
	return museum.NewRegistry()
}

// activeVectorTypes parses the configured active vector types.
func (a *app) activeVectorTypes() ([]domain.VectorType, error) {
	types := make([]domain.VectorType, 0, len(a.cfg.ETL.ActiveVectorTypes))
	for _, name := range a.cfg.ETL.ActiveVectorTypes {
		vt, err := domain.ParseVectorType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, vt)
	}
	return types, nil
}

// runContext tags the command's context with a fresh run ID so every log
// line from one pipeline invocation can be correlated.
func runContext(cmd *cobra.Command) context.Context {
	return logger.SetRunID(cmd.Context(), uuid.NewString())
}

// printReport writes the stage's outcome counts to stdout.
func printReport(cmd *cobra.Command, report *etl.Report) {
	if report == nil {
		return
	}
	cmd.Printf("succeeded: %d (created %d, updated %d)\n", report.Succeeded, report.Created, report.Updated)
	cmd.Printf("skipped:   %d\n", report.Skipped)
	cmd.Printf("rejected:  %d\n", report.Rejected)
	cmd.Printf("failed:    %d\n", report.Failed)
}

// NewRootCommand builds the pipeline CLI.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "artsearch-etl",
		Short:         "Harvest museum collections into a semantic search index",
		Long:          "artsearch-etl runs the artwork pipeline stage by stage: extract museum API records, transform them into standardized artworks, load thumbnails into object storage, and load embeddings into the vector index.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")

	root.AddCommand(
		newExtractCommand(a),
		newTransformCommand(a),
		newLoadImagesCommand(a),
		newLoadEmbeddingsCommand(a),
		newStatusCommand(a),
	)
	return root
}
