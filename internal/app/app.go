// Package app assembles the store, archiver, classifier and ingestor from a
// Config. The binaries under cmd/ share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-tracker/internal/classifier"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/gcsuploader"
	"github.com/dvloznov/budget-tracker/internal/infra/bigquery"
	"github.com/dvloznov/budget-tracker/internal/infra/memory"
	"github.com/dvloznov/budget-tracker/internal/infra/mysql"
	"github.com/dvloznov/budget-tracker/internal/infra/postgres"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
	"github.com/dvloznov/budget-tracker/internal/report"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// App holds the wired service components.
type App struct {
	Repo     store.Repository
	Bucket   *gcsuploader.Bucket
	Ingestor *pipeline.Ingestor
	Reports  *report.Reader
}

// New opens the configured backend and builds the ingestor on top of it.
// Optional parts (archival, classification) stay off when unconfigured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	repo, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Repo: repo, Reports: report.NewReader(repo)}

	ingestCfg := pipeline.IngestorConfig{FallbackCategories: cfg.FallbackCategories}
	if cfg.GCSBucket != "" {
		bucket, err := gcsuploader.NewBucket(ctx, cfg.GCSBucket)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Bucket = bucket
		ingestCfg.Archiver = bucket
	} else {
		log.Warn().Msg("No GCS bucket configured - raw uploads will not be archived")
	}

	var c pipeline.Classifier
	if cfg.GeminiAPIKey != "" {
		g, err := classifier.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		c = g
	} else {
		log.Warn().Msg("No GEMINI_API_KEY configured - inferred mode will use fallback categories")
	}

	a.Ingestor = pipeline.NewIngestor(repo, pipeline.NewResolver(c, cfg.ClassifyTimeout), ingestCfg)
	return a, nil
}

// OpenStore connects the backend named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	log := logger.FromContext(ctx)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store - data is lost on exit")
		return memory.NewStore(), nil
	case config.BackendPostgres:
		s, err := postgres.New(ctx, postgres.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDB,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			SSLMode:  cfg.PostgresSSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.BackendMySQL:
		s, err := mysql.New(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.BackendBigQuery:
		s, err := bigquery.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown backend %q", cfg.StoreBackend)
	}
}

// Close releases the store and the storage client.
func (a *App) Close() error {
	var errs []error
	if a.Bucket != nil {
		errs = append(errs, a.Bucket.Close())
	}
	if a.Repo != nil {
		errs = append(errs, a.Repo.Close())
	}
	return errors.Join(errs...)
}
