package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/budget-tracker/internal/app"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	filePath := flag.String("file", "", "Path to the CSV statement")
	userID := flag.String("user", "", "User ID owning the transactions")
	mode := flag.String("mode", string(domain.ModeLabeled), "Analysis mode: labeled or inferred")
	envFile := flag.String("env-file", ".env", "Optional .env file")
	flag.Parse()

	if *filePath == "" || *userID == "" {
		log.Fatal().Msg("Error: --file and --user are required")
	}
	analysisMode, err := domain.ParseMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid mode")
	}

	content, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize service")
	}
	defer a.Close()

	summary, err := a.Ingestor.Ingest(ctx, pipeline.IngestRequest{
		UserID:   *userID,
		FileName: filepath.Base(*filePath),
		Content:  string(content),
		Mode:     analysisMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("%d of %d transactions processed (%d failed).\n",
		summary.ProcessedCount, summary.TotalParsed, summary.FailedCount)
	if summary.DuplicateOf != "" {
		fmt.Printf("Warning: same file was already ingested as upload %s.\n", summary.DuplicateOf)
	}
}
