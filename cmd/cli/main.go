package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-tracker/internal/app"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/gcsuploader"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
	"github.com/dvloznov/budget-tracker/internal/report"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		runIngest(log)
	case "report":
		runReport(log)
	case "goal":
		runGoal(log)
	case "categories":
		runCategories(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Budget Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest      Ingest a CSV statement from a local file or GCS")
	fmt.Println("  report      Print a budget report as JSON")
	fmt.Println("  goal        Set a monthly budget goal for a category")
	fmt.Println("  categories  List the category taxonomy")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nThe store backend and credentials come from the environment (see .env).")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// setup loads configuration and wires the service. The caller closes the
// returned App.
func setup(log zerolog.Logger, envFile string) (context.Context, *app.App) {
	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.LogLevel != "" || cfg.LogFormat != "" {
		configured, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid logger configuration")
		}
		log = configured
	}

	ctx := logger.WithContext(context.Background(), log)
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to initialize service")
	}
	return ctx, a
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
		os.Exit(1)
	}
}

func runIngest(log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local CSV statement")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of a CSV statement (e.g. gs://bucket/file.csv)")
	mode := fs.String("mode", string(domain.ModeLabeled), "Analysis mode: labeled or inferred")
	userID := fs.String("user", "", "User ID owning the transactions")
	envFile := fs.String("env-file", ".env", "Optional .env file")
	fs.Parse(os.Args[2:])

	if *userID == "" || (*filePath == "") == (*gcsURI == "") {
		log.Fatal().Msg("Usage: cli ingest -user ID (-file PATH | -gcs-uri URI) [-mode labeled|inferred]")
	}
	analysisMode, err := domain.ParseMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid mode")
	}

	ctx, a := setup(log, *envFile)
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var content []byte
	var fileName string
	if *filePath != "" {
		fileName = filepath.Base(*filePath)
		if content, err = os.ReadFile(*filePath); err != nil {
			log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
		}
	} else {
		fileName = gcsuploader.ExtractFilenameFromGCSURI(*gcsURI)
		if content, err = fetchGCS(ctx, a, *gcsURI); err != nil {
			log.Fatal().Err(err).Str("gcs_uri", *gcsURI).Msg("Failed to fetch file")
		}
	}

	log.Info().Str("file_name", fileName).Str("mode", string(analysisMode)).Msg("Starting ingestion")

	summary, err := a.Ingestor.Ingest(ctx, pipeline.IngestRequest{
		UserID:   *userID,
		FileName: fileName,
		Content:  string(content),
		Mode:     analysisMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	printJSON(summary)
}

// fetchGCS reuses the archive bucket's client, or opens one for the URI's
// bucket when archival is not configured.
func fetchGCS(ctx context.Context, a *app.App, uri string) ([]byte, error) {
	if a.Bucket != nil {
		return a.Bucket.Fetch(ctx, uri)
	}
	bucket, _, err := gcsuploader.ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	b, err := gcsuploader.NewBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return b.Fetch(ctx, uri)
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kind := fs.String("kind", "budget", "Report kind: budget, overall or categories")
	userID := fs.String("user", "", "User ID")
	month := fs.String("month", "", "Month 1-12 (default: current)")
	year := fs.String("year", "", "Year (default: current)")
	envFile := fs.String("env-file", ".env", "Optional .env file")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	w, err := report.ParseWindow(*month, *year, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid window")
	}

	ctx, a := setup(log, *envFile)
	defer a.Close()

	switch *kind {
	case "budget":
		rows, err := a.Reports.CategoryBudgets(ctx, *userID, w)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build budget report")
		}
		printJSON(map[string]any{"window": w, "rows": rows})
	case "overall":
		row, err := a.Reports.Overall(ctx, *userID, w)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build overall report")
		}
		printJSON(row)
	case "categories":
		rows, err := a.Reports.CategoryTotals(ctx, *userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build category totals")
		}
		printJSON(map[string]any{"rows": rows})
	default:
		log.Fatal().Str("kind", *kind).Msg("Unknown report kind")
	}
}

func runGoal(log zerolog.Logger) {
	fs := flag.NewFlagSet("goal", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	categoryID := fs.String("category", "", "Category ID")
	month := fs.String("month", "", "Month 1-12 (default: current)")
	year := fs.String("year", "", "Year (default: current)")
	limit := fs.String("limit", "", "Monthly limit, e.g. 450.00")
	envFile := fs.String("env-file", ".env", "Optional .env file")
	fs.Parse(os.Args[2:])

	if *userID == "" || *categoryID == "" || *limit == "" {
		log.Fatal().Msg("Usage: cli goal -user ID -category ID -limit AMOUNT [-month M -year Y]")
	}
	w, err := report.ParseWindow(*month, *year, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid window")
	}
	amount, err := decimal.NewFromString(*limit)
	if err != nil {
		log.Fatal().Err(err).Str("limit", *limit).Msg("Invalid limit")
	}

	goal := domain.BudgetGoal{
		UserID:       *userID,
		CategoryID:   *categoryID,
		Month:        w.Month,
		Year:         w.Year,
		MonthlyLimit: amount,
	}
	if err := goal.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid goal")
	}

	ctx, a := setup(log, *envFile)
	defer a.Close()

	if err := a.Repo.UpsertGoal(ctx, goal); err != nil {
		log.Fatal().Err(err).Msg("Failed to save goal")
	}

	fmt.Printf("Goal for %s in %s set to %s\n", goal.CategoryID, w, goal.MonthlyLimit.StringFixed(2))
}

func runCategories(log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	envFile := fs.String("env-file", ".env", "Optional .env file")
	fs.Parse(os.Args[2:])

	ctx, a := setup(log, *envFile)
	defer a.Close()

	categories, err := a.Repo.ListCategories(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list categories")
	}

	fmt.Printf("\n=== Categories (%d) ===\n", len(categories))
	for _, c := range categories {
		fmt.Printf("  %-14s %-20s %s\n", c.ID, c.Name, c.Type)
	}
	fmt.Println()
}
