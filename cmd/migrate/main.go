package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	infraBQ "github.com/dvloznov/budget-tracker/internal/infra/bigquery"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

var (
	projectID = flag.String("project", "", "GCP project ID (required)")
	datasetID = flag.String("dataset", "budget", "BigQuery dataset ID")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	list      = flag.Bool("list", false, "Print the embedded migrations and exit")
)

func main() {
	flag.Parse()

	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ds := infraBQ.Dataset{ProjectID: *projectID, DatasetID: *datasetID}

	if *list {
		migrations, err := infraBQ.LoadMigrations(ds)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migrations")
		}
		for _, m := range migrations {
			fmt.Printf("%04d  %-30s  %s\n", m.Version, m.Name, m.Checksum[:12])
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()
	ds.Client = client

	log.Info().Str("project_id", *projectID).Str("dataset_id", *datasetID).Msg("Connected to BigQuery")

	applied, err := infraBQ.Migrate(ctx, ds, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
	}

	if applied == 0 {
		fmt.Println("No pending migrations. Database is up to date.")
		return
	}
	fmt.Printf("Successfully applied %d migration(s).\n", applied)
}
