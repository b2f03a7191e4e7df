// Package bigquery is the BigQuery store backend. Each repository method has
// a *WithClient twin so callers holding their own client can reuse it.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Table names inside the dataset.
const (
	categoriesTable   = "categories"
	transactionsTable = "transactions"
	goalsTable        = "budget_goals"
	uploadsTable      = "uploads"
)

// Dataset addresses the tables of one BigQuery dataset.
type Dataset struct {
	Client    *bigquery.Client
	ProjectID string
	DatasetID string
}

// table returns the fully qualified, backquoted name used in SQL.
func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// Store implements store.Repository with a shared BigQuery client.
type Store struct {
	ds Dataset
}

// New creates a BigQuery client for projectID and binds it to datasetID.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("bigquery.New: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.New: creating client: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("project_id", projectID).
		Str("dataset_id", datasetID).
		Msg("Connected to BigQuery")

	return &Store{ds: Dataset{Client: client, ProjectID: projectID, DatasetID: datasetID}}, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.ds.Client.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return ListCategoriesWithClient(ctx, s.ds)
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	return InsertTransactionWithClient(ctx, s.ds, tx)
}

func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, s.ds, userID, filter)
}

func (s *Store) ListGoals(ctx context.Context, userID string, month time.Month, year int) ([]domain.BudgetGoal, error) {
	return ListGoalsWithClient(ctx, s.ds, userID, month, year)
}

func (s *Store) UpsertGoal(ctx context.Context, goal domain.BudgetGoal) error {
	return UpsertGoalWithClient(ctx, s.ds, goal)
}

func (s *Store) InsertUpload(ctx context.Context, u *domain.Upload) error {
	return InsertUploadWithClient(ctx, s.ds, u)
}

func (s *Store) FinishUpload(ctx context.Context, u *domain.Upload) error {
	return FinishUploadWithClient(ctx, s.ds, u)
}

func (s *Store) FindUploadByChecksum(ctx context.Context, userID, checksum string) (*domain.Upload, error) {
	return FindUploadByChecksumWithClient(ctx, s.ds, userID, checksum)
}

var _ store.Repository = (*Store)(nil)

// runDML executes a DML statement, waits for it and returns the number of
// affected rows.
func runDML(ctx context.Context, ds Dataset, sql string, params []bigquery.QueryParameter) (int64, error) {
	q := ds.Client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("runDML: starting job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("runDML: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("runDML: job failed: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
