// Package store defines the persistence contracts shared by every backend
// (memory, Postgres, MySQL, BigQuery).
package store

import (
	"context"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// CategoryRepository lists the category taxonomy.
type CategoryRepository interface {
	// ListCategories returns every category ordered by name.
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// TransactionRepository is append-only from the pipeline's side.
type TransactionRepository interface {
	// InsertTransaction persists a single transaction. It must be atomic for
	// that one row.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactions returns a user's transactions ordered by date.
	ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
}

// GoalRepository stores monthly budget goals.
type GoalRepository interface {
	// ListGoals returns a user's goals for one month.
	ListGoals(ctx context.Context, userID string, month time.Month, year int) ([]domain.BudgetGoal, error)

	// UpsertGoal inserts or replaces the goal keyed by
	// (user, category, month, year).
	UpsertGoal(ctx context.Context, goal domain.BudgetGoal) error
}

// UploadRepository records ingest calls.
type UploadRepository interface {
	// InsertUpload records a running upload.
	InsertUpload(ctx context.Context, u *domain.Upload) error

	// FinishUpload stores the final counts and status of an upload.
	FinishUpload(ctx context.Context, u *domain.Upload) error

	// FindUploadByChecksum returns the most recent upload by userID with
	// the given content checksum, or domain.ErrNotFound.
	FindUploadByChecksum(ctx context.Context, userID, checksum string) (*domain.Upload, error)
}

// Repository bundles every contract a backend implements.
type Repository interface {
	CategoryRepository
	TransactionRepository
	GoalRepository
	UploadRepository

	// Close releases the backend's connections.
	Close() error
}
