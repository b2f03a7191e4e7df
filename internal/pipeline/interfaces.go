package pipeline

import (
	"context"

	"github.com/dvloznov/budget-tracker/internal/store"
	"github.com/shopspring/decimal"
)

// Classifier assigns a label from a closed set to a transaction.
// Implementations return domain.ErrClassificationUnavailable (possibly
// wrapped) on timeout, transport failure or an empty answer.
type Classifier interface {
	Classify(ctx context.Context, description string, amount decimal.Decimal, labels []string) (string, error)
}

// Archiver stores the raw uploaded file and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, objectName string, content []byte) (string, error)
}

// IngestRepository is the subset of store.Repository the ingestor writes to.
type IngestRepository interface {
	store.CategoryRepository
	store.TransactionRepository
	store.UploadRepository
}
