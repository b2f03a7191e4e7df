package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one categorized row of an uploaded file, ready to be stored.
// It is created by the ingestion pipeline and never mutated afterwards.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	UploadID    string          `json:"upload_id,omitempty"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // negative for money out
	Date        civil.Date      `json:"transaction_date"`
	SourceFile  string          `json:"file_name"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionFilter narrows ListTransactions. Zero dates are unbounded.
type TransactionFilter struct {
	From civil.Date
	To   civil.Date
}

// Matches reports whether d falls inside the filter bounds (inclusive).
func (f TransactionFilter) Matches(d civil.Date) bool {
	if f.From.IsValid() && d.Before(f.From) {
		return false
	}
	if f.To.IsValid() && d.After(f.To) {
		return false
	}
	return true
}
