package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// numericScale is the number of decimal digits a BigQuery NUMERIC keeps.
const numericScale = 9

type CategoryRow struct {
	CategoryID string              `bigquery:"category_id"` // REQUIRED
	Name       string              `bigquery:"name"`        // REQUIRED
	Type       string              `bigquery:"type"`        // REQUIRED: expense | income
	Icon       bigquery.NullString `bigquery:"icon"`        // NULLABLE
	Color      bigquery.NullString `bigquery:"color"`       // NULLABLE
}

func (r CategoryRow) toDomain() domain.Category {
	return domain.Category{
		ID:    r.CategoryID,
		Name:  r.Name,
		Type:  domain.CategoryType(r.Type),
		Icon:  r.Icon.StringVal,
		Color: r.Color.StringVal,
	}
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID     string              `bigquery:"user_id"`     // REQUIRED
	UploadID   bigquery.NullString `bigquery:"upload_id"`   // NULLABLE
	CategoryID string              `bigquery:"category_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Description     string     `bigquery:"description"`      // REQUIRED
	FileName        string     `bigquery:"file_name"`        // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newTransactionRow(tx *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		UploadID:        nullString(tx.UploadID),
		CategoryID:      tx.CategoryID,
		TransactionDate: tx.Date,
		Amount:          tx.Amount.Rat(),
		Description:     tx.Description,
		FileName:        tx.SourceFile,
		CreatedTS:       tx.CreatedAt,
	}
}

func (r TransactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		UploadID:    r.UploadID.StringVal,
		CategoryID:  r.CategoryID,
		Description: r.Description,
		Amount:      ratToDecimal(r.Amount),
		Date:        r.TransactionDate,
		SourceFile:  r.FileName,
		CreatedAt:   r.CreatedTS,
	}
}

type GoalRow struct {
	UserID       string   `bigquery:"user_id"`       // REQUIRED
	CategoryID   string   `bigquery:"category_id"`   // REQUIRED
	Month        int64    `bigquery:"month"`         // REQUIRED 1-12
	Year         int64    `bigquery:"year"`          // REQUIRED
	MonthlyLimit *big.Rat `bigquery:"monthly_limit"` // REQUIRED NUMERIC
}

func (r GoalRow) toDomain() domain.BudgetGoal {
	return domain.BudgetGoal{
		UserID:       r.UserID,
		CategoryID:   r.CategoryID,
		Month:        time.Month(r.Month),
		Year:         int(r.Year),
		MonthlyLimit: ratToDecimal(r.MonthlyLimit),
	}
}

type UploadRow struct {
	UploadID       string              `bigquery:"upload_id"`       // REQUIRED
	UserID         string              `bigquery:"user_id"`         // REQUIRED
	FileName       string              `bigquery:"file_name"`       // REQUIRED
	Mode           string              `bigquery:"mode"`            // REQUIRED
	ChecksumSHA256 string              `bigquery:"checksum_sha256"` // REQUIRED
	ArchiveURI     bigquery.NullString `bigquery:"archive_uri"`     // NULLABLE

	Status         string              `bigquery:"status"`          // REQUIRED
	TotalParsed    bigquery.NullInt64  `bigquery:"total_parsed"`    // NULLABLE until finished
	ProcessedCount bigquery.NullInt64  `bigquery:"processed_count"` // NULLABLE until finished
	FailedCount    bigquery.NullInt64  `bigquery:"failed_count"`    // NULLABLE until finished
	ErrorMessage   bigquery.NullString `bigquery:"error_message"`   // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE
}

func (r UploadRow) toDomain() *domain.Upload {
	u := &domain.Upload{
		ID:             r.UploadID,
		UserID:         r.UserID,
		FileName:       r.FileName,
		Mode:           domain.Mode(r.Mode),
		ChecksumSHA256: r.ChecksumSHA256,
		ArchiveURI:     r.ArchiveURI.StringVal,
		Status:         domain.UploadStatus(r.Status),
		TotalParsed:    int(r.TotalParsed.Int64),
		ProcessedCount: int(r.ProcessedCount.Int64),
		FailedCount:    int(r.FailedCount.Int64),
		ErrorMessage:   r.ErrorMessage.StringVal,
		StartedAt:      r.StartedTS,
	}
	if r.FinishedTS.Valid {
		t := r.FinishedTS.Timestamp
		u.FinishedAt = &t
	}
	return u
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}
