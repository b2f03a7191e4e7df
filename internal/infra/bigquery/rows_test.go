package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

func TestTransactionRow_RoundTripsAmount(t *testing.T) {
	tx := &domain.Transaction{
		ID:          "tx-1",
		UserID:      "alice",
		CategoryID:  "cat-food",
		Description: "Mercado",
		Amount:      decimal.RequireFromString("-45.90"),
		Date:        civil.Date{Year: 2024, Month: time.March, Day: 1},
		SourceFile:  "extrato.csv",
		CreatedAt:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	row := newTransactionRow(tx)
	if row.UploadID.Valid {
		t.Errorf("UploadID should be NULL when empty, got %+v", row.UploadID)
	}
	if row.Amount.Cmp(big.NewRat(-459, 10)) != 0 {
		t.Errorf("Amount = %s, want -459/10", row.Amount.String())
	}

	got := row.toDomain()
	if !got.Amount.Equal(tx.Amount) {
		t.Errorf("Amount = %s, want %s", got.Amount, tx.Amount)
	}
	if got.Date != tx.Date || got.SourceFile != tx.SourceFile || got.ID != tx.ID {
		t.Errorf("toDomain() = %+v, want fields of %+v", got, tx)
	}
}

func TestRatToDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   *big.Rat
		want string
	}{
		{"nil", nil, "0"},
		{"integer", big.NewRat(150, 1), "150"},
		{"fraction", big.NewRat(1, 4), "0.25"},
		{"repeating", big.NewRat(1, 3), "0.333333333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ratToDecimal(tt.in)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ratToDecimal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUploadRow_ToDomain(t *testing.T) {
	finished := time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC)
	row := UploadRow{
		UploadID:       "up-1",
		UserID:         "alice",
		FileName:       "extrato.csv",
		Mode:           "labeled",
		ChecksumSHA256: "abc",
		Status:         "succeeded",
		TotalParsed:    bigquery.NullInt64{Int64: 3, Valid: true},
		ProcessedCount: bigquery.NullInt64{Int64: 2, Valid: true},
		FailedCount:    bigquery.NullInt64{Int64: 1, Valid: true},
		StartedTS:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		FinishedTS:     bigquery.NullTimestamp{Timestamp: finished, Valid: true},
	}

	u := row.toDomain()
	if u.Mode != domain.ModeLabeled || u.Status != domain.UploadSucceeded {
		t.Errorf("mode/status = %s/%s", u.Mode, u.Status)
	}
	if u.TotalParsed != 3 || u.ProcessedCount != 2 || u.FailedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", u.TotalParsed, u.ProcessedCount, u.FailedCount)
	}
	if u.FinishedAt == nil || !u.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", u.FinishedAt, finished)
	}
	if u.ArchiveURI != "" {
		t.Errorf("ArchiveURI = %q, want empty", u.ArchiveURI)
	}

	row.FinishedTS = bigquery.NullTimestamp{}
	if u := row.toDomain(); u.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil for a running upload", u.FinishedAt)
	}
}

func TestDataset_Table(t *testing.T) {
	ds := Dataset{ProjectID: "proj", DatasetID: "budget"}
	if got, want := ds.table(uploadsTable), "`proj.budget.uploads`"; got != want {
		t.Errorf("table() = %q, want %q", got, want)
	}
}
