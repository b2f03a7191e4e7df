package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"labeled", ModeLabeled, false},
		{" Labelled ", ModeLabeled, false},
		{"inferred", ModeInferred, false},
		{"AI", ModeInferred, false},
		{"", "", true},
		{"manual", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedInput) {
				t.Errorf("error should wrap ErrMalformedInput, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&FormatError{Missing: []string{"date"}}, true},
		{fmt.Errorf("wrapped: %w", ErrUnauthenticated), true},
		{ErrMalformedInput, true},
		{ErrVocabularyUnavailable, false},
		{errors.New("network"), false},
	}

	for _, tt := range tests {
		if got := IsPermanent(tt.err); got != tt.want {
			t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestFormatError_Error(t *testing.T) {
	if got := (&FormatError{}).Error(); got != "invalid file format: no header row" {
		t.Errorf("Error() = %q", got)
	}
	got := (&FormatError{Missing: []string{"amount", "date"}}).Error()
	if got != "invalid file format: missing required column(s): amount, date" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTransactionFilter_Matches(t *testing.T) {
	march := TransactionFilter{
		From: civil.Date{Year: 2024, Month: time.March, Day: 1},
		To:   civil.Date{Year: 2024, Month: time.March, Day: 31},
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		date   civil.Date
		want   bool
	}{
		{"first day inclusive", march, civil.Date{Year: 2024, Month: time.March, Day: 1}, true},
		{"last day inclusive", march, civil.Date{Year: 2024, Month: time.March, Day: 31}, true},
		{"before", march, civil.Date{Year: 2024, Month: time.February, Day: 29}, false},
		{"after", march, civil.Date{Year: 2024, Month: time.April, Day: 1}, false},
		{"unbounded", TransactionFilter{}, civil.Date{Year: 1999, Month: time.January, Day: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.date); got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestBudgetGoal_Validate(t *testing.T) {
	valid := BudgetGoal{
		UserID:       "u1",
		CategoryID:   "lazer",
		Month:        time.May,
		Year:         2024,
		MonthlyLimit: decimal.NewFromInt(300),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	zero := valid
	zero.MonthlyLimit = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Errorf("zero limit should be valid, got %v", err)
	}

	noUser := valid
	noUser.UserID = ""
	if err := noUser.Validate(); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("missing user: got %v, want ErrUnauthenticated", err)
	}

	for name, mutate := range map[string]func(*BudgetGoal){
		"no category":    func(g *BudgetGoal) { g.CategoryID = "" },
		"month 13":       func(g *BudgetGoal) { g.Month = 13 },
		"year 0":         func(g *BudgetGoal) { g.Year = 0 },
		"negative limit": func(g *BudgetGoal) { g.MonthlyLimit = decimal.NewFromInt(-1) },
	} {
		t.Run(name, func(t *testing.T) {
			g := valid
			mutate(&g)
			if err := g.Validate(); !errors.Is(err, ErrMalformedInput) {
				t.Errorf("Validate() = %v, want ErrMalformedInput", err)
			}
		})
	}
}
