package pipeline

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

var parseNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func collect(t *testing.T, text string) []RawRecord {
	t.Helper()
	records, err := Parse(text, parseNow)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return slices.Collect(records.All())
}

func TestParse_InfersColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Columns
	}{
		{
			name:   "portuguese",
			header: "Descrição,Valor,Data",
			want:   Columns{Description: 0, Amount: 1, Date: 2, Category: -1},
		},
		{
			name:   "english with category",
			header: "Description,Amount,Date,Category",
			want:   Columns{Description: 0, Amount: 1, Date: 2, Category: 3},
		},
		{
			name:   "reordered and padded",
			header: "  DATE , Categoria , Amount (BRL), Descr ",
			want:   Columns{Description: 3, Amount: 2, Date: 0, Category: 1},
		},
		{
			name:   "first match wins",
			header: "Transaction Date,Posting Date,Description,Amount",
			want:   Columns{Description: 2, Amount: 3, Date: 0, Category: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Parse(tt.header+"\n", parseNow)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := records.Columns(); got != tt.want {
				t.Errorf("Columns() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_FormatError(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMissing []string
	}{
		{name: "no amount column", input: "Description,Date\nCoffee,2024-03-02", wantMissing: []string{"amount"}},
		{name: "nothing matches", input: "a,b,c\n1,2,3", wantMissing: []string{"description", "amount", "date"}},
		{name: "empty input", input: "", wantMissing: nil},
		{name: "only blank lines", input: "\n  \n\r\n", wantMissing: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, parseNow)
			var fe *domain.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("Parse() error = %v, want *domain.FormatError", err)
			}
			if !slices.Equal(fe.Missing, tt.wantMissing) {
				t.Errorf("Missing = %v, want %v", fe.Missing, tt.wantMissing)
			}
		})
	}
}

func TestParse_Records(t *testing.T) {
	input := "Descrição,Valor,Data\r\n" +
		"Mercado,-150.00,2024-03-01\r\n" +
		"\r\n" +
		"Salário,3000,2024-03-05\r\n"

	got := collect(t, input)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	first := got[0]
	if first.Line != 2 {
		t.Errorf("first.Line = %d, want 2", first.Line)
	}
	if first.Description != "Mercado" || first.Date != "2024-03-01" || first.Amount.String() != "-150" {
		t.Errorf("first record = %+v", first)
	}
	if first.Category != "" {
		t.Errorf("first.Category = %q, want empty", first.Category)
	}
	if len(first.Fields) != 3 || first.Fields[1].Name != "valor" || first.Fields[1].Value != "-150.00" {
		t.Errorf("first.Fields = %+v", first.Fields)
	}

	if got[1].Line != 4 {
		t.Errorf("second.Line = %d, want 4", got[1].Line)
	}
}

func TestParse_SkipsShortLines(t *testing.T) {
	input := "Description,Amount,Date\n" +
		"Coffee,-5.50,2024-03-02\n" +
		"broken,1\n" +
		"lonely\n" +
		"Tea,-2,2024-03-03\n"

	got := collect(t, input)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Description != "Coffee" || got[1].Description != "Tea" {
		t.Errorf("unexpected records: %+v", got)
	}
}

func TestParse_DefaultsMissingDate(t *testing.T) {
	got := collect(t, "Description,Amount,Date\nCoffee,-5.50,\n")
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Date != "2024-03-10" {
		t.Errorf("Date = %q, want today's date", got[0].Date)
	}
}

func TestParse_DetectsDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "semicolon", input: "Data;Descrição;Valor\n2024-03-01;Padaria;-12.5\n"},
		{name: "tab", input: "Data\tDescrição\tValor\n2024-03-01\tPadaria\t-12.5\n"},
		{name: "quoted comma", input: "Data,Descrição,Valor\n2024-03-01,\"Padaria, centro\",-12.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.input)
			if len(got) != 1 {
				t.Fatalf("got %d records, want 1", len(got))
			}
			if got[0].Date != "2024-03-01" || got[0].Amount.String() != "-12.5" {
				t.Errorf("record = %+v", got[0])
			}
		})
	}
}

func TestParse_SemicolonFilesUseCommaDecimals(t *testing.T) {
	got := collect(t, "Descrição;Valor;Data\nCoffee;-5,50;02/03/2024\nAluguel;R$ -1.234,56;05/03/2024\nPadaria;-12.5;06/03/2024\n")
	want := []string{"-5.5", "-1234.56", "-12.5"}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].Amount.Equal(decimal.RequireFromString(w)) {
			t.Errorf("record %d amount = %s, want %s", i, got[i].Amount, w)
		}
	}
}

func TestParse_CommaFilesKeepDotDecimals(t *testing.T) {
	got := collect(t, "Description,Amount,Date\nRent,\"R$ 1.234,56\",2024-03-02\n")
	if len(got) != 1 || !got[0].Amount.Equal(decimal.RequireFromString("1.23456")) {
		t.Errorf("records = %+v, want amount 1.23456", got)
	}
}

func TestParse_StripsBOM(t *testing.T) {
	got := collect(t, "\ufeffDescription,Amount,Date\nCoffee,-5.50,2024-03-02\n")
	if len(got) != 1 || got[0].Description != "Coffee" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestParse_ExtraFieldsNamed(t *testing.T) {
	got := collect(t, "Description,Amount,Date\nCoffee,-5.50,2024-03-02,note\n")
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if f := got[0].Fields[3]; f.Name != "column_4" || f.Value != "note" {
		t.Errorf("extra field = %+v", f)
	}
}

func TestRecords_AllIsSingleUse(t *testing.T) {
	records, err := Parse("Description,Amount,Date\nCoffee,-5.50,2024-03-02\n", parseNow)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if n := len(slices.Collect(records.All())); n != 1 {
		t.Fatalf("first iteration yielded %d, want 1", n)
	}
	if n := len(slices.Collect(records.All())); n != 0 {
		t.Errorf("second iteration yielded %d, want 0", n)
	}
}
