package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean decimal", input: "123.45", want: "123.45"},
		{name: "negative", input: "-150.00", want: "-150"},
		{name: "explicit plus", input: "+3000", want: "3000"},
		{name: "currency symbol", input: "R$ 1.234,56-ish", want: "1.23456"},
		{name: "pound sign and spaces", input: " £ -12.30 ", want: "-12.3"},
		{name: "thousands comma", input: "-1,234.56", want: "-1234.56"},
		{name: "leading dot", input: ".5", want: "0.5"},
		{name: "trailing garbage after number", input: "12.5.3", want: "12.5"},
		{name: "empty", input: "", want: "0"},
		{name: "no digits", input: "n/a", want: "0"},
		{name: "sign only", input: "-", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestParseCommaDecimalAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-5,50", "-5.5"},
		{"R$ -1.234,56", "-1234.56"},
		{"1.000.000,01", "1000000.01"},
		{"-12.5", "-12.5"},
		{"3000", "3000"},
		{"", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseCommaDecimalAmount(tt.input)
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("ParseCommaDecimalAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestParseAmount_IdempotentOnCleanText(t *testing.T) {
	for _, s := range []string{"0", "1", "-42.10", "99999.99"} {
		first := ParseAmount(s)
		again := ParseAmount(first.String())
		if !first.Equal(again) {
			t.Errorf("ParseAmount(%q) not stable: %s then %s", s, first, again)
		}
	}
}
