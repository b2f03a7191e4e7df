package report

import (
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		month   string
		year    string
		want    Window
		wantErr bool
	}{
		{"defaults to now", "", "", Window{Month: time.March, Year: 2024}, false},
		{"month only", "12", "", Window{Month: time.December, Year: 2024}, false},
		{"both", "1", "2023", Window{Month: time.January, Year: 2023}, false},
		{"month out of range", "13", "2024", Window{}, true},
		{"month zero", "0", "", Window{}, true},
		{"not a number", "march", "", Window{}, true},
		{"bad year", "", "二〇二四", Window{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindow(tt.month, tt.year, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrMalformedInput) {
				t.Errorf("error %v should wrap ErrMalformedInput", err)
			}
			if got != tt.want {
				t.Errorf("ParseWindow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
