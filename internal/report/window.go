package report

import (
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-tracker/internal/domain"
)

// Window is the reporting month.
type Window struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// CurrentWindow returns the month containing now.
func CurrentWindow(now time.Time) Window {
	return Window{Month: now.Month(), Year: now.Year()}
}

// Validate checks the month range.
func (w Window) Validate() error {
	if w.Month < time.January || w.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", domain.ErrMalformedInput, w.Month)
	}
	if w.Year < 1 {
		return fmt.Errorf("%w: year %d out of range", domain.ErrMalformedInput, w.Year)
	}
	return nil
}

// First is the first day of the window.
func (w Window) First() civil.Date {
	return civil.Date{Year: w.Year, Month: w.Month, Day: 1}
}

// Last is the last day of the window.
func (w Window) Last() civil.Date {
	return civil.DateOf(time.Date(w.Year, w.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d civil.Date) bool {
	return d.Year == w.Year && d.Month == w.Month
}

// Filter is the transaction filter covering the window.
func (w Window) Filter() domain.TransactionFilter {
	return domain.TransactionFilter{From: w.First(), To: w.Last()}
}

func (w Window) String() string {
	return fmt.Sprintf("%04d-%02d", w.Year, int(w.Month))
}

// ParseWindow reads a window from month and year strings. An empty value
// takes that part from now.
func ParseWindow(month, year string, now time.Time) (Window, error) {
	w := CurrentWindow(now)
	if month != "" {
		m, err := strconv.Atoi(month)
		if err != nil {
			return Window{}, fmt.Errorf("%w: month %q is not a number", domain.ErrMalformedInput, month)
		}
		w.Month = time.Month(m)
	}
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return Window{}, fmt.Errorf("%w: year %q is not a number", domain.ErrMalformedInput, year)
		}
		w.Year = y
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}
