package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetGoal is a monthly spending limit for one category. There is at most
// one goal per (user, category, month, year).
type BudgetGoal struct {
	UserID       string          `json:"user_id"`
	CategoryID   string          `json:"category_id"`
	Month        time.Month      `json:"month"`
	Year         int             `json:"year"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

// Validate checks the month range and that the limit is not negative.
func (g BudgetGoal) Validate() error {
	if g.UserID == "" {
		return ErrUnauthenticated
	}
	if g.CategoryID == "" {
		return fmt.Errorf("%w: category_id is required", ErrMalformedInput)
	}
	if g.Month < time.January || g.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrMalformedInput, g.Month)
	}
	if g.Year < 1 {
		return fmt.Errorf("%w: year %d out of range", ErrMalformedInput, g.Year)
	}
	if g.MonthlyLimit.IsNegative() {
		return fmt.Errorf("%w: monthly_limit must not be negative", ErrMalformedInput)
	}
	return nil
}
