package classifier

import (
	"context"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Noop is used when no model is configured. Every record falls through to
// the fallback category.
type Noop struct{}

func (Noop) Classify(context.Context, string, decimal.Decimal, []string) (string, error) {
	return "", domain.ErrClassificationUnavailable
}
