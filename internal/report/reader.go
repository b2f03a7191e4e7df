package report

import (
	"context"
	"fmt"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Source is what a Reader needs from a store backend.
type Source interface {
	store.CategoryRepository
	store.TransactionRepository
	store.GoalRepository
}

// Reader loads a user's data and applies the report folds.
type Reader struct {
	src Source
}

// NewReader creates a Reader over src.
func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// CategoryBudgets returns per-category spend against goals for w.
func (r *Reader) CategoryBudgets(ctx context.Context, userID string, w Window) ([]BudgetRow, error) {
	in, err := r.loadWindow(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("CategoryBudgets: %w", err)
	}
	return CategoryBudgets(w, in.categories, in.transactions, in.goals), nil
}

// Overall returns total spend against the sum of goals for w.
func (r *Reader) Overall(ctx context.Context, userID string, w Window) (OverallRow, error) {
	in, err := r.loadWindow(ctx, userID, w)
	if err != nil {
		return OverallRow{}, fmt.Errorf("Overall: %w", err)
	}
	return Overall(w, in.categories, in.transactions, in.goals), nil
}

// CategoryTotals returns the user's all-time spend per category.
func (r *Reader) CategoryTotals(ctx context.Context, userID string) ([]CategoryTotal, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	categories, err := r.src.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategoryTotals: listing categories: %w", err)
	}
	txs, err := r.src.ListTransactions(ctx, userID, domain.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("CategoryTotals: listing transactions: %w", err)
	}
	return CategoryTotals(categories, txs), nil
}

type windowInput struct {
	categories   []domain.Category
	transactions []domain.Transaction
	goals        []domain.BudgetGoal
}

func (r *Reader) loadWindow(ctx context.Context, userID string, w Window) (windowInput, error) {
	if userID == "" {
		return windowInput{}, domain.ErrUnauthenticated
	}
	if err := w.Validate(); err != nil {
		return windowInput{}, err
	}

	var in windowInput
	var err error
	if in.categories, err = r.src.ListCategories(ctx); err != nil {
		return windowInput{}, fmt.Errorf("listing categories: %w", err)
	}
	if in.transactions, err = r.src.ListTransactions(ctx, userID, w.Filter()); err != nil {
		return windowInput{}, fmt.Errorf("listing transactions: %w", err)
	}
	if in.goals, err = r.src.ListGoals(ctx, userID, w.Month, w.Year); err != nil {
		return windowInput{}, fmt.Errorf("listing goals: %w", err)
	}
	return in, nil
}
