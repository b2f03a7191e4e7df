// Package report folds stored transactions and goals into budget report
// rows. The fold functions are pure; Reader loads their inputs from a store.
package report

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BudgetRow compares one category's spend with its goal for a window.
type BudgetRow struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Icon         string          `json:"icon,omitempty"`
	Color        string          `json:"color,omitempty"`
	Spent        decimal.Decimal `json:"spent"`
	Limit        decimal.Decimal `json:"limit"`
	Balance      decimal.Decimal `json:"balance"`
	PercentUsed  decimal.Decimal `json:"percent_used"`
	OverBudget   bool            `json:"over_budget"`
}

// OverallRow compares total spend with the sum of all goals for a window.
type OverallRow struct {
	Window      Window          `json:"window"`
	Spent       decimal.Decimal `json:"spent"`
	Goal        decimal.Decimal `json:"goal"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	OverBudget  bool            `json:"over_budget"`
}

// CategoryTotal is the all-time spend of one category.
type CategoryTotal struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Icon         string          `json:"icon,omitempty"`
	Color        string          `json:"color,omitempty"`
	Spent        decimal.Decimal `json:"spent"`
}

// CategoryBudgets returns one row per category that has a goal in w, ordered
// by category name. Spend is the negated net sum of expense-category
// transactions dated inside w, so refunds reduce it.
func CategoryBudgets(w Window, categories []domain.Category, txs []domain.Transaction, goals []domain.BudgetGoal) []BudgetRow {
	byID := indexCategories(categories)
	spent := spendByCategory(byID, txs, w.Contains)

	limits := make(map[string]decimal.Decimal)
	for _, g := range goals {
		if g.Month != w.Month || g.Year != w.Year {
			continue
		}
		if _, ok := byID[g.CategoryID]; !ok {
			continue
		}
		limits[g.CategoryID] = g.MonthlyLimit
	}

	rows := make([]BudgetRow, 0, len(limits))
	for id, limit := range limits {
		c := byID[id]
		s := spent[id]
		rows = append(rows, BudgetRow{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Icon:         c.Icon,
			Color:        c.Color,
			Spent:        s,
			Limit:        limit,
			Balance:      limit.Sub(s),
			PercentUsed:  percent(s, limit),
			OverBudget:   s.GreaterThan(limit),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CategoryName != rows[j].CategoryName {
			return rows[i].CategoryName < rows[j].CategoryName
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows
}

// Overall sums expense spend and goal limits for w. Remaining never drops
// below zero.
func Overall(w Window, categories []domain.Category, txs []domain.Transaction, goals []domain.BudgetGoal) OverallRow {
	byID := indexCategories(categories)

	spent := decimal.Zero
	for _, s := range spendByCategory(byID, txs, w.Contains) {
		spent = spent.Add(s)
	}

	goal := decimal.Zero
	for _, g := range goals {
		if g.Month == w.Month && g.Year == w.Year {
			goal = goal.Add(g.MonthlyLimit)
		}
	}

	remaining := goal.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return OverallRow{
		Window:      w,
		Spent:       spent,
		Goal:        goal,
		Remaining:   remaining,
		PercentUsed: percent(spent, goal),
		OverBudget:  goal.IsPositive() && spent.GreaterThan(goal),
	}
}

// CategoryTotals returns all-time expense spend per category, largest first.
// Categories with no spend are left out.
func CategoryTotals(categories []domain.Category, txs []domain.Transaction) []CategoryTotal {
	byID := indexCategories(categories)
	spent := spendByCategory(byID, txs, nil)

	totals := make([]CategoryTotal, 0, len(spent))
	for id, s := range spent {
		if s.IsZero() {
			continue
		}
		c := byID[id]
		totals = append(totals, CategoryTotal{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Icon:         c.Icon,
			Color:        c.Color,
			Spent:        s,
		})
	}

	sort.Slice(totals, func(i, j int) bool {
		if cmp := totals[i].Spent.Cmp(totals[j].Spent); cmp != 0 {
			return cmp > 0
		}
		return totals[i].CategoryName < totals[j].CategoryName
	})
	return totals
}

func indexCategories(categories []domain.Category) map[string]domain.Category {
	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID
}

// spendByCategory nets amounts per expense category and negates the result:
// outflows are negative, so -250 and a +50 refund spend 200. A nil keep
// accepts every transaction.
func spendByCategory(byID map[string]domain.Category, txs []domain.Transaction, keep func(civil.Date) bool) map[string]decimal.Decimal {
	spent := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		c, ok := byID[tx.CategoryID]
		if !ok || !c.IsExpense() {
			continue
		}
		if keep != nil && !keep(tx.Date) {
			continue
		}
		spent[tx.CategoryID] = spent[tx.CategoryID].Sub(tx.Amount)
	}
	return spent
}

// percent is part/whole*100 rounded to two places, or zero when whole is
// not positive.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}
