package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// ListGoalsWithClient returns a user's goals for one month.
func ListGoalsWithClient(ctx context.Context, ds Dataset, userID string, month time.Month, year int) ([]domain.BudgetGoal, error) {
	q := ds.Client.Query(fmt.Sprintf(`
		SELECT user_id, category_id, month, year, monthly_limit
		FROM %s
		WHERE user_id = @user_id AND month = @month AND year = @year
		ORDER BY category_id
	`, ds.table(goalsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: int64(month)},
		{Name: "year", Value: int64(year)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListGoalsWithClient: running query: %w", err)
	}

	var goals []domain.BudgetGoal
	for {
		var row GoalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListGoalsWithClient: reading row: %w", err)
		}
		goals = append(goals, row.toDomain())
	}

	return goals, nil
}

// UpsertGoalWithClient inserts or replaces a goal with a MERGE statement.
// DML is used instead of streaming inserts so the row can be updated later.
func UpsertGoalWithClient(ctx context.Context, ds Dataset, goal domain.BudgetGoal) error {
	if err := goal.Validate(); err != nil {
		return fmt.Errorf("UpsertGoalWithClient: %w", err)
	}

	sql := fmt.Sprintf(`
		MERGE %s T
		USING (
			SELECT @user_id AS user_id, @category_id AS category_id,
			       @month AS month, @year AS year, @monthly_limit AS monthly_limit
		) S
		ON T.user_id = S.user_id AND T.category_id = S.category_id
		   AND T.month = S.month AND T.year = S.year
		WHEN MATCHED THEN
			UPDATE SET monthly_limit = S.monthly_limit
		WHEN NOT MATCHED THEN
			INSERT (user_id, category_id, month, year, monthly_limit)
			VALUES (S.user_id, S.category_id, S.month, S.year, S.monthly_limit)
	`, ds.table(goalsTable))

	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: goal.UserID},
		{Name: "category_id", Value: goal.CategoryID},
		{Name: "month", Value: int64(goal.Month)},
		{Name: "year", Value: int64(goal.Year)},
		{Name: "monthly_limit", Value: goal.MonthlyLimit.Rat()},
	}

	if _, err := runDML(ctx, ds, sql, params); err != nil {
		return fmt.Errorf("UpsertGoalWithClient: %w", err)
	}
	return nil
}
