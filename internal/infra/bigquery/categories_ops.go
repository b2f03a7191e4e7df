package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// ListCategoriesWithClient returns every category ordered by name.
func ListCategoriesWithClient(ctx context.Context, ds Dataset) ([]domain.Category, error) {
	q := ds.Client.Query(fmt.Sprintf(`
		SELECT category_id, name, type, icon, color
		FROM %s
		ORDER BY LOWER(name), category_id
	`, ds.table(categoriesTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategoriesWithClient: running query: %w", err)
	}

	var categories []domain.Category
	for {
		var row CategoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategoriesWithClient: reading row: %w", err)
		}
		categories = append(categories, row.toDomain())
	}

	return categories, nil
}
