package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// InsertTransactionWithClient streams one transaction row.
func InsertTransactionWithClient(ctx context.Context, ds Dataset, tx *domain.Transaction) error {
	if tx.ID == "" || tx.CategoryID == "" {
		return fmt.Errorf("InsertTransactionWithClient: %w: id and category_id are required", domain.ErrMalformedInput)
	}

	inserter := ds.Client.Dataset(ds.DatasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, newTransactionRow(tx)); err != nil {
		return fmt.Errorf("InsertTransactionWithClient: inserting transaction %s: %w", tx.ID, err)
	}
	return nil
}

// ListTransactionsWithClient returns a user's transactions in date order,
// bounded by filter.
func ListTransactionsWithClient(ctx context.Context, ds Dataset, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	where := []string{"user_id = @user_id"}
	params := []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	if filter.From.IsValid() {
		where = append(where, "transaction_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: filter.From})
	}
	if filter.To.IsValid() {
		where = append(where, "transaction_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: filter.To})
	}

	q := ds.Client.Query(fmt.Sprintf(`
		SELECT transaction_id, user_id, upload_id, category_id, transaction_date,
		       amount, description, file_name, created_ts
		FROM %s
		WHERE %s
		ORDER BY transaction_date, created_ts, transaction_id
	`, ds.table(transactionsTable), strings.Join(where, " AND ")))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsWithClient: running query: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsWithClient: reading row: %w", err)
		}
		txs = append(txs, row.toDomain())
	}

	return txs, nil
}
