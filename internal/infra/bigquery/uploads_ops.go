package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// InsertUploadWithClient records a running upload. It uses a DML INSERT
// because rows still in the streaming buffer cannot be updated by
// FinishUploadWithClient.
func InsertUploadWithClient(ctx context.Context, ds Dataset, u *domain.Upload) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			upload_id, user_id, file_name, mode, checksum_sha256, archive_uri,
			status, started_ts
		) VALUES (
			@upload_id, @user_id, @file_name, @mode, @checksum_sha256, @archive_uri,
			@status, @started_ts
		)
	`, ds.table(uploadsTable))

	params := []bigquery.QueryParameter{
		{Name: "upload_id", Value: u.ID},
		{Name: "user_id", Value: u.UserID},
		{Name: "file_name", Value: u.FileName},
		{Name: "mode", Value: string(u.Mode)},
		{Name: "checksum_sha256", Value: u.ChecksumSHA256},
		{Name: "archive_uri", Value: nullString(u.ArchiveURI)},
		{Name: "status", Value: string(u.Status)},
		{Name: "started_ts", Value: u.StartedAt},
	}

	if _, err := runDML(ctx, ds, sql, params); err != nil {
		return fmt.Errorf("InsertUploadWithClient: inserting upload %s: %w", u.ID, err)
	}
	return nil
}

// FinishUploadWithClient stores the final counts and status.
func FinishUploadWithClient(ctx context.Context, ds Dataset, u *domain.Upload) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    total_parsed = @total_parsed,
		    processed_count = @processed_count,
		    failed_count = @failed_count,
		    error_message = @error_message,
		    finished_ts = @finished_ts
		WHERE upload_id = @upload_id
	`, ds.table(uploadsTable))

	finished := bigquery.NullTimestamp{}
	if u.FinishedAt != nil {
		finished = bigquery.NullTimestamp{Timestamp: *u.FinishedAt, Valid: true}
	}

	params := []bigquery.QueryParameter{
		{Name: "upload_id", Value: u.ID},
		{Name: "status", Value: string(u.Status)},
		{Name: "total_parsed", Value: int64(u.TotalParsed)},
		{Name: "processed_count", Value: int64(u.ProcessedCount)},
		{Name: "failed_count", Value: int64(u.FailedCount)},
		{Name: "error_message", Value: nullString(u.ErrorMessage)},
		{Name: "finished_ts", Value: finished},
	}

	affected, err := runDML(ctx, ds, sql, params)
	if err != nil {
		return fmt.Errorf("FinishUploadWithClient: updating upload %s: %w", u.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("FinishUploadWithClient: upload %s: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}

// FindUploadByChecksumWithClient returns the latest upload by userID with
// the given checksum, or domain.ErrNotFound.
func FindUploadByChecksumWithClient(ctx context.Context, ds Dataset, userID, checksum string) (*domain.Upload, error) {
	q := ds.Client.Query(fmt.Sprintf(`
		SELECT upload_id, user_id, file_name, mode, checksum_sha256, archive_uri,
		       status, total_parsed, processed_count, failed_count, error_message,
		       started_ts, finished_ts
		FROM %s
		WHERE user_id = @user_id AND checksum_sha256 = @checksum
		ORDER BY started_ts DESC
		LIMIT 1
	`, ds.table(uploadsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksumWithClient: running query: %w", err)
	}

	var row UploadRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksumWithClient: reading row: %w", err)
	}
	return row.toDomain(), nil
}
