// Package mysql is the MySQL store backend built on database/sql and
// go-sql-driver/mysql. It expects the schema to exist.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/avast/retry-go"
	"github.com/go-sql-driver/mysql"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Store implements store.Repository on a MySQL connection pool.
type Store struct {
	db *sql.DB
}

// ParseDSN reads a go-sql-driver DSN and forces the options this package
// relies on: DATE and DATETIME scan into time.Time in UTC.
func ParseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql.ParseDSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// New opens a pool for dsn and pings it, retrying transient failures.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql.New: creating connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	log := logger.FromContext(ctx)
	err = retry.Do(
		func() error {
			return db.PingContext(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("MySQL ping failed, retrying")
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql.New: pinging database: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Str("database", cfg.DBName).Msg("Connected to MySQL")
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing pool.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListCategories implements store.CategoryRepository.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, COALESCE(icon, ''), COALESCE(color, '')
		FROM categories
		ORDER BY LOWER(name)`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: querying: %w", err)
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("ListCategories: scanning row: %w", err)
		}
		c.Type = domain.CategoryType(typ)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: iterating rows: %w", err)
	}
	return result, nil
}

// InsertTransaction implements store.TransactionRepository.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, upload_id, category_id, description,
			amount, transaction_date, file_name, created_at
		) VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.UploadID, tx.CategoryID, tx.Description,
		tx.Amount, tx.Date.In(time.UTC), tx.SourceFile, tx.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: inserting %s: %w", tx.ID, err)
	}
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	from, to := nullDate(filter.From), nullDate(filter.To)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(upload_id, ''), category_id, description,
		       amount, transaction_date, file_name, created_at
		FROM transactions
		WHERE user_id = ?
		  AND (? IS NULL OR transaction_date >= ?)
		  AND (? IS NULL OR transaction_date <= ?)
		ORDER BY transaction_date, created_at`,
		userID, from, from, to, to,
	)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: querying: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var date time.Time
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.UploadID, &tx.CategoryID, &tx.Description,
			&tx.Amount, &date, &tx.SourceFile, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListTransactions: scanning row: %w", err)
		}
		tx.Date = civil.DateOf(date)
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: iterating rows: %w", err)
	}
	return result, nil
}

// ListGoals implements store.GoalRepository.
func (s *Store) ListGoals(ctx context.Context, userID string, month time.Month, year int) ([]domain.BudgetGoal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, category_id, month, year, monthly_limit
		FROM budget_goals
		WHERE user_id = ? AND month = ? AND year = ?
		ORDER BY category_id`,
		userID, int(month), year,
	)
	if err != nil {
		return nil, fmt.Errorf("ListGoals: querying: %w", err)
	}
	defer rows.Close()

	var result []domain.BudgetGoal
	for rows.Next() {
		var g domain.BudgetGoal
		var m int
		if err := rows.Scan(&g.UserID, &g.CategoryID, &m, &g.Year, &g.MonthlyLimit); err != nil {
			return nil, fmt.Errorf("ListGoals: scanning row: %w", err)
		}
		g.Month = time.Month(m)
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListGoals: iterating rows: %w", err)
	}
	return result, nil
}

// UpsertGoal implements store.GoalRepository. The table needs a unique key
// on (user_id, category_id, month, year).
func (s *Store) UpsertGoal(ctx context.Context, goal domain.BudgetGoal) error {
	if err := goal.Validate(); err != nil {
		return fmt.Errorf("UpsertGoal: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_goals (user_id, category_id, month, year, monthly_limit)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE monthly_limit = VALUES(monthly_limit)`,
		goal.UserID, goal.CategoryID, int(goal.Month), goal.Year, goal.MonthlyLimit,
	)
	if err != nil {
		return fmt.Errorf("UpsertGoal: upserting: %w", err)
	}
	return nil
}

// InsertUpload implements store.UploadRepository.
func (s *Store) InsertUpload(ctx context.Context, u *domain.Upload) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (
			id, user_id, file_name, mode, checksum_sha256, archive_uri,
			status, started_at
		) VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		u.ID, u.UserID, u.FileName, string(u.Mode), u.ChecksumSHA256, u.ArchiveURI,
		string(u.Status), u.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("InsertUpload: inserting %s: %w", u.ID, err)
	}
	return nil
}

// FinishUpload implements store.UploadRepository.
func (s *Store) FinishUpload(ctx context.Context, u *domain.Upload) error {
	var finished sql.NullTime
	if u.FinishedAt != nil {
		finished = sql.NullTime{Time: u.FinishedAt.UTC(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET status = ?, total_parsed = ?, processed_count = ?, failed_count = ?,
		    error_message = NULLIF(?, ''), finished_at = ?
		WHERE id = ?`,
		string(u.Status), u.TotalParsed, u.ProcessedCount, u.FailedCount,
		u.ErrorMessage, finished, u.ID,
	)
	if err != nil {
		return fmt.Errorf("FinishUpload: updating %s: %w", u.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for rows matched but unchanged, so confirm the row exists.
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM uploads WHERE id = ?`, u.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("FinishUpload: upload %s: %w", u.ID, domain.ErrNotFound)
		}
	}
	return nil
}

// FindUploadByChecksum implements store.UploadRepository.
func (s *Store) FindUploadByChecksum(ctx context.Context, userID, checksum string) (*domain.Upload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_name, mode, checksum_sha256, COALESCE(archive_uri, ''),
		       status, total_parsed, processed_count, failed_count,
		       COALESCE(error_message, ''), started_at, finished_at
		FROM uploads
		WHERE user_id = ? AND checksum_sha256 = ?
		ORDER BY started_at DESC
		LIMIT 1`,
		userID, checksum,
	)

	var u domain.Upload
	var mode, status string
	var finished sql.NullTime
	err := row.Scan(
		&u.ID, &u.UserID, &u.FileName, &mode, &u.ChecksumSHA256, &u.ArchiveURI,
		&status, &u.TotalParsed, &u.ProcessedCount, &u.FailedCount,
		&u.ErrorMessage, &u.StartedAt, &finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksum: scanning row: %w", err)
	}

	u.Mode = domain.Mode(mode)
	u.Status = domain.UploadStatus(status)
	if finished.Valid {
		u.FinishedAt = &finished.Time
	}
	return &u, nil
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullDate(d civil.Date) sql.NullTime {
	if !d.IsValid() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.In(time.UTC), Valid: true}
}

// Ensure Store implements store.Repository.
var _ store.Repository = (*Store)(nil)
