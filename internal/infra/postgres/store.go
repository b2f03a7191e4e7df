// Package postgres is the PostgreSQL store backend. It expects the schema to
// exist; see the column lists in the queries below.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int

	// ConnectAttempts is how many times the initial ping is tried.
	ConnectAttempts uint
}

func (c *Config) withDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 10
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = 3
	}
}

// ConnString renders the settings as a libpq keyword/value string.
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Store implements store.Repository on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and pings it, retrying transient failures.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: creating connection pool: %w", err)
	}

	log := logger.FromContext(ctx)
	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		retry.Context(ctx),
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("PostgreSQL ping failed, retrying")
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: pinging database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &Store{pool: pool}, nil
}

// ListCategories implements store.CategoryRepository.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, COALESCE(icon, ''), COALESCE(color, '')
		FROM categories
		ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: querying: %w", err)
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("ListCategories: scanning row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: iterating rows: %w", err)
	}
	return result, nil
}

// InsertTransaction implements store.TransactionRepository.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, user_id, upload_id, category_id, description,
			amount, transaction_date, file_name, created_at
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.UserID, tx.UploadID, tx.CategoryID, tx.Description,
		tx.Amount, dateValue(tx.Date), tx.SourceFile, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: inserting %s: %w", tx.ID, err)
	}
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(upload_id, ''), category_id, description,
		       amount, transaction_date, file_name, created_at
		FROM transactions
		WHERE user_id = $1
		  AND ($2::date IS NULL OR transaction_date >= $2)
		  AND ($3::date IS NULL OR transaction_date <= $3)
		ORDER BY transaction_date, created_at`,
		userID, nullDate(filter.From), nullDate(filter.To),
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
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, category_id, month, year, monthly_limit
		FROM budget_goals
		WHERE user_id = $1 AND month = $2 AND year = $3
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

// UpsertGoal implements store.GoalRepository.
func (s *Store) UpsertGoal(ctx context.Context, goal domain.BudgetGoal) error {
	if err := goal.Validate(); err != nil {
		return fmt.Errorf("UpsertGoal: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO budget_goals (user_id, category_id, month, year, monthly_limit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, category_id, month, year)
		DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit`,
		goal.UserID, goal.CategoryID, int(goal.Month), goal.Year, goal.MonthlyLimit,
	)
	if err != nil {
		return fmt.Errorf("UpsertGoal: upserting: %w", err)
	}
	return nil
}

// InsertUpload implements store.UploadRepository.
func (s *Store) InsertUpload(ctx context.Context, u *domain.Upload) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO uploads (
			id, user_id, file_name, mode, checksum_sha256, archive_uri,
			status, started_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		u.ID, u.UserID, u.FileName, string(u.Mode), u.ChecksumSHA256, u.ArchiveURI,
		string(u.Status), u.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertUpload: inserting %s: %w", u.ID, err)
	}
	return nil
}

// FinishUpload implements store.UploadRepository.
func (s *Store) FinishUpload(ctx context.Context, u *domain.Upload) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE uploads
		SET status = $2,
		    total_parsed = $3,
		    processed_count = $4,
		    failed_count = $5,
		    error_message = NULLIF($6, ''),
		    finished_at = $7
		WHERE id = $1`,
		u.ID, string(u.Status), u.TotalParsed, u.ProcessedCount, u.FailedCount,
		u.ErrorMessage, u.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("FinishUpload: updating %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("FinishUpload: upload %s: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}

// FindUploadByChecksum implements store.UploadRepository.
func (s *Store) FindUploadByChecksum(ctx context.Context, userID, checksum string) (*domain.Upload, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, file_name, mode, checksum_sha256, COALESCE(archive_uri, ''),
		       status, total_parsed, processed_count, failed_count,
		       COALESCE(error_message, ''), started_at, finished_at
		FROM uploads
		WHERE user_id = $1 AND checksum_sha256 = $2
		ORDER BY started_at DESC
		LIMIT 1`,
		userID, checksum,
	)

	var u domain.Upload
	err := row.Scan(
		&u.ID, &u.UserID, &u.FileName, &u.Mode, &u.ChecksumSHA256, &u.ArchiveURI,
		&u.Status, &u.TotalParsed, &u.ProcessedCount, &u.FailedCount,
		&u.ErrorMessage, &u.StartedAt, &u.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksum: scanning row: %w", err)
	}
	return &u, nil
}

// Close implements store.Repository.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// nullDate maps an unset bound to SQL NULL.
func nullDate(d civil.Date) *time.Time {
	if !d.IsValid() {
		return nil
	}
	t := dateValue(d)
	return &t
}

// Ensure Store implements store.Repository.
var _ store.Repository = (*Store)(nil)
