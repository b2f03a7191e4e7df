package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-tracker/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

// migrationPattern matches files such as 0001_create_tables.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned SQL script.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// parseMigrationName extracts the version and name from a migration filename.
func parseMigrationName(filename string) (int, string, bool) {
	m := migrationPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// LoadMigrations reads the embedded scripts in version order, with the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders filled in from ds. The
// checksum is taken before substitution so it does not depend on the target
// dataset.
func LoadMigrations(ds Dataset) ([]Migration, error) {
	return loadMigrations(migrationFiles, "migrations", ds)
}

func loadMigrations(fsys fs.FS, dir string, ds Dataset) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("loadMigrations: reading %s: %w", dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := parseMigrationName(entry.Name())
		if !ok {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("loadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", ds.ProjectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.DatasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("loadMigrations: duplicate version %04d", migrations[i].Version)
		}
	}

	return migrations, nil
}

// pendingMigrations returns the migrations whose version is not in applied.
func pendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// Migrate applies every pending embedded migration to ds and records it in
// schema_migrations. It returns the number of migrations applied.
func Migrate(ctx context.Context, ds Dataset, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	if err := ensureMigrationsTable(ctx, ds); err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	all, err := LoadMigrations(ds)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	applied, err := appliedMigrations(ctx, ds)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	pending := pendingMigrations(all, applied)
	log.Info().
		Int("found", len(all)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Loaded migrations")

	for i, m := range pending {
		if _, err := runDML(ctx, ds, m.SQL, nil); err != nil {
			return i, fmt.Errorf("Migrate: executing %s: %w", m.Filename, err)
		}
		if err := recordMigration(ctx, ds, m, appliedBy); err != nil {
			return i, fmt.Errorf("Migrate: recording %s: %w", m.Filename, err)
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}

	return len(pending), nil
}

func ensureMigrationsTable(ctx context.Context, ds Dataset) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, ds.table(migrationsTable))

	if _, err := runDML(ctx, ds, sql, nil); err != nil {
		return fmt.Errorf("ensureMigrationsTable: %w", err)
	}
	return nil
}

func appliedMigrations(ctx context.Context, ds Dataset) ([]AppliedMigration, error) {
	q := ds.Client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, ds.table(migrationsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("appliedMigrations: running query: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("appliedMigrations: reading row: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

func recordMigration(ctx context.Context, ds Dataset, m Migration, appliedBy string) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, ds.table(migrationsTable))

	params := []bigquery.QueryParameter{
		{Name: "version", Value: int64(m.Version)},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}

	_, err := runDML(ctx, ds, sql, params)
	return err
}
