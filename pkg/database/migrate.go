package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations is the embedded schema, rooted at the migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

func provider(db *sql.DB) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return p, nil
}

// MigrateUp applies every pending migration and returns the applied versions.
func MigrateUp(ctx context.Context, db *sql.DB) ([]int64, error) {
	p, err := provider(db)
	if err != nil {
		return nil, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	versions := make([]int64, 0, len(results))
	for _, r := range results {
		versions = append(versions, r.Source.Version)
	}
	return versions, nil
}

// MigrateDown rolls back the most recent migration and returns its version,
// or 0 when nothing was applied.
func MigrateDown(ctx context.Context, db *sql.DB) (int64, error) {
	p, err := provider(db)
	if err != nil {
		return 0, err
	}
	r, err := p.Down(ctx)
	if errors.Is(err, goose.ErrNoNextVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migrate down: %w", err)
	}
	if r == nil || r.Source == nil {
		return 0, nil
	}
	return r.Source.Version, nil
}

// MigrationState is one row of MigrateStatus.
type MigrationState struct {
	Version int64
	Path    string
	Applied bool
}

func MigrateStatus(ctx context.Context, db *sql.DB) ([]MigrationState, error) {
	p, err := provider(db)
	if err != nil {
		return nil, err
	}
	status, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]MigrationState, 0, len(status))
	for _, s := range status {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// EnsurePartitions creates the monthly partitions of every partitioned
// metric table from monthsBack before to monthsAhead after the current month.
func EnsurePartitions(ctx context.Context, db *sql.DB, tables []string, monthsBack, monthsAhead int) (int, error) {
	total := 0
	for _, t := range tables {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT create_monthly_partitions($1, $2, $3)`, t, monthsBack, monthsAhead).Scan(&n); err != nil {
			return total, fmt.Errorf("partitions for %s: %w", t, err)
		}
		total += n
	}
	return total, nil
}
