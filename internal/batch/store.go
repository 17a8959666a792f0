package batch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store executes upserts. Exec runs one statement in its own transaction
// and returns the affected row count; ExecBatch pipelines small statements.
type Store interface {
	Exec(ctx context.Context, st Statement) (int64, error)
	ExecBatch(ctx context.Context, sts []Statement) error
	RouteGeometry() bool
}

// deadlineBuffer is kept back from the caller's deadline so the server
// aborts the statement before the client gives up on it.
const deadlineBuffer = 500 * time.Millisecond

// PgxStore is the Store backed by a pgx connection pool.
type PgxStore struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
	geometry         bool
}

// NewPgxStore wraps pool. statementTimeout applies when the context has no
// deadline; zero leaves the server default. It checks once for the
// workouts.route_geometry column, which only exists with PostGIS.
func NewPgxStore(ctx context.Context, pool *pgxpool.Pool, statementTimeout time.Duration) *PgxStore {
	s := &PgxStore{pool: pool, statementTimeout: statementTimeout}
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_name = 'workouts' AND column_name = 'route_geometry')`).Scan(&exists)
	s.geometry = err == nil && exists
	return s
}

func (s *PgxStore) RouteGeometry() bool { return s.geometry }

func (s *PgxStore) timeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl) - deadlineBuffer
		if d < 100*time.Millisecond {
			d = 100 * time.Millisecond
		}
		return d
	}
	return s.statementTimeout
}

func (s *PgxStore) Exec(ctx context.Context, st Statement) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if d := s.timeout(ctx); d > 0 {
		// SET LOCAL does not take bind parameters; the value is an integer we format.
		if _, err := tx.Exec(ctx, "SET LOCAL statement_timeout = "+strconv.FormatInt(d.Milliseconds(), 10)); err != nil {
			return 0, fmt.Errorf("set statement_timeout: %w", err)
		}
	}
	tag, err := tx.Exec(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgxStore) ExecBatch(ctx context.Context, sts []Statement) error {
	if len(sts) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, st := range sts {
		b.Queue(st.SQL, st.Args...)
	}
	br := s.pool.SendBatch(ctx, b)
	for i := 0; i < len(sts); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return br.Close()
}
