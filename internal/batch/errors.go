// Package batch turns a decoded payload into chunked multi-row upserts:
// validation, deduplication, memory accounting, chunk planning, bounded
// parallel execution with retry, and result collation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMemoryLimitExceeded = errors.New("batch exceeds memory limit")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// ChunkError records why every row of one chunk failed.
type ChunkError struct {
	Variant    string
	ChunkIndex int
	Start      int
	End        int
	Transient  bool
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s chunk %d rows [%d, %d): %v", e.Variant, e.ChunkIndex, e.Start, e.End, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying: serialization failures,
// deadlocks, connection loss, server shutdown and pool exhaustion.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
