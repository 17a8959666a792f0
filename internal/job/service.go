// Package job stores processing jobs and runs them out of band.
package job

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/entity"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrNotRetryable = errors.New("only failed jobs can be retried")
)

// Lookup is the read/reset side of the job repo.
type Lookup interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.ProcessingJob, error)
	Retry(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service exposes job status and retries.
type Service struct {
	repo Lookup
}

func NewService(repo Lookup) *Service { return &Service{repo: repo} }

// Get returns the job when it belongs to userID. Jobs of other users are
// reported as missing.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*entity.ProcessingJob, error) {
	j, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		return nil, ErrNotFound
	}
	return j, nil
}

// Retry moves a failed job back to pending.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Retry(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.repo.Get(ctx, id); errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return ErrNotRetryable
}
