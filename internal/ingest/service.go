// Package ingest implements POST /v1/ingest: raw payload capture, the
// sync/async decision and the synchronous batch run.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/batch"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest/entity"
	jobentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
)

// RawStore persists raw_ingestions; *repo.RawRepo satisfies it.
type RawStore interface {
	Create(ctx context.Context, raw *entity.RawIngestion) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errs []byte) error
	AttachJob(ctx context.Context, id, jobID uuid.UUID) error
}

// JobCreator enqueues async work; the job repo satisfies it.
type JobCreator interface {
	Create(ctx context.Context, j *jobentity.ProcessingJob) error
}

// BatchProcessor is *batch.Processor.
type BatchProcessor interface {
	Process(ctx context.Context, user uuid.UUID, payload *metric.Payload) (*batch.Result, error)
}

// Outcome is what Ingest produced: a batch result on the sync path or a job
// id on the async path.
type Outcome struct {
	RawID  uuid.UUID
	Result *batch.Result
	JobID  *uuid.UUID
	// Err is a processing error that still produced Result.
	Err error
}

// Service runs the ingest pipeline after authentication and rate limiting.
type Service struct {
	raws     RawStore
	jobs     JobCreator
	proc     BatchProcessor
	archiver Archiver
	cfg      config.IngestConfig
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(raws RawStore, jobs JobCreator, proc BatchProcessor, cfg config.IngestConfig, log *zap.SugaredLogger) *Service {
	return &Service{raws: raws, jobs: jobs, proc: proc, cfg: cfg, log: log, now: time.Now}
}

// WithArchiver enables best-effort copies of captured payloads.
func (s *Service) WithArchiver(a Archiver) *Service {
	s.archiver = a
	return s
}

// Hash is the hex sha256 of the canonical payload bytes.
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Async reports whether a payload goes to the job runner.
func (s *Service) Async(metrics int, size int64) bool {
	return metrics > s.cfg.AsyncThresholdMetrics || size > s.cfg.AsyncThresholdBytes
}

// Ingest decodes body, captures it and processes or enqueues it. Decode
// failures wrap ErrInvalidJSON and leave no raw row behind.
func (s *Service) Ingest(ctx context.Context, ac *auth.AuthContext, body []byte) (*Outcome, error) {
	canonical, payload, err := DecodePayload(body)
	if err != nil {
		s.log.Infow("malformed ingest body", "user_id", ac.User.ID, "bytes", len(body))
		return nil, err
	}
	for name, n := range payload.Skipped {
		s.log.Debugw("skipped unmapped native metric", "name", name, "points", n)
	}

	raw := &entity.RawIngestion{
		ID:          uuid.New(),
		UserID:      ac.User.ID,
		APIKeyID:    ac.Key.ID,
		Payload:     canonical,
		PayloadHash: Hash(canonical),
		PayloadSize: int64(len(body)),
		Status:      entity.StatusReceived,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.raws.Create(ctx, raw); err != nil {
		return nil, fmt.Errorf("capture raw payload: %w", err)
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, raw); err != nil {
			s.log.Warnw("archive raw payload failed", "raw_id", raw.ID, "err", err)
		}
	}

	if s.Async(payload.Len(), raw.PayloadSize) {
		id, err := s.enqueue(ctx, ac, raw, payload.Len())
		if err != nil {
			return nil, err
		}
		s.log.Infow("ingest queued", "raw_id", raw.ID, "job_id", id, "metrics", payload.Len(), "bytes", raw.PayloadSize)
		return &Outcome{RawID: raw.ID, JobID: &id}, nil
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	res, perr := s.proc.Process(pctx, ac.User.ID, payload)
	status := StatusOf(res, perr)
	// the request context may be gone; the outcome must still be recorded
	sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer scancel()
	if err := s.raws.UpdateStatus(sctx, raw.ID, status, ErrorsJSON(res, perr)); err != nil {
		s.log.Errorw("update raw status failed", "raw_id", raw.ID, "status", status, "err", err)
	}
	return &Outcome{RawID: raw.ID, Result: res, Err: perr}, nil
}

func (s *Service) enqueue(ctx context.Context, ac *auth.AuthContext, raw *entity.RawIngestion, total int) (uuid.UUID, error) {
	j := &jobentity.ProcessingJob{
		ID:             uuid.New(),
		UserID:         ac.User.ID,
		APIKeyID:       ac.Key.ID,
		RawIngestionID: raw.ID,
		JobType:        jobentity.TypeIngestBatch,
		Status:         jobentity.StatusPending,
		TotalMetrics:   total,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.jobs.Create(ctx, j); err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}
	if err := s.raws.AttachJob(ctx, raw.ID, j.ID); err != nil {
		return uuid.Nil, fmt.Errorf("attach job: %w", err)
	}
	return j.ID, nil
}

// StatusOf maps a batch outcome to a raw_ingestions status. An interrupted
// batch is recorded as a partial failure.
func StatusOf(res *batch.Result, err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return entity.StatusPartialFailure
	case err != nil, res == nil:
		return entity.StatusError
	}
	return res.Status()
}

// ErrorsJSON is the processing_errors value for an outcome, nil when there are none.
func ErrorsJSON(res *batch.Result, err error) []byte {
	var items []batch.ItemError
	if res != nil {
		items = res.Errors
	}
	if err != nil && (res == nil || len(res.Errors) == 0 || batch.IsRefusal(err)) {
		items = append(items, batch.ItemError{Variant: "Batch", Message: err.Error()})
	}
	if len(items) == 0 {
		return nil
	}
	b, mErr := json.Marshal(items)
	if mErr != nil {
		return nil
	}
	return b
}
