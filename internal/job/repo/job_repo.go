package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/entity"
)

// JobRepo provides DB operations for processing_jobs.
type JobRepo struct {
	db *sqlx.DB
}

func NewJobRepo(db *sqlx.DB) *JobRepo { return &JobRepo{db: db} }

const jobColumns = `id, user_id, api_key_id, raw_ingestion_id, job_type, status, priority,
	total_metrics, processed_metrics, failed_metrics, progress_percentage, retry_count,
	config, result_summary, error_message, claimed_by, created_at, started_at, completed_at`

func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func (r *JobRepo) Create(ctx context.Context, j *entity.ProcessingJob) error {
	const q = `INSERT INTO processing_jobs (id, user_id, api_key_id, raw_ingestion_id, job_type,
			status, priority, total_metrics, config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)`
	_, err := r.db.ExecContext(ctx, q, j.ID, j.UserID, j.APIKeyID, j.RawIngestionID, j.JobType,
		j.Status, j.Priority, j.TotalMetrics, jsonArg(j.Config), j.CreatedAt)
	return err
}

// Get returns sql.ErrNoRows when the job does not exist.
func (r *JobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ProcessingJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM processing_jobs WHERE id=$1`
	var j entity.ProcessingJob
	if err := r.db.GetContext(ctx, &j, q, id); err != nil {
		return nil, err
	}
	return &j, nil
}

// Claim moves up to limit pending jobs to running for runnerID. Rows locked by
// another runner are skipped.
func (r *JobRepo) Claim(ctx context.Context, limit int, runnerID string) ([]entity.ProcessingJob, error) {
	const q = `UPDATE processing_jobs SET status='running', started_at=NOW(), claimed_by=$2
		WHERE id IN (
			SELECT id FROM processing_jobs
			WHERE status='pending'
			ORDER BY priority DESC, created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED)
		RETURNING ` + jobColumns
	var out []entity.ProcessingJob
	if err := r.db.SelectContext(ctx, &out, q, limit, runnerID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *JobRepo) UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int, pct float64) error {
	const q = `UPDATE processing_jobs
		SET processed_metrics=$2, failed_metrics=$3, progress_percentage=$4
		WHERE id=$1 AND status='running'`
	_, err := r.db.ExecContext(ctx, q, id, processed, failed, pct)
	return err
}

// Complete records a terminal state.
func (r *JobRepo) Complete(ctx context.Context, j *entity.ProcessingJob) error {
	const q = `UPDATE processing_jobs
		SET status=$2, processed_metrics=$3, failed_metrics=$4, progress_percentage=$5,
			result_summary=$6::jsonb, error_message=$7, completed_at=NOW()
		WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, j.ID, j.Status, j.ProcessedMetrics, j.FailedMetrics,
		j.ProgressPercentage, jsonArg(j.ResultSummary), j.ErrorMessage)
	return err
}

// Retry resets a failed job to pending and reports whether one was reset.
func (r *JobRepo) Retry(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE processing_jobs
		SET status='pending', retry_count=retry_count+1, error_message=NULL, result_summary=NULL,
			processed_metrics=0, failed_metrics=0, progress_percentage=0,
			claimed_by=NULL, started_at=NULL, completed_at=NULL
		WHERE id=$1 AND status='failed'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Requeue returns running jobs claimed by runnerID to pending.
func (r *JobRepo) Requeue(ctx context.Context, runnerID string) (int64, error) {
	const q = `UPDATE processing_jobs SET status='pending', claimed_by=NULL, started_at=NULL
		WHERE status='running' AND claimed_by=$1`
	res, err := r.db.ExecContext(ctx, q, runnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteFinishedBefore removes terminal jobs completed before cutoff.
func (r *JobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM processing_jobs
		WHERE status IN ('completed', 'failed') AND completed_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
