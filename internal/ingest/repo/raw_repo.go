package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest/entity"
)

// RawRepo provides DB operations for raw_ingestions.
type RawRepo struct {
	db *sqlx.DB
}

func NewRawRepo(db *sqlx.DB) *RawRepo { return &RawRepo{db: db} }

// jsonArg passes JSON bytes as text so the driver does not encode them as bytea.
func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func (r *RawRepo) Create(ctx context.Context, raw *entity.RawIngestion) error {
	const q = `INSERT INTO raw_ingestions (id, user_id, api_key_id, raw_payload, payload_hash,
			payload_size_bytes, processing_status, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q, raw.ID, raw.UserID, raw.APIKeyID, jsonArg(raw.Payload),
		raw.PayloadHash, raw.PayloadSize, raw.Status, raw.CreatedAt)
	return err
}

// Get returns sql.ErrNoRows when the row does not exist.
func (r *RawRepo) Get(ctx context.Context, id uuid.UUID) (*entity.RawIngestion, error) {
	const q = `SELECT id, user_id, api_key_id, raw_payload, payload_hash, payload_size_bytes,
			processing_status, processing_errors, processing_job_id, created_at, processed_at
		FROM raw_ingestions WHERE id=$1`
	var raw entity.RawIngestion
	if err := r.db.GetContext(ctx, &raw, q, id); err != nil {
		return nil, err
	}
	return &raw, nil
}

// UpdateStatus records an outcome; processed_at is stamped for terminal states.
func (r *RawRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errs []byte) error {
	const q = `UPDATE raw_ingestions
		SET processing_status=$2, processing_errors=$3::jsonb,
			processed_at = CASE WHEN $4 THEN NOW() ELSE processed_at END
		WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, status, jsonArg(errs), entity.Terminal(status))
	return err
}

// AttachJob links the row to the job that will process it.
func (r *RawRepo) AttachJob(ctx context.Context, id, jobID uuid.UUID) error {
	const q = `UPDATE raw_ingestions SET processing_job_id=$2, processing_status=$3 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, jobID, entity.StatusProcessing)
	return err
}
