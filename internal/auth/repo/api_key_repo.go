package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth/entity"
)

// KeyRepo provides DB operations for api_keys.
type KeyRepo struct {
	db *sqlx.DB
}

func NewKeyRepo(db *sqlx.DB) *KeyRepo { return &KeyRepo{db: db} }

const keyColumns = `id, user_id, name, key_hash, key_prefix, is_active, permissions,
	rate_limit_per_hour, expires_at, last_used_at, created_at`

func (r *KeyRepo) Create(ctx context.Context, k *entity.APIKey) error {
	const q = `INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, is_active,
			permissions, rate_limit_per_hour, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)`
	var perms any
	if len(k.Permissions) > 0 {
		perms = string(k.Permissions)
	}
	_, err := r.db.ExecContext(ctx, q, k.ID, k.UserID, k.Name, k.KeyHash, k.KeyPrefix, k.IsActive,
		perms, k.RateLimitPerHour, k.ExpiresAt, k.CreatedAt)
	return err
}

// GetByHash returns sql.ErrNoRows when no key carries the hash.
func (r *KeyRepo) GetByHash(ctx context.Context, hash string) (*entity.APIKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM api_keys WHERE key_hash=$1`
	var k entity.APIKey
	if err := r.db.GetContext(ctx, &k, q, hash); err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *KeyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.APIKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM api_keys WHERE user_id=$1 ORDER BY created_at`
	var out []entity.APIKey
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Revoke deactivates a key and reports whether an active key was found.
func (r *KeyRepo) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE api_keys SET is_active=false WHERE id=$1 AND is_active`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *KeyRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE api_keys SET last_used_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
