package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// APIKey is a provisioned credential. Only the hash of the secret is stored;
// KeyPrefix keeps the first characters for display.
type APIKey struct {
	ID               uuid.UUID  `db:"id"`
	UserID           uuid.UUID  `db:"user_id"`
	Name             string     `db:"name"`
	KeyHash          string     `db:"key_hash"`
	KeyPrefix        string     `db:"key_prefix"`
	IsActive         bool       `db:"is_active"`
	Permissions      []byte     `db:"permissions"`
	RateLimitPerHour *int       `db:"rate_limit_per_hour"`
	ExpiresAt        *time.Time `db:"expires_at"`
	LastUsedAt       *time.Time `db:"last_used_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

// Expired reports whether the key has an expiry at or before now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// KeyView is the listable form of a key.
type KeyView struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Name             string          `json:"name"`
	KeyPrefix        string          `json:"key_prefix"`
	IsActive         bool            `json:"is_active"`
	Permissions      json.RawMessage `json:"permissions,omitempty"`
	RateLimitPerHour *int            `json:"rate_limit_per_hour,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	LastUsedAt       *time.Time      `json:"last_used_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (k *APIKey) View() KeyView {
	v := KeyView{
		ID:               k.ID,
		UserID:           k.UserID,
		Name:             k.Name,
		KeyPrefix:        k.KeyPrefix,
		IsActive:         k.IsActive,
		RateLimitPerHour: k.RateLimitPerHour,
		ExpiresAt:        k.ExpiresAt,
		LastUsedAt:       k.LastUsedAt,
		CreatedAt:        k.CreatedAt,
	}
	if len(k.Permissions) > 0 {
		v.Permissions = json.RawMessage(k.Permissions)
	}
	return v
}
