package entity

import (
	"time"

	"github.com/google/uuid"
)

// User owns metrics and API keys. Users are provisioned out-of-band
// (healthctl user create); the ingest path only reads them.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
