package entity

import (
	"time"

	"github.com/google/uuid"
)

// Processing states of a raw_ingestions row.
const (
	StatusReceived       = "received"
	StatusProcessing     = "processing"
	StatusCompleted      = "completed"
	StatusPartialFailure = "partial_failure"
	StatusError          = "error"
	StatusRecovered      = "recovered"
)

// RawIngestion is the durable copy of an accepted request body. PayloadHash is
// the hex sha256 of the compacted JSON.
type RawIngestion struct {
	ID               uuid.UUID  `db:"id"`
	UserID           uuid.UUID  `db:"user_id"`
	APIKeyID         uuid.UUID  `db:"api_key_id"`
	Payload          []byte     `db:"raw_payload"`
	PayloadHash      string     `db:"payload_hash"`
	PayloadSize      int64      `db:"payload_size_bytes"`
	Status           string     `db:"processing_status"`
	ProcessingErrors []byte     `db:"processing_errors"`
	ProcessingJobID  *uuid.UUID `db:"processing_job_id"`
	CreatedAt        time.Time  `db:"created_at"`
	ProcessedAt      *time.Time `db:"processed_at"`
}

// Terminal reports whether status is a final outcome.
func Terminal(status string) bool {
	switch status {
	case StatusCompleted, StatusPartialFailure, StatusError, StatusRecovered:
		return true
	}
	return false
}
