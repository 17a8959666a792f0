package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job states; a job moves pending -> running -> completed | failed.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// TypeIngestBatch reprocesses a raw ingestion through the batch processor.
const TypeIngestBatch = "ingest_batch"

// ProcessingJob is a row of processing_jobs.
type ProcessingJob struct {
	ID                 uuid.UUID  `db:"id"`
	UserID             uuid.UUID  `db:"user_id"`
	APIKeyID           uuid.UUID  `db:"api_key_id"`
	RawIngestionID     uuid.UUID  `db:"raw_ingestion_id"`
	JobType            string     `db:"job_type"`
	Status             string     `db:"status"`
	Priority           int        `db:"priority"`
	TotalMetrics       int        `db:"total_metrics"`
	ProcessedMetrics   int        `db:"processed_metrics"`
	FailedMetrics      int        `db:"failed_metrics"`
	ProgressPercentage float64    `db:"progress_percentage"`
	RetryCount         int        `db:"retry_count"`
	Config             []byte     `db:"config"`
	ResultSummary      []byte     `db:"result_summary"`
	ErrorMessage       *string    `db:"error_message"`
	ClaimedBy          *string    `db:"claimed_by"`
	CreatedAt          time.Time  `db:"created_at"`
	StartedAt          *time.Time `db:"started_at"`
	CompletedAt        *time.Time `db:"completed_at"`
}

// ResultSummary is stored in result_summary when a job finishes.
type ResultSummary struct {
	TotalMetricsProcessed int            `json:"total_metrics_processed"`
	MetricsByType         map[string]int `json:"metrics_by_type"`
	ValidationErrors      int            `json:"validation_errors"`
	DatabaseErrors        int            `json:"database_errors"`
	DuplicatesRemoved     int            `json:"duplicates_removed"`
	RoutePointsProcessed  int            `json:"route_points_processed"`
	RetryAttempts         int            `json:"retry_attempts"`
	ProcessingTimeMS      int64          `json:"processing_time_ms"`
	FinalStatus           string         `json:"final_status"`
}

// View is the JSON form served by GET /v1/jobs/{id}.
type View struct {
	ID                 uuid.UUID       `json:"id"`
	RawIngestionID     uuid.UUID       `json:"raw_ingestion_id"`
	JobType            string          `json:"job_type"`
	Status             string          `json:"status"`
	TotalMetrics       int             `json:"total_metrics"`
	ProcessedMetrics   int             `json:"processed_metrics"`
	FailedMetrics      int             `json:"failed_metrics"`
	ProgressPercentage float64         `json:"progress_percentage"`
	RetryCount         int             `json:"retry_count"`
	ResultSummary      json.RawMessage `json:"result_summary,omitempty"`
	ErrorMessage       *string         `json:"error_message,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

func (j *ProcessingJob) View() View {
	v := View{
		ID:                 j.ID,
		RawIngestionID:     j.RawIngestionID,
		JobType:            j.JobType,
		Status:             j.Status,
		TotalMetrics:       j.TotalMetrics,
		ProcessedMetrics:   j.ProcessedMetrics,
		FailedMetrics:      j.FailedMetrics,
		ProgressPercentage: j.ProgressPercentage,
		RetryCount:         j.RetryCount,
		ErrorMessage:       j.ErrorMessage,
		CreatedAt:          j.CreatedAt,
		StartedAt:          j.StartedAt,
		CompletedAt:        j.CompletedAt,
	}
	if len(j.ResultSummary) > 0 {
		v.ResultSummary = json.RawMessage(j.ResultSummary)
	}
	return v
}
