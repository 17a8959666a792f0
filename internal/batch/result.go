package batch

import (
	"encoding/json"
)

// ItemError is one entry of the response's error list. Index is set for
// per-record failures, IndexRange for whole-chunk failures.
type ItemError struct {
	Variant    string  `json:"variant"`
	Index      *int    `json:"index,omitempty"`
	IndexRange *[2]int `json:"index_range,omitempty"`
	Message    string  `json:"message"`
}

// DedupStats counts intra-batch duplicates removed per variant slug.
type DedupStats struct {
	Duplicates map[string]int
	Total      int
	ElapsedMS  int64
}

// MarshalJSON flattens the per-variant counts into "<slug>_duplicates" keys.
func (s DedupStats) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Duplicates)+2)
	for slug, n := range s.Duplicates {
		out[slug+"_duplicates"] = n
	}
	out["total_duplicates"] = s.Total
	out["deduplication_time_ms"] = s.ElapsedMS
	return json.Marshal(out)
}

// Progress is reported once per finished chunk when progress tracking is on.
// FailedInChunk counts the rows of a failed metric chunk; route point chunks
// leave it at zero.
type Progress struct {
	Variant          string `json:"variant"`
	ChunkIndex       int    `json:"chunk_index"`
	ChunkTotal       int    `json:"chunk_total"`
	ProcessedInChunk int    `json:"processed_in_chunk"`
	FailedInChunk    int    `json:"failed_in_chunk"`
}

// ProgressSummary aggregates chunk progress for the result.
type ProgressSummary struct {
	ChunksTotal     int            `json:"chunks_total"`
	ChunksSucceeded int            `json:"chunks_succeeded"`
	ChunksFailed    int            `json:"chunks_failed"`
	ChunksByVariant map[string]int `json:"chunks_by_variant"`
}

// Result is the outcome of one batch. It doubles as the synchronous ingest
// response body and a job's result summary.
type Result struct {
	ProcessedCount       int              `json:"processed_count"`
	FailedCount          int              `json:"failed_count"`
	Errors               []ItemError      `json:"errors"`
	ErrorsTruncated      bool             `json:"errors_truncated,omitempty"`
	Deduplication        *DedupStats      `json:"deduplication_stats,omitempty"`
	ProcessingTimeMS     int64            `json:"processing_time_ms"`
	RetryAttempts        int              `json:"retry_attempts"`
	MemoryPeakMB         float64          `json:"memory_peak_mb"`
	RoutePointsProcessed int              `json:"route_points_processed,omitempty"`
	ChunkProgress        *ProgressSummary `json:"chunk_progress,omitempty"`
}

// Status classifies the result for the raw ingestion record.
func (r *Result) Status() string {
	switch {
	case r.FailedCount == 0:
		return "completed"
	case r.ProcessedCount > 0:
		return "partial_failure"
	default:
		return "error"
	}
}

// Truncated returns a copy listing at most n errors per variant, earliest
// first. ErrorsTruncated is set when anything was dropped.
func (r *Result) Truncated(n int) *Result {
	out := *r
	if n <= 0 {
		return &out
	}
	seen := map[string]int{}
	out.Errors = make([]ItemError, 0, len(r.Errors))
	for _, e := range r.Errors {
		if seen[e.Variant] >= n {
			out.ErrorsTruncated = true
			continue
		}
		seen[e.Variant]++
		out.Errors = append(out.Errors, e)
	}
	return &out
}

func indexed(variant string, i int, msg string) ItemError {
	return ItemError{Variant: variant, Index: &i, Message: msg}
}

func ranged(variant string, start, end int, msg string) ItemError {
	return ItemError{Variant: variant, IndexRange: &[2]int{start, end}, Message: msg}
}
