package batch

import "github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"

// Dedup keeps the first occurrence of each natural key and reports how many
// rows were dropped. Order of the kept rows is preserved.
func Dedup[T metric.Metric](rows []T) ([]T, int) {
	if len(rows) < 2 {
		return rows, 0
	}
	seen := make(map[metric.Key]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// collapseLast keeps the last occurrence of each key. A single upsert
// statement cannot touch the same row twice, so chunks are collapsed before
// building even when deduplication is disabled.
func collapseLast[T metric.Metric](rows []T) []T {
	last := make(map[metric.Key]int, len(rows))
	for i, r := range rows {
		last[r.Key()] = i
	}
	if len(last) == len(rows) {
		return rows
	}
	out := make([]T, 0, len(last))
	for i, r := range rows {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}
