package batch

import (
	"math"
	"sync"
)

// memTracker follows the estimated bytes held by a batch: the decoded rows
// plus the statements of chunks in flight.
type memTracker struct {
	mu   sync.Mutex
	cur  int64
	peak int64
}

func newMemTracker(base int64) *memTracker {
	return &memTracker{cur: base, peak: base}
}

func (m *memTracker) add(n int64) {
	m.mu.Lock()
	m.cur += n
	if m.cur > m.peak {
		m.peak = m.cur
	}
	m.mu.Unlock()
}

func (m *memTracker) peakMB() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return toMB(m.peak)
}

func toMB(b int64) float64 {
	return math.Round(float64(b)/(1<<20)*100) / 100
}
