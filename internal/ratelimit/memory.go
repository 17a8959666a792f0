package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps each key's hit timestamps in order behind one mutex.
type MemoryBackend struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	window time.Duration
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{hits: make(map[string][]time.Time)}
}

// prune drops hits at or before now-window. Callers hold mu.
func (m *MemoryBackend) prune(key string, window time.Duration, now time.Time) []time.Time {
	ts := m.hits[key]
	horizon := now.Add(-window)
	i := sort.Search(len(ts), func(i int) bool { return ts[i].After(horizon) })
	if i > 0 {
		ts = append(ts[:0], ts[i:]...)
		if len(ts) == 0 {
			delete(m.hits, key)
			return nil
		}
		m.hits[key] = ts
	}
	return ts
}

func (m *MemoryBackend) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	res, err := m.AllowAll(ctx, []Hit{{Key: key, Limit: limit}}, window, now)
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

func (m *MemoryBackend) AllowAll(_ context.Context, hits []Hit, window time.Duration, now time.Time) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if window > m.window {
		m.window = window
	}
	out := make([]Result, len(hits))
	denied := false
	for i, h := range hits {
		ts := m.prune(h.Key, window, now)
		var oldest time.Time
		if len(ts) > 0 {
			oldest = ts[0]
		}
		over := len(ts) >= h.Limit
		denied = denied || over
		out[i] = result(h.Limit, len(ts), oldest, window, now, over)
	}
	if denied {
		return out, nil
	}
	for i, h := range hits {
		ts := append(m.hits[h.Key], now)
		m.hits[h.Key] = ts
		out[i] = result(h.Limit, len(ts), ts[0], window, now, false)
	}
	return out, nil
}

func (m *MemoryBackend) Peek(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.prune(key, window, now)
	var oldest time.Time
	if len(ts) > 0 {
		oldest = ts[0]
	}
	return result(limit, len(ts), oldest, window, now, false), nil
}

// Active reports whether key has hits inside the window.
func (m *MemoryBackend) Active(key string, window time.Duration, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prune(key, window, now)) > 0
}

func (m *MemoryBackend) Cleanup(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	horizon := now.Add(-m.window)
	n := 0
	for k, ts := range m.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(horizon) {
			delete(m.hits, k)
			n++
		}
	}
	return n, nil
}

// Len is the number of tracked keys.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}
