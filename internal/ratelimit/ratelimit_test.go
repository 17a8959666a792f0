package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
)

var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisBackend(client)
}

// backendContract runs the sliding-window behaviour every backend must share.
func backendContract(t *testing.T, b Backend) {
	ctx := context.Background()
	key := "rate_limit:api_key:" + uuid.NewString()

	for i := 0; i < 3; i++ {
		res, err := b.Allow(ctx, key, 3, time.Hour, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.True(t, res.Allowed(), "hit %d", i)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, base.Add(time.Hour), res.ResetAt)
	}

	res, err := b.Allow(ctx, key, 3, time.Hour, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 50*time.Minute, res.RetryAfter)
	assert.Equal(t, 3000, res.RetryAfterSeconds())

	peek, err := b.Peek(ctx, key, 3, time.Hour, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, peek.Allowed())
	assert.Equal(t, 0, peek.Remaining)

	// The first hit leaves the window; one slot frees up.
	res, err = b.Allow(ctx, key, 3, time.Hour, base.Add(time.Hour+time.Second))
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, base.Add(time.Minute+time.Hour), res.ResetAt)
}

// allowAllContract checks that AllowAll records on every key or on none.
func allowAllContract(t *testing.T, b Backend) {
	ctx := context.Background()
	free := "rate_limit:api_key:" + uuid.NewString()
	full := "rate_limit:ip:" + uuid.NewString()

	for i := 0; i < 2; i++ {
		_, err := b.Allow(ctx, full, 2, time.Hour, base)
		require.NoError(t, err)
	}

	res, err := b.AllowAll(ctx, []Hit{{Key: free, Limit: 3}, {Key: full, Limit: 2}}, time.Hour, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].Allowed())
	assert.Equal(t, 3, res[0].Remaining)
	assert.False(t, res[1].Allowed())
	assert.Equal(t, 59*time.Minute, res[1].RetryAfter)

	peek, err := b.Peek(ctx, free, 3, time.Hour, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, peek.Remaining)

	other := "rate_limit:user:" + uuid.NewString()
	res, err = b.AllowAll(ctx, []Hit{{Key: free, Limit: 3}, {Key: other, Limit: 5}}, time.Hour, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].Allowed())
	assert.Equal(t, 2, res[0].Remaining)
	assert.Equal(t, 4, res[1].Remaining)
}

// --- MemoryBackend ---

func TestMemoryBackend_AllowAllIsAllOrNothing(t *testing.T) {
	allowAllContract(t, NewMemoryBackend())
}

func TestMemoryBackend_SlidingWindow(t *testing.T) {
	backendContract(t, NewMemoryBackend())
}

func TestMemoryBackend_PeekDoesNotRecord(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		res, err := m.Peek(ctx, "k", 2, time.Hour, base)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)
	}
	assert.Equal(t, 0, m.Len())
}

func TestMemoryBackend_Cleanup(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	_, _ = m.Allow(ctx, "old", 10, time.Hour, base)
	_, _ = m.Allow(ctx, "fresh", 10, time.Hour, base.Add(50*time.Minute))

	n, err := m.Cleanup(ctx, base.Add(61*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Active("fresh", time.Hour, base.Add(61*time.Minute)))
	assert.False(t, m.Active("old", time.Hour, base.Add(61*time.Minute)))
}

func TestMemoryBackend_ConcurrentAllowNeverExceedsLimit(t *testing.T) {
	m := NewMemoryBackend()
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Allow(context.Background(), "k", 100, time.Hour, base)
			if err == nil && res.Allowed() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(100), allowed.Load())
}

// --- RedisBackend ---

func TestRedisBackend_SlidingWindow(t *testing.T) {
	_, b := newRedis(t)
	backendContract(t, b)
}

func TestRedisBackend_AllowAllIsAllOrNothing(t *testing.T) {
	_, b := newRedis(t)
	allowAllContract(t, b)
}

func TestRedisBackend_SetsExpiry(t *testing.T) {
	mr, b := newRedis(t)
	_, err := b.Allow(context.Background(), "rate_limit:ip:10.0.0.1", 5, time.Hour, base)
	require.NoError(t, err)
	assert.True(t, mr.Exists("rate_limit:ip:10.0.0.1"))
	assert.Equal(t, time.Hour, mr.TTL("rate_limit:ip:10.0.0.1"))
}

func TestRedisBackend_ConcurrentAllowNeverExceedsLimit(t *testing.T) {
	_, b := newRedis(t)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(context.Background(), "k", 25, time.Hour, base)
			if err == nil && res.Allowed() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(25), allowed.Load())
}

// --- FallbackBackend ---

type flakyBackend struct {
	Backend
	down atomic.Bool
}

func (f *flakyBackend) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if f.down.Load() {
		return Result{}, errors.New("connection refused")
	}
	return f.Backend.Allow(ctx, key, limit, window, now)
}

func (f *flakyBackend) AllowAll(ctx context.Context, hits []Hit, window time.Duration, now time.Time) ([]Result, error) {
	if f.down.Load() {
		return nil, errors.New("connection refused")
	}
	return f.Backend.AllowAll(ctx, hits, window, now)
}

func TestFallbackBackend_FailsOpenToMemory(t *testing.T) {
	_, rb := newRedis(t)
	primary := &flakyBackend{Backend: rb}
	local := NewMemoryBackend()
	fb := NewFallbackBackend(primary, local, 50*time.Millisecond, zap.NewNop().Sugar())
	ctx := context.Background()

	primary.down.Store(true)
	res, err := fb.Allow(ctx, "a", 2, time.Hour, base)
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.True(t, fb.Degraded())
	assert.Equal(t, 1, local.Len())

	// Recovery: "a" stays local until its hits age out, "b" goes to redis.
	primary.down.Store(false)
	res, err = fb.Allow(ctx, "a", 2, time.Hour, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)
	res, err = fb.Allow(ctx, "a", 2, time.Hour, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	_, err = fb.Allow(ctx, "b", 2, time.Hour, base)
	require.NoError(t, err)
	assert.False(t, fb.Degraded())
	assert.False(t, local.Active("b", time.Hour, base))

	res, err = fb.Allow(ctx, "a", 2, time.Hour, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.False(t, local.Active("a", time.Hour, base.Add(2*time.Hour)))
}

// --- Checker ---

func testChecker(b Backend) *Checker {
	cfg := config.RateLimitConfig{
		KeyRequestsPerHour:  3,
		UserRequestsPerHour: 5,
		IPRequestsPerHour:   4,
		Window:              time.Hour,
	}
	c := NewChecker(b, cfg, zap.NewNop().Sugar())
	c.now = func() time.Time { return base }
	return c
}

func TestChecker_DeniesAfterKeyLimit(t *testing.T) {
	c := testChecker(NewMemoryBackend())
	s := Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "10.0.0.1"}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := c.Check(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}
	_, err := c.Check(ctx, s)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, AxisKey, denied.Axis)
	assert.Greater(t, denied.Result.RetryAfterSeconds(), 0)
}

func TestChecker_AxesAreIsolated(t *testing.T) {
	c := testChecker(NewMemoryBackend())
	ctx := context.Background()
	k1 := Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		_, err := c.Check(ctx, k1)
		require.NoError(t, err)
	}
	_, err := c.Check(ctx, k1)
	require.Error(t, err)

	k2 := Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "10.0.0.2"}
	_, err = c.Check(ctx, k2)
	assert.NoError(t, err)
}

func TestChecker_IPAxisSharedAcrossKeys(t *testing.T) {
	c := testChecker(NewMemoryBackend())
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := c.Check(ctx, Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "192.0.2.7"})
		require.NoError(t, err)
	}
	_, err := c.Check(ctx, Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "192.0.2.7"})
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, AxisIP, denied.Axis)
}

// A busy NAT address at its limit must not spend the quota of the keys and
// users behind it.
func checkerDenialLeavesOtherAxes(t *testing.T, b Backend) {
	c := testChecker(b)
	ctx := context.Background()
	const shared = "198.51.100.9"
	for i := 0; i < 4; i++ {
		_, err := c.Check(ctx, Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: shared})
		require.NoError(t, err)
	}

	s := Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: shared}
	for i := 0; i < 3; i++ {
		_, err := c.Check(ctx, s)
		var denied *DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, AxisIP, denied.Axis)
	}

	st, err := c.Status(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Remaining)
	user, err := b.Peek(ctx, storageKey(AxisUser, s.UserID.String()), 5, time.Hour, base)
	require.NoError(t, err)
	assert.Equal(t, 5, user.Remaining)

	s.IP = "203.0.113.50"
	res, err := c.Check(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestChecker_DenialLeavesOtherAxes_Memory(t *testing.T) {
	checkerDenialLeavesOtherAxes(t, NewMemoryBackend())
}

func TestChecker_DenialLeavesOtherAxes_Redis(t *testing.T) {
	_, b := newRedis(t)
	checkerDenialLeavesOtherAxes(t, b)
}

func TestChecker_DenialLeavesOtherAxes_Fallback(t *testing.T) {
	_, rb := newRedis(t)
	checkerDenialLeavesOtherAxes(t, NewFallbackBackend(rb, NewMemoryBackend(), time.Second, zap.NewNop().Sugar()))
}

func TestChecker_UserDenialLeavesKey(t *testing.T) {
	c := testChecker(NewMemoryBackend())
	ctx := context.Background()
	userID := uuid.New()
	for i := 0; i < 5; i++ {
		_, err := c.Check(ctx, Subject{KeyID: uuid.New(), UserID: userID, IP: "10.1.0." + string(rune('1'+i))})
		require.NoError(t, err)
	}
	s := Subject{KeyID: uuid.New(), UserID: userID, IP: "10.2.0.1"}
	_, err := c.Check(ctx, s)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, AxisUser, denied.Axis)

	st, err := c.Status(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Remaining)
	ip, err := c.backend.Peek(ctx, storageKey(AxisIP, s.IP), 4, time.Hour, base)
	require.NoError(t, err)
	assert.Equal(t, 4, ip.Remaining)
}

func TestChecker_KeyLimitOverride(t *testing.T) {
	c := testChecker(NewMemoryBackend())
	one := 1
	s := Subject{KeyID: uuid.New(), KeyLimit: &one, UserID: uuid.New(), IP: "10.0.0.9"}
	ctx := context.Background()
	res, err := c.Check(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Limit)
	_, err = c.Check(ctx, s)
	assert.Error(t, err)
}

func TestChecker_StatusDoesNotIncrement(t *testing.T) {
	c := testChecker(NewMemoryBackend())
	s := Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "10.0.0.1"}
	ctx := context.Background()
	_, err := c.Check(ctx, s)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		st, err := c.Status(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 2, st.Remaining)
	}
}

func TestChecker_BackendErrorsAllow(t *testing.T) {
	fb := &flakyBackend{Backend: NewMemoryBackend()}
	fb.down.Store(true)
	c := testChecker(fb)
	_, err := c.Check(context.Background(), Subject{KeyID: uuid.New(), UserID: uuid.New(), IP: "10.0.0.1"})
	assert.NoError(t, err)
}

func TestNew_WithoutRedisUsesMemory(t *testing.T) {
	c := New(context.Background(), config.RateLimitConfig{KeyRequestsPerHour: 1}, zap.NewNop().Sugar())
	_, ok := c.backend.(*MemoryBackend)
	assert.True(t, ok)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(context.Background(), config.RateLimitConfig{RedisURL: "redis://" + mr.Addr(), KeyRequestsPerHour: 1,
		CacheTimeout: 50 * time.Millisecond}, zap.NewNop().Sugar())
	_, ok := c.backend.(*FallbackBackend)
	assert.True(t, ok)
}

// --- HTTP helpers ---

func TestSetHeaders(t *testing.T) {
	reset := time.Unix(1735725600, 0)
	h := http.Header{}
	SetHeaders(h, Result{Limit: 100, Remaining: 42, ResetAt: reset})
	assert.Equal(t, "100", h.Get("X-RateLimit-Limit"))
	assert.Equal(t, "42", h.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1735725600", h.Get("X-RateLimit-Reset"))
	assert.Empty(t, h.Get("Retry-After"))

	SetHeaders(h, Result{Limit: 100, ResetAt: reset, RetryAfter: 1500 * time.Millisecond})
	assert.Equal(t, "0", h.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2", h.Get("Retry-After"))

	empty := http.Header{}
	SetHeaders(empty, Result{})
	assert.Empty(t, empty)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(r))

	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))

	r.Header.Del("X-Forwarded-For")
	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientIP(r))
}
