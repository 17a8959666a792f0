package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

// slidingWindow trims every key's sorted set to the window and counts it.
// When recording and every key is under its limit, the hit is added to all
// of them; otherwise none is touched. Scores are unix milliseconds. ARGV is
// now, window, member, record flag, then one limit per key. It returns
// {allowed, count, oldest_ms} per key.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local member = ARGV[3]
local record = ARGV[4] == "1"

local out = {}
local all = true
for i, key in ipairs(KEYS) do
	local limit = tonumber(ARGV[4 + i])
	redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
	local count = redis.call("ZCARD", key)
	local oldest = now
	local first = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
	if #first > 0 then
		oldest = tonumber(first[2])
	end
	local allowed = 0
	if count < limit then
		allowed = 1
	else
		all = false
	end
	out[#out + 1] = allowed
	out[#out + 1] = count
	out[#out + 1] = oldest
end

if all and record then
	for i, key in ipairs(KEYS) do
		redis.call("ZADD", key, now, member)
		redis.call("PEXPIRE", key, window)
		out[(i - 1) * 3 + 2] = out[(i - 1) * 3 + 2] + 1
	end
end
return out
`)

// RedisBackend shares windows across processes through Redis sorted sets.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Dial parses url, connects and pings within timeout.
func Dial(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		return client, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisBackend) eval(ctx context.Context, hits []Hit, window time.Duration, now time.Time, record bool) ([]Result, error) {
	flag := "0"
	if record {
		flag = "1"
	}
	nowMS := now.UnixMilli()
	keys := make([]string, 0, len(hits))
	args := []any{nowMS, window.Milliseconds(), strconv.FormatInt(nowMS, 10) + "-" + ksuid.New().String(), flag}
	for _, h := range hits {
		keys = append(keys, h.Key)
		args = append(args, h.Limit)
	}
	vals, err := slidingWindow.Run(ctx, r.client, keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3*len(hits) {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		allowed, count, oldest := vals[3*i] == 1, int(vals[3*i+1]), time.UnixMilli(vals[3*i+2])
		out[i] = result(h.Limit, count, oldest, window, now, !allowed)
	}
	return out, nil
}

func (r *RedisBackend) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	res, err := r.eval(ctx, []Hit{{Key: key, Limit: limit}}, window, now, true)
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

func (r *RedisBackend) AllowAll(ctx context.Context, hits []Hit, window time.Duration, now time.Time) ([]Result, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	return r.eval(ctx, hits, window, now, true)
}

func (r *RedisBackend) Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	res, err := r.eval(ctx, []Hit{{Key: key, Limit: limit}}, window, now, false)
	if err != nil {
		return Result{}, err
	}
	// Peek never denies; a full window just has nothing remaining.
	res[0].RetryAfter = 0
	return res[0], nil
}

// Cleanup is a no-op: every key carries a PEXPIRE of one window.
func (r *RedisBackend) Cleanup(context.Context, time.Time) (int, error) { return 0, nil }
