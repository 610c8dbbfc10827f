// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult describes the outcome of a single permit request.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter grants at most `limit` permits per key inside a sliding
// window. Allow performs the check and the consumption as one atomic step,
// so concurrent callers can never overshoot the limit.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*RateLimitResult, error)
}

// slidingWindowScript checks the window and records the new permit in one
// round trip. KEYS[1] is the sorted set, ARGV: now (unix micros), window
// (micros), limit, member. Returns {allowed, remaining, oldest}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, 0, oldest[2]}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return {1, limit - count - 1, 0}
`)

// RedisRateLimiter implements RateLimiter on a Redis sorted set per key.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisRateLimiter creates a Redis-backed sliding window limiter
func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) RateLimiter {
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	now := time.Now().UnixMicro()
	windowMicros := r.window.Microseconds()
	member := fmt.Sprintf("%d-%d", now, time.Now().UnixNano())

	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{r.prefix + key},
		now, windowMicros, r.limit, member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) < 3 {
		return nil, fmt.Errorf("rate limit check returned unexpected result")
	}

	if res[0] == 1 {
		return &RateLimitResult{Allowed: true, Remaining: int(res[1])}, nil
	}

	// The oldest entry leaving the window frees the next slot
	oldest := time.UnixMicro(res[2])
	retryAfter := time.Until(oldest.Add(r.window))
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
}

// MemoryRateLimiter implements RateLimiter with an in-process timestamp map.
// Used when the cache is disabled and in tests. Single-process only.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryRateLimiter creates an in-memory sliding window limiter
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (m *MemoryRateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)

	kept := m.entries[key][:0]
	for _, t := range m.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= m.limit {
		m.entries[key] = kept
		retryAfter := kept[0].Add(m.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	m.entries[key] = append(kept, now)
	return &RateLimitResult{Allowed: true, Remaining: m.limit - len(kept) - 1}, nil
}
