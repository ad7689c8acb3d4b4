// Package ratelimit caps how often a single user may mint signed URLs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed-window counter shared by every broker instance.
type RedisLimiter struct {
	client goredis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client goredis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	windowEnd := time.Unix(0, (slot+1)*int64(l.window))
	redisKey := l.prefix + key + ":" + time.Unix(0, slot*int64(l.window)).UTC().Format("20060102T150405")

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	if count > l.limit {
		return Decision{Allowed: false, RetryAfter: windowEnd.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - count}, nil
}

// MemoryLimiter is a per-process sliding window, used when Redis is disabled.
// Keys with no attempt inside the window are swept once per interval.
type MemoryLimiter struct {
	mu        sync.Mutex
	history   map[string][]time.Time
	limit     int
	interval  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter(limit int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.interval)
	if now.Sub(l.lastSweep) >= l.interval {
		l.sweep(windowStart)
		l.lastSweep = now
	}

	attempts := l.history[key]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= l.limit {
		l.history[key] = fresh
		return Decision{Allowed: false, RetryAfter: fresh[0].Add(l.interval).Sub(now)}, nil
	}

	fresh = append(fresh, now)
	l.history[key] = fresh
	return Decision{Allowed: true, Remaining: l.limit - len(fresh)}, nil
}

// sweep drops keys whose newest attempt is outside the window.
func (l *MemoryLimiter) sweep(windowStart time.Time) {
	for key, attempts := range l.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(l.history, key)
		}
	}
}
