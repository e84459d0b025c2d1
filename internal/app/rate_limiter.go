package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Rate limit scopes.
const (
	RateLimitScopeMessageSend    = "message_send"
	RateLimitScopeDonationCreate = "donation_create"
)

// RateLimiter counts one attempt by subject within scope. A count above limit means the
// attempt must be refused; retryAfterSeconds is then the wait before the next attempt.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimiter is a fixed-window limiter shared by every replica through Redis.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "adoption:rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: trimmed}
}

func (r *RedisRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if r == nil || r.client == nil {
		return 0, 0, nil
	}
	scope, subject, ok := normalizeLimitKey(scope, subject, limit, window)
	if !ok {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	raw, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(count), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}
	return int(count), ceilSeconds(time.Duration(ttlMs) * time.Millisecond), nil
}

// LocalRateLimiter is the in-process token bucket used when Redis is not configured.
// Limits are per replica.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	now      func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const localLimiterSweepSize = 10000

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{limiters: make(map[string]*localEntry), now: time.Now}
}

func (l *LocalRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	scope, subject, ok := normalizeLimitKey(scope, subject, limit, window)
	if !ok {
		return 0, 0, nil
	}

	now := l.now()
	key := scope + ":" + subject

	l.mu.Lock()
	entry, exists := l.limiters[key]
	if !exists {
		if len(l.limiters) >= localLimiterSweepSize {
			l.sweep(now, window)
		}
		entry = &localEntry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	reservation := entry.limiter.ReserveN(now, 1)
	l.mu.Unlock()

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return 1, 0, nil
	}
	reservation.CancelAt(now)
	return limit + 1, ceilSeconds(delay), nil
}

// sweep drops entries idle for longer than window; a refilled bucket is equivalent to a
// fresh one. Caller holds l.mu.
func (l *LocalRateLimiter) sweep(now time.Time, window time.Duration) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > window {
			delete(l.limiters, key)
		}
	}
}

func normalizeLimitKey(scope, subject string, limit int, window time.Duration) (string, string, bool) {
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" || limit <= 0 || window <= 0 {
		return "", "", false
	}
	return scope, subject, true
}

func ceilSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
