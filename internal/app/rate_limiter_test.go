package app

import (
	"context"
	"testing"
	"time"
)

func TestLocalRateLimiter_RefusesAfterLimit(t *testing.T) {
	limiter := NewLocalRateLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		count, _, err := limiter.ConsumeRateLimit(ctx, RateLimitScopeMessageSend, "user-1", 3, time.Minute)
		if err != nil || count > 3 {
			t.Fatalf("attempt %d should be allowed, got count=%d err=%v", i+1, count, err)
		}
	}

	count, retryAfter, err := limiter.ConsumeRateLimit(ctx, RateLimitScopeMessageSend, "user-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count <= 3 {
		t.Fatalf("fourth attempt should exceed the limit, got count=%d", count)
	}
	if retryAfter < 1 || retryAfter > 20 {
		t.Fatalf("expected retry-after within one refill interval, got %d", retryAfter)
	}

	// Other subjects and scopes have their own buckets.
	if count, _, _ := limiter.ConsumeRateLimit(ctx, RateLimitScopeMessageSend, "user-2", 3, time.Minute); count > 3 {
		t.Fatalf("other subject should not be limited")
	}
	if count, _, _ := limiter.ConsumeRateLimit(ctx, RateLimitScopeDonationCreate, "user-1", 3, time.Minute); count > 3 {
		t.Fatalf("other scope should not be limited")
	}

	now = now.Add(time.Minute)
	if count, _, _ := limiter.ConsumeRateLimit(ctx, RateLimitScopeMessageSend, "user-1", 3, time.Minute); count > 3 {
		t.Fatalf("bucket should refill after the window")
	}
}

func TestLocalRateLimiter_DisabledInputs(t *testing.T) {
	limiter := NewLocalRateLimiter()
	tests := []struct {
		scope, subject string
		limit          int
		window         time.Duration
	}{
		{scope: "", subject: "u", limit: 1, window: time.Minute},
		{scope: "s", subject: " ", limit: 1, window: time.Minute},
		{scope: "s", subject: "u", limit: 0, window: time.Minute},
		{scope: "s", subject: "u", limit: 1, window: 0},
	}
	for _, tt := range tests {
		count, retry, err := limiter.ConsumeRateLimit(context.Background(), tt.scope, tt.subject, tt.limit, tt.window)
		if count != 0 || retry != 0 || err != nil {
			t.Fatalf("expected disabled limiter for %+v, got %d %d %v", tt, count, retry, err)
		}
	}
}

func TestRedisRateLimiter_NilClientIsNoop(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, "  custom:prefix: ")
	if limiter.prefix != "custom:prefix" {
		t.Fatalf("expected trimmed prefix, got %q", limiter.prefix)
	}
	count, retry, err := limiter.ConsumeRateLimit(context.Background(), "s", "u", 1, time.Minute)
	if count != 0 || retry != 0 || err != nil {
		t.Fatalf("expected no-op without client")
	}
	if NewRedisRateLimiter(nil, "").prefix != "adoption:rate_limit" {
		t.Fatalf("expected default prefix")
	}
}

func TestScheduler_InvalidScheduleReturnsError(t *testing.T) {
	env := newTestEnv(Options{})
	scheduler := NewScheduler(env.svc, "not a schedule")
	if err := scheduler.Start(); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
	<-scheduler.Stop().Done()

	scheduler = NewScheduler(env.svc, "@every 1h")
	if err := scheduler.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-scheduler.Stop().Done()
}
