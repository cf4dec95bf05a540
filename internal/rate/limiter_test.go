package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.RecordFailure(ctx, "a@x.com", ""); err != nil {
			t.Fatalf("RecordFailure %d: %v", i, err)
		}
	}
	if err := l.CheckLogin(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("CheckLogin within budget: %v", err)
	}

	if err := l.RecordFailure(ctx, "a@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after exceeding budget, got %v", err)
	}
	if err := l.CheckLogin(ctx, "a@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected CheckLogin to report ErrRateLimited, got %v", err)
	}
}

func TestIPThrottleIndependentOfIdentifier(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxAttempts: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.RecordFailure(ctx, "victim@x.com", "10.0.0.9")
	}

	// Different identifier, same IP: still throttled.
	if err := l.CheckLogin(ctx, "other@x.com", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected per-IP throttle, got %v", err)
	}

	// Different IP: clean slate.
	if err := l.CheckLogin(ctx, "other@x.com", "10.0.0.10"); err != nil {
		t.Fatalf("unexpected throttle for fresh IP: %v", err)
	}
}

func TestResetClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "a@x.com", "")
	_ = l.RecordFailure(ctx, "a@x.com", "")

	if err := l.Reset(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("expected clean slate after Reset, got %v", err)
	}

	n, err := l.Attempts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 attempts after Reset, got %d", n)
	}
}

func TestWindowExpiry(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "a@x.com", "")
	_ = l.RecordFailure(ctx, "a@x.com", "")

	if err := l.CheckLogin(ctx, "a@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestRedisDownReportsUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})
	mr.Close()

	if err := l.RecordFailure(context.Background(), "a@x.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
