package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, max int) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, New(rdb, Config{Prefix: "t", MaxAttempts: max, Cooldown: time.Minute})
}

func TestLimiterBlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	_, l := newTestLimiter(t, 3)

	for i := 0; i < 2; i++ {
		if err := l.Increment(ctx, "u-1"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
		if err := l.Check(ctx, "u-1"); err != nil {
			t.Fatalf("attempt %d: check should pass, got %v", i+1, err)
		}
	}
	if err := l.Increment(ctx, "u-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on the last attempt, got %v", err)
	}
	if err := l.Check(ctx, "u-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected check to block, got %v", err)
	}
	if err := l.Check(ctx, "u-2"); err != nil {
		t.Fatalf("other users must not be affected, got %v", err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	mr, l := newTestLimiter(t, 1)

	_ = l.Increment(ctx, "u-1")
	if ttl := mr.TTL("t:pk:u-1"); ttl != time.Minute {
		t.Fatalf("expected 1m window, got %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.Check(ctx, "u-1"); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestLimiterReset(t *testing.T) {
	ctx := context.Background()
	_, l := newTestLimiter(t, 5)

	_ = l.Increment(ctx, "u-1")
	_ = l.Increment(ctx, "u-1")
	if n, _ := l.Attempts(ctx, "u-1"); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
	if err := l.Reset(ctx, "u-1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if n, _ := l.Attempts(ctx, "u-1"); n != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", n)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, l := newTestLimiter(t, 5)
	mr.Close()

	if err := l.Check(ctx, "u-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
