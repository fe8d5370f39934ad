package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr
}

func TestCheckLoginWithinBudget(t *testing.T) {
	l, _ := newLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("fresh account: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := l.IncrementLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("at budget: %v", err)
	}
}

func TestCheckLoginOverBudget(t *testing.T) {
	l, _ := newLimiter(t, Config{MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.IncrementLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := l.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third increment err = %v, want ErrRateLimited", err)
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check err = %v, want ErrRateLimited", err)
	}
}

func TestWindowExpiry(t *testing.T) {
	l, mr := newLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "alice", "")
	_ = l.IncrementLogin(ctx, "alice", "")
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check err = %v, want ErrRateLimited", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("after window: %v", err)
	}
	if n, err := l.GetLoginAttempts(ctx, "alice"); err != nil || n != 0 {
		t.Fatalf("attempts = (%d, %v), want (0, nil)", n, err)
	}
}

func TestResetLogin(t *testing.T) {
	l, _ := newLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "alice", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "alice", "10.0.0.1")

	if err := l.ResetLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

func TestIPThrottleIndependentOfAccount(t *testing.T) {
	l, _ := newLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	// Different accounts, same origin: the IP counter trips.
	_ = l.IncrementLogin(ctx, "alice", "10.0.0.9")
	_ = l.IncrementLogin(ctx, "bob", "10.0.0.9")

	if err := l.CheckLogin(ctx, "carol", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check err = %v, want ErrRateLimited on shared IP", err)
	}
	if err := l.CheckLogin(ctx, "carol", "10.9.9.9"); err != nil {
		t.Fatalf("fresh IP: %v", err)
	}
}

func TestGetLoginAttempts(t *testing.T) {
	l, _ := newLimiter(t, Config{MaxLoginAttempts: 5, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	if n, err := l.GetLoginAttempts(ctx, "alice"); err != nil || n != 0 {
		t.Fatalf("fresh attempts = (%d, %v), want (0, nil)", n, err)
	}

	_ = l.IncrementLogin(ctx, "alice", "")
	_ = l.IncrementLogin(ctx, "alice", "")

	if n, err := l.GetLoginAttempts(ctx, "alice"); err != nil || n != 2 {
		t.Fatalf("attempts = (%d, %v), want (2, nil)", n, err)
	}
}
