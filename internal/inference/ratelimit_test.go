package inference

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterSpacing(t *testing.T) {
	// 1200 rpm = one slot per 50ms.
	rl := NewRateLimiter(1200)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 140*time.Millisecond {
		t.Errorf("4 acquisitions took %v, want >= ~150ms of spacing", elapsed)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("disabled limiter must not block")
	}
}

func TestRateLimiterRespectsCancellation(t *testing.T) {
	rl := NewRateLimiter(1) // one per minute
	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(cctx); err == nil {
		t.Error("expected context error while waiting for a slot")
	}
}
