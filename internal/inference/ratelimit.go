package inference

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a leaky bucket enforcing a requests-per-minute rate.
// Wait blocks until the next drip or the context expires.
type RateLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimiter builds a limiter for the given per-minute rate.
// A non-positive rate disables limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{interval: time.Minute / time.Duration(requestsPerMinute)}
}

// Wait reserves the next slot and sleeps until it arrives.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.interval == 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	if r.next.Before(now) {
		r.next = now
	}
	wakeAt := r.next
	r.next = r.next.Add(r.interval)
	r.mu.Unlock()

	delay := time.Until(wakeAt)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
