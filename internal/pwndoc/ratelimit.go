package pwndoc

import (
	"context"
	"sync"
	"time"
)

// RateLimiter admits at most maxRequests calls within any trailing period.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	period      time.Duration
	window      []time.Time
	now         func() time.Time
}

// NewRateLimiter returns a sliding window limiter.
// A non-positive maxRequests or period would stall forever and is rejected.
func NewRateLimiter(maxRequests int, period time.Duration) (*RateLimiter, error) {
	if maxRequests <= 0 || period <= 0 {
		return nil, ErrInvalidRateLimit
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		period:      period,
		window:      make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}, nil
}

// evict drops timestamps older than the window. Caller holds mu.
func (r *RateLimiter) evict(now time.Time) {
	cutoff := now.Add(-r.period)
	i := 0
	for i < len(r.window) && r.window[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		r.window = append(r.window[:0], r.window[i:]...)
	}
}

// Acquire records a request and returns true if the window has room.
// A denied call leaves the window untouched.
func (r *RateLimiter) Acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evict(now)
	if len(r.window) >= r.maxRequests {
		return false
	}
	r.window = append(r.window, now)
	return true
}

// WaitTime returns how long until the oldest entry leaves a full window, or
// zero when the window has room.
func (r *RateLimiter) WaitTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evict(now)
	if len(r.window) < r.maxRequests {
		return 0
	}
	if wait := r.window[0].Add(r.period).Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Wait blocks until Acquire succeeds or ctx is done. It returns the total
// time spent waiting.
func (r *RateLimiter) Wait(ctx context.Context, sleep func(context.Context, time.Duration) error) (time.Duration, error) {
	var waited time.Duration
	for !r.Acquire() {
		wait := r.WaitTime()
		// Entries exactly at the cutoff are still inside the window.
		if wait <= 0 {
			wait = time.Millisecond
		}
		if err := sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
	return waited, nil
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
