package crawler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces crawl requests with a randomized delay between
// configurable min/max bounds, under a global requests-per-second ceiling
// shared by all concurrent domain crawls in the process.
type RateLimiter struct {
	global   *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	lastReq  map[string]time.Time // keyed by host
}

// NewRateLimiter creates a rate limiter. requestsPerSec bounds the whole
// process; minDelay/maxDelay bound the per-host randomized spacing.
func NewRateLimiter(requestsPerSec float64, minDelay, maxDelay time.Duration) *RateLimiter {
	if requestsPerSec <= 0 {
		requestsPerSec = 4
	}
	if minDelay <= 0 {
		minDelay = 500 * time.Millisecond
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &RateLimiter{
		global:   rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		minDelay: minDelay,
		maxDelay: maxDelay,
		lastReq:  make(map[string]time.Time),
	}
}

// Wait blocks until the next request to host is permitted. The wait is the
// randomized per-host delay or the global ceiling, whichever is longer.
// Returns early with the context error on cancellation.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	return rl.WaitBounds(ctx, host, 0, 0)
}

// WaitBounds is Wait with per-call delay bounds; zero values fall back to
// the configured defaults. Campaigns carry their own bounds.
func (rl *RateLimiter) WaitBounds(ctx context.Context, host string, minDelay, maxDelay time.Duration) error {
	delay := rl.randomDelayBounds(minDelay, maxDelay)

	rl.mu.Lock()
	last, ok := rl.lastReq[host]
	rl.mu.Unlock()

	if ok {
		if remaining := time.Until(last.Add(delay)); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	if err := rl.global.Wait(ctx); err != nil {
		return err
	}

	rl.mu.Lock()
	rl.lastReq[host] = time.Now()
	rl.mu.Unlock()

	return nil
}

// randomDelayBounds picks a uniform delay within [minDelay, maxDelay],
// falling back to the configured bounds for zero values.
func (rl *RateLimiter) randomDelayBounds(minDelay, maxDelay time.Duration) time.Duration {
	if minDelay <= 0 {
		minDelay = rl.minDelay
	}
	if maxDelay < minDelay {
		maxDelay = rl.maxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	spread := maxDelay - minDelay
	if spread <= 0 {
		return minDelay
	}
	return minDelay + time.Duration(rand.Int63n(int64(spread)+1))
}

// Bounds returns the configured min/max delay
func (rl *RateLimiter) Bounds() (time.Duration, time.Duration) {
	return rl.minDelay, rl.maxDelay
}
