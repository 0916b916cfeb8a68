package embedding

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps a fixed pause after every provider call and holds all calls back
// after a rate-limit response until the cooldown has passed. The token bucket
// additionally caps call starts at one per delay across goroutines.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	delay   time.Duration
	retryAt time.Time
}

// NewLimiter allows one call per delay. A non-positive delay disables spacing.
func NewLimiter(delay time.Duration) *Limiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1), delay: delay}
}

// Wait blocks until the cooldown, if any, has elapsed and a call slot is free.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Done marks the end of a call; the next Wait returns no earlier than delay from now.
func (l *Limiter) Done() {
	if l.delay > 0 {
		l.Cooldown(l.delay)
	}
}

// Cooldown blocks further calls for d.
func (l *Limiter) Cooldown(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := time.Now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}
