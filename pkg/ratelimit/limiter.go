package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether an event may happen now and records it if so
	Allow() bool
	// Wait blocks until an event is allowed or ctx is done
	Wait(ctx context.Context) error
	// Reset clears the limiter state
	Reset()
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval enforces a minimum gap between consecutive events.
// It paces recipe page loads and search queries.
type Interval struct {
	gap  time.Duration
	last time.Time
	mu   sync.Mutex
}

// NewInterval creates a limiter that allows one event per gap
func NewInterval(gap time.Duration) *Interval {
	return &Interval{gap: gap}
}

// Allow checks if the gap since the last event has elapsed
func (iv *Interval) Allow() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	now := time.Now()
	if iv.last.IsZero() || now.Sub(iv.last) >= iv.gap {
		iv.last = now
		return true
	}
	return false
}

// Wait blocks until the gap has elapsed, then records the event
func (iv *Interval) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if iv.Allow() {
			return nil
		}

		iv.mu.Lock()
		remaining := iv.gap - time.Since(iv.last)
		iv.mu.Unlock()

		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

// Reset forgets the last event
func (iv *Interval) Reset() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.last = time.Time{}
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		untilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		// Small floor to prevent busy waiting
		if untilRefill < 10*time.Millisecond {
			untilRefill = 10 * time.Millisecond
		}
		if err := sleep(ctx, untilRefill); err != nil {
			return err
		}
	}
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill tops the bucket up once a full period has elapsed
func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// Chain waits on every limiter in order
type Chain []Limiter

// Allow succeeds only if every limiter allows the event
func (c Chain) Allow() bool {
	for _, l := range c {
		if !l.Allow() {
			return false
		}
	}
	return true
}

// Wait waits on each limiter in turn
func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets every limiter
func (c Chain) Reset() {
	for _, l := range c {
		l.Reset()
	}
}
