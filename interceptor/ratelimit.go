// Package interceptor wraps every provider call with the cross-cutting
// policies of the gateway. Ordering is fixed from outermost to innermost:
// rate-limit, circuit breaker, retry, timeout. The rate limiter blocks
// before any attempt, the breaker short-circuits retries when the provider
// is known-down, and the timeout guards each individual attempt.
package interceptor

import (
	"sync"
	"time"

	"github.com/BaSui01/aigate/types"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-(provider, model) token bucket.
type RateLimitConfig struct {
	// RefillRate is tokens added per second.
	RefillRate float64
	// Capacity is the bucket size (burst).
	Capacity int
	// Adaptive nudges the effective rate by ±10% on failure/success within
	// [Floor, Capacity].
	Adaptive bool
	// Floor is the minimum adaptive rate; defaults to RefillRate/10.
	Floor float64
}

// DefaultRateLimitConfig returns sensible defaults (1 request/sec, burst 5).
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RefillRate: 1, Capacity: 5}
}

// RateLimiter maintains one token bucket per (provider, model) key.
type RateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter *rate.Limiter
	current float64
}

// NewRateLimiter creates a limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RefillRate <= 0 {
		cfg.RefillRate = 1
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	if cfg.Floor <= 0 {
		cfg.Floor = cfg.RefillRate / 10
	}
	return &RateLimiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) bucketFor(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RefillRate), rl.cfg.Capacity),
			current: rl.cfg.RefillRate,
		}
		rl.buckets[key] = b
	}
	return b
}

// Acquire consumes one token for the key. An empty bucket reports
// RateLimitExceeded carrying the delay until the next token.
func (rl *RateLimiter) Acquire(key string) error {
	b := rl.bucketFor(key)
	res := b.limiter.ReserveN(time.Now(), 1)
	if !res.OK() {
		return types.Errorf(types.ErrRateLimitExceeded, "rate limit bucket for %s cannot satisfy request", key)
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return types.Errorf(types.ErrRateLimitExceeded, "rate limit exceeded for %s", key).
			WithRetryAfter(delay)
	}
	return nil
}

// Observe feeds the adaptive controller with a call outcome.
func (rl *RateLimiter) Observe(key string, success bool) {
	if !rl.cfg.Adaptive {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok {
		return
	}
	if success {
		b.current *= 1.10
	} else {
		b.current *= 0.90
	}
	if b.current > float64(rl.cfg.Capacity) {
		b.current = float64(rl.cfg.Capacity)
	}
	if b.current < rl.cfg.Floor {
		b.current = rl.cfg.Floor
	}
	b.limiter.SetLimit(rate.Limit(b.current))
}
