package interceptor

import (
	"errors"
	"testing"

	"github.com/BaSui01/aigate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterConsumesBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RefillRate: 0.001, Capacity: 3})
	key := "openai:gpt-4o"

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Acquire(key))
	}

	err := rl.Acquire(key)
	require.Error(t, err)
	var e *types.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, types.ErrRateLimitExceeded, e.Code)
	assert.Greater(t, e.RetryAfter.Seconds(), 0.0)
	assert.True(t, e.Retryable())
}

func TestRateLimiterIsPerKey(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RefillRate: 0.001, Capacity: 1})
	require.NoError(t, rl.Acquire("a:m"))
	require.Error(t, rl.Acquire("a:m"))
	require.NoError(t, rl.Acquire("b:m"))
}

func TestAdaptiveModeStaysInsideBounds(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RefillRate: 10, Capacity: 10, Adaptive: true, Floor: 1})
	key := "p:m"
	require.NoError(t, rl.Acquire(key))

	// Sustained failures shrink the rate but never below the floor.
	for i := 0; i < 100; i++ {
		rl.Observe(key, false)
	}
	rl.mu.Lock()
	low := rl.buckets[key].current
	rl.mu.Unlock()
	assert.GreaterOrEqual(t, low, 1.0)

	// Sustained successes grow it back, capped at the bucket capacity.
	for i := 0; i < 100; i++ {
		rl.Observe(key, true)
	}
	rl.mu.Lock()
	high := rl.buckets[key].current
	rl.mu.Unlock()
	assert.LessOrEqual(t, high, 10.0)
	assert.Greater(t, high, low)
}
