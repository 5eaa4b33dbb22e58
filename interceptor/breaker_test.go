package interceptor

import (
	"testing"
	"time"

	"github.com/BaSui01/aigate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingCall() error {
	return types.NewError(types.ErrNetwork, "connection reset")
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  50 * time.Millisecond,
		SuccessThreshold: 2,
		HalfOpenMaxCalls: 1,
	}, nil)
	key := "openai:gpt-4o"

	// Three consecutive transport failures trip the breaker.
	for i := 0; i < 3; i++ {
		err := g.Call(key, failingCall)
		require.Error(t, err)
	}
	assert.Equal(t, BreakerOpen, g.State(key))

	// Within the recovery window the call is rejected without reaching
	// the protected function.
	touched := false
	err := g.Call(key, func() error { touched = true; return nil })
	require.Error(t, err)
	assert.False(t, touched)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, types.ErrProvider, types.GetErrorCode(err))

	// After the window, two successes close the breaker again.
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, g.Call(key, func() error { return nil }))
	assert.Equal(t, BreakerHalfOpen, g.State(key))
	require.NoError(t, g.Call(key, func() error { return nil }))
	assert.Equal(t, BreakerClosed, g.State(key))
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1}, nil)
	key := "anthropic:claude"

	for i := 0; i < 5; i++ {
		_ = g.Call(key, func() error {
			return types.NewError(types.ErrAuthentication, "bad key")
		})
	}
	assert.Equal(t, BreakerClosed, g.State(key))

	for i := 0; i < 5; i++ {
		_ = g.Call(key, func() error {
			return types.NewError(types.ErrInvalidRequest, "bad shape")
		})
	}
	assert.Equal(t, BreakerClosed, g.State(key))
}

func TestBreakerCountsTimeoutsThroughRetryWrapping(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1}, nil)
	key := "p:m"

	wrapped := types.Errorf(types.ErrRetryExhausted, "gave up after 3 attempts").
		WithCause(types.NewError(types.ErrTimeout, "deadline"))
	for i := 0; i < 2; i++ {
		_ = g.Call(key, func() error { return wrapped })
	}
	assert.Equal(t, BreakerOpen, g.State(key))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 2,
	}, nil)
	key := "p:m"

	_ = g.Call(key, failingCall)
	require.Equal(t, BreakerOpen, g.State(key))

	time.Sleep(15 * time.Millisecond)
	_ = g.Call(key, failingCall)
	assert.Equal(t, BreakerOpen, g.State(key))
}

func TestBreakerStateIsPerKey(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 1}, nil)
	_ = g.Call("a:m", failingCall)
	assert.Equal(t, BreakerOpen, g.State("a:m"))
	assert.Equal(t, BreakerClosed, g.State("b:m"))
}
