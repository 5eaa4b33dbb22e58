package interceptor

import (
	"context"
	"time"

	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// RetryPolicy defines exponential backoff behaviour. Delay on attempt n
// (0-indexed) is min(BaseDelay << n, MaxDelay).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns defaults suitable for most provider APIs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// Retrier re-invokes the guarded call while its error stays retryable.
type Retrier struct {
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetrier creates a retrier with the given policy.
func NewRetrier(policy RetryPolicy, logger *zap.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{policy: policy, logger: logger}
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts
// are exhausted. fn receives the 0-indexed attempt number. The caller's
// request is never mutated between attempts.
func (r *Retrier) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.delayFor(attempt-1, lastErr)
			r.logger.Debug("retrying provider call",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return types.NewError(types.ErrCancelled, "retry cancelled").WithCause(ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !types.IsRetryable(lastErr) {
			return lastErr
		}
	}
	if r.policy.MaxAttempts == 1 {
		return lastErr
	}
	return types.Errorf(types.ErrRetryExhausted, "gave up after %d attempts", r.policy.MaxAttempts).
		WithCause(lastErr)
}

// delayFor applies the backoff formula, honouring a larger provider-supplied
// retry_after when present.
func (r *Retrier) delayFor(n int, err error) time.Duration {
	delay := r.policy.BaseDelay << uint(n)
	if delay > r.policy.MaxDelay || delay <= 0 {
		delay = r.policy.MaxDelay
	}
	var e *types.Error
	if err != nil {
		if ok := asGatewayError(err, &e); ok && e.RetryAfter > delay {
			delay = e.RetryAfter
		}
	}
	return delay
}
