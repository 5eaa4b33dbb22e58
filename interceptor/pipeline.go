package interceptor

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// Context identifies the call being wrapped.
type Context struct {
	Provider string
	Model    string
}

// Key returns the (provider, model) state key.
func (c Context) Key() string {
	return c.Provider + ":" + c.Model
}

// Observer receives pipeline events. Implementations must not block the
// call path.
type Observer interface {
	OnRequest(ctx context.Context, ic Context, req *types.ChatRequest)
	OnResponse(ctx context.Context, ic Context, req *types.ChatRequest, resp *types.ChatResponse, elapsed time.Duration)
	OnError(ctx context.Context, ic Context, req *types.ChatRequest, err error, elapsed time.Duration)
}

// Config enables/disables the individual interceptors. Nil members are
// simply skipped, so a zero Config degenerates to a plain call.
type Config struct {
	RateLimit *RateLimitConfig
	Breaker   *BreakerConfig
	Retry     *RetryPolicy
	Timeout   time.Duration
}

// DefaultConfig returns the full stack with default settings.
func DefaultConfig() Config {
	rl := DefaultRateLimitConfig()
	br := DefaultBreakerConfig()
	rp := DefaultRetryPolicy()
	return Config{
		RateLimit: &rl,
		Breaker:   &br,
		Retry:     &rp,
		Timeout:   60 * time.Second,
	}
}

// CoreFunc performs the actual provider call for one attempt.
type CoreFunc func(ctx context.Context) (*types.ChatResponse, error)

// Pipeline composes rate-limit, circuit breaker, retry, and timeout around
// every provider call, in that fixed order.
type Pipeline struct {
	limiter   *RateLimiter
	breakers  *BreakerGroup
	retrier   *Retrier
	timeout   time.Duration
	observers []Observer
	logger    *zap.Logger
}

// NewPipeline builds a pipeline from the config.
func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{timeout: cfg.Timeout, logger: logger}
	if cfg.RateLimit != nil {
		p.limiter = NewRateLimiter(*cfg.RateLimit)
	}
	if cfg.Breaker != nil {
		p.breakers = NewBreakerGroup(*cfg.Breaker, logger)
	}
	if cfg.Retry != nil {
		p.retrier = NewRetrier(*cfg.Retry, logger)
	}
	return p
}

// Subscribe registers an observer for pipeline events.
func (p *Pipeline) Subscribe(obs Observer) {
	p.observers = append(p.observers, obs)
}

// BreakerState exposes the breaker state for a key, mainly for tests and
// health surfaces.
func (p *Pipeline) BreakerState(key string) (BreakerState, bool) {
	if p.breakers == nil {
		return BreakerClosed, false
	}
	return p.breakers.State(key), true
}

// Execute wraps core with the configured interceptors and fires observer
// events around the whole call.
func (p *Pipeline) Execute(ctx context.Context, ic Context, req *types.ChatRequest, core CoreFunc) (*types.ChatResponse, error) {
	start := time.Now()
	for _, obs := range p.observers {
		obs.OnRequest(ctx, ic, req)
	}

	resp, err := p.run(ctx, ic, core)

	elapsed := time.Since(start)
	if err != nil {
		for _, obs := range p.observers {
			obs.OnError(ctx, ic, req, err, elapsed)
		}
		return nil, err
	}
	for _, obs := range p.observers {
		obs.OnResponse(ctx, ic, req, resp, elapsed)
	}
	return resp, nil
}

func (p *Pipeline) run(ctx context.Context, ic Context, core CoreFunc) (*types.ChatResponse, error) {
	key := ic.Key()

	// Rate limit blocks before any attempt; re-attempts consume again
	// inside the retry loop.
	if p.limiter != nil {
		if err := p.limiter.Acquire(key); err != nil {
			return nil, err
		}
	}

	var resp *types.ChatResponse
	attempts := func() error {
		do := func(attempt int) error {
			if attempt > 0 && p.limiter != nil {
				if err := p.limiter.Acquire(key); err != nil {
					return err
				}
			}
			var err error
			resp, err = p.attempt(ctx, core)
			if p.limiter != nil {
				p.limiter.Observe(key, err == nil)
			}
			return err
		}
		if p.retrier != nil {
			return p.retrier.Do(ctx, do)
		}
		return do(0)
	}

	var err error
	if p.breakers != nil {
		err = p.breakers.Call(key, attempts)
	} else {
		err = attempts()
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// attempt applies the per-attempt timeout around the core call. A negative
// timeout disables the guard; zero is honoured literally, so the first
// suspension inside core reports TimeoutError.
func (p *Pipeline) attempt(ctx context.Context, core CoreFunc) (*types.ChatResponse, error) {
	if p.timeout < 0 {
		return core(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := core(attemptCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && attemptCtx.Err() == context.DeadlineExceeded {
		return nil, types.Errorf(types.ErrTimeout, "attempt exceeded %s deadline", p.timeout).WithCause(err)
	}
	return resp, err
}

// StreamOpener opens a provider stream.
type StreamOpener func(ctx context.Context) (<-chan types.StreamChunk, *streaming.CancelHandle, error)

// ExecuteStream applies the stream-safe subset of the pipeline: the rate
// limiter gates the open, and the breaker rejects/accounts the open itself.
// Retry and per-attempt timeout do not apply to an open stream.
func (p *Pipeline) ExecuteStream(ctx context.Context, ic Context, req *types.ChatRequest, open StreamOpener) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	key := ic.Key()
	for _, obs := range p.observers {
		obs.OnRequest(ctx, ic, req)
	}
	start := time.Now()

	fail := func(err error) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
		for _, obs := range p.observers {
			obs.OnError(ctx, ic, req, err, time.Since(start))
		}
		return nil, nil, err
	}

	if p.limiter != nil {
		if err := p.limiter.Acquire(key); err != nil {
			return fail(err)
		}
	}

	var (
		ch     <-chan types.StreamChunk
		handle *streaming.CancelHandle
	)
	openOnce := func() error {
		var err error
		ch, handle, err = open(ctx)
		if p.limiter != nil {
			p.limiter.Observe(key, err == nil)
		}
		return err
	}

	var err error
	if p.breakers != nil {
		err = p.breakers.Call(key, openOnce)
	} else {
		err = openOnce()
	}
	if err != nil {
		return fail(err)
	}
	return ch, handle, nil
}

// asGatewayError is errors.As specialised for *types.Error.
func asGatewayError(err error, target **types.Error) bool {
	return errors.As(err, target)
}
