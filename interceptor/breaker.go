package interceptor

import (
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// BreakerState is the circuit breaker state machine.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "Closed"
	case BreakerOpen:
		return "Open"
	case BreakerHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
	// HalfOpenMaxCalls bounds concurrent trial calls in HalfOpen.
	HalfOpenMaxCalls int
	OnStateChange    func(key string, from, to BreakerState)
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
		HalfOpenMaxCalls: 1,
	}
}

// BreakerGroup keeps one breaker per (provider, model) key.
type BreakerGroup struct {
	cfg    BreakerConfig
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*breaker
}

type breaker struct {
	mu              sync.Mutex
	state           BreakerState
	failures        int
	successes       int
	halfOpenInUse   int
	lastFailureTime time.Time
}

// NewBreakerGroup creates a breaker group with the given config.
func NewBreakerGroup(cfg BreakerConfig, logger *zap.Logger) *BreakerGroup {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerGroup{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*breaker),
	}
}

func (g *BreakerGroup) breakerFor(key string) *breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[key]
	if !ok {
		b = &breaker{state: BreakerClosed}
		g.breakers[key] = b
	}
	return b
}

// State returns the current state for a key.
func (g *BreakerGroup) State(key string) BreakerState {
	b := g.breakerFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Call runs fn under the breaker for key. In Open state the call is rejected
// without touching fn; after RecoveryTimeout at most HalfOpenMaxCalls trial
// calls pass at a time.
func (g *BreakerGroup) Call(key string, fn func() error) error {
	b := g.breakerFor(key)
	if err := g.before(key, b); err != nil {
		return err
	}
	err := fn()
	g.after(key, b, err)
	return err
}

func (g *BreakerGroup) before(key string, b *breaker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if time.Since(b.lastFailureTime) > g.cfg.RecoveryTimeout {
			g.transition(key, b, BreakerHalfOpen)
			b.successes = 0
			b.halfOpenInUse = 1
			return nil
		}
		return types.Errorf(types.ErrProvider, "circuit open").WithProvider(key)
	case BreakerHalfOpen:
		if b.halfOpenInUse >= g.cfg.HalfOpenMaxCalls {
			return types.Errorf(types.ErrProvider, "circuit open").WithProvider(key)
		}
		b.halfOpenInUse++
		return nil
	default:
		return nil
	}
}

func (g *BreakerGroup) after(key string, b *breaker, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen && b.halfOpenInUse > 0 {
		b.halfOpenInUse--
	}

	// Only transport-level failures open the breaker; authentication and
	// validation errors say nothing about provider health.
	if err != nil && !countsAsBreakerFailure(err) {
		return
	}

	if err == nil {
		switch b.state {
		case BreakerClosed:
			b.failures = 0
		case BreakerHalfOpen:
			b.successes++
			if b.successes >= g.cfg.SuccessThreshold {
				g.transition(key, b, BreakerClosed)
				b.failures = 0
				b.successes = 0
			}
		}
		return
	}

	b.failures++
	b.lastFailureTime = time.Now()
	switch b.state {
	case BreakerClosed:
		if b.failures >= g.cfg.FailureThreshold {
			g.logger.Warn("circuit breaker opened",
				zap.String("key", key),
				zap.Int("failures", b.failures),
			)
			g.transition(key, b, BreakerOpen)
		}
	case BreakerHalfOpen:
		g.logger.Warn("circuit breaker reopened after trial failure", zap.String("key", key))
		g.transition(key, b, BreakerOpen)
		b.successes = 0
	}
}

func (g *BreakerGroup) transition(key string, b *breaker, to BreakerState) {
	from := b.state
	b.state = to
	if g.cfg.OnStateChange != nil {
		go g.cfg.OnStateChange(key, from, to)
	}
}

// countsAsBreakerFailure restricts failure accounting to NetworkError and
// TimeoutError kinds, searching the unwrap chain so retry wrapping does not
// hide the transport cause.
func countsAsBreakerFailure(err error) bool {
	for err != nil {
		var e *types.Error
		if errors.As(err, &e) {
			switch e.Code {
			case types.ErrNetwork, types.ErrTimeout:
				return true
			case types.ErrRetryExhausted:
				err = e.Cause
				continue
			default:
				return false
			}
		}
		return false
	}
	return false
}
