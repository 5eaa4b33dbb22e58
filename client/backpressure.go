package client

import (
	"context"

	"github.com/BaSui01/aigate/types"
	"golang.org/x/sync/semaphore"
)

// permits bounds concurrent in-flight calls with a weighted semaphore.
// A zero limit means unbounded.
type permits struct {
	sem   *semaphore.Weighted
	limit int64
}

func newPermits(limit int64) *permits {
	p := &permits{limit: limit}
	if limit > 0 {
		p.sem = semaphore.NewWeighted(limit)
	}
	return p
}

func (p *permits) acquire(ctx context.Context) error {
	if p.sem == nil {
		return nil
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return types.NewError(types.ErrCancelled, "cancelled while waiting for a request permit").WithCause(err)
	}
	return nil
}

func (p *permits) release() {
	if p.sem != nil {
		p.sem.Release(1)
	}
}
