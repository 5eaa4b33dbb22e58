package routing

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/types"
)

// RoundRobin rotates across providers with an atomic counter. There is no
// per-call failover; failures propagate to the caller.
type RoundRobin struct {
	name      string
	providers []ChatProvider
	counter   atomic.Uint64
}

// NewRoundRobin builds a rotation. At least one provider is required.
func NewRoundRobin(providers []ChatProvider) (*RoundRobin, error) {
	if len(providers) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "round-robin strategy requires at least one provider")
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return &RoundRobin{
		name:      "round_robin[" + strings.Join(names, ",") + "]",
		providers: providers,
	}, nil
}

func (r *RoundRobin) Name() string { return r.name }

func (r *RoundRobin) next() ChatProvider {
	n := r.counter.Add(1) - 1
	return r.providers[n%uint64(len(r.providers))]
}

func (r *RoundRobin) Completion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return r.next().Completion(ctx, req)
}

func (r *RoundRobin) Stream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	return r.next().Stream(ctx, req)
}
