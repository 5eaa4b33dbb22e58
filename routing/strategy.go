// Package routing selects which provider serves a call: a single provider,
// an ordered failover chain, or a round-robin rotation. Every strategy
// implements the same canonical-request contract.
package routing

import (
	"context"

	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/types"
)

// ChatProvider is the contract a strategy routes over. The generic adapter
// satisfies it, as does any strategy itself, so strategies compose.
type ChatProvider interface {
	Name() string
	Completion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)
	Stream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error)
}

// FailedCandidate describes one provider that was skipped during failover.
type FailedCandidate struct {
	Provider  string
	ErrorCode types.ErrorCode
	Retryable bool
}

// EventSink receives structured failover events. Implementations must not
// block.
type EventSink func(FailedCandidate)

// Single is the default strategy: direct invocation of one provider.
type Single struct {
	provider ChatProvider
}

// NewSingle wraps one provider.
func NewSingle(provider ChatProvider) *Single {
	return &Single{provider: provider}
}

func (s *Single) Name() string { return s.provider.Name() }

func (s *Single) Completion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return s.provider.Completion(ctx, req)
}

func (s *Single) Stream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	return s.provider.Stream(ctx, req)
}
