package routing

import (
	"context"
	"strings"

	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// Failover tries providers in declared order, advancing past retryable
// errors. Non-retryable errors surface immediately; one structured event is
// emitted per failed candidate.
type Failover struct {
	name      string
	providers []ChatProvider
	sink      EventSink
	logger    *zap.Logger
}

// NewFailover builds a failover chain. At least one provider is required.
func NewFailover(providers []ChatProvider, sink EventSink, logger *zap.Logger) (*Failover, error) {
	if len(providers) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "failover strategy requires at least one provider")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return &Failover{
		name:      "failover[" + strings.Join(names, "->") + "]",
		providers: providers,
		sink:      sink,
		logger:    logger,
	}, nil
}

func (f *Failover) Name() string { return f.name }

func (f *Failover) fail(p ChatProvider, err error) {
	candidate := FailedCandidate{
		Provider:  p.Name(),
		ErrorCode: types.GetErrorCode(err),
		Retryable: types.IsRetryable(err),
	}
	f.logger.Warn("failover candidate returned an error",
		zap.String("provider", candidate.Provider),
		zap.String("error_code", string(candidate.ErrorCode)),
		zap.Bool("retryable", candidate.Retryable),
	)
	if f.sink != nil {
		f.sink(candidate)
	}
}

func (f *Failover) Completion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	var lastErr error
	for _, p := range f.providers {
		resp, err := p.Completion(ctx, req.Clone())
		if err == nil {
			return resp, nil
		}
		if !types.IsRetryable(err) {
			return nil, err
		}
		f.fail(p, err)
		lastErr = err
	}
	return nil, lastErr
}

func (f *Failover) Stream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	var lastErr error
	for _, p := range f.providers {
		ch, handle, err := p.Stream(ctx, req.Clone())
		if err == nil {
			return ch, handle, nil
		}
		if !types.IsRetryable(err) {
			return nil, nil, err
		}
		f.fail(p, err)
		lastErr = err
	}
	return nil, nil, lastErr
}
