// Package observability provides the built-in pipeline observers: structured
// logging, Prometheus metrics, and OpenTelemetry traces/metrics. Observers
// subscribe to interceptor pipeline events and must stay off the hot path:
// they record and return, never block.
package observability

import (
	"context"
	"time"

	"github.com/BaSui01/aigate/interceptor"
	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// LoggingObserver logs request lifecycle events through zap.
type LoggingObserver struct {
	logger *zap.Logger
}

// NewLoggingObserver creates a logging observer.
func NewLoggingObserver(logger *zap.Logger) *LoggingObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnRequest(_ context.Context, ic interceptor.Context, req *types.ChatRequest) {
	o.logger.Debug("llm request",
		zap.String("provider", ic.Provider),
		zap.String("model", ic.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Bool("stream", req.Stream),
	)
}

func (o *LoggingObserver) OnResponse(_ context.Context, ic interceptor.Context, _ *types.ChatRequest, resp *types.ChatResponse, elapsed time.Duration) {
	o.logger.Info("llm response",
		zap.String("provider", ic.Provider),
		zap.String("model", ic.Model),
		zap.Duration("latency", elapsed),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
}

func (o *LoggingObserver) OnError(_ context.Context, ic interceptor.Context, _ *types.ChatRequest, err error, elapsed time.Duration) {
	o.logger.Warn("llm request failed",
		zap.String("provider", ic.Provider),
		zap.String("model", ic.Model),
		zap.Duration("latency", elapsed),
		zap.String("error_code", string(types.GetErrorCode(err))),
		zap.Error(err),
	)
}
