package observability

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/aigate/interceptor"
	"github.com/BaSui01/aigate/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/aigate"

// TracingObserver emits one span per provider call plus OTel counters.
// Exporter selection is the host application's business; this observer only
// talks to the otel API and inherits whatever global providers are set.
type TracingObserver struct {
	tracer oteltrace.Tracer
	meter  metric.Meter

	requestTotal metric.Int64Counter
	tokenTotal   metric.Int64Counter
	errorTotal   metric.Int64Counter

	mu    sync.Mutex
	spans map[spanKey]oteltrace.Span
}

type spanKey struct {
	provider string
	model    string
	req      *types.ChatRequest
}

// NewTracingObserver creates the OTel observer.
func NewTracingObserver() (*TracingObserver, error) {
	t := &TracingObserver{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
		spans:  make(map[spanKey]oteltrace.Span),
	}

	var err error
	t.requestTotal, err = t.meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	t.tokenTotal, err = t.meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}
	t.errorTotal, err = t.meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TracingObserver) attrs(ic interceptor.Context) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("llm.provider", ic.Provider),
		attribute.String("llm.model", ic.Model),
	}
}

func (t *TracingObserver) OnRequest(ctx context.Context, ic interceptor.Context, req *types.ChatRequest) {
	_, span := t.tracer.Start(ctx, "llm.chat",
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(t.attrs(ic)...),
	)
	t.mu.Lock()
	t.spans[spanKey{ic.Provider, ic.Model, req}] = span
	t.mu.Unlock()
	t.requestTotal.Add(ctx, 1, metric.WithAttributes(t.attrs(ic)...))
}

func (t *TracingObserver) OnResponse(ctx context.Context, ic interceptor.Context, req *types.ChatRequest, resp *types.ChatResponse, elapsed time.Duration) {
	if span := t.takeSpan(ic, req); span != nil {
		span.SetAttributes(
			attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens),
			attribute.Int64("llm.latency_ms", elapsed.Milliseconds()),
		)
		span.End()
	}
	t.tokenTotal.Add(ctx, int64(resp.Usage.TotalTokens), metric.WithAttributes(t.attrs(ic)...))
}

func (t *TracingObserver) OnError(ctx context.Context, ic interceptor.Context, req *types.ChatRequest, err error, _ time.Duration) {
	if span := t.takeSpan(ic, req); span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.GetErrorCode(err)))
		span.End()
	}
	t.errorTotal.Add(ctx, 1, metric.WithAttributes(append(t.attrs(ic),
		attribute.String("llm.error_code", string(types.GetErrorCode(err))))...))
}

func (t *TracingObserver) takeSpan(ic interceptor.Context, req *types.ChatRequest) oteltrace.Span {
	key := spanKey{ic.Provider, ic.Model, req}
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[key]
	if !ok {
		return nil
	}
	delete(t.spans, key)
	return span
}
