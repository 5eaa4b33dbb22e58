package observability

import (
	"context"
	"time"

	"github.com/BaSui01/aigate/interceptor"
	"github.com/BaSui01/aigate/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector is the Prometheus metrics observer.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensUsed      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	inFlight        *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector creates the collector and registers its metrics on the given
// registerer (prometheus.DefaultRegisterer is a reasonable choice).
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)
	c.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)
	c.tokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total tokens consumed",
		},
		[]string{"provider", "model", "kind"},
	)
	c.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Total number of failed LLM requests",
		},
		[]string{"provider", "model", "code"},
	)
	c.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "llm_in_flight_requests",
			Help:      "Requests currently between on_request and completion",
		},
		[]string{"provider"},
	)

	if reg != nil {
		reg.MustRegister(c.requestsTotal, c.requestDuration, c.tokensUsed, c.errorsTotal, c.inFlight)
	}
	return c
}

func (c *Collector) OnRequest(_ context.Context, ic interceptor.Context, _ *types.ChatRequest) {
	c.inFlight.WithLabelValues(ic.Provider).Inc()
}

func (c *Collector) OnResponse(_ context.Context, ic interceptor.Context, _ *types.ChatRequest, resp *types.ChatResponse, elapsed time.Duration) {
	c.inFlight.WithLabelValues(ic.Provider).Dec()
	c.requestsTotal.WithLabelValues(ic.Provider, ic.Model, "ok").Inc()
	c.requestDuration.WithLabelValues(ic.Provider, ic.Model).Observe(elapsed.Seconds())
	c.tokensUsed.WithLabelValues(ic.Provider, ic.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
	c.tokensUsed.WithLabelValues(ic.Provider, ic.Model, "completion").Add(float64(resp.Usage.CompletionTokens))
}

func (c *Collector) OnError(_ context.Context, ic interceptor.Context, _ *types.ChatRequest, err error, elapsed time.Duration) {
	c.inFlight.WithLabelValues(ic.Provider).Dec()
	c.requestsTotal.WithLabelValues(ic.Provider, ic.Model, "error").Inc()
	c.requestDuration.WithLabelValues(ic.Provider, ic.Model).Observe(elapsed.Seconds())
	c.errorsTotal.WithLabelValues(ic.Provider, ic.Model, string(types.GetErrorCode(err))).Inc()
}
