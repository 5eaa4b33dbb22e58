package client

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/BaSui01/aigate/adapter"
	"github.com/BaSui01/aigate/interceptor"
	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/model"
	"github.com/BaSui01/aigate/observability"
	"github.com/BaSui01/aigate/routing"
	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/transport"
	"github.com/BaSui01/aigate/types"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Client is the gateway façade. One Client owns one manifest registry, one
// pooled HTTP transport, one interceptor pipeline, and one backpressure
// semaphore; all of them are shared across its adapters.
type Client struct {
	opts     *options
	registry *manifest.Registry
	resolver *model.Resolver
	pipeline *interceptor.Pipeline
	http     *http.Client
	permits  *permits
	watcher  *manifest.Watcher
	logger   *zap.Logger

	mu       sync.Mutex
	adapters map[string]*adapter.Adapter
	rr       *routing.RoundRobin
}

// New constructs a Client. With no options it serves the embedded default
// manifest with the full default interceptor stack.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.loadDotEnv {
		_ = godotenv.Load()
	}
	logger := o.logger

	m := o.manifest
	if m == nil && o.manifestPath == "" {
		var err error
		m, err = manifest.Default()
		if err != nil {
			return nil, err
		}
	}
	registry := manifest.NewRegistry(m, logger)
	if o.manifestPath != "" {
		if err := registry.LoadPath(o.manifestPath); err != nil {
			return nil, err
		}
	}

	httpClient, err := transport.New(o.httpConfig, logger)
	if err != nil {
		return nil, err
	}

	icfg := interceptor.DefaultConfig()
	if o.interceptors != nil {
		icfg = *o.interceptors
	}
	pipeline := interceptor.NewPipeline(icfg, logger)
	if o.enableDefaultObservers {
		pipeline.Subscribe(observability.NewLoggingObserver(logger))
	}
	for _, obs := range o.observers {
		pipeline.Subscribe(obs)
	}

	c := &Client{
		opts:     o,
		registry: registry,
		resolver: model.NewResolver(registry),
		pipeline: pipeline,
		http:     httpClient,
		permits:  newPermits(o.maxConcurrent),
		logger:   logger,
		adapters: make(map[string]*adapter.Adapter),
	}

	if o.hotReload {
		if o.manifestPath == "" {
			return nil, types.NewError(types.ErrConfiguration, "hot reload requires a manifest file path")
		}
		w, err := manifest.NewWatcher(registry, o.manifestPath,
			manifest.WithDebounce(o.hotReloadDebounce),
			manifest.WithWatcherLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		w.Start(context.Background())
		c.watcher = w
	}

	return c, nil
}

// Close stops background work. The HTTP pool is shared by design and closes
// with process exit.
func (c *Client) Close() {
	if c.watcher != nil {
		c.watcher.Stop()
	}
}

// Registry exposes the manifest registry (read-only use expected).
func (c *Client) Registry() *manifest.Registry { return c.registry }

// adapterFor returns the cached adapter for a provider id.
func (c *Client) adapterFor(providerID string) (*adapter.Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.adapters[providerID]; ok {
		return a, nil
	}
	def, err := c.registry.MustProvider(providerID)
	if err != nil {
		return nil, err
	}
	var aopts []adapter.Option
	if key, ok := c.opts.apiKeys[providerID]; ok {
		aopts = append(aopts, adapter.WithAPIKey(key))
	}
	if len(c.opts.connVars) > 0 {
		aopts = append(aopts, adapter.WithConnectionVars(c.opts.connVars))
	}
	a := adapter.New(providerID, def, c.resolver, c.http, c.logger, aopts...)
	c.adapters[providerID] = a
	return a, nil
}

// routedProvider wraps one adapter so every call goes through the
// interceptor pipeline with its own (provider, model) state key.
type routedProvider struct {
	client     *Client
	providerID string
}

func (rp *routedProvider) Name() string { return rp.providerID }

// resolveFor picks the wire model this provider should serve. A model owned
// by another provider falls back to this provider's default so failover
// chains stay meaningful.
func (rp *routedProvider) resolveFor(reqModel string) (*model.Resolution, error) {
	res, err := rp.client.resolver.Resolve(reqModel, rp.providerID)
	if err == nil && res.ProviderID == rp.providerID {
		return res, nil
	}
	return rp.client.resolver.Resolve("", rp.providerID)
}

func (rp *routedProvider) Completion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	a, err := rp.client.adapterFor(rp.providerID)
	if err != nil {
		return nil, err
	}
	res, err := rp.resolveFor(req.Model)
	if err != nil {
		return nil, err
	}
	wireReq := req.Clone()
	wireReq.Model = res.WireModel
	ic := interceptor.Context{Provider: rp.providerID, Model: res.WireModel}
	return rp.client.pipeline.Execute(ctx, ic, wireReq, func(callCtx context.Context) (*types.ChatResponse, error) {
		return a.Completion(callCtx, wireReq)
	})
}

func (rp *routedProvider) Stream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	a, err := rp.client.adapterFor(rp.providerID)
	if err != nil {
		return nil, nil, err
	}
	res, err := rp.resolveFor(req.Model)
	if err != nil {
		return nil, nil, err
	}
	wireReq := req.Clone()
	wireReq.Model = res.WireModel
	ic := interceptor.Context{Provider: rp.providerID, Model: res.WireModel}
	return rp.client.pipeline.ExecuteStream(ctx, ic, wireReq, func(callCtx context.Context) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
		return a.Stream(callCtx, wireReq)
	})
}

// strategyProvider assembles the configured routing strategy.
func (c *Client) strategyProvider(req *types.ChatRequest) (routing.ChatProvider, error) {
	switch c.opts.strategy {
	case StrategyFailover:
		providers := make([]routing.ChatProvider, 0, len(c.opts.strategyProviders))
		for _, id := range c.opts.strategyProviders {
			providers = append(providers, &routedProvider{client: c, providerID: id})
		}
		return routing.NewFailover(providers, nil, c.logger)
	case StrategyRoundRobin:
		// The rotation is built once so its counter persists across calls.
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rr == nil {
			providers := make([]routing.ChatProvider, 0, len(c.opts.strategyProviders))
			for _, id := range c.opts.strategyProviders {
				providers = append(providers, &routedProvider{client: c, providerID: id})
			}
			rr, err := routing.NewRoundRobin(providers)
			if err != nil {
				return nil, err
			}
			c.rr = rr
		}
		return c.rr, nil
	default:
		res, err := c.resolver.Resolve(req.Model, c.opts.defaultProvider)
		if err != nil {
			return nil, err
		}
		return routing.NewSingle(&routedProvider{client: c, providerID: res.ProviderID}), nil
	}
}

// Chat sends a synchronous chat completion.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	if req == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "nil request")
	}
	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}
	if err := c.permits.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.permits.release()

	strategy, err := c.strategyProvider(req)
	if err != nil {
		return nil, err
	}
	return strategy.Completion(ctx, req)
}

// ChatStream opens a streaming chat completion. The backpressure permit is
// held for the lifetime of the stream and released on terminal chunk,
// error, or cancel — before the terminal error is forwarded, so in-flight
// accounting stays accurate.
func (c *Client) ChatStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	if req == nil {
		return nil, nil, types.NewError(types.ErrInvalidRequest, "nil request")
	}
	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}
	if err := c.permits.acquire(ctx); err != nil {
		return nil, nil, err
	}

	strategy, err := c.strategyProvider(req)
	if err != nil {
		c.permits.release()
		return nil, nil, err
	}
	inner, handle, err := strategy.Stream(ctx, req)
	if err != nil {
		c.permits.release()
		return nil, nil, err
	}

	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)
		released := false
		release := func() {
			if !released {
				released = true
				c.permits.release()
			}
		}
		defer release()
		for chunk := range inner {
			if chunk.Err != nil {
				release()
			}
			out <- chunk
		}
	}()
	return out, handle, nil
}

// Upload pushes a file to a provider's upload endpoint.
func (c *Client) Upload(ctx context.Context, providerID, filename string, content io.Reader) (*transport.UploadResult, error) {
	a, err := c.adapterFor(providerID)
	if err != nil {
		return nil, err
	}
	return a.Upload(ctx, filename, content)
}

// HealthCheck probes one provider.
func (c *Client) HealthCheck(ctx context.Context, providerID string) (bool, error) {
	a, err := c.adapterFor(providerID)
	if err != nil {
		return false, err
	}
	healthy, _, err := a.HealthCheck(ctx)
	return healthy, err
}
