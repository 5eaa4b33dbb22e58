package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/mapping"
	"github.com/BaSui01/aigate/model"
	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// Adapter speaks one provider's wire dialect, driven entirely by its
// manifest definition.
type Adapter struct {
	providerID string
	def        manifest.ProviderDefinition
	resolver   *model.Resolver
	engine     *mapping.Engine
	client     *http.Client
	logger     *zap.Logger

	// Client-level option overrides.
	apiKey   string
	connVars map[string]string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithAPIKey overrides environment credential resolution.
func WithAPIKey(key string) Option {
	return func(a *Adapter) { a.apiKey = key }
}

// WithConnectionVars supplies explicit template variables, layered over the
// process environment.
func WithConnectionVars(vars map[string]string) Option {
	return func(a *Adapter) { a.connVars = vars }
}

// New creates an adapter for one provider.
func New(providerID string, def manifest.ProviderDefinition, resolver *model.Resolver, client *http.Client, logger *zap.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	a := &Adapter{
		providerID: providerID,
		def:        def,
		resolver:   resolver,
		engine:     mapping.NewEngine(),
		client:     client,
		logger:     logger.With(zap.String("provider", providerID)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider id.
func (a *Adapter) Name() string { return a.providerID }

// Definition exposes the manifest entry driving this adapter.
func (a *Adapter) Definition() manifest.ProviderDefinition { return a.def }

// connectionVars merges env-derived values under explicit client overrides.
func (a *Adapter) connectionVars(wireModel string) map[string]string {
	vars := map[string]string{"model": wireModel}
	for _, name := range a.def.ConnectionVars {
		if v, ok := lookupConnectionVar(a.providerID, name); ok {
			vars[name] = v
		}
	}
	for k, v := range a.connVars {
		vars[k] = v
	}
	return vars
}

// Completion sends a synchronous chat request. An invalid-model reply
// triggers exactly one retry against the same provider with the next model
// from the fallback catalogue.
func (a *Adapter) Completion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	wireModel := req.Model
	resp, err := a.completeOnce(ctx, req, wireModel)
	if err == nil || !model.LooksLikeInvalidModel(err) {
		return resp, err
	}

	fallback, ok := a.resolver.FallbackAfterInvalid(a.providerID, wireModel)
	if !ok {
		return nil, a.resolver.DecorateInvalidModel(a.providerID, wireModel, err)
	}
	a.logger.Warn("invalid model reported, retrying with fallback",
		zap.String("requested_model", wireModel),
		zap.String("fallback_model", fallback),
	)
	resp, retryErr := a.completeOnce(ctx, req, fallback)
	if retryErr != nil {
		return nil, a.resolver.DecorateInvalidModel(a.providerID, wireModel, err)
	}
	return resp, nil
}

func (a *Adapter) completeOnce(ctx context.Context, req *types.ChatRequest, wireModel string) (*types.ChatResponse, error) {
	overrides := a.modelOverrides(wireModel)
	body, err := a.engine.BuildBody(a.def, wireModel, req, overrides)
	if err != nil {
		return nil, err
	}
	raw, err := a.post(ctx, wireModel, body, false)
	if err != nil {
		return nil, err
	}
	return mapping.ExtractResponse(a.def, a.providerID, wireModel, raw)
}

// modelOverrides fetches manifest per-model parameter overrides, if the wire
// model is catalogued.
func (a *Adapter) modelOverrides(wireModel string) map[string]any {
	res, err := a.resolver.Resolve(wireModel, a.providerID)
	if err != nil || res.Overrides == nil {
		return nil
	}
	return res.Overrides
}

// post builds the request URL, applies auth, and performs the HTTP exchange,
// returning the raw response body.
func (a *Adapter) post(ctx context.Context, wireModel string, body map[string]any, stream bool) ([]byte, error) {
	resp, err := a.do(ctx, wireModel, body, stream)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, "reading provider response failed").
			WithProvider(a.providerID).WithCause(err)
	}
	return raw, nil
}

// do performs the exchange and maps transport/status failures into the
// taxonomy. The caller owns the response body on success.
func (a *Adapter) do(ctx context.Context, wireModel string, body map[string]any, stream bool) (*http.Response, error) {
	def := a.def
	if override := baseURLOverride(a.providerID); override != "" {
		def.BaseURL = override
		def.BaseURLTemplate = ""
	}
	endpoint, err := a.engine.BuildURL(def, wireModel, a.connectionVars(wireModel), stream)
	if err != nil {
		return nil, err
	}
	if err := validURL(endpoint); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "request body not serialisable").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "building HTTP request failed").WithCause(err)
	}
	if err := applyAuth(httpReq, a.providerID, a.def, resolveAPIKey(a.providerID, a.def.Auth, a.apiKey)); err != nil {
		return nil, err
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrTimeout, "provider call exceeded deadline").
				WithProvider(a.providerID).WithCause(err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, types.NewError(types.ErrCancelled, "provider call cancelled").
				WithProvider(a.providerID).WithCause(err)
		}
		return nil, types.NewError(types.ErrNetwork, err.Error()).
			WithProvider(a.providerID).WithCause(err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, mapHTTPError(a.providerID, resp, raw)
	}
	return resp, nil
}

// HealthCheck performs a lightweight probe: an empty-bodied request is not
// universally accepted, so probe the chat endpoint with a HEAD-equivalent
// minimal body and report reachability plus latency.
func (a *Adapter) HealthCheck(ctx context.Context) (healthy bool, latency time.Duration, err error) {
	start := time.Now()
	wireModel := a.def.DefaultModel
	req := types.NewChatRequest(wireModel, []types.Message{types.NewUserMessage("ping")})
	one := uint32(1)
	req.MaxTokens = &one

	_, err = a.completeOnce(ctx, req, wireModel)
	latency = time.Since(start)
	if err != nil {
		// Authentication failures still prove the endpoint is reachable.
		if types.GetErrorCode(err) == types.ErrAuthentication {
			return true, latency, nil
		}
		return false, latency, err
	}
	return true, latency, nil
}
