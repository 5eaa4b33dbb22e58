// Package client is the user-facing façade: it wires the manifest registry,
// resolver, routing strategy, interceptor pipeline, backpressure semaphore,
// and the generic adapters into one Client.
package client

import (
	"time"

	"github.com/BaSui01/aigate/interceptor"
	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/transport"
	"go.uber.org/zap"
)

// Strategy selects the routing behaviour across the configured providers.
type Strategy string

const (
	StrategySingle     Strategy = "single"
	StrategyFailover   Strategy = "failover"
	StrategyRoundRobin Strategy = "round_robin"
)

type options struct {
	manifest        *manifest.Manifest
	manifestPath    string
	hotReload       bool
	hotReloadDebounce time.Duration

	logger *zap.Logger

	httpConfig  transport.Config
	interceptors *interceptor.Config
	observers   []interceptor.Observer
	enableDefaultObservers bool

	maxConcurrent  int64
	defaultProvider string
	strategy        Strategy
	strategyProviders []string

	apiKeys  map[string]string
	connVars map[string]string
	loadDotEnv bool
}

func defaultOptions() *options {
	return &options{
		logger:        zap.NewNop(),
		maxConcurrent: 100,
		strategy:      StrategySingle,
		apiKeys:       map[string]string{},
		connVars:      map[string]string{},
		hotReloadDebounce: 100 * time.Millisecond,
		enableDefaultObservers: true,
	}
}

// Option configures the Client.
type Option func(*options)

// WithManifest supplies an already-loaded manifest, replacing the embedded
// default.
func WithManifest(m *manifest.Manifest) Option {
	return func(o *options) { o.manifest = m }
}

// WithManifestFile loads the manifest from a path at construction time.
func WithManifestFile(path string) Option {
	return func(o *options) { o.manifestPath = path }
}

// WithHotReload watches the manifest file (requires WithManifestFile) and
// republishes the registry snapshot on change.
func WithHotReload(enabled bool) Option {
	return func(o *options) { o.hotReload = enabled }
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPConfig tunes the shared HTTP transport.
func WithHTTPConfig(cfg transport.Config) Option {
	return func(o *options) { o.httpConfig = cfg }
}

// WithInterceptors replaces the default interceptor stack.
func WithInterceptors(cfg interceptor.Config) Option {
	return func(o *options) { o.interceptors = &cfg }
}

// WithTimeout sets the per-attempt timeout on the default interceptor stack.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if o.interceptors == nil {
			cfg := interceptor.DefaultConfig()
			o.interceptors = &cfg
		}
		o.interceptors.Timeout = d
	}
}

// WithObserver subscribes an additional pipeline observer.
func WithObserver(obs interceptor.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithoutDefaultObservers disables the built-in logging observer.
func WithoutDefaultObservers() Option {
	return func(o *options) { o.enableDefaultObservers = false }
}

// WithMaxConcurrentRequests bounds in-flight calls; 0 means unbounded.
func WithMaxConcurrentRequests(n int64) Option {
	return func(o *options) { o.maxConcurrent = n }
}

// WithProvider sets the default provider hint used when a requested model is
// not in the manifest.
func WithProvider(id string) Option {
	return func(o *options) { o.defaultProvider = id }
}

// WithFailover routes across the given providers in order, advancing on
// retryable errors.
func WithFailover(providerIDs ...string) Option {
	return func(o *options) {
		o.strategy = StrategyFailover
		o.strategyProviders = providerIDs
	}
}

// WithRoundRobin rotates calls across the given providers.
func WithRoundRobin(providerIDs ...string) Option {
	return func(o *options) {
		o.strategy = StrategyRoundRobin
		o.strategyProviders = providerIDs
	}
}

// WithAPIKey overrides the credential for one provider.
func WithAPIKey(providerID, key string) Option {
	return func(o *options) { o.apiKeys[providerID] = key }
}

// WithConnectionVars supplies explicit URL-template variables, layered over
// the process environment.
func WithConnectionVars(vars map[string]string) Option {
	return func(o *options) {
		for k, v := range vars {
			o.connVars[k] = v
		}
	}
}

// WithDotEnv loads a .env file into the process environment at construction.
func WithDotEnv() Option {
	return func(o *options) { o.loadDotEnv = true }
}
