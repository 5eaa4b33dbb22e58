// Package transport owns the shared HTTP layer: one pooled, proxy-aware
// client per gateway client, tuned through the generic AI_* environment
// variables and shared by reference across all adapters.
package transport

import (
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config tunes the shared HTTP client. Zero values fall back to env vars and
// then to defaults.
type Config struct {
	ProxyURL        string
	Timeout         time.Duration
	MaxIdlePerHost  int
	IdleConnTimeout time.Duration
}

const (
	envProxyURL       = "AI_PROXY_URL"
	envTimeoutSecs    = "AI_TIMEOUT_SECS"
	envPoolMaxIdle    = "AI_HTTP_POOL_MAX_IDLE_PER_HOST"
	envPoolIdleTimeout = "AI_HTTP_POOL_IDLE_TIMEOUT_MS"
)

// New builds the pooled client. The client timeout is left unset; per-attempt
// deadlines come from the interceptor pipeline so streams are not cut off by
// a whole-request timeout.
func New(cfg Config, logger *zap.Logger) (*http.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.ProxyURL == "" {
		cfg.ProxyURL = os.Getenv(envProxyURL)
	}
	if cfg.Timeout == 0 {
		if secs := envInt(envTimeoutSecs); secs > 0 {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}
	if cfg.MaxIdlePerHost == 0 {
		cfg.MaxIdlePerHost = envInt(envPoolMaxIdle)
	}
	if cfg.MaxIdlePerHost == 0 {
		cfg.MaxIdlePerHost = 8
	}
	if cfg.IdleConnTimeout == 0 {
		if ms := envInt(envPoolIdleTimeout); ms > 0 {
			cfg.IdleConnTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: cfg.MaxIdlePerHost,
		MaxIdleConns:        cfg.MaxIdlePerHost * 4,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
		tr.Proxy = http.ProxyURL(proxy)
		logger.Info("http transport using explicit proxy", zap.String("proxy", proxy.Host))
	}

	return &http.Client{Transport: tr}, nil
}

// RequestTimeout resolves the effective per-attempt timeout: explicit value,
// then AI_TIMEOUT_SECS, then the given fallback.
func RequestTimeout(explicit time.Duration, fallback time.Duration) time.Duration {
	if explicit != 0 {
		return explicit
	}
	if secs := envInt(envTimeoutSecs); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
