// Package adapter implements the single, manifest-driven provider adapter.
// Every provider quirk is data in the manifest; there is no per-provider
// code path.
package adapter

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/model"
	"github.com/BaSui01/aigate/types"
)

const genericKeyEnv = "AI_API_KEY"

// resolveAPIKey picks the credential: explicit client override, then the
// provider's declared env var, then <PROVIDER>_API_KEY, then AI_API_KEY.
func resolveAPIKey(providerID string, auth manifest.AuthConfig, override string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	if auth.EnvVar != "" {
		if s := strings.TrimSpace(os.Getenv(auth.EnvVar)); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(os.Getenv(model.EnvPrefix(providerID) + "_API_KEY")); s != "" {
		return s
	}
	return strings.TrimSpace(os.Getenv(genericKeyEnv))
}

// applyAuth places the credential per the provider's auth mode and stamps
// static provider headers. query_param auth rewrites the request URL.
func applyAuth(req *http.Request, providerID string, def manifest.ProviderDefinition, apiKey string) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range def.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range def.Auth.ExtraHeaders {
		req.Header.Set(k, v)
	}

	switch def.Auth.Type {
	case manifest.AuthNone:
		return nil
	case manifest.AuthBearer:
		if apiKey == "" {
			return missingKeyError(providerID, def)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
	case manifest.AuthAPIKeyHeader:
		if apiKey == "" {
			return missingKeyError(providerID, def)
		}
		header := def.Auth.HeaderName
		if header == "" {
			header = "x-api-key"
		}
		req.Header.Set(header, apiKey)
	case manifest.AuthQueryParam:
		if apiKey == "" {
			return missingKeyError(providerID, def)
		}
		param := def.Auth.ParamName
		if param == "" {
			param = "key"
		}
		q := req.URL.Query()
		q.Set(param, apiKey)
		req.URL.RawQuery = q.Encode()
	default:
		return types.Errorf(types.ErrConfiguration, "provider %q: unknown auth type %q", providerID, def.Auth.Type)
	}
	return nil
}

func missingKeyError(providerID string, def manifest.ProviderDefinition) *types.Error {
	envHint := def.Auth.EnvVar
	if envHint == "" {
		envHint = model.EnvPrefix(providerID) + "_API_KEY"
	}
	return types.Errorf(types.ErrAuthentication,
		"no API key for provider %q; set %s or %s", providerID, envHint, genericKeyEnv).
		WithProvider(providerID)
}

// lookupConnectionVar resolves a template variable from the environment,
// trying the provider-scoped name first (<PROVIDER>_<VAR>) then the bare
// upper-cased name.
func lookupConnectionVar(providerID, name string) (string, bool) {
	upper := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if v := strings.TrimSpace(os.Getenv(model.EnvPrefix(providerID) + "_" + upper)); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(os.Getenv(upper)); v != "" {
		return v, true
	}
	return "", false
}

// baseURLOverride honours <PROVIDER>_BASE_URL and AI_BASE_URL.
func baseURLOverride(providerID string) string {
	if v := strings.TrimSpace(os.Getenv(model.EnvPrefix(providerID) + "_BASE_URL")); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("AI_BASE_URL"))
}

// validURL guards against template expansion producing garbage.
func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return types.Errorf(types.ErrConfiguration, "constructed URL %q is not absolute", raw)
	}
	return nil
}
