package model

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
)

// Source records where a resolved model name came from.
type Source string

const (
	SourceExplicit        Source = "explicit"
	SourceEnvOverride     Source = "env_override"
	SourceProviderDefault Source = "provider_default"
	SourceCatalogFallback Source = "catalog_fallback"
)

// Resolution is the outcome of resolving one call.
type Resolution struct {
	ProviderID string
	Provider   manifest.ProviderDefinition
	WireModel  string
	Source     Source
	Overrides  map[string]any
	Fallbacks  []string
	DocURL     string
}

// Resolver turns a requested model id into a provider configuration, the
// wire model name, and a fallback chain. It never invents a provider.
type Resolver struct {
	registry *manifest.Registry
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *manifest.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve picks provider and wire model for a call. A requested model found
// in the manifest wins; an unknown requested model with a provider hint is
// passed through verbatim. With no requested model the hinted provider's
// <PROVIDER>_MODEL env override is used, then its manifest default_model,
// then the static catalogue default.
func (r *Resolver) Resolve(requestedModel, providerHint string) (*Resolution, error) {
	if requestedModel != "" {
		if md, ok := r.registry.ResolveModel(requestedModel); ok {
			def, err := r.registry.MustProvider(md.Provider)
			if err != nil {
				return nil, err
			}
			return r.finish(md.Provider, def, md.ModelID, SourceExplicit, md.Overrides), nil
		}
		// An unknown model with a provider hint is passed through verbatim:
		// the provider is the authority on its own model ids.
		if providerHint != "" {
			def, err := r.registry.MustProvider(providerHint)
			if err != nil {
				return nil, err
			}
			return r.finish(providerHint, def, requestedModel, SourceExplicit, nil), nil
		}
		return nil, types.Errorf(types.ErrConfiguration,
			"model %q is not in the manifest and no provider hint was given", requestedModel)
	}

	if providerHint == "" {
		return nil, types.NewError(types.ErrConfiguration, "no model requested and no provider hint given")
	}
	def, err := r.registry.MustProvider(providerHint)
	if err != nil {
		return nil, err
	}

	if env := envModelOverride(providerHint); env != "" {
		return r.finish(providerHint, def, env, SourceEnvOverride, nil), nil
	}
	if def.DefaultModel != "" {
		return r.finish(providerHint, def, def.DefaultModel, SourceProviderDefault, nil), nil
	}
	if p, ok := Lookup(providerHint); ok {
		return r.finish(providerHint, def, p.DefaultChatModel, SourceCatalogFallback, nil), nil
	}
	return nil, types.Errorf(types.ErrConfiguration, "provider %q has no default chat model", providerHint)
}

func (r *Resolver) finish(providerID string, def manifest.ProviderDefinition, wire string, src Source, overrides map[string]any) *Resolution {
	res := &Resolution{
		ProviderID: providerID,
		Provider:   def,
		WireModel:  wire,
		Source:     src,
		Overrides:  overrides,
	}
	if p, ok := Lookup(providerID); ok {
		res.DocURL = p.DocURL
		for _, fb := range p.FallbackModels {
			if !equalsFold(fb, wire) {
				res.Fallbacks = append(res.Fallbacks, fb)
			}
		}
	}
	return res
}

// FallbackAfterInvalid picks the next model to try on the same provider
// after an invalid-model error. Env override wins, then the catalogue
// fallbacks, then the provider default; the failed model is skipped.
func (r *Resolver) FallbackAfterInvalid(providerID, failedModel string) (string, bool) {
	if env := envModelOverride(providerID); env != "" && !equalsFold(env, failedModel) {
		return env, true
	}
	p, ok := Lookup(providerID)
	if !ok {
		return "", false
	}
	for _, candidate := range p.FallbackModels {
		if !equalsFold(candidate, failedModel) {
			return candidate, true
		}
	}
	if !equalsFold(p.DefaultChatModel, failedModel) {
		return p.DefaultChatModel, true
	}
	return "", false
}

// Suggestions lists models worth suggesting in an invalid-model error, in
// priority order and de-duplicated case-insensitively.
func (r *Resolver) Suggestions(providerID string) []string {
	var list []string
	push := func(v string) {
		if v == "" {
			return
		}
		for _, existing := range list {
			if equalsFold(existing, v) {
				return
			}
		}
		list = append(list, v)
	}
	push(envModelOverride(providerID))
	if p, ok := Lookup(providerID); ok {
		push(p.DefaultChatModel)
		for _, fb := range p.FallbackModels {
			push(fb)
		}
	}
	return list
}

// DocURL returns the provider documentation URL, if catalogued.
func (r *Resolver) DocURL(providerID string) string {
	if p, ok := Lookup(providerID); ok {
		return p.DocURL
	}
	return ""
}

// LooksLikeInvalidModel applies the provider-agnostic heuristic for
// invalid-model signals: a ModelNotFound kind, or a 400/404-ish error whose
// message carries a known keyword.
func LooksLikeInvalidModel(err error) bool {
	var e *types.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case types.ErrModelNotFound:
		return true
	case types.ErrInvalidRequest, types.ErrProvider, types.ErrInvalidModelResponse:
		if e.HTTPStatus != 0 && e.HTTPStatus != 400 && e.HTTPStatus != 404 {
			return false
		}
		return containsInvalidKeyword(e.Message)
	default:
		return false
	}
}

// DecorateInvalidModel wraps the original error into a ModelNotFound that
// names the requested model, the provider, the suggested models, and the
// provider docs URL.
func (r *Resolver) DecorateInvalidModel(providerID, requestedModel string, err error) *types.Error {
	suggestions := r.Suggestions(providerID)
	suggestionText := "no known fallback models configured"
	if len(suggestions) > 0 {
		suggestionText = strings.Join(suggestions, ", ")
	}
	return types.Errorf(types.ErrModelNotFound,
		"model %q is not available for provider %s. Try: %s. Docs: %s. Original error: %v",
		requestedModel, providerID, suggestionText, r.DocURL(providerID), err,
	).WithProvider(providerID).WithCause(err)
}

func envModelOverride(providerID string) string {
	v := os.Getenv(fmt.Sprintf("%s_MODEL", EnvPrefix(providerID)))
	return strings.TrimSpace(v)
}

func equalsFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func containsInvalidKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range []string{
		"invalid model",
		"model_not_found",
		"model not found",
		"unknown model",
		"unsupported model",
	} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
