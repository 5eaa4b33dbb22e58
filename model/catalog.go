// Package model resolves the wire-level model name for a call and owns the
// static fallback catalogue consulted after an invalid-model error.
package model

import "strings"

// Profile is static metadata describing recommended models for one provider.
// The catalogue is intentionally lightweight: it supplies reasonable
// fallbacks without enumerating every model permutation; the manifest remains
// the authoritative catalogue.
type Profile struct {
	Provider         string
	DocURL           string
	DefaultChatModel string
	FallbackModels   []string
}

var profiles = map[string]Profile{
	"openai": {
		Provider:         "openai",
		DocURL:           "https://platform.openai.com/docs/models",
		DefaultChatModel: "gpt-4o",
		FallbackModels:   []string{"gpt-4o-mini", "gpt-4o"},
	},
	"anthropic": {
		Provider:         "anthropic",
		DocURL:           "https://docs.anthropic.com/claude/reference/selecting-a-model",
		DefaultChatModel: "claude-3-5-sonnet-latest",
		FallbackModels:   []string{"claude-3-5-haiku-20241022", "claude-3-opus-20240229"},
	},
	"gemini": {
		Provider:         "gemini",
		DocURL:           "https://ai.google.dev/gemini-api/docs/models",
		DefaultChatModel: "gemini-1.5-flash",
		FallbackModels:   []string{"gemini-1.5-pro", "gemini-1.0-pro"},
	},
	"cohere": {
		Provider:         "cohere",
		DocURL:           "https://docs.cohere.com/docs/models",
		DefaultChatModel: "command-r",
		FallbackModels:   []string{"command-r-plus", "command"},
	},
	"groq": {
		Provider:         "groq",
		DocURL:           "https://console.groq.com/docs/models",
		DefaultChatModel: "llama-3.3-70b-versatile",
		FallbackModels:   []string{"llama-3.1-70b-versatile", "llama-3.2-90b-vision-preview"},
	},
	"mistral": {
		Provider:         "mistral",
		DocURL:           "https://docs.mistral.ai/platform/models/",
		DefaultChatModel: "mistral-small-latest",
		FallbackModels:   []string{"mistral-medium", "mistral-large"},
	},
	"perplexity": {
		Provider:         "perplexity",
		DocURL:           "https://docs.perplexity.ai/docs/model-cards",
		DefaultChatModel: "llama-3.1-sonar-small-128k-online",
		FallbackModels:   []string{"llama-3.1-sonar-large-128k-online"},
	},
}

// Lookup returns the profile for a provider id, or a zero profile with ok
// false when the provider has no catalogue entry.
func Lookup(provider string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(provider)]
	return p, ok
}

// EnvPrefix derives the provider's environment variable prefix, e.g.
// "openai" -> "OPENAI".
func EnvPrefix(provider string) string {
	return strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
}
