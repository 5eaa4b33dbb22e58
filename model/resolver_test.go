package model

import (
	"testing"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *manifest.Registry {
	t.Helper()
	m, err := manifest.Default()
	require.NoError(t, err)
	return manifest.NewRegistry(m, nil)
}

func TestResolveExplicitModel(t *testing.T) {
	r := NewResolver(testRegistry(t))

	res, err := r.Resolve("gpt-4o-mini", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", res.ProviderID)
	assert.Equal(t, "gpt-4o-mini", res.WireModel)
	assert.Equal(t, SourceExplicit, res.Source)
	assert.NotEmpty(t, res.DocURL)
}

func TestResolveUnknownModelWithHintPassesThrough(t *testing.T) {
	r := NewResolver(testRegistry(t))

	res, err := r.Resolve("gpt-4-nonexistent", "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", res.ProviderID)
	assert.Equal(t, "gpt-4-nonexistent", res.WireModel)
}

func TestResolveUnknownModelWithoutHintFails(t *testing.T) {
	r := NewResolver(testRegistry(t))
	_, err := r.Resolve("made-up-model", "")
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestResolveHintOnlyUsesEnvThenDefault(t *testing.T) {
	r := NewResolver(testRegistry(t))

	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	res, err := r.Resolve("", "openai")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", res.WireModel)
	assert.Equal(t, SourceEnvOverride, res.Source)

	t.Setenv("OPENAI_MODEL", "")
	res, err = r.Resolve("", "openai")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", res.WireModel)
	assert.Equal(t, SourceProviderDefault, res.Source)
}

func TestFallbackAfterInvalidSkipsFailedModel(t *testing.T) {
	r := NewResolver(testRegistry(t))

	next, ok := r.FallbackAfterInvalid("openai", "gpt-4-nonexistent")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", next)

	next, ok = r.FallbackAfterInvalid("openai", "gpt-4o-mini")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", next)
}

func TestFallbackPrefersEnvOverride(t *testing.T) {
	r := NewResolver(testRegistry(t))
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")

	next, ok := r.FallbackAfterInvalid("openai", "gpt-4-nonexistent")
	require.True(t, ok)
	assert.Equal(t, "gpt-4.1-mini", next)
}

func TestSuggestionsDeduplicated(t *testing.T) {
	r := NewResolver(testRegistry(t))
	t.Setenv("OPENAI_MODEL", "GPT-4O")

	got := r.Suggestions("openai")
	// Env override wins the first slot; the default is folded into it
	// case-insensitively.
	assert.Equal(t, []string{"GPT-4O", "gpt-4o-mini"}, got)
}

func TestLooksLikeInvalidModel(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"model not found kind", types.NewError(types.ErrModelNotFound, "x"), true},
		{"400 with keyword", types.NewError(types.ErrInvalidRequest, "The requested Invalid Model is unknown").WithHTTPStatus(400), true},
		{"404 with keyword", types.NewError(types.ErrProvider, "unknown model 'x'").WithHTTPStatus(404), true},
		{"500 with keyword", types.NewError(types.ErrProvider, "invalid model").WithHTTPStatus(500), false},
		{"400 without keyword", types.NewError(types.ErrInvalidRequest, "temperature out of range").WithHTTPStatus(400), false},
		{"network error", types.NewError(types.ErrNetwork, "invalid model"), false},
		{"plain error", assertErr("invalid model"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LooksLikeInvalidModel(tc.err))
		})
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestDecorateInvalidModel(t *testing.T) {
	r := NewResolver(testRegistry(t))

	orig := types.NewError(types.ErrInvalidRequest, "invalid model").WithHTTPStatus(400)
	err := r.DecorateInvalidModel("openai", "gpt-4-nonexistent", orig)

	assert.Equal(t, types.ErrModelNotFound, err.Code)
	assert.Contains(t, err.Message, "gpt-4-nonexistent")
	assert.Contains(t, err.Message, "gpt-4o-mini")
	assert.Contains(t, err.Message, "platform.openai.com/docs/models")
	assert.Equal(t, "openai", err.Provider)
}
