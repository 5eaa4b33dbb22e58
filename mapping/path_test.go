package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSetPathNested(t *testing.T) {
	obj := map[string]any{}
	require.NoError(t, SetPath(obj, "input.temperature", 0.7))
	require.NoError(t, SetPath(obj, "input.max_tokens", 1000))
	require.NoError(t, SetPath(obj, "generationConfig.topP", 0.9))

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"input":{"temperature":0.7,"max_tokens":1000},"generationConfig":{"topP":0.9}}`,
		string(data))
}

func TestSetPathThroughArray(t *testing.T) {
	obj := map[string]any{}
	require.NoError(t, SetPath(obj, "messages[0].role", "user"))
	require.NoError(t, SetPath(obj, "messages[0].content", "hi"))
	require.NoError(t, SetPath(obj, "messages[2].role", "assistant"))

	v, ok := GetPath(obj, "messages[0].role")
	require.True(t, ok)
	assert.Equal(t, "user", v)

	arr := obj["messages"].([]any)
	assert.Len(t, arr, 3)
	assert.Nil(t, arr[1])
}

func TestSetPathRejectsWildcard(t *testing.T) {
	obj := map[string]any{}
	assert.Error(t, SetPath(obj, "choices[*].text", "x"))
}

func TestGetPath(t *testing.T) {
	raw := `{
		"choices": [{"message": {"content": "hello"}, "finish_reason": "stop"}],
		"candidates": [{"content": {"parts": [{"text": "g"}]}}],
		"usage": {"total_tokens": 5}
	}`
	var obj any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))

	testCases := []struct {
		path string
		want any
		ok   bool
	}{
		{"choices[0].message.content", "hello", true},
		{"choices[0].finish_reason", "stop", true},
		{"candidates[*].content.parts[0].text", "g", true},
		{"usage.total_tokens", float64(5), true},
		{"choices[1].message.content", nil, false},
		{"missing.path", nil, false},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := GetPath(obj, tc.path)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

// Property: after SetPath(obj, p, v), GetPath(obj, p) returns v.
func TestPathSetGetRoundTrip(t *testing.T) {
	segment := rapid.StringMatching(`[a-z][a-z0-9_]{0,8}`)
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(1, 5).Draw(t, "depth")
		path := segment.Draw(t, "seg0")
		for i := 1; i < depth; i++ {
			path += "." + segment.Draw(t, "seg")
		}
		value := rapid.OneOf(
			rapid.Float64Range(-1e6, 1e6).AsAny(),
			rapid.String().AsAny(),
			rapid.Bool().AsAny(),
		).Draw(t, "value")

		obj := map[string]any{}
		if err := SetPath(obj, path, value); err != nil {
			t.Fatalf("SetPath(%q) failed: %v", path, err)
		}
		got, ok := GetPath(obj, path)
		if !ok {
			t.Fatalf("GetPath(%q) missing after set", path)
		}
		if got != value {
			t.Fatalf("GetPath(%q) = %v, want %v", path, got, value)
		}
	})
}
