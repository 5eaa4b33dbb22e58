package mapping

import (
	"encoding/json"
	"testing"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openaiDef() manifest.ProviderDefinition {
	return manifest.ProviderDefinition{
		BaseURL:       "https://api.openai.com/v1",
		ChatPath:      "/chat/completions",
		PayloadFormat: manifest.PayloadOpenAI,
		ParameterMappings: map[string]manifest.MappingRule{
			"temperature": {Direct: "temperature"},
			"max_tokens":  {Direct: "max_tokens"},
			"top_p":       {Direct: "top_p"},
		},
		ResponsePaths: manifest.ResponsePaths{Content: "choices[0].message.content"},
	}
}

func TestBuildBodyOpenAI(t *testing.T) {
	e := NewEngine()
	req := types.NewChatRequest("ignored", []types.Message{
		types.NewSystemMessage("be brief"),
		types.NewUserMessage("Hello"),
	}).WithTemperature(0.7).WithMaxTokens(256)

	body, err := e.BuildBody(openaiDef(), "gpt-4o", req, nil)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, float64(256), body["max_tokens"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be brief", first["content"])
}

func TestBuildBodyIsDeterministic(t *testing.T) {
	e := NewEngine()
	req := types.NewChatRequest("m", []types.Message{types.NewUserMessage("x")}).
		WithTemperature(0.5).WithTopP(0.9)

	a, err := e.BuildBody(openaiDef(), "gpt-4o", req, nil)
	require.NoError(t, err)
	b, err := e.BuildBody(openaiDef(), "gpt-4o", req, nil)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.Equal(t, string(ja), string(jb))
}

func TestBuildBodyGeminiPathRewrite(t *testing.T) {
	def := manifest.ProviderDefinition{
		BaseURLTemplate: "https://generativelanguage.googleapis.com/v1beta/models/{model}",
		ConnectionVars:  []string{"model"},
		ChatPath:        ":generateContent",
		PayloadFormat:   manifest.PayloadGemini,
		ParameterMappings: map[string]manifest.MappingRule{
			"temperature": {Transform: &manifest.ParameterTransform{
				Kind:       manifest.TransformPathRewrite,
				TargetPath: "generationConfig.temperature",
			}},
			"max_tokens": {Transform: &manifest.ParameterTransform{
				Kind:       manifest.TransformPathRewrite,
				TargetPath: "generationConfig.maxOutputTokens",
			}},
		},
		ResponsePaths: manifest.ResponsePaths{Content: "candidates[0].content.parts[0].text"},
	}

	e := NewEngine()
	req := types.NewChatRequest("", []types.Message{
		types.NewSystemMessage("sys"),
		types.NewUserMessage("hi"),
		types.NewAssistantMessage("yo"),
	}).WithTemperature(0.3).WithMaxTokens(100)

	body, err := e.BuildBody(def, "gemini-1.5-flash", req, nil)
	require.NoError(t, err)

	// Model stays out of the body for gemini.
	_, hasModel := body["model"]
	assert.False(t, hasModel)

	gc := body["generationConfig"].(map[string]any)
	assert.Equal(t, 0.3, gc["temperature"])
	assert.Equal(t, float64(100), gc["maxOutputTokens"])

	contents := body["contents"].([]any)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.NotNil(t, body["systemInstruction"])

	url, err := e.BuildURL(def, "gemini-1.5-flash", nil, false)
	require.NoError(t, err)
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent", url)
}

func TestBuildBodyAnthropicSystemExtraction(t *testing.T) {
	def := manifest.ProviderDefinition{
		BaseURL:       "https://api.anthropic.com/v1",
		ChatPath:      "/messages",
		PayloadFormat: manifest.PayloadAnthropic,
		ParameterMappings: map[string]manifest.MappingRule{
			"max_tokens": {Direct: "max_tokens"},
		},
		ResponsePaths: manifest.ResponsePaths{Content: "content[0].text"},
	}
	e := NewEngine()
	req := types.NewChatRequest("", []types.Message{
		types.NewSystemMessage("you are terse"),
		types.NewUserMessage("hello"),
		types.NewToolMessage("call_1", "search", `{"hits":0}`),
	}).WithMaxTokens(512)

	body, err := e.BuildBody(def, "claude-3-5-sonnet-latest", req, nil)
	require.NoError(t, err)

	assert.Equal(t, "you are terse", body["system"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	toolMsg := msgs[1].(map[string]any)
	assert.Equal(t, "user", toolMsg["role"])
	block := toolMsg["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", block["type"])
	assert.Equal(t, "call_1", block["tool_use_id"])
}

func TestBuildBodyTransforms(t *testing.T) {
	def := openaiDef()
	def.ParameterMappings = map[string]manifest.MappingRule{
		"temperature": {Transform: &manifest.ParameterTransform{
			Kind:       manifest.TransformScale,
			TargetPath: "temp_scaled",
			Params:     map[string]any{"factor": 100.0},
		}},
		"max_tokens": {Transform: &manifest.ParameterTransform{
			Kind:       manifest.TransformTypeCast,
			TargetPath: "max_tokens_str",
			Params:     map[string]any{"target": "string"},
		}},
		"top_p": {Conditional: []manifest.ConditionalMapping{
			{Condition: "stream == true", TargetPath: "stream_top_p"},
			{Condition: "temperature exists", TargetPath: "sampling.top_p"},
		}},
		"frequency_penalty": {Conditional: []manifest.ConditionalMapping{
			{Condition: "model == other-model", TargetPath: "never"},
		}},
	}

	e := NewEngine()
	req := types.NewChatRequest("", []types.Message{types.NewUserMessage("x")}).
		WithTemperature(0.42).WithMaxTokens(1000).WithTopP(0.9)
	fp := -0.5
	req.FrequencyPenalty = &fp

	body, err := e.BuildBody(def, "gpt-4o", req, nil)
	require.NoError(t, err)

	assert.InDelta(t, 42.0, body["temp_scaled"].(float64), 1e-9)
	assert.Equal(t, "1000", body["max_tokens_str"])
	sampling := body["sampling"].(map[string]any)
	assert.Equal(t, 0.9, sampling["top_p"])

	// No condition matched: parameter dropped, not an error.
	_, hasNever := body["never"]
	assert.False(t, hasNever)
}

func TestBuildBodyEnumMap(t *testing.T) {
	def := openaiDef()
	def.ParameterMappings["temperature"] = manifest.MappingRule{Transform: &manifest.ParameterTransform{
		Kind:       manifest.TransformEnumMap,
		TargetPath: "effort",
		Params: map[string]any{
			"mappings": map[string]any{"0": "low", "1": "high"},
			"default":  "medium",
		},
	}}

	e := NewEngine()
	req := types.NewChatRequest("", []types.Message{types.NewUserMessage("x")}).WithTemperature(1)
	body, err := e.BuildBody(def, "gpt-4o", req, nil)
	require.NoError(t, err)
	assert.Equal(t, "high", body["effort"])

	req2 := types.NewChatRequest("", []types.Message{types.NewUserMessage("x")}).WithTemperature(0.5)
	body2, err := e.BuildBody(def, "gpt-4o", req2, nil)
	require.NoError(t, err)
	assert.Equal(t, "medium", body2["effort"])
}

func TestBuildBodyOverridesWinAndExtensionsCannotCollide(t *testing.T) {
	e := NewEngine()
	req := types.NewChatRequest("", []types.Message{types.NewUserMessage("x")}).WithTemperature(0.7)

	body, err := e.BuildBody(openaiDef(), "gpt-4o", req, map[string]any{"temperature": 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.1, body["temperature"])

	req.Extensions = map[string]any{"temperature": 0.9}
	_, err = e.BuildBody(openaiDef(), "gpt-4o", req, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))

	req.Extensions = map[string]any{"seed": 42}
	body, err = e.BuildBody(openaiDef(), "gpt-4o", req, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, body["seed"])
}

func TestBuildBodyEmptyMessagesStillValid(t *testing.T) {
	e := NewEngine()
	req := types.NewChatRequest("", nil)
	body, err := e.BuildBody(openaiDef(), "gpt-4o", req, nil)
	require.NoError(t, err)

	data, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"messages":[]`)
}

func TestBuildURLMissingTemplateVar(t *testing.T) {
	def := manifest.ProviderDefinition{
		BaseURLTemplate: "https://{resource}.example.com",
		ChatPath:        "/chat",
		PayloadFormat:   manifest.PayloadOpenAI,
	}
	_, err := NewEngine().BuildURL(def, "m", nil, false)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), `"resource"`)
}
