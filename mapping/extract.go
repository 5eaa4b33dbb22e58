package mapping

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
)

// ExtractResponse reads the provider response body through the manifest's
// response paths and assembles the canonical ChatResponse. A missing content
// path is tolerated only when a tool call was extracted; otherwise the
// response is rejected as InvalidModelResponse.
func ExtractResponse(def manifest.ProviderDefinition, providerID, wireModel string, raw []byte) (*types.ChatResponse, error) {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, types.Errorf(types.ErrInvalidModelResponse, "provider %s returned non-JSON body", providerID).
			WithProvider(providerID).WithCause(err)
	}

	msg := types.Message{Role: types.RoleAssistant}

	content, haveContent := GetString(body, def.ResponsePaths.Content)
	if haveContent {
		msg.Content = types.TextContent(content)
	}

	toolCalls := extractToolCalls(def, body)
	msg.ToolCalls = toolCalls

	if !haveContent && len(toolCalls) == 0 {
		return nil, types.Errorf(types.ErrInvalidModelResponse,
			"response path %q missing in provider %s reply", def.ResponsePaths.Content, providerID).
			WithProvider(providerID)
	}

	resp := &types.ChatResponse{
		Provider:    providerID,
		Model:       wireModel,
		Created:     time.Now().UTC(),
		UsageStatus: types.UsageUnsupported,
	}
	if id, ok := GetString(body, "id"); ok {
		resp.ID = id
	}
	if m, ok := GetString(body, "model"); ok && m != "" {
		resp.Model = m
	}

	choice := types.Choice{Index: 0, Message: msg}
	if def.ResponsePaths.FinishReason != "" {
		if fr, ok := GetString(body, def.ResponsePaths.FinishReason); ok {
			choice.FinishReason = fr
		}
	}
	resp.Choices = []types.Choice{choice}

	if def.ResponsePaths.Usage != "" {
		if usage, ok := GetPath(body, def.ResponsePaths.Usage); ok {
			resp.Usage = extractUsage(usage)
			resp.UsageStatus = types.UsageFinalized
		} else {
			resp.UsageStatus = types.UsagePending
		}
	}

	return resp, nil
}

// extractToolCalls handles the two shapes seen in the wild: an OpenAI-style
// array of {id, function:{name, arguments}} and an Anthropic-style content
// array with tool_use blocks.
func extractToolCalls(def manifest.ProviderDefinition, body any) []types.ToolCall {
	if def.ResponsePaths.ToolCalls == "" {
		return nil
	}
	raw, ok := GetPath(body, def.ResponsePaths.ToolCalls)
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []types.ToolCall
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if blockType, _ := m["type"].(string); blockType == "tool_use" {
			args, _ := json.Marshal(m["input"])
			out = append(out, types.ToolCall{
				ID:        str(m["id"]),
				Name:      str(m["name"]),
				Arguments: args,
			})
			continue
		}
		if fn, ok := m["function"].(map[string]any); ok {
			var args json.RawMessage
			switch a := fn["arguments"].(type) {
			case string:
				args = json.RawMessage(a)
			default:
				args, _ = json.Marshal(a)
			}
			out = append(out, types.ToolCall{
				ID:        str(m["id"]),
				Name:      str(fn["name"]),
				Arguments: args,
			})
		}
	}
	return out
}

// extractUsage normalises the usage block across provider vocabularies.
func extractUsage(raw any) types.Usage {
	m, ok := raw.(map[string]any)
	if !ok {
		return types.Usage{}
	}
	pick := func(keys ...string) int {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				if n, ok := asFloat(v); ok {
					return int(n)
				}
			}
		}
		return 0
	}
	u := types.Usage{
		PromptTokens:     pick("prompt_tokens", "input_tokens", "promptTokenCount"),
		CompletionTokens: pick("completion_tokens", "output_tokens", "candidatesTokenCount"),
		TotalTokens:      pick("total_tokens", "totalTokenCount"),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
