package mapping

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
)

// Engine builds provider request bodies and URLs from manifest definitions.
type Engine struct{}

// NewEngine creates a mapping engine.
func NewEngine() *Engine {
	return &Engine{}
}

// BuildURL expands the provider base URL (template or literal) and appends
// the chat path, using the streaming path override when streaming.
func (e *Engine) BuildURL(def manifest.ProviderDefinition, wireModel string, connVars map[string]string, stream bool) (string, error) {
	base := def.BaseURL
	if def.BaseURLTemplate != "" {
		vars := make(map[string]string, len(connVars)+1)
		for k, v := range connVars {
			vars[k] = v
		}
		if _, ok := vars["model"]; !ok {
			vars["model"] = wireModel
		}
		expanded, err := ReplaceTemplate(def.BaseURLTemplate, vars)
		if err != nil {
			return "", err
		}
		base = expanded
	}
	path := def.ChatPath
	if stream && def.Streaming != nil && def.Streaming.Path != "" {
		path = def.Streaming.Path
	}
	return strings.TrimRight(base, "/") + path, nil
}

// BuildBody constructs the provider-specific request body: messages first,
// then the model field, then each canonical parameter via its mapping rule,
// then model-level overrides, and finally the extensions escape hatch.
func (e *Engine) BuildBody(def manifest.ProviderDefinition, wireModel string, req *types.ChatRequest, overrides map[string]any) (map[string]any, error) {
	body := map[string]any{}

	if err := buildMessages(body, def.PayloadFormat, req); err != nil {
		return nil, err
	}

	switch def.PayloadFormat {
	case manifest.PayloadGemini:
		// Model travels in the URL, not the body.
	default:
		body["model"] = wireModel
	}

	if req.Stream && def.PayloadFormat != manifest.PayloadGemini {
		body["stream"] = true
	}

	scope := requestScope(wireModel, req)
	for param, value := range canonicalParams(req) {
		rule := def.ParameterMappings[param]
		if err := applyRule(body, param, value, rule, scope); err != nil {
			return nil, err
		}
	}

	if err := buildTools(body, def.PayloadFormat, req); err != nil {
		return nil, err
	}
	if req.ResponseFormat != nil && def.PayloadFormat == manifest.PayloadOpenAI {
		rf := map[string]any{"type": "json_object"}
		if req.ResponseFormat.Type == "text" {
			rf["type"] = "text"
		}
		body["response_format"] = rf
	}

	for path, value := range overrides {
		if err := SetPath(body, path, value); err != nil {
			return nil, err
		}
	}

	for key, value := range req.Extensions {
		if _, exists := body[key]; exists {
			return nil, types.Errorf(types.ErrConfiguration,
				"extension key %q collides with a mapped field", key)
		}
		body[key] = value
	}

	return body, nil
}

// requestScope exposes the request to condition and format evaluation.
func requestScope(wireModel string, req *types.ChatRequest) map[string]any {
	scope := map[string]any{
		"model":  wireModel,
		"stream": req.Stream,
	}
	for k, v := range canonicalParams(req) {
		scope[k] = v
	}
	return scope
}

// canonicalParams collects the sampling parameters present on the request.
func canonicalParams(req *types.ChatRequest) map[string]any {
	out := map[string]any{}
	if req.Temperature != nil {
		out["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		out["max_tokens"] = float64(*req.MaxTokens)
	}
	if req.TopP != nil {
		out["top_p"] = *req.TopP
	}
	if req.FrequencyPenalty != nil {
		out["frequency_penalty"] = *req.FrequencyPenalty
	}
	if req.PresencePenalty != nil {
		out["presence_penalty"] = *req.PresencePenalty
	}
	return out
}

func buildMessages(body map[string]any, format manifest.PayloadFormat, req *types.ChatRequest) error {
	switch format {
	case manifest.PayloadAnthropic:
		system, msgs := anthropicMessages(req.Messages)
		if system != "" {
			body["system"] = system
		}
		body["messages"] = msgs
	case manifest.PayloadGemini:
		system, contents := geminiContents(req.Messages)
		if system != "" {
			body["systemInstruction"] = map[string]any{
				"parts": []any{map[string]any{"text": system}},
			}
		}
		body["contents"] = contents
	case manifest.PayloadCohere:
		message, history := cohereHistory(req.Messages)
		body["message"] = message
		if len(history) > 0 {
			body["chat_history"] = history
		}
	default:
		body["messages"] = openaiMessages(req.Messages)
	}
	return nil
}

func openaiMessages(messages []types.Message) []any {
	out := make([]any, 0, len(messages))
	for _, m := range messages {
		entry := map[string]any{"role": string(m.Role)}
		switch m.Content.Kind {
		case types.ContentMixed, types.ContentImage, types.ContentAudio:
			entry["content"] = openaiContentParts(m.Content)
		default:
			entry["content"] = m.Content.AsText()
		}
		if m.Name != "" {
			entry["name"] = m.Name
		}
		if m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]any, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": string(tc.Arguments),
					},
				})
			}
			entry["tool_calls"] = calls
		}
		out = append(out, entry)
	}
	return out
}

func openaiContentParts(c types.Content) []any {
	parts := c.Parts
	if len(parts) == 0 {
		parts = []types.ContentPart{{Kind: c.Kind, Text: c.Text, Image: c.Image, Audio: c.Audio}}
	}
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case types.ContentImage:
			if p.Image != nil {
				out = append(out, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": p.Image.URL},
				})
			}
		case types.ContentAudio:
			if p.Audio != nil {
				out = append(out, map[string]any{
					"type":      "input_audio",
					"input_audio": map[string]any{"url": p.Audio.URL, "format": p.Audio.MIME},
				})
			}
		default:
			out = append(out, map[string]any{"type": "text", "text": p.Text})
		}
	}
	return out
}

// anthropicMessages extracts the system prompt and converts the remainder to
// content-block form. Tool results become user-side tool_result blocks.
func anthropicMessages(messages []types.Message) (string, []any) {
	var system string
	out := make([]any, 0, len(messages))
	for _, m := range messages {
		if m.Role == types.RoleSystem {
			system = m.Content.AsText()
			continue
		}
		if m.Role == types.RoleTool {
			out = append(out, map[string]any{
				"role": "user",
				"content": []any{map[string]any{
					"type":        "tool_result",
					"tool_use_id": m.ToolCallID,
					"content":     m.Content.AsText(),
				}},
			})
			continue
		}
		var blocks []any
		if text := m.Content.AsText(); text != "" {
			blocks = append(blocks, map[string]any{"type": "text", "text": text})
		}
		if m.Content.Kind == types.ContentImage && m.Content.Image != nil {
			blocks = append(blocks, map[string]any{
				"type":   "image",
				"source": map[string]any{"type": "url", "url": m.Content.Image.URL},
			})
		}
		for _, tc := range m.ToolCalls {
			blocks = append(blocks, map[string]any{
				"type":  "tool_use",
				"id":    tc.ID,
				"name":  tc.Name,
				"input": json.RawMessage(tc.Arguments),
			})
		}
		if len(blocks) > 0 {
			out = append(out, map[string]any{"role": string(m.Role), "content": blocks})
		}
	}
	return system, out
}

func geminiContents(messages []types.Message) (string, []any) {
	var system string
	out := make([]any, 0, len(messages))
	for _, m := range messages {
		if m.Role == types.RoleSystem {
			system = m.Content.AsText()
			continue
		}
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		out = append(out, map[string]any{
			"role":  role,
			"parts": []any{map[string]any{"text": m.Content.AsText()}},
		})
	}
	return system, out
}

// cohereHistory splits the conversation into the trailing user message and
// the preceding history in cohere's role vocabulary.
func cohereHistory(messages []types.Message) (string, []any) {
	var message string
	history := make([]any, 0, len(messages))
	lastUser := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			lastUser = i
			break
		}
	}
	for i, m := range messages {
		if i == lastUser {
			message = m.Content.AsText()
			continue
		}
		role := "USER"
		switch m.Role {
		case types.RoleAssistant:
			role = "CHATBOT"
		case types.RoleSystem:
			role = "SYSTEM"
		}
		history = append(history, map[string]any{
			"role":    role,
			"message": m.Content.AsText(),
		})
	}
	return message, history
}

func buildTools(body map[string]any, format manifest.PayloadFormat, req *types.ChatRequest) error {
	if len(req.Tools) == 0 {
		return nil
	}
	switch format {
	case manifest.PayloadAnthropic:
		tools := make([]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": json.RawMessage(t.Parameters),
			})
		}
		body["tools"] = tools
	case manifest.PayloadGemini:
		decls := make([]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  json.RawMessage(t.Parameters),
			})
		}
		body["tools"] = []any{map[string]any{"functionDeclarations": decls}}
	case manifest.PayloadCohere:
		tools := make([]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"name":        t.Name,
				"description": t.Description,
			})
		}
		body["tools"] = tools
	default:
		tools := make([]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  json.RawMessage(t.Parameters),
				},
			})
		}
		body["tools"] = tools
		if req.ToolChoice != "" {
			body["tool_choice"] = string(req.ToolChoice)
		}
	}
	return nil
}
