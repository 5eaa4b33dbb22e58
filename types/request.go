package types

import "encoding/json"

// ResponseFormat constrains the shape of the assistant reply.
type ResponseFormat struct {
	Type   string          `json:"type"` // "text" or "json"
	Schema json.RawMessage `json:"schema,omitempty"`
}

// ChatRequest is the canonical, provider-agnostic chat completion request.
// Sampling parameters use pointers so the mapping engine can distinguish
// "absent" from an explicit zero.
type ChatRequest struct {
	TraceID          string          `json:"trace_id,omitempty"`
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxTokens        *uint32         `json:"max_tokens,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	Tools            []ToolSchema    `json:"tools,omitempty"`
	ToolChoice       ToolChoice      `json:"tool_choice,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`

	// Extensions is the provider escape hatch: values merged verbatim into
	// the wire body after mapping, without overwriting mapped fields.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewChatRequest creates a request for the given model and messages.
func NewChatRequest(model string, messages []Message) *ChatRequest {
	return &ChatRequest{Model: model, Messages: messages}
}

// WithTemperature sets the sampling temperature.
func (r *ChatRequest) WithTemperature(t float64) *ChatRequest {
	r.Temperature = &t
	return r
}

// WithMaxTokens sets the completion token cap.
func (r *ChatRequest) WithMaxTokens(n uint32) *ChatRequest {
	r.MaxTokens = &n
	return r
}

// WithTopP sets nucleus sampling.
func (r *ChatRequest) WithTopP(p float64) *ChatRequest {
	r.TopP = &p
	return r
}

// Clone returns a deep-enough copy for retry/failover: slices and maps are
// copied, message contents are shared (they are never mutated downstream).
func (r *ChatRequest) Clone() *ChatRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = append([]Message(nil), r.Messages...)
	out.Tools = append([]ToolSchema(nil), r.Tools...)
	if r.Extensions != nil {
		out.Extensions = make(map[string]any, len(r.Extensions))
		for k, v := range r.Extensions {
			out.Extensions[k] = v
		}
	}
	return &out
}
