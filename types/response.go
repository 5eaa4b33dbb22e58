package types

import "time"

// UsageStatus describes how trustworthy the Usage numbers are.
type UsageStatus string

const (
	UsageFinalized   UsageStatus = "finalized"
	UsageEstimated   UsageStatus = "estimated"
	UsagePending     UsageStatus = "pending"
	UsageUnsupported UsageStatus = "unsupported"
)

// Usage represents token usage in a response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice represents a single choice in the response.
type Choice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

// ChatResponse represents a chat completion response.
type ChatResponse struct {
	ID          string      `json:"id,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	Model       string      `json:"model"`
	Created     time.Time   `json:"created"`
	Choices     []Choice    `json:"choices"`
	Usage       Usage       `json:"usage"`
	UsageStatus UsageStatus `json:"usage_status,omitempty"`
}

// FirstText returns the text of the first choice, or empty.
func (r *ChatResponse) FirstText() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content.AsText()
}

// Delta carries the incremental part of a streamed choice.
type Delta struct {
	Role      Role       `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChunkChoice is one choice slot inside a StreamChunk.
type ChunkChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// StreamChunk represents a normalised streaming response chunk.
type StreamChunk struct {
	ID       string        `json:"id,omitempty"`
	Provider string        `json:"provider,omitempty"`
	Model    string        `json:"model,omitempty"`
	Choices  []ChunkChoice `json:"choices,omitempty"`
	Usage    *Usage        `json:"usage,omitempty"`
	Err      *Error        `json:"error,omitempty"`
}
