package types

import "encoding/json"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentKind discriminates the variants of message content.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentJSON  ContentKind = "json"
	ContentImage ContentKind = "image"
	ContentAudio ContentKind = "audio"
	ContentMixed ContentKind = "mixed"
)

// ImageContent references image data attached to a message.
type ImageContent struct {
	URL  string `json:"url"`
	MIME string `json:"mime,omitempty"`
	Name string `json:"name,omitempty"`
}

// AudioContent references audio data attached to a message.
type AudioContent struct {
	URL  string `json:"url"`
	MIME string `json:"mime,omitempty"`
}

// ContentPart is one element of mixed content.
type ContentPart struct {
	Kind  ContentKind     `json:"kind"`
	Text  string          `json:"text,omitempty"`
	JSON  json.RawMessage `json:"json,omitempty"`
	Image *ImageContent   `json:"image,omitempty"`
	Audio *AudioContent   `json:"audio,omitempty"`
}

// Content is the sum type carried by a Message. Exactly one variant is
// populated, discriminated by Kind.
type Content struct {
	Kind  ContentKind     `json:"kind"`
	Text  string          `json:"text,omitempty"`
	JSON  json.RawMessage `json:"json,omitempty"`
	Image *ImageContent   `json:"image,omitempty"`
	Audio *AudioContent   `json:"audio,omitempty"`
	Parts []ContentPart   `json:"parts,omitempty"`
}

// TextContent builds a plain-text content value.
func TextContent(text string) Content {
	return Content{Kind: ContentText, Text: text}
}

// JSONContent builds a structured-JSON content value.
func JSONContent(raw json.RawMessage) Content {
	return Content{Kind: ContentJSON, JSON: raw}
}

// AsText flattens content to a plain string. Mixed content concatenates its
// text parts; non-text variants render empty.
func (c Content) AsText() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentJSON:
		return string(c.JSON)
	case ContentMixed:
		var out string
		for _, p := range c.Parts {
			if p.Kind == ContentText {
				out += p.Text
			}
		}
		return out
	default:
		return ""
	}
}

// Message represents a conversation message.
type Message struct {
	Role       Role       `json:"role"`
	Content    Content    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewMessage creates a new text message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: TextContent(content)}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewToolMessage creates a new tool result message.
func NewToolMessage(toolCallID, name, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    TextContent(content),
		Name:       name,
		ToolCallID: toolCallID,
	}
}

// WithToolCalls adds tool calls to the message.
func (m Message) WithToolCalls(calls []ToolCall) Message {
	m.ToolCalls = calls
	return m
}
