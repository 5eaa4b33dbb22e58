package streaming

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
)

// parseFrame turns one complete frame into zero or more normalised chunks.
func (d *Decoder) parseFrame(frame []byte) []types.StreamChunk {
	text := strings.TrimSpace(string(frame))
	if text == "" {
		return nil
	}
	switch d.dialect {
	case manifest.EventAnthropicSSE:
		return d.parseAnthropicEvent(text)
	case manifest.EventGeminiJSON:
		return d.parseGeminiObject(text)
	case manifest.EventCohereNative:
		return d.parseCohereLine(text)
	case manifest.EventResponsesAPI:
		return d.parseResponsesEvent(text)
	default:
		return d.parseDataLines(text)
	}
}

// parseDataLines handles OpenAI-compatible SSE: each event may carry several
// data: lines; the literal done signal terminates the stream.
func (d *Decoder) parseDataLines(event string) []types.StreamChunk {
	var out []types.StreamChunk
	for _, line := range strings.Split(event, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, d.prefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, d.prefix))
		if data == d.doneSignal {
			d.done = true
			return out
		}
		if chunk, ok := d.parseOpenAIChunk(data); ok {
			out = append(out, chunk)
		}
	}
	return out
}

func (d *Decoder) parseOpenAIChunk(data string) (types.StreamChunk, bool) {
	var raw struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Index int `json:"index"`
			Delta struct {
				Role      string `json:"role"`
				Content   string `json:"content"`
				ToolCalls []struct {
					Index    int    `json:"index"`
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return types.StreamChunk{}, false
	}
	if raw.ID != "" {
		d.id = raw.ID
	}
	if raw.Model != "" {
		d.model = raw.Model
	}
	chunk := types.StreamChunk{ID: d.id, Model: d.model}
	for _, c := range raw.Choices {
		cc := types.ChunkChoice{Index: c.Index}
		cc.Delta.Role = types.Role(c.Delta.Role)
		cc.Delta.Content = c.Delta.Content
		for _, tc := range c.Delta.ToolCalls {
			cc.Delta.ToolCalls = append(cc.Delta.ToolCalls, types.ToolCall{
				Index:     tc.Index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
		if c.FinishReason != nil {
			cc.FinishReason = *c.FinishReason
		}
		chunk.Choices = append(chunk.Choices, cc)
	}
	if raw.Usage != nil {
		chunk.Usage = &types.Usage{
			PromptTokens:     raw.Usage.PromptTokens,
			CompletionTokens: raw.Usage.CompletionTokens,
			TotalTokens:      raw.Usage.TotalTokens,
		}
	}
	return chunk, true
}

// parseAnthropicEvent handles event:/data: pairs. message_stop terminates.
func (d *Decoder) parseAnthropicEvent(event string) []types.StreamChunk {
	var data string
	for _, line := range strings.Split(event, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if data == "" {
		return nil
	}

	var ev struct {
		Type  string `json:"type"`
		Index int    `json:"index"`
		Message *struct {
			ID    string `json:"id"`
			Model string `json:"model"`
			Usage *struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		} `json:"message"`
		ContentBlock *struct {
			Type string `json:"type"`
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"content_block"`
		Delta *struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			PartialJSON string `json:"partial_json"`
			StopReason  string `json:"stop_reason"`
		} `json:"delta"`
		Usage *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil
	}

	switch ev.Type {
	case "message_start":
		if ev.Message != nil {
			d.id = ev.Message.ID
			d.model = ev.Message.Model
		}
		return []types.StreamChunk{{
			ID:    d.id,
			Model: d.model,
			Choices: []types.ChunkChoice{{
				Delta: types.Delta{Role: types.RoleAssistant},
			}},
		}}

	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			d.toolAcc[ev.Index] = &toolAccumulator{id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
		}
		return nil

	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return []types.StreamChunk{{
				ID:    d.id,
				Model: d.model,
				Choices: []types.ChunkChoice{{
					Delta: types.Delta{Role: types.RoleAssistant, Content: ev.Delta.Text},
				}},
			}}
		case "input_json_delta":
			acc, ok := d.toolAcc[ev.Index]
			if !ok {
				return nil
			}
			acc.args = append(acc.args, ev.Delta.PartialJSON...)
			return []types.StreamChunk{{
				ID:    d.id,
				Model: d.model,
				Choices: []types.ChunkChoice{{
					Delta: types.Delta{
						Role: types.RoleAssistant,
						ToolCalls: []types.ToolCall{{
							Index:     ev.Index,
							ID:        acc.id,
							Name:      acc.name,
							Arguments: json.RawMessage(ev.Delta.PartialJSON),
						}},
					},
				}},
			}}
		}
		return nil

	case "content_block_stop":
		acc, ok := d.toolAcc[ev.Index]
		if !ok {
			return nil
		}
		delete(d.toolAcc, ev.Index)
		args := acc.args
		if len(args) == 0 {
			args = []byte("{}")
		}
		return []types.StreamChunk{{
			ID:    d.id,
			Model: d.model,
			Choices: []types.ChunkChoice{{
				Delta: types.Delta{
					Role: types.RoleAssistant,
					ToolCalls: []types.ToolCall{{
						Index:     ev.Index,
						ID:        acc.id,
						Name:      acc.name,
						Arguments: json.RawMessage(args),
					}},
				},
			}},
		}}

	case "message_delta":
		if ev.Delta == nil || ev.Delta.StopReason == "" {
			return nil
		}
		chunk := types.StreamChunk{
			ID:      d.id,
			Model:   d.model,
			Choices: []types.ChunkChoice{{FinishReason: ev.Delta.StopReason}},
		}
		if ev.Usage != nil {
			chunk.Usage = &types.Usage{
				PromptTokens:     ev.Usage.InputTokens,
				CompletionTokens: ev.Usage.OutputTokens,
				TotalTokens:      ev.Usage.InputTokens + ev.Usage.OutputTokens,
			}
		}
		return []types.StreamChunk{chunk}

	case "message_stop":
		d.done = true
		return nil
	}
	return nil
}

// parseGeminiObject handles one complete generateContent response object.
// The stream ends with body close, so no done signal is tracked here.
func (d *Decoder) parseGeminiObject(text string) []types.StreamChunk {
	var obj struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
			Index        int    `json:"index"`
		} `json:"candidates"`
		UsageMetadata *struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
		ModelVersion string `json:"modelVersion"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil
	}
	if obj.ModelVersion != "" {
		d.model = obj.ModelVersion
	}
	chunk := types.StreamChunk{ID: d.id, Model: d.model}
	for _, cand := range obj.Candidates {
		var content string
		for _, p := range cand.Content.Parts {
			content += p.Text
		}
		chunk.Choices = append(chunk.Choices, types.ChunkChoice{
			Index:        cand.Index,
			Delta:        types.Delta{Role: types.RoleAssistant, Content: content},
			FinishReason: cand.FinishReason,
		})
	}
	if obj.UsageMetadata != nil {
		chunk.Usage = &types.Usage{
			PromptTokens:     obj.UsageMetadata.PromptTokenCount,
			CompletionTokens: obj.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      obj.UsageMetadata.TotalTokenCount,
		}
	}
	if len(chunk.Choices) == 0 && chunk.Usage == nil {
		return nil
	}
	return []types.StreamChunk{chunk}
}

// parseCohereLine handles NDJSON typed events; the configured sentinel type
// (stream-end by default) terminates.
func (d *Decoder) parseCohereLine(line string) []types.StreamChunk {
	var ev struct {
		Type         string `json:"type"`
		EventType    string `json:"event_type"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
		Response     *struct {
			Meta *struct {
				Tokens *struct {
					InputTokens  int `json:"input_tokens"`
					OutputTokens int `json:"output_tokens"`
				} `json:"tokens"`
			} `json:"meta"`
		} `json:"response"`
	}
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return nil
	}
	evType := ev.Type
	if evType == "" {
		evType = ev.EventType
	}
	if evType == d.doneSignal {
		d.done = true
		finish := ev.FinishReason
		if finish == "" {
			finish = "COMPLETE"
		}
		chunk := types.StreamChunk{
			ID:      d.id,
			Model:   d.model,
			Choices: []types.ChunkChoice{{FinishReason: finish}},
		}
		if ev.Response != nil && ev.Response.Meta != nil && ev.Response.Meta.Tokens != nil {
			t := ev.Response.Meta.Tokens
			chunk.Usage = &types.Usage{
				PromptTokens:     t.InputTokens,
				CompletionTokens: t.OutputTokens,
				TotalTokens:      t.InputTokens + t.OutputTokens,
			}
		}
		return []types.StreamChunk{chunk}
	}
	if ev.Text == "" {
		return nil
	}
	return []types.StreamChunk{{
		ID:    d.id,
		Model: d.model,
		Choices: []types.ChunkChoice{{
			Delta: types.Delta{Role: types.RoleAssistant, Content: ev.Text},
		}},
	}}
}

// parseResponsesEvent handles the Responses-API SSE variant; the
// response.completed event terminates.
func (d *Decoder) parseResponsesEvent(event string) []types.StreamChunk {
	var data string
	for _, line := range strings.Split(event, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if data == "" {
		return nil
	}
	var ev struct {
		Type     string `json:"type"`
		Delta    string `json:"delta"`
		Response *struct {
			ID    string `json:"id"`
			Model string `json:"model"`
			Usage *struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
				TotalTokens  int `json:"total_tokens"`
			} `json:"usage"`
		} `json:"response"`
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil
	}
	switch ev.Type {
	case "response.created":
		if ev.Response != nil {
			d.id = ev.Response.ID
			d.model = ev.Response.Model
		}
		return nil
	case "response.output_text.delta":
		return []types.StreamChunk{{
			ID:    d.id,
			Model: d.model,
			Choices: []types.ChunkChoice{{
				Delta: types.Delta{Role: types.RoleAssistant, Content: ev.Delta},
			}},
		}}
	case "response.completed":
		d.done = true
		chunk := types.StreamChunk{
			ID:      d.id,
			Model:   d.model,
			Choices: []types.ChunkChoice{{FinishReason: "stop"}},
		}
		if ev.Response != nil && ev.Response.Usage != nil {
			chunk.Usage = &types.Usage{
				PromptTokens:     ev.Response.Usage.InputTokens,
				CompletionTokens: ev.Response.Usage.OutputTokens,
				TotalTokens:      ev.Response.Usage.TotalTokens,
			}
		}
		return []types.StreamChunk{chunk}
	}
	return nil
}
