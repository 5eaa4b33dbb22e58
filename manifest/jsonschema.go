package manifest

import "encoding/json"

// ExportSchema emits a companion JSON Schema for editor validation of
// manifest files. The schema tracks the structures in schema.go by hand; it
// covers the fields the validator enforces rather than every optional knob.
func ExportSchema() ([]byte, error) {
	schema := map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"title":   "aigate manifest",
		"type":    "object",
		"required": []string{
			"version", "standard_schema", "providers", "models",
		},
		"properties": map[string]any{
			"version": map[string]any{"type": "string"},
			"standard_schema": map[string]any{
				"type":     "object",
				"required": []string{"parameters"},
				"properties": map[string]any{
					"parameters": map[string]any{
						"type": "object",
						"additionalProperties": map[string]any{
							"type":     "object",
							"required": []string{"type"},
							"properties": map[string]any{
								"type":    map[string]any{"type": "string"},
								"range":   map[string]any{"type": "array", "minItems": 2, "maxItems": 2, "items": map[string]any{"type": "number"}},
								"default": map[string]any{},
							},
						},
					},
				},
			},
			"providers": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":     "object",
					"required": []string{"chat_path", "auth", "payload_format", "response_paths"},
					"properties": map[string]any{
						"base_url":          map[string]any{"type": "string"},
						"base_url_template": map[string]any{"type": "string"},
						"connection_vars":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"chat_path":         map[string]any{"type": "string"},
						"upload_endpoint":   map[string]any{"type": "string"},
						"auth": map[string]any{
							"type":     "object",
							"required": []string{"type"},
							"properties": map[string]any{
								"type":        map[string]any{"enum": []string{"bearer", "api_key_header", "query_param", "none"}},
								"env_var":     map[string]any{"type": "string"},
								"header_name": map[string]any{"type": "string"},
								"param_name":  map[string]any{"type": "string"},
							},
						},
						"payload_format": map[string]any{"enum": []string{"openai_style", "anthropic_style", "gemini_style", "cohere_native"}},
						"response_paths": map[string]any{
							"type":     "object",
							"required": []string{"content"},
							"properties": map[string]any{
								"content":       map[string]any{"type": "string"},
								"tool_calls":    map[string]any{"type": "string"},
								"usage":         map[string]any{"type": "string"},
								"finish_reason": map[string]any{"type": "string"},
							},
						},
						"streaming": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"events":      map[string]any{"enum": []string{"data_lines", "anthropic_sse", "gemini_json", "cohere_native", "responses_api"}},
								"delimiter":   map[string]any{"type": "string"},
								"prefix":      map[string]any{"type": "string"},
								"done_signal": map[string]any{"type": "string"},
								"path":        map[string]any{"type": "string"},
							},
						},
					},
				},
			},
			"models": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":     "object",
					"required": []string{"provider", "model_id"},
					"properties": map[string]any{
						"provider":       map[string]any{"type": "string"},
						"model_id":       map[string]any{"type": "string"},
						"context_window": map[string]any{"type": "integer"},
						"status":         map[string]any{"enum": []string{"active", "deprecated", "retired"}},
					},
				},
			},
		},
	}
	return json.MarshalIndent(schema, "", "  ")
}
