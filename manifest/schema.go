// Package manifest implements the declarative provider/model catalogue that
// drives the generic adapter: schema types, YAML loader, logical validator,
// the concurrent registry snapshot, and optional hot reload.
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PayloadFormat tags a provider's request body dialect.
type PayloadFormat string

const (
	PayloadOpenAI    PayloadFormat = "openai_style"
	PayloadAnthropic PayloadFormat = "anthropic_style"
	PayloadGemini    PayloadFormat = "gemini_style"
	PayloadCohere    PayloadFormat = "cohere_native"
)

// EventFormat tags a provider's streaming event dialect.
type EventFormat string

const (
	EventDataLines    EventFormat = "data_lines"
	EventAnthropicSSE EventFormat = "anthropic_sse"
	EventGeminiJSON   EventFormat = "gemini_json"
	EventCohereNative EventFormat = "cohere_native"
	EventResponsesAPI EventFormat = "responses_api"
)

// AuthType selects the credential placement for a provider.
type AuthType string

const (
	AuthBearer       AuthType = "bearer"
	AuthAPIKeyHeader AuthType = "api_key_header"
	AuthQueryParam   AuthType = "query_param"
	AuthNone         AuthType = "none"
)

// AuthConfig describes how a provider authenticates requests.
type AuthConfig struct {
	Type         AuthType          `yaml:"type" json:"type"`
	EnvVar       string            `yaml:"env_var,omitempty" json:"env_var,omitempty"`
	HeaderName   string            `yaml:"header_name,omitempty" json:"header_name,omitempty"`
	ParamName    string            `yaml:"param_name,omitempty" json:"param_name,omitempty"`
	ExtraHeaders map[string]string `yaml:"extra_headers,omitempty" json:"extra_headers,omitempty"`
}

// StreamingConfig describes the provider's stream framing.
type StreamingConfig struct {
	Events     EventFormat `yaml:"events" json:"events"`
	Delimiter  string      `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	Prefix     string      `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	DoneSignal string      `yaml:"done_signal,omitempty" json:"done_signal,omitempty"`
	// ChatPath override used when the streaming endpoint differs from the
	// synchronous one (gemini's streamGenerateContent).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ResponsePaths locates response fields via JSON paths.
type ResponsePaths struct {
	Content      string `yaml:"content" json:"content"`
	ToolCalls    string `yaml:"tool_calls,omitempty" json:"tool_calls,omitempty"`
	Usage        string `yaml:"usage,omitempty" json:"usage,omitempty"`
	FinishReason string `yaml:"finish_reason,omitempty" json:"finish_reason,omitempty"`
}

// TransformKind enumerates value transforms applied during mapping.
type TransformKind string

const (
	TransformScale       TransformKind = "scale"
	TransformFormat      TransformKind = "format"
	TransformEnumMap     TransformKind = "enum_map"
	TransformPathRewrite TransformKind = "path_rewrite"
	TransformTypeCast    TransformKind = "type_cast"
)

// ParameterTransform converts a value before writing it to the wire body.
type ParameterTransform struct {
	Kind       TransformKind  `yaml:"type" json:"type"`
	TargetPath string         `yaml:"target_path,omitempty" json:"target_path,omitempty"`
	Params     map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// ConditionalMapping emits a parameter only when its condition matches.
type ConditionalMapping struct {
	Condition  string              `yaml:"condition" json:"condition"`
	TargetPath string              `yaml:"target_path" json:"target_path"`
	Transform  *ParameterTransform `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// MappingRule is a sum type per canonical parameter. In YAML a plain string
// is a Direct rule, a sequence is Conditional, and a mapping with a "type"
// key is a Transform.
type MappingRule struct {
	Direct      string               `json:"direct,omitempty"`
	Conditional []ConditionalMapping `json:"conditional,omitempty"`
	Transform   *ParameterTransform  `json:"transform,omitempty"`
}

// UnmarshalYAML implements the untagged sum decoding.
func (r *MappingRule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&r.Direct)
	case yaml.SequenceNode:
		return value.Decode(&r.Conditional)
	case yaml.MappingNode:
		var t ParameterTransform
		if err := value.Decode(&t); err != nil {
			return err
		}
		if t.Kind == "" {
			return fmt.Errorf("mapping rule object requires a \"type\" key (line %d)", value.Line)
		}
		r.Transform = &t
		return nil
	default:
		return fmt.Errorf("unsupported mapping rule node at line %d", value.Line)
	}
}

// ProviderDefinition captures everything site-specific about one provider.
type ProviderDefinition struct {
	BaseURL         string            `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	BaseURLTemplate string            `yaml:"base_url_template,omitempty" json:"base_url_template,omitempty"`
	ConnectionVars  []string          `yaml:"connection_vars,omitempty" json:"connection_vars,omitempty"`
	ChatPath        string            `yaml:"chat_path" json:"chat_path"`
	UploadEndpoint  string            `yaml:"upload_endpoint,omitempty" json:"upload_endpoint,omitempty"`
	Auth            AuthConfig        `yaml:"auth" json:"auth"`
	PayloadFormat   PayloadFormat     `yaml:"payload_format" json:"payload_format"`
	Headers         map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	ParameterMappings map[string]MappingRule `yaml:"parameter_mappings,omitempty" json:"parameter_mappings,omitempty"`
	ResponsePaths     ResponsePaths          `yaml:"response_paths" json:"response_paths"`
	Streaming         *StreamingConfig       `yaml:"streaming,omitempty" json:"streaming,omitempty"`

	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	DefaultModel string   `yaml:"default_model,omitempty" json:"default_model,omitempty"`
}

// ModelStatus is the lifecycle state of a catalogued model.
type ModelStatus string

const (
	ModelActive     ModelStatus = "active"
	ModelDeprecated ModelStatus = "deprecated"
	ModelRetired    ModelStatus = "retired"
)

// PricingInfo is optional per-model pricing metadata.
type PricingInfo struct {
	InputPerMTok  float64 `yaml:"input_per_mtok" json:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" json:"output_per_mtok"`
}

// ModelDefinition binds a model id to its owning provider.
type ModelDefinition struct {
	Provider      string         `yaml:"provider" json:"provider"`
	ModelID       string         `yaml:"model_id" json:"model_id"`
	ContextWindow int            `yaml:"context_window,omitempty" json:"context_window,omitempty"`
	Capabilities  []string       `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Pricing       *PricingInfo   `yaml:"pricing,omitempty" json:"pricing,omitempty"`
	Overrides     map[string]any `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	Status        ModelStatus    `yaml:"status,omitempty" json:"status,omitempty"`
}

// ParameterDefinition declares one canonical parameter in the standard schema.
type ParameterDefinition struct {
	Type    string    `yaml:"type" json:"type"`
	Range   []float64 `yaml:"range,omitempty" json:"range,omitempty"`
	Default any       `yaml:"default,omitempty" json:"default,omitempty"`
}

// ToolSchemaConfig declares the tool-call vocabulary.
type ToolSchemaConfig struct {
	Schema        string   `yaml:"schema" json:"schema"`
	ChoicePolicy  []string `yaml:"choice_policy,omitempty" json:"choice_policy,omitempty"`
	StrictMode    bool     `yaml:"strict_mode,omitempty" json:"strict_mode,omitempty"`
	ParallelCalls bool     `yaml:"parallel_calls,omitempty" json:"parallel_calls,omitempty"`
}

// ResponseFormatSchema declares permitted response formats.
type ResponseFormatSchema struct {
	Types            []string `yaml:"types" json:"types"`
	SchemaValidation bool     `yaml:"schema_validation,omitempty" json:"schema_validation,omitempty"`
}

// StandardSchema is the canonical parameter vocabulary.
type StandardSchema struct {
	Parameters      map[string]ParameterDefinition `yaml:"parameters" json:"parameters"`
	Tools           ToolSchemaConfig               `yaml:"tools,omitempty" json:"tools,omitempty"`
	ResponseFormat  ResponseFormatSchema           `yaml:"response_format,omitempty" json:"response_format,omitempty"`
	StreamingEvents []string                       `yaml:"streaming_events,omitempty" json:"streaming_events,omitempty"`
}

// Manifest is the authoritative, versioned configuration document.
type Manifest struct {
	Version        string                        `yaml:"version" json:"version"`
	StandardSchema StandardSchema                `yaml:"standard_schema" json:"standard_schema"`
	Providers      map[string]ProviderDefinition `yaml:"providers" json:"providers"`
	Models         map[string]ModelDefinition    `yaml:"models" json:"models"`
}
