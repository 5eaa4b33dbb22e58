package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/aigate/types"
	"gopkg.in/yaml.v3"
)

// Load parses a manifest from raw YAML/JSON bytes, running structural then
// logical validation. Violations are accumulated into a single
// ConfigurationError rather than failing on the first.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, types.Errorf(types.ErrConfiguration, "manifest parse failed: %v", err).WithCause(err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile parses a manifest from a file path, including the path in error
// context.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Errorf(types.ErrConfiguration, "manifest read failed: %s", path).WithCause(err)
	}
	m, err := Load(data)
	if err != nil {
		return nil, types.Errorf(types.ErrConfiguration, "manifest %s invalid", path).WithCause(err)
	}
	return m, nil
}

// Validate runs the logical validation rules and reports every violation in
// one ConfigurationError.
func Validate(m *Manifest) error {
	var violations []string

	if m.Version == "" {
		violations = append(violations, "manifest version is required")
	}
	if len(m.StandardSchema.Parameters) == 0 {
		violations = append(violations, "standard_schema.parameters must not be empty")
	}

	for name, def := range m.StandardSchema.Parameters {
		if len(def.Range) != 0 && len(def.Range) != 2 {
			violations = append(violations, fmt.Sprintf("parameter %q: range must be [min, max]", name))
			continue
		}
		if len(def.Range) == 2 && def.Range[0] > def.Range[1] {
			violations = append(violations, fmt.Sprintf("parameter %q: range min %v exceeds max %v", name, def.Range[0], def.Range[1]))
		}
	}

	for id, p := range m.Providers {
		if p.BaseURL == "" && p.BaseURLTemplate == "" {
			violations = append(violations, fmt.Sprintf("provider %q: base_url or base_url_template is required", id))
		}
		if strings.TrimSpace(p.ResponsePaths.Content) == "" {
			violations = append(violations, fmt.Sprintf("provider %q: response_paths.content must not be empty", id))
		}
		if p.BaseURLTemplate != "" {
			declared := make(map[string]bool, len(p.ConnectionVars))
			for _, v := range p.ConnectionVars {
				declared[v] = true
			}
			vars, err := templateVars(p.BaseURLTemplate)
			if err != nil {
				violations = append(violations, fmt.Sprintf("provider %q: %v", id, err))
			}
			for _, v := range vars {
				if !declared[v] {
					violations = append(violations, fmt.Sprintf("provider %q: template variable %q not listed under connection_vars", id, v))
				}
			}
		}
		for param := range p.ParameterMappings {
			if _, ok := m.StandardSchema.Parameters[param]; !ok {
				violations = append(violations, fmt.Sprintf("provider %q: mapping refers to undeclared parameter %q", id, param))
			}
		}
	}

	for id, model := range m.Models {
		if _, ok := m.Providers[model.Provider]; !ok {
			violations = append(violations, fmt.Sprintf("model %q: unknown provider %q", id, model.Provider))
		}
		if model.ModelID == "" {
			violations = append(violations, fmt.Sprintf("model %q: model_id is required", id))
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return types.Errorf(types.ErrConfiguration, "manifest validation failed:\n  - %s", strings.Join(violations, "\n  - "))
}

// templateVars extracts {var} and ${VAR} placeholder names in order of
// appearance. Nested or unclosed braces are errors.
func templateVars(template string) ([]string, error) {
	var vars []string
	var name strings.Builder
	inBrace := false
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch ch {
		case '$':
			if i+1 < len(runes) && runes[i+1] == '{' && !inBrace {
				inBrace = true
				name.Reset()
				i++
			}
		case '{':
			if inBrace {
				return nil, fmt.Errorf("nested braces in template %q", template)
			}
			inBrace = true
			name.Reset()
		case '}':
			if !inBrace {
				continue
			}
			if name.Len() == 0 {
				return nil, fmt.Errorf("empty placeholder in template %q", template)
			}
			vars = append(vars, name.String())
			inBrace = false
		default:
			if inBrace {
				name.WriteRune(ch)
			}
		}
	}
	if inBrace {
		return nil, fmt.Errorf("unclosed brace in template %q", template)
	}
	return vars, nil
}
