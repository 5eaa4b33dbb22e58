package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
)

// applyRule writes one canonical parameter into body per its MappingRule.
// A Conditional rule with no matching condition drops the parameter
// silently; that is the declared behaviour, not an error.
func applyRule(body map[string]any, param string, value any, rule manifest.MappingRule, scope map[string]any) error {
	switch {
	case rule.Direct != "":
		return SetPath(body, rule.Direct, value)
	case rule.Transform != nil:
		return applyTransform(body, param, value, rule.Transform, scope)
	case len(rule.Conditional) > 0:
		for _, cond := range rule.Conditional {
			ok, err := evalCondition(cond.Condition, scope)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if cond.Transform != nil {
				t := *cond.Transform
				if t.TargetPath == "" {
					t.TargetPath = cond.TargetPath
				}
				return applyTransform(body, param, value, &t, scope)
			}
			return SetPath(body, cond.TargetPath, value)
		}
		return nil
	default:
		// A zero rule maps the parameter onto its own name.
		return SetPath(body, param, value)
	}
}

func applyTransform(body map[string]any, param string, value any, t *manifest.ParameterTransform, scope map[string]any) error {
	target := t.TargetPath
	if target == "" {
		target = param
	}

	switch t.Kind {
	case manifest.TransformScale:
		factor, ok := numericParam(t.Params, "factor")
		if !ok {
			return types.Errorf(types.ErrConfiguration, "scale transform for %q requires a numeric factor", param)
		}
		n, ok := asFloat(value)
		if !ok {
			return types.Errorf(types.ErrInvalidRequest, "scale transform for %q applied to non-numeric value", param)
		}
		return SetPath(body, target, n*factor)

	case manifest.TransformFormat:
		tmpl, _ := t.Params["template"].(string)
		if tmpl == "" {
			return types.Errorf(types.ErrConfiguration, "format transform for %q requires a template", param)
		}
		vars := make(map[string]string, len(scope)+1)
		for k, v := range scope {
			vars[k] = stringify(v)
		}
		vars["value"] = stringify(value)
		formatted, err := ReplaceTemplate(tmpl, vars)
		if err != nil {
			return err
		}
		return SetPath(body, target, formatted)

	case manifest.TransformEnumMap:
		mappings, _ := t.Params["mappings"].(map[string]any)
		if mappings == nil {
			return types.Errorf(types.ErrConfiguration, "enum_map transform for %q requires mappings", param)
		}
		if mapped, ok := mappings[stringify(value)]; ok {
			return SetPath(body, target, mapped)
		}
		if def, ok := t.Params["default"]; ok {
			return SetPath(body, target, def)
		}
		return nil // no mapping and no default: drop

	case manifest.TransformPathRewrite:
		pattern, _ := t.Params["source_pattern"].(string)
		replacement, _ := t.Params["target_template"].(string)
		if pattern != "" {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return types.Errorf(types.ErrConfiguration, "path_rewrite for %q: bad pattern %q", param, pattern).WithCause(err)
			}
			if s, ok := value.(string); ok {
				value = re.ReplaceAllString(s, replacement)
			}
		}
		return SetPath(body, target, value)

	case manifest.TransformTypeCast:
		castTo, _ := t.Params["target"].(string)
		cast, err := castValue(value, castTo)
		if err != nil {
			return err
		}
		return SetPath(body, target, cast)

	default:
		return types.Errorf(types.ErrConfiguration, "unknown transform kind %q for parameter %q", t.Kind, param)
	}
}

// evalCondition evaluates the small condition grammar used by conditional
// mappings: "always", "<name> exists", and "<name> <op> <literal>" where op
// is ==, !=, >= or <=.
func evalCondition(cond string, scope map[string]any) (bool, error) {
	fields := strings.Fields(cond)
	switch len(fields) {
	case 1:
		if fields[0] == "always" {
			return true, nil
		}
	case 2:
		if fields[1] == "exists" {
			_, ok := scope[fields[0]]
			return ok, nil
		}
	case 3:
		left, ok := scope[fields[0]]
		if !ok {
			return false, nil
		}
		op, lit := fields[1], strings.Trim(fields[2], `"'`)
		switch op {
		case "==":
			return stringify(left) == lit, nil
		case "!=":
			return stringify(left) != lit, nil
		case ">=", "<=":
			l, lok := asFloat(left)
			r, rerr := strconv.ParseFloat(lit, 64)
			if !lok || rerr != nil {
				return false, nil
			}
			if op == ">=" {
				return l >= r, nil
			}
			return l <= r, nil
		}
	}
	return false, types.Errorf(types.ErrConfiguration, "unsupported mapping condition %q", cond)
}

func numericParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func castValue(v any, target string) (any, error) {
	switch target {
	case "string":
		return stringify(v), nil
	case "number", "float":
		if n, ok := asFloat(v); ok {
			return n, nil
		}
		if s, ok := v.(string); ok {
			n, err := strconv.ParseFloat(s, 64)
			if err == nil {
				return n, nil
			}
		}
		return nil, types.Errorf(types.ErrInvalidRequest, "cannot cast %v to number", v)
	case "integer":
		if n, ok := asFloat(v); ok {
			return int64(n), nil
		}
		if s, ok := v.(string); ok {
			n, err := strconv.ParseInt(s, 10, 64)
			if err == nil {
				return n, nil
			}
		}
		return nil, types.Errorf(types.ErrInvalidRequest, "cannot cast %v to integer", v)
	case "boolean":
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if s, ok := v.(string); ok {
			b, err := strconv.ParseBool(s)
			if err == nil {
				return b, nil
			}
		}
		return nil, types.Errorf(types.ErrInvalidRequest, "cannot cast %v to boolean", v)
	default:
		return nil, types.Errorf(types.ErrConfiguration, "unknown type_cast target %q", target)
	}
}
