package mapping

import (
	"strings"

	"github.com/BaSui01/aigate/types"
)

// ReplaceTemplate substitutes {var} and ${VAR} placeholders from vars.
// The first missing variable is reported by name; nested or unclosed braces
// are configuration errors.
func ReplaceTemplate(template string, vars map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

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
				continue
			}
			out.WriteRune(ch)
		case '{':
			if inBrace {
				return "", types.Errorf(types.ErrConfiguration, "nested braces in template %q", template)
			}
			inBrace = true
			name.Reset()
		case '}':
			if !inBrace {
				out.WriteRune(ch)
				continue
			}
			if name.Len() == 0 {
				return "", types.Errorf(types.ErrConfiguration, "empty placeholder in template %q", template)
			}
			value, ok := vars[name.String()]
			if !ok {
				return "", types.Errorf(types.ErrConfiguration, "missing template variable %q", name.String())
			}
			out.WriteString(value)
			inBrace = false
		default:
			if inBrace {
				name.WriteRune(ch)
			} else {
				out.WriteRune(ch)
			}
		}
	}
	if inBrace {
		return "", types.Errorf(types.ErrConfiguration, "unclosed brace in template %q", template)
	}
	return out.String(), nil
}
