// Package mapping rewrites the canonical request into each provider's wire
// shape and extracts fields from provider responses. It is pure: identical
// inputs on an identical manifest snapshot produce identical bodies.
package mapping

import (
	"strconv"
	"strings"

	"github.com/BaSui01/aigate/types"
)

// pathSegment is one parsed element of a dotted JSON path: a key, an
// optional array index, or the wildcard.
type pathSegment struct {
	key      string
	index    int
	hasIndex bool
	wildcard bool
}

func parsePath(path string) ([]pathSegment, error) {
	if path == "" {
		return nil, types.NewError(types.ErrConfiguration, "empty JSON path")
	}
	parts := strings.Split(path, ".")
	segs := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, types.Errorf(types.ErrConfiguration, "empty segment in JSON path %q", path)
		}
		seg := pathSegment{key: part}
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, types.Errorf(types.ErrConfiguration, "unterminated index in JSON path %q", path)
			}
			idxStr := part[open+1 : len(part)-1]
			seg.key = part[:open]
			if idxStr == "*" {
				seg.wildcard = true
			} else {
				idx, err := strconv.Atoi(idxStr)
				if err != nil || idx < 0 {
					return nil, types.Errorf(types.ErrConfiguration, "bad array index %q in JSON path %q", idxStr, path)
				}
				seg.index = idx
				seg.hasIndex = true
			}
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// SetPath writes value at the dotted path inside obj, creating intermediate
// objects as needed. Writing through an array requires an explicit numeric
// index; the array is grown with nils up to that index.
func SetPath(obj map[string]any, path string, value any) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	current := obj
	for i, seg := range segs {
		last := i == len(segs)-1
		if seg.wildcard {
			return types.Errorf(types.ErrConfiguration, "wildcard index not allowed when setting path %q", path)
		}
		if seg.hasIndex {
			arr, _ := current[seg.key].([]any)
			for len(arr) <= seg.index {
				arr = append(arr, nil)
			}
			if last {
				arr[seg.index] = value
				current[seg.key] = arr
				return nil
			}
			child, ok := arr[seg.index].(map[string]any)
			if !ok {
				child = map[string]any{}
				arr[seg.index] = child
			}
			current[seg.key] = arr
			current = child
			continue
		}
		if last {
			current[seg.key] = value
			return nil
		}
		child, ok := current[seg.key].(map[string]any)
		if !ok {
			child = map[string]any{}
			current[seg.key] = child
		}
		current = child
	}
	return nil
}

// GetPath reads the value at the dotted path. The wildcard index selects the
// first array element. ok is false when any segment is missing.
func GetPath(obj any, path string) (any, bool) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	current := obj
	for _, seg := range segs {
		if seg.key != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[seg.key]
			if !ok {
				return nil, false
			}
		}
		if seg.hasIndex || seg.wildcard {
			arr, ok := current.([]any)
			if !ok {
				return nil, false
			}
			idx := seg.index
			if seg.wildcard {
				idx = 0
			}
			if idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// GetString reads a string at path, flattening nil to "".
func GetString(obj any, path string) (string, bool) {
	v, ok := GetPath(obj, path)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
