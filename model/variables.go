package model

import (
	"encoding/json"
	"strings"
)

// Variables is the interpreter's working memory: an open string-keyed bag
// whose values are limited to the JSON value domain (string, float64, bool,
// []any, map[string]any, nil). Keys prefixed with "_" are engine-private.
type Variables map[string]any

// Get navigates a dotted path ("contact.phone") into nested maps. The bool
// result reports whether the full path resolved.
func (v Variables) Get(path string) (any, bool) {
	if v == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(v)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			if vv, okv := cur.(Variables); okv {
				m = map[string]any(vv)
			} else {
				return nil, false
			}
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString resolves a path and stringifies scalar results.
func (v Variables) GetString(path string) string {
	val, ok := v.Get(path)
	if !ok || val == nil {
		return ""
	}
	switch t := val.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// Set writes a value at a dotted path, creating intermediate maps. A
// non-map value found mid-path is replaced.
func (v Variables) Set(path string, value any) {
	parts := strings.Split(path, ".")
	m := map[string]any(v)
	for i := 0; i < len(parts)-1; i++ {
		next, ok := m[parts[i]].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[parts[i]] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func (v Variables) Delete(path string) {
	parts := strings.Split(path, ".")
	m := map[string]any(v)
	for i := 0; i < len(parts)-1; i++ {
		next, ok := m[parts[i]].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

// DeepCopy returns a JSON-safe snapshot, used to isolate sandboxed scripts
// from the live bag. Values that do not survive a JSON round trip are
// dropped.
func (v Variables) DeepCopy() Variables {
	data, err := json.Marshal(v)
	if err != nil {
		return Variables{}
	}
	var out Variables
	if err := json.Unmarshal(data, &out); err != nil {
		return Variables{}
	}
	if out == nil {
		out = Variables{}
	}
	return out
}
