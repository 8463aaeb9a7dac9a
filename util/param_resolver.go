package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fafadexs1/chatflow/model"
	"github.com/oliveagle/jsonpath"
)

var templateTokenRe = regexp.MustCompile(`{{(.*?)}}`)

// Substitute replaces every {{expr}} token in a template against the flow
// variables. An expr starting with "$" is evaluated as a jsonpath lookup
// over the whole bag; anything else is a dotted variable path. Unresolvable
// tokens collapse to the empty string.
func Substitute(template string, vars model.Variables) string {
	tokens := templateTokenRe.FindAllStringSubmatch(template, -1)
	if len(tokens) == 0 {
		return template
	}
	out := template
	for _, tok := range tokens {
		expr := strings.TrimSpace(tok[1])
		var value any
		if strings.HasPrefix(expr, "$") {
			value, _ = jsonpath.JsonPathLookup(map[string]any(vars), expr)
		} else {
			value, _ = vars.Get(expr)
		}
		out = strings.ReplaceAll(out, tok[0], Stringify(value))
	}
	return out
}

// ResolveValue evaluates a single expression the way Substitute resolves one
// token: jsonpath when "$"-prefixed, dotted path otherwise, and a template
// pass when the expression itself contains {{}} tokens.
func ResolveValue(expr string, vars model.Variables) any {
	expr = strings.TrimSpace(expr)
	if templateTokenRe.MatchString(expr) {
		return Substitute(expr, vars)
	}
	if strings.HasPrefix(expr, "$") {
		v, err := jsonpath.JsonPathLookup(map[string]any(vars), expr)
		if err != nil {
			return nil
		}
		return v
	}
	if v, ok := vars.Get(expr); ok {
		return v
	}
	// a bare literal ("vip", "10") resolves to itself
	return expr
}

// ResolveParams walks an arbitrarily nested param map substituting template
// tokens in every string leaf.
func ResolveParams(params map[string]any, vars model.Variables) map[string]any {
	output := make(map[string]any, len(params))
	for k, v := range params {
		output[k] = resolveAny(v, vars)
	}
	return output
}

func resolveAny(v any, vars model.Variables) any {
	switch t := v.(type) {
	case map[string]any:
		return ResolveParams(t, vars)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, resolveAny(item, vars))
		}
		return out
	case string:
		return Substitute(t, vars)
	default:
		return v
	}
}

// Stringify renders a variable value for message text.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
