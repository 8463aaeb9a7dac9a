package util

import (
	"testing"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func TestParamResolver(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test substitute dotted path":   testSubstituteDotted,
		"test substitute jsonpath":      testSubstituteJsonpath,
		"test unresolved token empty":   testUnresolvedToken,
		"test resolve value literal":    testResolveLiteral,
		"test resolve params recursive": testResolveParams,
		"test stringify integers":       testStringifyInts,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testSubstituteDotted(t *testing.T) {
	vars := model.Variables{"contact": map[string]any{"name": "Bruno"}}
	require.Equal(t, "Oi Bruno!", Substitute("Oi {{contact.name}}!", vars))
}

func testSubstituteJsonpath(t *testing.T) {
	vars := model.Variables{"order": map[string]any{"items": []any{"a", "b"}}}
	require.Equal(t, "first: a", Substitute("first: {{$.order.items[0]}}", vars))
}

func testUnresolvedToken(t *testing.T) {
	require.Equal(t, "hi ", Substitute("hi {{missing}}", model.Variables{}))
}

func testResolveLiteral(t *testing.T) {
	vars := model.Variables{"tier": "vip"}
	require.Equal(t, "vip", ResolveValue("tier", vars))
	require.Equal(t, "gold", ResolveValue("gold", vars))
}

func testResolveParams(t *testing.T) {
	vars := model.Variables{"city": "Natal"}
	out := ResolveParams(map[string]any{
		"query": "weather in {{city}}",
		"nested": map[string]any{
			"list": []any{"{{city}}", float64(2)},
		},
	}, vars)
	require.Equal(t, "weather in Natal", out["query"])
	nested := out["nested"].(map[string]any)
	require.Equal(t, []any{"Natal", float64(2)}, nested["list"])
}

func testStringifyInts(t *testing.T) {
	require.Equal(t, "42", Stringify(float64(42)))
	require.Equal(t, "4.5", Stringify(4.5))
	require.Equal(t, "", Stringify(nil))
}
