package node

import (
	"context"
	"testing"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func runSwitch(t *testing.T, config map[string]any, vars model.Variables) string {
	n := newSwitchNode(model.Node{Id: "sw1", Type: "switch", Config: config})
	tr, err := n.Execute(context.Background(), execCtx(vars))
	require.NoError(t, err)
	return tr.Handle
}

func TestSwitchNode(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test first match wins":       testSwitchMatch,
		"test no match otherwise":     testSwitchOtherwise,
		"test no cases falls through": testSwitchNoCases,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testSwitchMatch(t *testing.T) {
	handle := runSwitch(t, map[string]any{
		"expression": "{{tier}}",
		"cases":      []any{"vip", "standard"},
	}, model.Variables{"tier": "standard"})
	require.Equal(t, "standard", handle)
}

func testSwitchOtherwise(t *testing.T) {
	handle := runSwitch(t, map[string]any{
		"expression": "{{tier}}",
		"cases":      []any{"vip", "standard"},
	}, model.Variables{"tier": "guest"})
	require.Equal(t, "otherwise", handle)
}

func testSwitchNoCases(t *testing.T) {
	handle := runSwitch(t, map[string]any{
		"expression": "{{tier}}",
	}, model.Variables{"tier": "vip"})
	require.Equal(t, "otherwise", handle)
}
