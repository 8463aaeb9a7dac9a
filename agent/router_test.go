package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexicalRoute(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test billing keywords":      testBillingRoute,
		"test exit shortcut":         testExitRoute,
		"test no signal unknown":     testUnknownRoute,
		"test tie breaks to unknown": testTieUnknown,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testBillingRoute(t *testing.T) {
	d := LexicalRoute("my invoice payment is overdue")
	require.Equal(t, ROUTE_BILLING, d.Route)
	require.Greater(t, d.Confidence, 0.0)
	require.False(t, d.Exit)
}

func testExitRoute(t *testing.T) {
	d := LexicalRoute("I want to talk to someone, a real person, a human attendant")
	require.Equal(t, ROUTE_EXIT, d.Route)
	require.True(t, d.Exit)
}

func testUnknownRoute(t *testing.T) {
	d := LexicalRoute("banana")
	require.Equal(t, ROUTE_UNKNOWN, d.Route)
	require.Zero(t, d.Confidence)
}

func testTieUnknown(t *testing.T) {
	// one support signal, one billing signal
	d := LexicalRoute("help with payment")
	require.Equal(t, ROUTE_UNKNOWN, d.Route)
}
