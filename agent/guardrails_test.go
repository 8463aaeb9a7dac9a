package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test refusal phrase substituted": testRefusalBlocked,
		"test route marker stripped":      testRouteMarkerStripped,
		"test whitespace collapsed":       testWhitespaceCollapsed,
		"test short reply substituted":    testShortReply,
		"test clean reply untouched":      testCleanReply,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testRefusalBlocked(t *testing.T) {
	raw := "As an AI language model, I can't help with that."
	out := Sanitize(raw, ROUTE_BILLING)
	require.Equal(t, FallbackReply(ROUTE_BILLING), out)
	require.NotContains(t, strings.ToLower(out), "language model")
}

func testRouteMarkerStripped(t *testing.T) {
	out := Sanitize("[ROUTE:billing] Your invoice is due on the 10th.", ROUTE_BILLING)
	require.Equal(t, "Your invoice is due on the 10th.", out)
}

func testWhitespaceCollapsed(t *testing.T) {
	out := Sanitize("Hello    there.\n\n\n\n\nHow can I help?", ROUTE_SUPPORT)
	require.Equal(t, "Hello there.\n\nHow can I help?", out)
}

func testShortReply(t *testing.T) {
	out := Sanitize(".", ROUTE_UNKNOWN)
	require.Equal(t, FallbackReply(ROUTE_UNKNOWN), out)
}

func testCleanReply(t *testing.T) {
	raw := "Your plan renews on March 3rd."
	require.Equal(t, raw, Sanitize(raw, ROUTE_COMMERCIAL))
}
