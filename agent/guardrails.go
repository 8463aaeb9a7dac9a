package agent

import (
	"regexp"
	"strings"
)

// routeMarkerRe strips leaked internal route tags such as "[ROUTE:billing]"
// or "route=support" from model output.
var routeMarkerRe = regexp.MustCompile(`(?i)\[?\(?\b(?:route|intent)\s*[:=]\s*[a-z_]+\)?\]?`)

var whitespaceRe = regexp.MustCompile(`[ \t]{2,}`)
var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// refusalPhrases are known meta/refusal outputs that must never reach the
// user verbatim.
var refusalPhrases = []string{
	"i can't help with that",
	"i cannot help with that",
	"as an ai language model",
	"as an ai model",
	"i am just a language model",
	"i'm sorry, but i can't",
	"i cannot fulfill",
	"my instructions",
	"system prompt",
}

const minReplyLength = 2

// cannedReplies are the route-appropriate substitutes used when the raw
// reply is rejected, and the fixed fallback when generation itself fails.
var cannedReplies = map[Route]string{
	ROUTE_SUPPORT:    "I want to make sure you get the right help with this. Could you describe the problem in a bit more detail?",
	ROUTE_BILLING:    "I can help with billing questions. Could you tell me a bit more about the charge or invoice?",
	ROUTE_COMMERCIAL: "Happy to help with plans and pricing. What are you looking for?",
	ROUTE_EXIT:       "Of course, I'm transferring you to one of our team members. One moment please.",
	ROUTE_UNKNOWN:    "Sorry, I didn't quite get that. Could you rephrase it for me?",
}

// FallbackReply returns the canned message for a route.
func FallbackReply(route Route) string {
	if msg, ok := cannedReplies[route]; ok {
		return msg
	}
	return cannedReplies[ROUTE_UNKNOWN]
}

// apologyReply is the fixed safe message used when generation fails
// outright; the session is never left without a sent reply.
const apologyReply = "Sorry, I'm having trouble answering right now. Could you try again in a moment?"

func ApologyReply() string { return apologyReply }

// Sanitize cleans a raw model reply: strips leaked route markers, collapses
// excess whitespace, and substitutes the route-appropriate canned message
// when the reply matches a refusal phrase or is too short.
func Sanitize(raw string, route Route) string {
	text := routeMarkerRe.ReplaceAllString(raw, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minReplyLength {
		return FallbackReply(route)
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return FallbackReply(route)
		}
	}
	return text
}
