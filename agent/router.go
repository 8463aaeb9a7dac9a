package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fafadexs1/chatflow/llm"
	"github.com/fafadexs1/chatflow/logger"
	"go.uber.org/zap"
)

type Route string

const ROUTE_SUPPORT Route = "support"
const ROUTE_BILLING Route = "billing"
const ROUTE_COMMERCIAL Route = "commercial"
const ROUTE_EXIT Route = "exit"
const ROUTE_UNKNOWN Route = "unknown"

// RouteDecision is the inferred conversational route with its confidence
// and whether the route demands an immediate exit from the agent.
type RouteDecision struct {
	Route      Route
	Confidence float64
	Exit       bool
}

// lexicalSignals maps each route to its keyword signals. Scoring counts
// matched signals normalized by the strongest route.
var lexicalSignals = map[Route][]string{
	ROUTE_SUPPORT:    {"help", "support", "problem", "error", "broken", "not working", "issue", "slow", "offline", "down"},
	ROUTE_BILLING:    {"invoice", "bill", "billing", "payment", "pay", "charge", "price", "overdue", "due date", "receipt"},
	ROUTE_COMMERCIAL: {"plan", "upgrade", "hire", "buy", "subscribe", "sales", "quote", "pricing", "new plan"},
	ROUTE_EXIT:       {"human", "attendant", "agent", "person", "talk to someone", "cancel", "stop", "quit", "goodbye"},
}

// exitThreshold is the route-specific confidence above which the exit route
// short-circuits the LLM call entirely.
const exitThreshold = 0.6

// escalationFloor is the lexical confidence below which the router asks the
// LLM intent classifier instead of trusting keywords.
const escalationFloor = 0.34

// Router infers the conversational route for a user turn: lexical signal
// scoring first, escalating to an LLM intent classifier only when lexical
// confidence is low.
type Router struct {
	gen   llm.Generator
	model string
}

func NewRouter(gen llm.Generator, model string) *Router {
	return &Router{gen: gen, model: model}
}

// LexicalRoute scores the text against every route's signals, tie-breaking
// to unknown.
func LexicalRoute(text string) RouteDecision {
	lower := strings.ToLower(text)
	best := ROUTE_UNKNOWN
	bestHits, total := 0, 0
	tie := false
	for route, signals := range lexicalSignals {
		hits := 0
		for _, sig := range signals {
			if strings.Contains(lower, sig) {
				hits++
			}
		}
		total += hits
		if hits > bestHits {
			best = route
			bestHits = hits
			tie = false
		} else if hits == bestHits && hits > 0 {
			tie = true
		}
	}
	if bestHits == 0 || tie {
		return RouteDecision{Route: ROUTE_UNKNOWN, Confidence: 0}
	}
	confidence := float64(bestHits) / float64(total)
	return RouteDecision{
		Route:      best,
		Confidence: confidence,
		Exit:       best == ROUTE_EXIT && confidence >= exitThreshold,
	}
}

const classifierPrompt = `Classify the user's message into exactly one intent: support, billing, commercial, exit, unknown.
"exit" means they want a human operator or want to leave. Reply with JSON only: {"route":"...","confidence":0.0-1.0}`

// Infer resolves the route for a turn. Classifier failure degrades to the
// lexical decision; the caller always receives a usable route.
func (r *Router) Infer(ctx context.Context, text string) RouteDecision {
	lexical := LexicalRoute(text)
	if lexical.Exit {
		return lexical
	}
	if lexical.Confidence >= escalationFloor && lexical.Route != ROUTE_UNKNOWN {
		return lexical
	}
	if r.gen == nil {
		return lexical
	}
	resp, err := r.gen.Generate(ctx, llm.Request{
		Model:       r.model,
		System:      classifierPrompt,
		Messages:    []llm.Message{{Role: "user", Content: text}},
		MaxTokens:   64,
		Temperature: 0,
	})
	if err != nil {
		logger.Debug("intent classifier failed, using lexical route", zap.Error(err))
		return lexical
	}
	var parsed struct {
		Route      string  `json:"route"`
		Confidence float64 `json:"confidence"`
	}
	raw := strings.TrimSpace(resp.Text)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return lexical
	}
	route := Route(parsed.Route)
	switch route {
	case ROUTE_SUPPORT, ROUTE_BILLING, ROUTE_COMMERCIAL, ROUTE_EXIT, ROUTE_UNKNOWN:
	default:
		return lexical
	}
	return RouteDecision{
		Route:      route,
		Confidence: parsed.Confidence,
		Exit:       route == ROUTE_EXIT && parsed.Confidence >= exitThreshold,
	}
}
