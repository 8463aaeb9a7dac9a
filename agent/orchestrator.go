package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/capability"
	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/config"
	"github.com/fafadexs1/chatflow/llm"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/memory"
	"github.com/fafadexs1/chatflow/model"
	"go.uber.org/zap"
)

// shortReplyLen: user replies at or under this length are paired with the
// prior agent question when building the memory retrieval query.
const shortReplyLen = 12

// bubblePacing is the inter-message delay that preserves channel-perceived
// ordering of multi-bubble replies.
const bubblePacing = 800 * time.Millisecond

const finishToolName = "finish"
const knowledgeToolName = "knowledge_lookup"

// TurnInput carries everything an intelligent-agent node knows about the
// current user turn.
type TurnInput struct {
	WorkspaceId  string
	AgentId      string
	SystemPrompt string
	UserText     string
	ChannelCtx   channel.Context
	Vars         model.Variables
	GraphTools   []capability.Descriptor
	MemoryWired  bool
	MemoryScope  model.MemoryScope
	ScopeKey     string
	MaxTurns     int
}

// TurnResult reports whether the node should advance (Completed) or
// re-suspend awaiting the next user turn.
type TurnResult struct {
	Completed bool
	Reply     string
}

// Orchestrator drives one intelligent-agent turn end to end: routing,
// memory retrieval, generation, sanitization, chunked dispatch and
// asynchronous memory consolidation.
type Orchestrator struct {
	gen          llm.Generator
	router       *Router
	store        memory.Store
	consolidator *memory.Consolidator
	sender       channel.Sender
	caps         capability.Registry
	capExec      capability.Executor
	conf         config.LLMConfig
	pacing       time.Duration
}

func NewOrchestrator(gen llm.Generator, store memory.Store, consolidator *memory.Consolidator,
	sender channel.Sender, caps capability.Registry, capExec capability.Executor, conf config.LLMConfig) *Orchestrator {
	routerModel := conf.RouterModel
	if routerModel == "" {
		routerModel = conf.Model
	}
	return &Orchestrator{
		gen:          gen,
		router:       NewRouter(gen, routerModel),
		store:        store,
		consolidator: consolidator,
		sender:       sender,
		caps:         caps,
		capExec:      capExec,
		conf:         conf,
		pacing:       bubblePacing,
	}
}

// WithPacing overrides the inter-bubble delay.
func (o *Orchestrator) WithPacing(d time.Duration) *Orchestrator {
	o.pacing = d
	return o
}

func historyKey(agentId string) string { return "_agentHistory_" + agentId }
func stateKey(agentId string) string   { return "_agentState_" + agentId }

// HandleTurn processes one user turn. A send failure is returned as an
// error (fatal to the engine step); every other failure degrades to a safe
// reply so the user is never left without an answer.
func (o *Orchestrator) HandleTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	history := loadJSON[History](in.Vars, historyKey(in.AgentId))
	state := loadJSON[ConversationState](in.Vars, stateKey(in.AgentId))

	decision := o.router.Infer(ctx, in.UserText)
	state.LastRoute = decision.Route
	state.MergeSlots(in.UserText)

	if decision.Exit {
		reply := FallbackReply(ROUTE_EXIT)
		if err := o.dispatch(ctx, in.ChannelCtx, reply); err != nil {
			return nil, err
		}
		history.Append("user", in.UserText)
		history.Append("assistant", reply)
		history.Turns++
		o.persist(in.Vars, in.AgentId, history, state)
		return &TurnResult{Completed: true, Reply: reply}, nil
	}

	memories := o.retrieve(ctx, in, history)
	tools := o.aggregateTools(ctx, in)

	history.Append("user", in.UserText)
	reply, finished := o.generate(ctx, in, history, state, memories, tools, decision.Route)

	if err := o.dispatch(ctx, in.ChannelCtx, reply); err != nil {
		return nil, err
	}

	history.Append("assistant", reply)
	history.Turns++
	o.persist(in.Vars, in.AgentId, history, state)

	if o.consolidator != nil {
		o.consolidator.Consolidate(ctx, in.WorkspaceId, in.AgentId, in.MemoryScope, in.ScopeKey,
			memory.Turn{User: in.UserText, Assistant: reply})
	}

	completed := finished
	if in.MaxTurns > 0 && history.Turns >= in.MaxTurns {
		completed = true
	}
	return &TurnResult{Completed: completed, Reply: reply}, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, in TurnInput, history *History) []model.MemoryItem {
	query := in.UserText
	if len([]rune(strings.TrimSpace(query))) <= shortReplyLen {
		if q := history.LastAssistantQuestion(); q != "" {
			query = q + " " + query
		}
	}
	return o.lookup(ctx, in, query)
}

func (o *Orchestrator) lookup(ctx context.Context, in TurnInput, query string) []model.MemoryItem {
	if o.store == nil {
		return nil
	}
	items, err := memory.Retrieve(ctx, o.store, memory.QueryCriteria{
		WorkspaceId: in.WorkspaceId,
		AgentId:     in.AgentId,
		Scope:       in.MemoryScope,
		ScopeKey:    in.ScopeKey,
	}, query)
	if err != nil {
		logger.Error("memory retrieval failed", zap.String("agentId", in.AgentId), zap.Error(err))
		return nil
	}
	return items
}

// aggregateTools collects explicit graph-connected tool nodes, else all
// workspace capabilities, plus the always-present finish no-op and, when a
// memory node is wired, the knowledge lookup tool.
func (o *Orchestrator) aggregateTools(ctx context.Context, in TurnInput) []llm.Tool {
	descriptors := in.GraphTools
	if len(descriptors) == 0 && o.caps != nil {
		if all, err := o.caps.List(ctx, in.WorkspaceId); err == nil {
			descriptors = all
		}
	}
	tools := make([]llm.Tool, 0, len(descriptors)+2)
	for _, d := range descriptors {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, llm.Tool{Name: d.Name, Description: d.Description, Parameters: params})
	}
	tools = append(tools, llm.Tool{
		Name:        finishToolName,
		Description: "Call when the user's request is fully resolved and the conversation can end.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	})
	if in.MemoryWired {
		tools = append(tools, llm.Tool{
			Name:        knowledgeToolName,
			Description: "Look up stored knowledge about this user or workspace.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
				},
				"required": []string{"query"},
			},
		})
	}
	return tools
}

// generate assembles the prompt and runs up to one tool round plus a final
// completion. Any failure degrades to the fixed apology message.
func (o *Orchestrator) generate(ctx context.Context, in TurnInput, history *History,
	state *ConversationState, memories []model.MemoryItem, tools []llm.Tool, route Route) (string, bool) {
	system := o.buildSystem(in, state, memories, route)
	req := llm.Request{
		Model:       o.conf.Model,
		System:      system,
		Messages:    history.Prompt(),
		Tools:       tools,
		MaxTokens:   int64(o.conf.MaxTokens),
		Temperature: 0.7,
	}
	resp, err := o.gen.Generate(ctx, req)
	if err != nil {
		logger.Error("generation failed, sending apology", zap.String("agentId", in.AgentId), zap.Error(err))
		return ApologyReply(), false
	}
	finished := false
	if len(resp.ToolCalls) > 0 {
		var results []string
		for _, call := range resp.ToolCalls {
			if call.Name == finishToolName {
				finished = true
				continue
			}
			results = append(results, o.runTool(ctx, in, call))
		}
		if len(results) > 0 {
			followUp := req
			followUp.Tools = nil
			followUp.Messages = append(append([]llm.Message{}, req.Messages...),
				llm.Message{Role: "assistant", Content: "Tool results: " + strings.Join(results, "\n")},
				llm.Message{Role: "user", Content: "Answer the user using those results."})
			if second, err := o.gen.Generate(ctx, followUp); err == nil {
				resp = second
			} else {
				logger.Error("follow-up generation failed", zap.Error(err))
			}
		}
	}
	text := Sanitize(resp.Text, route)
	if finished && resp.Text == "" {
		text = FallbackReply(route)
	}
	return text, finished
}

func (o *Orchestrator) runTool(ctx context.Context, in TurnInput, call llm.ToolCall) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		args = map[string]any{}
	}
	if call.Name == knowledgeToolName {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			query = in.UserText
		}
		items := o.lookup(ctx, in, query)
		var b strings.Builder
		b.WriteString(call.Name + "(" + query + "): ")
		for _, item := range items {
			b.WriteString(item.Content)
			b.WriteString("; ")
		}
		return b.String()
	}
	if o.caps == nil || o.capExec == nil {
		return fmt.Sprintf("%s: tool unavailable", call.Name)
	}
	desc, err := o.caps.Get(ctx, in.WorkspaceId, call.Name)
	if err != nil {
		return fmt.Sprintf("%s: %v", call.Name, err)
	}
	result, err := o.capExec.Execute(ctx, *desc, args)
	if err != nil {
		return fmt.Sprintf("%s failed: %v", call.Name, err)
	}
	b, _ := json.Marshal(result)
	return fmt.Sprintf("%s: %s", call.Name, string(b))
}

func (o *Orchestrator) buildSystem(in TurnInput, state *ConversationState, memories []model.MemoryItem, route Route) string {
	var b strings.Builder
	if in.SystemPrompt != "" {
		b.WriteString(in.SystemPrompt)
	} else {
		b.WriteString("You are a helpful customer service assistant.")
	}
	b.WriteString("\nCurrent topic: " + string(route) + ".")
	if len(state.Slots) > 0 {
		b.WriteString("\nKnown details:")
		for k, v := range state.Slots {
			b.WriteString(" " + k + "=" + v + ";")
		}
	}
	if len(memories) > 0 {
		b.WriteString("\nRelevant memory:")
		for _, m := range memories {
			b.WriteString("\n- " + m.Content)
		}
	}
	b.WriteString("\nNever mention routes, tools or internal state to the user.")
	return b.String()
}

// dispatch splits the reply into bubbles and sends them in order with a
// short pacing delay. A failed send aborts immediately.
func (o *Orchestrator) dispatch(ctx context.Context, cc channel.Context, reply string) error {
	bubbles := SplitBubbles(reply)
	for i, bubble := range bubbles {
		if i > 0 && o.pacing > 0 {
			select {
			case <-time.After(o.pacing):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := o.sender.Send(ctx, cc, bubble); err != nil {
			return fmt.Errorf("sending agent reply: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) persist(vars model.Variables, agentId string, history *History, state *ConversationState) {
	storeJSON(vars, historyKey(agentId), history)
	storeJSON(vars, stateKey(agentId), state)
}

// loadJSON reads a JSON-shaped value out of the variable bag, tolerating
// both raw maps (fresh from persistence) and previously stored structs.
func loadJSON[T any](vars model.Variables, key string) *T {
	out := new(T)
	v, ok := vars.Get(key)
	if !ok || v == nil {
		return out
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, out); err != nil {
		return new(T)
	}
	return out
}

func storeJSON(vars model.Variables, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return
	}
	vars.Set(key, plain)
}
