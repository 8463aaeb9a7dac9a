package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/config"
	"github.com/fafadexs1/chatflow/llm"
	"github.com/fafadexs1/chatflow/memory"
	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator replays canned responses in call order and records every
// request it sees.
type scriptedGenerator struct {
	responses []*llm.Response
	requests  []llm.Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return &llm.Response{Text: "ok"}, nil
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

type silentSender struct{}

func (silentSender) Send(ctx context.Context, cc channel.Context, text string) error { return nil }

func TestOrchestrator(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test turn ceiling fires past history compaction": testTurnCeiling,
		"test knowledge tool searches its query argument":  testKnowledgeToolQuery,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func turnInput(vars model.Variables) TurnInput {
	return TurnInput{
		WorkspaceId: "ws1",
		AgentId:     "agent1",
		UserText:    "invoice payment overdue for my account",
		ChannelCtx:  channel.Context{Channel: model.CHANNEL_EVOLUTION},
		Vars:        vars,
		MemoryScope: model.MEMORY_SCOPE_USER,
		ScopeKey:    "user1",
	}
}

func testTurnCeiling(t *testing.T) {
	gen := &scriptedGenerator{}
	o := NewOrchestrator(gen, nil, nil, silentSender{}, nil, nil,
		config.LLMConfig{Model: "m", MaxTokens: 256}).WithPacing(0)

	vars := model.Variables{}
	in := turnInput(vars)
	// the ceiling sits beyond what the compacted message window can hold
	in.MaxTurns = 8

	for turn := 1; turn <= 8; turn++ {
		result, err := o.HandleTurn(context.Background(), in)
		require.NoError(t, err)
		if turn < 8 {
			require.False(t, result.Completed, "turn %d completed early", turn)
		} else {
			require.True(t, result.Completed, "ceiling never fired")
		}
	}

	history := loadJSON[History](vars, historyKey("agent1"))
	require.Equal(t, 8, history.Turns)
	require.LessOrEqual(t, len(history.Messages), maxHistoryMessages)
}

func testKnowledgeToolQuery(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemStore()
	now := time.Now()
	put := func(id, content string) {
		require.NoError(t, store.Put(ctx, []model.MemoryItem{{
			Id:             id,
			WorkspaceId:    "ws1",
			AgentId:        "agent1",
			Scope:          model.MEMORY_SCOPE_USER,
			ScopeKey:       "user1",
			Type:           model.MEMORY_TYPE_SEMANTIC,
			Content:        content,
			Importance:     0.5,
			CreatedAt:      now,
			LastAccessedAt: now,
		}}))
	}
	put("m1", "customer prefers boleto slips monthly")
	put("m2", "invoice payment overdue note stored earlier")

	gen := &scriptedGenerator{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{Id: "c1", Name: knowledgeToolName,
			Arguments: `{"query":"boleto slips preference"}`}}},
		{Text: "Here is what I know."},
	}}
	o := NewOrchestrator(gen, store, nil, silentSender{}, nil, nil,
		config.LLMConfig{Model: "m", MaxTokens: 256}).WithPacing(0)

	in := turnInput(model.Variables{})
	in.MemoryWired = true
	result, err := o.HandleTurn(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "Here is what I know.", result.Reply)

	require.Len(t, gen.requests, 2)
	followUp := gen.requests[1].Messages
	toolMsg := followUp[len(followUp)-2].Content
	require.True(t, strings.HasPrefix(toolMsg, "Tool results: "))
	require.Contains(t, toolMsg, "boleto slips preference")
	// the lookup ranks by the tool's query, not the user turn text
	boleto := strings.Index(toolMsg, "customer prefers boleto slips monthly")
	overdue := strings.Index(toolMsg, "invoice payment overdue note stored earlier")
	require.Greater(t, boleto, -1)
	require.Greater(t, overdue, -1)
	require.Less(t, boleto, overdue)
}
