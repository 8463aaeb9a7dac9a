package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/node"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/fafadexs1/chatflow/persistence/inmem"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages []string
	fail     bool
}

func (r *recordingSender) Send(ctx context.Context, cc channel.Context, text string) error {
	if r.fail {
		return errors.New("send failed")
	}
	r.messages = append(r.messages, text)
	return nil
}

type harness struct {
	storage *inmem.Storage
	sender  *recordingSender
	engine  *Engine
}

func newHarness() *harness {
	sender := &recordingSender{}
	storage := inmem.NewStorage()
	engine := NewEngine(storage, node.Deps{
		Senders: func(model.ChannelType) channel.Sender { return sender },
	})
	return &harness{storage: storage, sender: sender, engine: engine}
}

func newSession(wsId, startNode string) *model.Session {
	return &model.Session{
		SessionId:     "sess-1",
		WorkspaceId:   wsId,
		CurrentNodeId: startNode,
		Variables:     model.Variables{model.VarTriggerHandle: "default"},
		FlowContext:   model.CHANNEL_EVOLUTION,
	}
}

func TestEngine(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, h *harness){
		"test run to suspension":       testRunToSuspension,
		"test dead end pauses":         testDeadEndPause,
		"test end flow deletes":        testEndFlowDeletes,
		"test send failure aborts":     testSendFailureAborts,
		"test steps record every node": testStepsRecorded,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newHarness())
		})
	}
}

func testRunToSuspension(t *testing.T, h *harness) {
	ws := &model.Workspace{
		Id: "ws1", Enabled: true,
		Nodes: []model.Node{
			{Id: "n1", Type: "start"},
			{Id: "n2", Type: "message", Config: map[string]any{"text": "hi {{contactName}}"}},
			{Id: "n3", Type: "input", Config: map[string]any{"prompt": "your name?", "variable": "name"}},
		},
		Connections: []model.Connection{
			{From: "n1", To: "n2", SourceHandle: "default"},
			{From: "n2", To: "n3", SourceHandle: "default"},
		},
	}
	session := newSession("ws1", "n1")
	session.Variables.Set("contactName", "Ana")

	require.NoError(t, h.engine.Execute(context.Background(), session, ws))

	stored, err := h.storage.LoadSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, "n3", stored.CurrentNodeId)
	require.Equal(t, model.AWAITING_TEXT, stored.AwaitingInputType)
	require.Equal(t, "name", stored.Awaiting.Variable)
	require.False(t, stored.Paused())
	require.Equal(t, []string{"hi Ana", "your name?"}, h.sender.messages)
}

func testDeadEndPause(t *testing.T, h *harness) {
	ws := &model.Workspace{
		Id: "ws1", Enabled: true,
		Nodes: []model.Node{
			{Id: "n1", Type: "start"},
			{Id: "n2", Type: "message", Config: map[string]any{"text": "bye"}},
		},
		Connections: []model.Connection{
			{From: "n1", To: "n2", SourceHandle: "default"},
		},
	}
	session := newSession("ws1", "n1")

	require.NoError(t, h.engine.Execute(context.Background(), session, ws))

	stored, err := h.storage.LoadSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Empty(t, stored.CurrentNodeId)
	require.Empty(t, stored.AwaitingInputType)
	require.True(t, stored.Paused())
}

func testEndFlowDeletes(t *testing.T, h *harness) {
	ws := &model.Workspace{
		Id: "ws1", Enabled: true,
		Nodes: []model.Node{
			{Id: "n1", Type: "start"},
			{Id: "n2", Type: "end-flow", Config: map[string]any{"text": "tchau"}},
		},
		Connections: []model.Connection{
			{From: "n1", To: "n2", SourceHandle: "default"},
		},
	}
	session := newSession("ws1", "n1")

	require.NoError(t, h.engine.Execute(context.Background(), session, ws))

	_, err := h.storage.LoadSession(context.Background(), "sess-1")
	require.True(t, persistence.IsNotFound(err))
	require.Equal(t, []string{"tchau"}, h.sender.messages)
}

func testSendFailureAborts(t *testing.T, h *harness) {
	h.sender.fail = true
	ws := &model.Workspace{
		Id: "ws1", Enabled: true,
		Nodes: []model.Node{
			{Id: "n1", Type: "start"},
			{Id: "n2", Type: "message", Config: map[string]any{"text": "hello"}},
			{Id: "n3", Type: "end-flow"},
		},
		Connections: []model.Connection{
			{From: "n1", To: "n2", SourceHandle: "default"},
			{From: "n2", To: "n3", SourceHandle: "default"},
		},
	}
	session := newSession("ws1", "n1")

	require.Error(t, h.engine.Execute(context.Background(), session, ws))

	// session is saved at the failing node so a retry replays the message
	stored, err := h.storage.LoadSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, "n2", stored.CurrentNodeId)
}

func testStepsRecorded(t *testing.T, h *harness) {
	ws := &model.Workspace{
		Id: "ws1", Enabled: true,
		Nodes: []model.Node{
			{Id: "n1", Type: "start"},
			{Id: "n2", Type: "set-variable", Config: map[string]any{"variable": "x", "value": "1"}},
			{Id: "n3", Type: "end-flow"},
		},
		Connections: []model.Connection{
			{From: "n1", To: "n2", SourceHandle: "default"},
			{From: "n2", To: "n3", SourceHandle: "default"},
		},
	}
	session := newSession("ws1", "n1")

	require.NoError(t, h.engine.Execute(context.Background(), session, ws))
	require.Equal(t, []string{"n1", "n2", "n3"}, session.Steps)
}
