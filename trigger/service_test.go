package trigger

import (
	"context"
	"testing"

	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/flow"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/node"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/fafadexs1/chatflow/persistence/inmem"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages []string
}

func (f *fakeSender) Send(ctx context.Context, cc channel.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

type fixture struct {
	storage *inmem.Storage
	sender  *fakeSender
	service *Service
}

func newFixture(t *testing.T, workspaces ...*model.Workspace) *fixture {
	storage := inmem.NewStorage()
	for _, ws := range workspaces {
		require.NoError(t, storage.SaveWorkspace(context.Background(), ws))
	}
	sender := &fakeSender{}
	engine := flow.NewEngine(storage, node.Deps{
		Senders: func(model.ChannelType) channel.Sender { return sender },
	})
	return &fixture{
		storage: storage,
		sender:  sender,
		service: NewService(storage, engine, 1800),
	}
}

func evoPayload(text string) map[string]any {
	return map[string]any{
		"instance": "inst1",
		"data": map[string]any{
			"key": map[string]any{
				"remoteJid": "5581999000111@s.whatsapp.net",
				"fromMe":    false,
			},
			"pushName": "Ana",
			"message":  map[string]any{"conversation": text},
		},
	}
}

const sessKey = "evolution:inst1:5581999000111@s.whatsapp.net"

func optionWorkspace() *model.Workspace {
	return &model.Workspace{
		Id: "ws1", OrgId: "org1", Enabled: true,
		Nodes: []model.Node{
			{Id: "n1", Type: "start"},
			{Id: "n2", Type: "option", Config: map[string]any{
				"prompt":   "pick one",
				"variable": "choice",
				"options":  []any{"A", "B", "C"},
			}},
			{Id: "n3", Type: "message", Config: map[string]any{"text": "you chose {{choice}}"}},
		},
		Connections: []model.Connection{
			{From: "n1", To: "n2", SourceHandle: "default"},
			{From: "n2", To: "n3", SourceHandle: "default"},
		},
		Triggers: []model.Trigger{
			{NodeId: "n1", Default: true, Enabled: true},
		},
	}
}

func TestIngestion(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test default trigger starts flow":    testDefaultTriggerStart,
		"test option resume by index":         testOptionByIndex,
		"test option resume by text":          testOptionByText,
		"test invalid option reprompts":       testOptionInvalid,
		"test agent authored ignored":         testAgentAuthoredIgnored,
		"test paused session swallows":        testPausedIgnored,
		"test replay restarts awaiting date":  testReplayRestartsDate,
		"test keyword trigger across org":     testOrgKeywordTrigger,
		"test missing workspace returns 404":  testMissingWorkspace,
		"test no trigger fails":               testNoTrigger,
		"test api response resolved by event": testEventResolution,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testDefaultTriggerStart(t *testing.T) {
	f := newFixture(t, optionWorkspace())

	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_STARTED, outcome)

	session, err := f.storage.LoadSession(context.Background(), sessKey)
	require.NoError(t, err)
	require.Equal(t, model.AWAITING_OPTION, session.AwaitingInputType)
	require.Equal(t, []string{"A", "B", "C"}, session.Awaiting.Options)
	require.Equal(t, []string{"pick one\n1. A\n2. B\n3. C"}, f.sender.messages)
}

func testOptionByIndex(t *testing.T) {
	f := newFixture(t, optionWorkspace())
	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)

	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("2"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_RESUMED, outcome)
	require.Contains(t, f.sender.messages, "you chose B")
}

func testOptionByText(t *testing.T) {
	f := newFixture(t, optionWorkspace())
	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)

	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("b"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_RESUMED, outcome)
	require.Contains(t, f.sender.messages, "you chose B")
}

func testOptionInvalid(t *testing.T) {
	f := newFixture(t, optionWorkspace())
	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)

	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("z"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_RESUMED, outcome)

	// still waiting at the same node, prompt re-sent, nothing advanced
	session, err := f.storage.LoadSession(context.Background(), sessKey)
	require.NoError(t, err)
	require.Equal(t, "n2", session.CurrentNodeId)
	require.Equal(t, model.AWAITING_OPTION, session.AwaitingInputType)
	require.NotContains(t, f.sender.messages, "you chose z")
	require.Len(t, f.sender.messages, 2)
}

func testAgentAuthoredIgnored(t *testing.T) {
	f := newFixture(t, optionWorkspace())

	payload := evoPayload("oi")
	payload["data"].(map[string]any)["key"].(map[string]any)["fromMe"] = true

	outcome, err := f.service.Ingest(context.Background(), "ws1", payload)
	require.NoError(t, err)
	require.Equal(t, OUTCOME_IGNORED, outcome)

	_, err = f.storage.LoadSession(context.Background(), sessKey)
	require.True(t, persistence.IsNotFound(err))
}

func testPausedIgnored(t *testing.T) {
	// a workspace whose option node has no outgoing edge dead-ends after
	// the reply binds
	ws := optionWorkspace()
	ws.Connections = ws.Connections[:1]
	f := newFixture(t, ws)

	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)
	_, err = f.service.Ingest(context.Background(), "ws1", evoPayload("1"))
	require.NoError(t, err)

	session, err := f.storage.LoadSession(context.Background(), sessKey)
	require.NoError(t, err)
	require.True(t, session.Paused())

	sent := len(f.sender.messages)
	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("hello?"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_PAUSED, outcome)
	require.Len(t, f.sender.messages, sent)
}

func testReplayRestartsDate(t *testing.T) {
	ws := optionWorkspace()
	ws.Nodes[1] = model.Node{Id: "n2", Type: "date-input", Config: map[string]any{
		"prompt":   "when?",
		"variable": "due",
	}}
	f := newFixture(t, ws)

	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)

	session, err := f.storage.LoadSession(context.Background(), sessKey)
	require.NoError(t, err)
	require.Equal(t, model.AWAITING_DATE, session.AwaitingInputType)

	// a reply that cannot bind to the awaited date restarts the flow
	// instead of double-advancing it
	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("not a date"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_STARTED, outcome)

	session, err = f.storage.LoadSession(context.Background(), sessKey)
	require.NoError(t, err)
	require.Equal(t, model.AWAITING_DATE, session.AwaitingInputType)
	require.Empty(t, session.Variables.GetString("due"))
}

func testOrgKeywordTrigger(t *testing.T) {
	sibling := &model.Workspace{
		Id: "ws2", OrgId: "org1", Enabled: true,
		Nodes: []model.Node{
			{Id: "m1", Type: "start"},
			{Id: "m2", Type: "message", Config: map[string]any{"text": "billing flow"}},
			{Id: "m3", Type: "end-flow"},
		},
		Connections: []model.Connection{
			{From: "m1", To: "m2", SourceHandle: "fatura"},
			{From: "m2", To: "m3", SourceHandle: "default"},
		},
		Triggers: []model.Trigger{
			{NodeId: "m1", Keyword: "FATURA", Enabled: true},
		},
	}
	f := newFixture(t, optionWorkspace(), sibling)

	// keyword match is case-insensitive exact and wins over the origin
	// workspace default trigger
	outcome, err := f.service.Ingest(context.Background(), "ws1", evoPayload("fatura"))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_STARTED, outcome)
	require.Contains(t, f.sender.messages, "billing flow")
}

func testMissingWorkspace(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ingest(context.Background(), "nope", evoPayload("oi"))
	require.True(t, persistence.IsNotFound(err))
}

func testNoTrigger(t *testing.T) {
	ws := optionWorkspace()
	ws.Triggers = nil
	f := newFixture(t, ws)

	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.ErrorIs(t, err, ErrNoTrigger)
}

func testEventResolution(t *testing.T) {
	ws := optionWorkspace()
	f := newFixture(t, ws)
	_, err := f.service.Ingest(context.Background(), "ws1", evoPayload("oi"))
	require.NoError(t, err)

	// flip the stored wait into an api response wait
	session, err := f.storage.LoadSession(context.Background(), sessKey)
	require.NoError(t, err)
	session.AwaitingInputType = model.AWAITING_API_RESPONSE
	session.Awaiting = &model.AwaitingInput{NodeId: "n2", Variable: "apiData"}
	require.NoError(t, f.storage.SaveSession(context.Background(), session))

	outcome, err := f.service.Event(context.Background(), sessKey, map[string]any{"status": "ok"})
	require.NoError(t, err)
	require.Equal(t, OUTCOME_RESUMED, outcome)

	// the option node's default edge leads to the message node
	require.Contains(t, f.sender.messages, "you chose ")
}
