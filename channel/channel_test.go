package channel

import (
	"testing"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func testWorkspace() *model.Workspace {
	return &model.Workspace{
		Id:                  "ws1",
		EvolutionInstanceId: "evo-default",
		ChatwootInstanceId:  "42",
		DialogyInstanceId:   "dlg-default",
	}
}

func TestChannelParsing(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test evolution inbound":          testEvolutionInbound,
		"test evolution from me":          testEvolutionFromMe,
		"test chatwoot inbound":           testChatwootInbound,
		"test chatwoot human takeover":    testChatwootTakeover,
		"test dialogy inbound":            testDialogyInbound,
		"test detect channel from shape":  testDetect,
		"test missing session key errors": testMissingKey,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testEvolutionInbound(t *testing.T) {
	payload := map[string]any{
		"instance": "inst1",
		"data": map[string]any{
			"key":      map[string]any{"remoteJid": "5581999@s.whatsapp.net", "fromMe": false},
			"pushName": "Ana",
			"message":  map[string]any{"conversation": "oi"},
		},
	}
	in, err := Parse(model.CHANNEL_EVOLUTION, testWorkspace(), payload)
	require.NoError(t, err)
	require.Equal(t, "evolution:inst1:5581999@s.whatsapp.net", in.SessionKey)
	require.Equal(t, "oi", in.Text)
	require.Equal(t, "5581999", in.Context.ContactPhone)
	require.Equal(t, "Ana", in.Context.ContactName)
	require.False(t, in.AgentAuthored)
}

func testEvolutionFromMe(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"key":     map[string]any{"remoteJid": "5581999@s.whatsapp.net", "fromMe": true},
			"message": map[string]any{"conversation": "reply"},
		},
	}
	in, err := Parse(model.CHANNEL_EVOLUTION, testWorkspace(), payload)
	require.NoError(t, err)
	require.True(t, in.AgentAuthored)
	// instance falls back to the workspace binding
	require.Equal(t, "evo-default", in.Context.InstanceId)
}

func testChatwootInbound(t *testing.T) {
	payload := map[string]any{
		"account":      map[string]any{"id": float64(7)},
		"conversation": map[string]any{"id": float64(130), "status": "pending"},
		"message_type": "incoming",
		"content":      "preciso de ajuda",
		"sender":       map[string]any{"id": float64(9), "name": "Bruno", "phone_number": "+5581988887777"},
	}
	in, err := Parse(model.CHANNEL_CHATWOOT, testWorkspace(), payload)
	require.NoError(t, err)
	require.Equal(t, "chatwoot:7:130", in.SessionKey)
	require.Equal(t, "preciso de ajuda", in.Text)
	require.False(t, in.AgentAuthored)
	require.False(t, in.HumanTakeover)
}

func testChatwootTakeover(t *testing.T) {
	payload := map[string]any{
		"conversation": map[string]any{"id": float64(130), "status": "open"},
		"message_type": "incoming",
		"content":      "hello",
	}
	in, err := Parse(model.CHANNEL_CHATWOOT, testWorkspace(), payload)
	require.NoError(t, err)
	require.True(t, in.HumanTakeover)
}

func testDialogyInbound(t *testing.T) {
	payload := map[string]any{
		"conversationId": "c-55",
		"message":        map[string]any{"text": "quero um plano", "direction": "inbound"},
		"contact":        map[string]any{"id": "u1", "name": "Carla", "phone": "5581977776666"},
	}
	in, err := Parse(model.CHANNEL_DIALOGY, testWorkspace(), payload)
	require.NoError(t, err)
	require.Equal(t, "dialogy:dlg-default:c-55", in.SessionKey)
	require.Equal(t, "quero um plano", in.Text)
	require.False(t, in.AgentAuthored)
}

func testDetect(t *testing.T) {
	evo := map[string]any{"data": map[string]any{"key": map[string]any{"remoteJid": "x"}}}
	require.Equal(t, model.CHANNEL_EVOLUTION, Detect(evo))

	cw := map[string]any{"message_type": "incoming"}
	require.Equal(t, model.CHANNEL_CHATWOOT, Detect(cw))

	require.Equal(t, model.CHANNEL_DIALOGY, Detect(map[string]any{"conversationId": "1"}))
}

func testMissingKey(t *testing.T) {
	_, err := Parse(model.CHANNEL_EVOLUTION, testWorkspace(), map[string]any{})
	require.Error(t, err)
}
