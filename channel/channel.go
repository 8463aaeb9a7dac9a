package channel

import (
	"context"
	"fmt"

	"github.com/fafadexs1/chatflow/model"
	"github.com/oliveagle/jsonpath"
)

// Context identifies the outbound conversation a message belongs to.
type Context struct {
	Channel        model.ChannelType `json:"channel"`
	InstanceId     string            `json:"instanceId"`
	ConversationId string            `json:"conversationId"`
	ContactId      string            `json:"contactId,omitempty"`
	ContactName    string            `json:"contactName,omitempty"`
	ContactPhone   string            `json:"contactPhone,omitempty"`
}

// Sender dispatches one text message to a channel. A non-nil error is
// treated by the engine as a hard failure of the current node.
type Sender interface {
	Send(ctx context.Context, cc Context, text string) error
}

// Inbound is the channel-neutral view of a webhook payload.
type Inbound struct {
	SessionKey    string
	Text          string
	Context       Context
	AgentAuthored bool
	HumanTakeover bool
}

// Parse extracts the channel-neutral inbound view. Channel payloads are
// opaque JSON; fields are read via path lookups rather than fixed schemas.
func Parse(ch model.ChannelType, ws *model.Workspace, payload map[string]any) (*Inbound, error) {
	switch ch {
	case model.CHANNEL_EVOLUTION:
		return parseEvolution(ws, payload)
	case model.CHANNEL_CHATWOOT:
		return parseChatwoot(ws, payload)
	case model.CHANNEL_DIALOGY:
		return parseDialogy(ws, payload)
	default:
		return nil, fmt.Errorf("unknown channel %s", ch)
	}
}

// Detect guesses the channel from payload shape when the webhook route does
// not carry it.
func Detect(payload map[string]any) model.ChannelType {
	if _, err := jsonpath.JsonPathLookup(payload, "$.data.key.remoteJid"); err == nil {
		return model.CHANNEL_EVOLUTION
	}
	if _, err := jsonpath.JsonPathLookup(payload, "$.message_type"); err == nil {
		return model.CHANNEL_CHATWOOT
	}
	return model.CHANNEL_DIALOGY
}

func lookupString(payload map[string]any, path string) string {
	v, err := jsonpath.JsonPathLookup(payload, path)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func lookupBool(payload map[string]any, path string) bool {
	v, err := jsonpath.JsonPathLookup(payload, path)
	if err != nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
