package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/model"
)

func parseChatwoot(ws *model.Workspace, payload map[string]any) (*Inbound, error) {
	conversationId := lookupString(payload, "$.conversation.id")
	if conversationId == "" {
		return nil, fmt.Errorf("chatwoot payload has no session key")
	}
	account := lookupString(payload, "$.account.id")
	if account == "" {
		account = ws.ChatwootInstanceId
	}
	// "open" conversations are being handled by a human operator; the bot
	// only drives "pending" ones.
	takeover := lookupString(payload, "$.conversation.status") == "open"
	return &Inbound{
		SessionKey:    fmt.Sprintf("chatwoot:%s:%s", account, conversationId),
		Text:          lookupString(payload, "$.content"),
		AgentAuthored: lookupString(payload, "$.message_type") != "incoming" || lookupBool(payload, "$.private"),
		HumanTakeover: takeover,
		Context: Context{
			Channel:        model.CHANNEL_CHATWOOT,
			InstanceId:     account,
			ConversationId: conversationId,
			ContactId:      lookupString(payload, "$.sender.id"),
			ContactName:    lookupString(payload, "$.sender.name"),
			ContactPhone:   lookupString(payload, "$.sender.phone_number"),
		},
	}, nil
}

// ChatwootSender posts outgoing messages on a chatwoot conversation.
type ChatwootSender struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewChatwootSender(baseURL, apiKey string) *ChatwootSender {
	return &ChatwootSender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ChatwootSender) Send(ctx context.Context, cc Context, text string) error {
	body, err := json.Marshal(map[string]any{
		"content":      text,
		"message_type": "outgoing",
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/accounts/%s/conversations/%s/messages", s.BaseURL, cc.InstanceId, cc.ConversationId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", s.APIKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chatwoot send failed with status %d", resp.StatusCode)
	}
	return nil
}
