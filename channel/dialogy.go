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

func parseDialogy(ws *model.Workspace, payload map[string]any) (*Inbound, error) {
	conversationId := lookupString(payload, "$.conversation.id")
	if conversationId == "" {
		conversationId = lookupString(payload, "$.conversationId")
	}
	if conversationId == "" {
		return nil, fmt.Errorf("dialogy payload has no session key")
	}
	instance := lookupString(payload, "$.instance")
	if instance == "" {
		instance = ws.DialogyInstanceId
	}
	return &Inbound{
		SessionKey:    fmt.Sprintf("dialogy:%s:%s", instance, conversationId),
		Text:          lookupString(payload, "$.message.text"),
		AgentAuthored: lookupString(payload, "$.message.direction") == "outbound",
		HumanTakeover: lookupBool(payload, "$.conversation.humanHandled"),
		Context: Context{
			Channel:        model.CHANNEL_DIALOGY,
			InstanceId:     instance,
			ConversationId: conversationId,
			ContactId:      lookupString(payload, "$.contact.id"),
			ContactName:    lookupString(payload, "$.contact.name"),
			ContactPhone:   lookupString(payload, "$.contact.phone"),
		},
	}, nil
}

// DialogySender posts replies to a dialogy conversation.
type DialogySender struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewDialogySender(baseURL, apiKey string) *DialogySender {
	return &DialogySender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *DialogySender) Send(ctx context.Context, cc Context, text string) error {
	body, err := json.Marshal(map[string]any{
		"conversationId": cc.ConversationId,
		"text":           text,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/v1/messages", s.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("dialogy send failed with status %d", resp.StatusCode)
	}
	return nil
}
