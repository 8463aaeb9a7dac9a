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

func parseEvolution(ws *model.Workspace, payload map[string]any) (*Inbound, error) {
	remoteJid := lookupString(payload, "$.data.key.remoteJid")
	if remoteJid == "" {
		return nil, fmt.Errorf("evolution payload has no session key")
	}
	instance := lookupString(payload, "$.instance")
	if instance == "" {
		instance = ws.EvolutionInstanceId
	}
	text := lookupString(payload, "$.data.message.conversation")
	if text == "" {
		text = lookupString(payload, "$.data.message.extendedTextMessage.text")
	}
	phone := remoteJid
	if i := strings.Index(phone, "@"); i > 0 {
		phone = phone[:i]
	}
	return &Inbound{
		SessionKey:    fmt.Sprintf("evolution:%s:%s", instance, remoteJid),
		Text:          text,
		AgentAuthored: lookupBool(payload, "$.data.key.fromMe"),
		Context: Context{
			Channel:        model.CHANNEL_EVOLUTION,
			InstanceId:     instance,
			ConversationId: remoteJid,
			ContactName:    lookupString(payload, "$.data.pushName"),
			ContactPhone:   phone,
			ContactId:      remoteJid,
		},
	}, nil
}

// EvolutionSender posts text messages through an Evolution API instance.
type EvolutionSender struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewEvolutionSender(baseURL, apiKey string) *EvolutionSender {
	return &EvolutionSender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *EvolutionSender) Send(ctx context.Context, cc Context, text string) error {
	body, err := json.Marshal(map[string]any{
		"number": cc.ContactPhone,
		"text":   text,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/message/sendText/%s", s.BaseURL, cc.InstanceId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.APIKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("evolution send failed with status %d", resp.StatusCode)
	}
	return nil
}
