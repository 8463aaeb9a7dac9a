package agent

import (
	"strings"

	"github.com/fafadexs1/chatflow/llm"
)

// maxHistoryMessages is the hard cap on retained messages (two per turn);
// older messages are folded into the rolling summary digest rather than
// dropped.
const maxHistoryMessages = 12

// History is the bounded conversation memory held in flow variables for one
// agent node. Turns counts every completed user/assistant exchange since the
// node was entered; it keeps growing after compaction trims Messages.
type History struct {
	Summary  string        `json:"summary,omitempty"`
	Turns    int           `json:"turns,omitempty"`
	Messages []llm.Message `json:"messages"`
}

func (h *History) Append(role, content string) {
	h.Messages = append(h.Messages, llm.Message{Role: role, Content: content})
	h.compact()
}

// compact folds overflow messages into the textual digest two at a time so
// user/assistant pairs leave together.
func (h *History) compact() {
	for len(h.Messages) > maxHistoryMessages {
		drop := 2
		if len(h.Messages)-drop < 0 {
			drop = len(h.Messages)
		}
		var b strings.Builder
		b.WriteString(h.Summary)
		for _, m := range h.Messages[:drop] {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(m.Role)
			b.WriteString(": ")
			b.WriteString(truncate(m.Content, 120))
			b.WriteString(".")
		}
		h.Summary = truncate(b.String(), 1500)
		h.Messages = h.Messages[drop:]
	}
}

// LastAssistantQuestion returns the most recent assistant message, used to
// disambiguate short user replies when building the memory query.
func (h *History) LastAssistantQuestion() string {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == "assistant" {
			return h.Messages[i].Content
		}
	}
	return ""
}

// Prompt renders the digest plus retained messages for the model call.
func (h *History) Prompt() []llm.Message {
	if h.Summary == "" {
		return h.Messages
	}
	out := make([]llm.Message, 0, len(h.Messages)+1)
	out = append(out, llm.Message{Role: "user", Content: "Conversation so far (summarized): " + h.Summary})
	out = append(out, h.Messages...)
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
