package agent

import (
	"regexp"
	"strings"
)

// ConversationState is the per-agent-node derived slot memory: a fast
// heuristic cache merged turn-over-turn from free text, layered on top of
// the durable memory store and scoped to flow variables.
type ConversationState struct {
	LastRoute Route             `json:"lastRoute,omitempty"`
	Slots     map[string]string `json:"slots,omitempty"`
}

var slotPatterns = map[string]*regexp.Regexp{
	"cpf":        regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`),
	"cep":        regexp.MustCompile(`\b\d{5}-?\d{3}\b`),
	"phone":      regexp.MustCompile(`\b(?:\+?55\s?)?\(?\d{2}\)?\s?9?\d{4}[- ]?\d{4}\b`),
	"billingDay": regexp.MustCompile(`(?i)\b(?:billing day|due day|day)\s*(?:is|on)?\s*(\d{1,2})\b`),
	"plan":       regexp.MustCompile(`(?i)\bplan\s+([a-z0-9]+(?:\s?(?:mega|giga|fibra|turbo))?)\b`),
	"address":    regexp.MustCompile(`(?i)\b(?:address is|i live at)\s+(.{5,80})`),
}

// MergeSlots extracts slot values from a user turn and merges them into the
// state; a newly seen value overwrites the old one.
func (s *ConversationState) MergeSlots(text string) {
	if s.Slots == nil {
		s.Slots = make(map[string]string)
	}
	for slot, re := range slotPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := m[0]
		if len(m) > 1 && m[1] != "" {
			value = m[1]
		}
		s.Slots[slot] = strings.TrimSpace(strings.TrimRight(value, ".!?"))
	}
}
