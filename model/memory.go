package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

type MemoryScope string

const MEMORY_SCOPE_SESSION MemoryScope = "session"
const MEMORY_SCOPE_USER MemoryScope = "user"
const MEMORY_SCOPE_WORKSPACE MemoryScope = "workspace"

type MemoryType string

const MEMORY_TYPE_SEMANTIC MemoryType = "semantic"
const MEMORY_TYPE_EPISODIC MemoryType = "episodic"
const MEMORY_TYPE_PROCEDURAL MemoryType = "procedural"

// MemoryItem is one long-term conversational fact, episode or procedure,
// partitioned per agent node instance. Importance is in [0,1].
type MemoryItem struct {
	Id             string      `json:"id"`
	WorkspaceId    string      `json:"workspaceId"`
	AgentId        string      `json:"agentId"`
	Scope          MemoryScope `json:"scope"`
	ScopeKey       string      `json:"scopeKey"`
	Type           MemoryType  `json:"type"`
	Content        string      `json:"content"`
	Importance     float64     `json:"importance"`
	Tags           []string    `json:"tags,omitempty"`
	Embedding      []float32   `json:"embedding,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastAccessedAt time.Time   `json:"lastAccessedAt"`
	ExpiresAt      *time.Time  `json:"expiresAt,omitempty"`
}

// ContentHash is the uniqueness key: re-deriving the same fact inside the
// same partition only raises its importance, never duplicates.
func (m *MemoryItem) ContentHash() string {
	h := murmur3.New128()
	h.Write([]byte(m.WorkspaceId))
	h.Write([]byte{0})
	h.Write([]byte(m.AgentId))
	h.Write([]byte{0})
	h.Write([]byte(m.Scope))
	h.Write([]byte{0})
	h.Write([]byte(m.ScopeKey))
	h.Write([]byte{0})
	h.Write([]byte(m.Type))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(m.Content))))
	h1, h2 := h.Sum128()
	return fmt.Sprintf("%016x%016x", h1, h2)
}

func (m *MemoryItem) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}
