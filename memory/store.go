// Package memory implements the provider-polymorphic long-term memory
// store consumed by intelligent agent nodes: durable conversational facts,
// episodes and procedures with scoring-based retrieval.
package memory

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
)

// QueryCriteria scopes a lookup to one memory partition, optionally
// filtered by type and importance and optionally ranked by vector
// similarity against the query embedding.
type QueryCriteria struct {
	WorkspaceId   string
	AgentId       string
	Scope         model.MemoryScope
	ScopeKey      string
	Types         []model.MemoryType
	MinImportance float64
	Limit         int
	Embedding     []float32
	MinSimilarity float64
}

// Store is the provider contract. Put upserts deduplicated-by-content-hash
// entries, raising stored importance to the max of old/new on conflict.
// Query never returns expired items. Touch bumps access time.
type Store interface {
	Put(ctx context.Context, items []model.MemoryItem) error
	Query(ctx context.Context, criteria QueryCriteria) ([]model.MemoryItem, error)
	Touch(ctx context.Context, ids []string) error
	DeleteExpired(ctx context.Context) (int, error)
}

func (c QueryCriteria) wantsType(t model.MemoryType) bool {
	if len(c.Types) == 0 {
		return true
	}
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

func partitionKey(workspaceId, agentId string, scope model.MemoryScope, scopeKey string) string {
	return workspaceId + ":" + agentId + ":" + string(scope) + ":" + scopeKey
}
