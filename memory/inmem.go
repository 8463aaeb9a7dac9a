package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fafadexs1/chatflow/model"
)

var _ Store = new(InMemStore)

// InMemStore keeps items in a map keyed by content hash. Used by tests and
// as the fallback provider when no connection string is configured.
type InMemStore struct {
	mu    sync.RWMutex
	items map[string]model.MemoryItem // content hash -> item
}

func NewInMemStore() *InMemStore {
	return &InMemStore{items: make(map[string]model.MemoryItem)}
}

func (s *InMemStore) Put(ctx context.Context, items []model.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		hash := item.ContentHash()
		if existing, ok := s.items[hash]; ok {
			if item.Importance > existing.Importance {
				existing.Importance = item.Importance
			}
			existing.LastAccessedAt = time.Now()
			s.items[hash] = existing
			continue
		}
		s.items[hash] = item
	}
	return nil
}

func (s *InMemStore) Query(ctx context.Context, criteria QueryCriteria) ([]model.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []model.MemoryItem
	for _, item := range s.items {
		if !matches(&item, criteria, now) {
			continue
		}
		if len(criteria.Embedding) > 0 {
			if len(item.Embedding) == 0 {
				continue
			}
			if Cosine(criteria.Embedding, item.Embedding) < criteria.MinSimilarity {
				continue
			}
		}
		out = append(out, item)
	}
	if len(criteria.Embedding) > 0 {
		sort.Slice(out, func(i, j int) bool {
			return Cosine(criteria.Embedding, out[i].Embedding) > Cosine(criteria.Embedding, out[j].Embedding)
		})
	} else {
		sort.Slice(out, func(i, j int) bool {
			return out[i].LastAccessedAt.After(out[j].LastAccessedAt)
		})
	}
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (s *InMemStore) Touch(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for hash, item := range s.items {
		for _, id := range ids {
			if item.Id == id {
				item.LastAccessedAt = now
				s.items[hash] = item
			}
		}
	}
	return nil
}

func (s *InMemStore) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	count := 0
	for hash, item := range s.items {
		if item.Expired(now) {
			delete(s.items, hash)
			count++
		}
	}
	return count, nil
}

func matches(item *model.MemoryItem, criteria QueryCriteria, now time.Time) bool {
	if item.Expired(now) {
		return false
	}
	if item.WorkspaceId != criteria.WorkspaceId || item.AgentId != criteria.AgentId {
		return false
	}
	if item.Scope != criteria.Scope || item.ScopeKey != criteria.ScopeKey {
		return false
	}
	if !criteria.wantsType(item.Type) {
		return false
	}
	if item.Importance < criteria.MinImportance {
		return false
	}
	return true
}

// Cosine similarity between two vectors; zero for mismatched lengths.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
