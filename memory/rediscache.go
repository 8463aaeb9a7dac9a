package memory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/fafadexs1/chatflow/model"
	rd "github.com/go-redis/redis/v9"
)

var _ Store = new(RedisStore)

// RedisStore keeps each memory partition as a bounded-length list with a
// coarse TTL. It has no vector search; vector queries are expected to go to
// a durable tier (the hybrid store enforces this).
type RedisStore struct {
	client    rd.UniversalClient
	namespace string
	maxItems  int
	ttl       time.Duration
}

func NewRedisStore(addrs []string, namespace string, maxItems int, ttl time.Duration) *RedisStore {
	if maxItems <= 0 {
		maxItems = 200
	}
	return &RedisStore{
		client:    rd.NewUniversalClient(&rd.UniversalOptions{Addrs: addrs}),
		namespace: namespace,
		maxItems:  maxItems,
		ttl:       ttl,
	}
}

func (s *RedisStore) key(workspaceId, agentId string, scope model.MemoryScope, scopeKey string) string {
	return s.namespace + ":MEM:" + partitionKey(workspaceId, agentId, scope, scopeKey)
}

func (s *RedisStore) load(ctx context.Context, key string) ([]model.MemoryItem, error) {
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != rd.Nil {
		return nil, err
	}
	items := make([]model.MemoryItem, 0, len(raw))
	for _, entry := range raw {
		var item model.MemoryItem
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisStore) save(ctx context.Context, key string, items []model.MemoryItem) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, string(data))
	}
	pipe.LTrim(ctx, key, 0, int64(s.maxItems-1))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Put(ctx context.Context, items []model.MemoryItem) error {
	for _, item := range items {
		key := s.key(item.WorkspaceId, item.AgentId, item.Scope, item.ScopeKey)
		existing, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		hash := item.ContentHash()
		merged := false
		for i := range existing {
			if existing[i].ContentHash() == hash {
				if item.Importance > existing[i].Importance {
					existing[i].Importance = item.Importance
				}
				existing[i].LastAccessedAt = time.Now()
				merged = true
				break
			}
		}
		if !merged {
			existing = append([]model.MemoryItem{item}, existing...)
		}
		if err := s.save(ctx, key, existing); err != nil {
			return err
		}
	}
	return nil
}

// Replace overwrites a whole partition, used by the hybrid tier to
// repopulate the cache after a durable read.
func (s *RedisStore) Replace(ctx context.Context, workspaceId, agentId string, scope model.MemoryScope, scopeKey string, items []model.MemoryItem) error {
	return s.save(ctx, s.key(workspaceId, agentId, scope, scopeKey), items)
}

func (s *RedisStore) Query(ctx context.Context, criteria QueryCriteria) ([]model.MemoryItem, error) {
	key := s.key(criteria.WorkspaceId, criteria.AgentId, criteria.Scope, criteria.ScopeKey)
	items, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []model.MemoryItem
	for _, item := range items {
		if !matches(&item, criteria, now) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessedAt.After(out[j].LastAccessedAt)
	})
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (s *RedisStore) Touch(ctx context.Context, ids []string) error {
	// Access times in the cache tier are refreshed on Put/Replace; a
	// per-item touch would rewrite the whole list for little gain.
	return nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context) (int, error) {
	// TTL expiry is delegated to redis key expiration.
	return 0, nil
}
