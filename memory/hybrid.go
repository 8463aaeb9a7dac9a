package memory

import (
	"context"
	"time"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var _ Store = new(HybridStore)

// HybridStore reads through a cache tier first and falls back to, then
// repopulates from, the durable store. Vector queries always bypass the
// cache tier because the cache cannot rank by similarity. Cache population
// is best-effort and asynchronous; a small staleness window is accepted for
// responsiveness.
type HybridStore struct {
	cache        Store
	durable      Store
	writeThrough bool
	// recentFills debounces repeated async repopulation of the same
	// partition inside a short window.
	recentFills *gocache.Cache
}

func NewHybridStore(cache Store, durable Store, writeThrough bool) *HybridStore {
	return &HybridStore{
		cache:        cache,
		durable:      durable,
		writeThrough: writeThrough,
		recentFills:  gocache.New(30*time.Second, time.Minute),
	}
}

func (s *HybridStore) Put(ctx context.Context, items []model.MemoryItem) error {
	if err := s.durable.Put(ctx, items); err != nil {
		return err
	}
	if s.writeThrough {
		if err := s.cache.Put(ctx, items); err != nil {
			logger.Error("memory cache write-through failed", zap.Error(err))
		}
	}
	return nil
}

func (s *HybridStore) Query(ctx context.Context, criteria QueryCriteria) ([]model.MemoryItem, error) {
	if len(criteria.Embedding) > 0 {
		return s.durable.Query(ctx, criteria)
	}
	cached, err := s.cache.Query(ctx, criteria)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil {
		logger.Error("memory cache read failed, falling back to durable store", zap.Error(err))
	}
	items, err := s.durable.Query(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		s.repopulate(criteria, items)
	}
	return items, nil
}

func (s *HybridStore) repopulate(criteria QueryCriteria, items []model.MemoryItem) {
	key := partitionKey(criteria.WorkspaceId, criteria.AgentId, criteria.Scope, criteria.ScopeKey)
	if _, seen := s.recentFills.Get(key); seen {
		return
	}
	s.recentFills.SetDefault(key, struct{}{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if replacer, ok := s.cache.(*RedisStore); ok {
			if err := replacer.Replace(ctx, criteria.WorkspaceId, criteria.AgentId, criteria.Scope, criteria.ScopeKey, items); err != nil {
				logger.Error("memory cache repopulation failed", zap.Error(err))
			}
			return
		}
		if err := s.cache.Put(ctx, items); err != nil {
			logger.Error("memory cache repopulation failed", zap.Error(err))
		}
	}()
}

func (s *HybridStore) Touch(ctx context.Context, ids []string) error {
	return s.durable.Touch(ctx, ids)
}

func (s *HybridStore) DeleteExpired(ctx context.Context) (int, error) {
	if _, err := s.cache.DeleteExpired(ctx); err != nil {
		logger.Error("memory cache expiry purge failed", zap.Error(err))
	}
	return s.durable.DeleteExpired(ctx)
}
