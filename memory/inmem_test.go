package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func memItem(content string, importance float64) model.MemoryItem {
	return model.MemoryItem{
		Id:             "id-" + content,
		WorkspaceId:    "ws1",
		AgentId:        "agent1",
		Scope:          model.MEMORY_SCOPE_USER,
		ScopeKey:       "user1",
		Type:           model.MEMORY_TYPE_SEMANTIC,
		Content:        content,
		Importance:     importance,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
}

func TestInMemStore(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, s *InMemStore){
		"test put and query":               testPutQuery,
		"test dedupe keeps max importance": testDedupe,
		"test expired items excluded":      testExpiredExcluded,
		"test partition isolation":         testPartition,
		"test min importance filter":       testMinImportance,
		"test vector ranking":              testVectorRanking,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewInMemStore())
		})
	}
}

func baseCriteria() QueryCriteria {
	return QueryCriteria{
		WorkspaceId: "ws1",
		AgentId:     "agent1",
		Scope:       model.MEMORY_SCOPE_USER,
		ScopeKey:    "user1",
	}
}

func testPutQuery(t *testing.T, s *InMemStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("likes chess", 0.6)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "likes chess", items[0].Content)
}

func testDedupe(t *testing.T, s *InMemStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("prefers boleto", 0.3)}))
	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("prefers boleto", 0.8)}))
	// lower importance on replay never lowers the stored value
	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("prefers boleto", 0.1)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 0.8, items[0].Importance)
}

func testExpiredExcluded(t *testing.T, s *InMemStore) {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	expired := memItem("old episode", 0.5)
	expired.Type = model.MEMORY_TYPE_EPISODIC
	expired.ExpiresAt = &past

	require.NoError(t, s.Put(ctx, []model.MemoryItem{expired, memItem("current fact", 0.5)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "current fact", items[0].Content)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func testPartition(t *testing.T, s *InMemStore) {
	ctx := context.Background()
	other := memItem("other agent fact", 0.5)
	other.AgentId = "agent2"
	require.NoError(t, s.Put(ctx, []model.MemoryItem{other, memItem("mine", 0.5)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "mine", items[0].Content)
}

func testMinImportance(t *testing.T, s *InMemStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []model.MemoryItem{
		memItem("trivial", 0.1),
		memItem("important", 0.9),
	}))

	criteria := baseCriteria()
	criteria.MinImportance = 0.5
	items, err := s.Query(ctx, criteria)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "important", items[0].Content)
}

func testVectorRanking(t *testing.T, s *InMemStore) {
	ctx := context.Background()
	near := memItem("near", 0.5)
	near.Embedding = []float32{1, 0, 0}
	far := memItem("far", 0.5)
	far.Embedding = []float32{0, 1, 0}
	require.NoError(t, s.Put(ctx, []model.MemoryItem{near, far}))

	criteria := baseCriteria()
	criteria.Embedding = []float32{0.9, 0.1, 0}
	criteria.MinSimilarity = 0.5
	items, err := s.Query(ctx, criteria)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "near", items[0].Content)
}
