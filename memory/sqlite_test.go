package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, s *SQLiteStore){
		"test put and query":               testSQLitePutQuery,
		"test dedupe keeps max importance": testSQLiteDedupe,
		"test expired items excluded":      testSQLiteExpiredExcluded,
		"test partition isolation":         testSQLitePartition,
	} {
		t.Run(scenario, func(t *testing.T) {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memories.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func testSQLitePutQuery(t *testing.T, s *SQLiteStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("likes chess", 0.6)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "likes chess", items[0].Content)
}

func testSQLiteDedupe(t *testing.T, s *SQLiteStore) {
	ctx := context.Background()
	replay := func(id string, importance float64) model.MemoryItem {
		item := memItem("prefers boleto", importance)
		item.Id = id
		return item
	}
	require.NoError(t, s.Put(ctx, []model.MemoryItem{replay("r1", 0.3)}))
	require.NoError(t, s.Put(ctx, []model.MemoryItem{replay("r2", 0.8)}))
	// lower importance on replay never lowers the stored value
	require.NoError(t, s.Put(ctx, []model.MemoryItem{replay("r3", 0.1)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 0.8, items[0].Importance)
}

func testSQLiteExpiredExcluded(t *testing.T, s *SQLiteStore) {
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

func testSQLitePartition(t *testing.T, s *SQLiteStore) {
	ctx := context.Background()
	other := memItem("other agent fact", 0.5)
	other.AgentId = "agent2"
	require.NoError(t, s.Put(ctx, []model.MemoryItem{other, memItem("mine", 0.5)}))

	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "mine", items[0].Content)
}
