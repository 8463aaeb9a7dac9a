package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func TestHybridStore(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test write through":               testHybridWriteThrough,
		"test read through repopulates":    testHybridReadThrough,
		"test vector query bypasses cache": testHybridVectorBypass,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testHybridWriteThrough(t *testing.T) {
	ctx := context.Background()
	cache, durable := NewInMemStore(), NewInMemStore()
	s := NewHybridStore(cache, durable, true)

	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("fact one", 0.5)}))

	cached, err := cache.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, cached, 1)
}

func testHybridReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, durable := NewInMemStore(), NewInMemStore()
	s := NewHybridStore(cache, durable, false)

	require.NoError(t, s.Put(ctx, []model.MemoryItem{memItem("durable only", 0.5)}))

	// cache miss falls back to the durable store
	items, err := s.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Len(t, items, 1)

	// cache is repopulated asynchronously
	require.Eventually(t, func() bool {
		cached, err := cache.Query(ctx, baseCriteria())
		return err == nil && len(cached) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func testHybridVectorBypass(t *testing.T) {
	ctx := context.Background()
	cache, durable := NewInMemStore(), NewInMemStore()
	s := NewHybridStore(cache, durable, false)

	item := memItem("embedded fact", 0.5)
	item.Embedding = []float32{1, 0}
	require.NoError(t, durable.Put(ctx, []model.MemoryItem{item}))

	criteria := baseCriteria()
	criteria.Embedding = []float32{1, 0}
	items, err := s.Query(ctx, criteria)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// the cache tier is never consulted or filled for vector queries
	cached, err := cache.Query(ctx, baseCriteria())
	require.NoError(t, err)
	require.Empty(t, cached)
}
