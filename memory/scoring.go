package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/model"
)

// typeWeights controls how a candidate's final score blends lexical
// relevance, stored importance and recency for one memory type. Episodic
// entries favor recency heavily; semantic and procedural favor relevance
// and importance. HalfLife keys the exponential recency decay; Cap bounds
// how many items of the type are selected per retrieval.
type typeWeights struct {
	Relevance  float64
	Importance float64
	Recency    float64
	HalfLife   time.Duration
	Cap        int
}

var defaultWeights = map[model.MemoryType]typeWeights{
	model.MEMORY_TYPE_SEMANTIC:   {Relevance: 0.5, Importance: 0.35, Recency: 0.15, HalfLife: 30 * 24 * time.Hour, Cap: 5},
	model.MEMORY_TYPE_EPISODIC:   {Relevance: 0.2, Importance: 0.15, Recency: 0.65, HalfLife: 48 * time.Hour, Cap: 3},
	model.MEMORY_TYPE_PROCEDURAL: {Relevance: 0.5, Importance: 0.4, Recency: 0.1, HalfLife: 60 * 24 * time.Hour, Cap: 2},
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 128
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

func lexicalOverlap(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := make(map[string]bool)
	for _, t := range tokenize(content) {
		contentTokens[t] = true
	}
	hits := 0
	for _, q := range queryTokens {
		if contentTokens[q] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// Score computes the blended retrieval score for one candidate at `now`.
func Score(item *model.MemoryItem, queryTokens []string, now time.Time) float64 {
	w, ok := defaultWeights[item.Type]
	if !ok {
		w = defaultWeights[model.MEMORY_TYPE_SEMANTIC]
	}
	age := now.Sub(item.LastAccessedAt)
	if age < 0 {
		age = 0
	}
	recency := math.Exp(-math.Ln2 * age.Seconds() / w.HalfLife.Seconds())
	return w.Relevance*lexicalOverlap(queryTokens, item.Content) +
		w.Importance*item.Importance +
		w.Recency*recency
}

// Retrieve queries the store for the partition, scores candidates
// consumer-side independent of the provider's own ordering, fills per-type
// selection caps in descending score order and touches the selected items.
func Retrieve(ctx context.Context, store Store, criteria QueryCriteria, query string) ([]model.MemoryItem, error) {
	candidates, err := store.Query(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	queryTokens := tokenize(query)
	now := time.Now()
	sort.SliceStable(candidates, func(i, j int) bool {
		return Score(&candidates[i], queryTokens, now) > Score(&candidates[j], queryTokens, now)
	})
	taken := make(map[model.MemoryType]int)
	var selected []model.MemoryItem
	var ids []string
	for _, item := range candidates {
		w, ok := defaultWeights[item.Type]
		if !ok {
			w = defaultWeights[model.MEMORY_TYPE_SEMANTIC]
		}
		if taken[item.Type] >= w.Cap {
			continue
		}
		taken[item.Type]++
		selected = append(selected, item)
		ids = append(ids, item.Id)
	}
	if len(ids) > 0 {
		_ = store.Touch(ctx, ids)
	}
	return selected, nil
}
