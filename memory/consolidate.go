package memory

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fafadexs1/chatflow/config"
	"github.com/fafadexs1/chatflow/llm"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Candidate is a typed memory proposal produced after an agent turn.
type Candidate struct {
	Type       model.MemoryType `json:"type"`
	Content    string           `json:"content"`
	Importance float64          `json:"importance"`
	Tags       []string         `json:"tags,omitempty"`
	TTLDays    int              `json:"ttlDays,omitempty"`
}

// Turn is one user/assistant exchange handed to extraction.
type Turn struct {
	User      string
	Assistant string
}

// Sensitive-data patterns: candidates matching any of these are rejected
// before storage (credentials, card numbers, government IDs).
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|passwd|senha|secret|api[_\s-]?key|token)\s*[:=]`),
	regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),                  // card-like digit runs
	regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`),           // CPF
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                   // SSN
	regexp.MustCompile(`(?i)\bcvv\b|\bcvc\b`),
}

var namePattern = regexp.MustCompile(`(?i)\bmy name is\s+([a-zà-ú]+(?:\s+[a-zà-ú]+)?)`)
var preferencePattern = regexp.MustCompile(`(?i)\bi\s+(?:prefer|like|love|hate|don't like)\s+(.{3,80})`)

const extractionPrompt = `Extract long-term memory candidates from this conversation turn.
Reply with a JSON array only. Each element: {"type":"semantic|episodic|procedural","content":"...","importance":0.0-1.0,"ttlDays":0}.
Semantic = stable facts about the user. Episodic = what happened this conversation. Procedural = how the user wants things done.
Return [] when nothing is worth remembering.`

// Consolidator runs the write path of the memory subsystem: after each
// agent turn it proposes typed candidates, filters them and stores them
// asynchronously so the reply already sent to the user is never blocked.
type Consolidator struct {
	store    Store
	gen      llm.Generator
	embedder llm.Embedder
	conf     config.MemoryConfig
	worker   *util.Worker
}

type writeRequest struct {
	items []model.MemoryItem
}

func NewConsolidator(store Store, gen llm.Generator, embedder llm.Embedder, conf config.MemoryConfig, wg *sync.WaitGroup) *Consolidator {
	c := &Consolidator{store: store, gen: gen, embedder: embedder, conf: conf}
	c.worker = util.NewWorker("memory-consolidation", wg, c.handleWrite, 256)
	c.worker.Start()
	return c
}

func (c *Consolidator) Stop() {
	c.worker.Stop()
}

func (c *Consolidator) handleWrite(action util.Action) error {
	req, ok := action.(writeRequest)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return c.store.Put(ctx, req.items)
}

// Consolidate extracts, filters, embeds and queues candidates for one
// completed turn. The store write is fire-and-forget.
func (c *Consolidator) Consolidate(ctx context.Context, workspaceId, agentId string, scope model.MemoryScope, scopeKey string, turn Turn) {
	candidates := c.extract(ctx, turn)
	items := c.prepare(ctx, workspaceId, agentId, scope, scopeKey, candidates)
	if len(items) == 0 {
		return
	}
	if !c.worker.TrySend(writeRequest{items: items}) {
		logger.Warn("memory consolidation queue full, dropping candidates",
			zap.String("workspaceId", workspaceId), zap.Int("count", len(items)))
	}
}

func (c *Consolidator) extract(ctx context.Context, turn Turn) []Candidate {
	if c.gen != nil {
		if candidates, err := c.extractLLM(ctx, turn); err == nil {
			return candidates
		} else {
			logger.Debug("llm memory extraction failed, using heuristics", zap.Error(err))
		}
	}
	return heuristicExtract(turn)
}

func (c *Consolidator) extractLLM(ctx context.Context, turn Turn) ([]Candidate, error) {
	resp, err := c.gen.Generate(ctx, llm.Request{
		System: extractionPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: "User: " + turn.User + "\nAssistant: " + turn.Assistant},
		},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.Text)
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}
	var candidates []Candidate
	if err := json.Unmarshal([]byte(text), &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// heuristicExtract is the regex fallback: names, stated preferences and a
// short episode summary of the turn.
func heuristicExtract(turn Turn) []Candidate {
	var out []Candidate
	if m := namePattern.FindStringSubmatch(turn.User); m != nil {
		out = append(out, Candidate{
			Type:       model.MEMORY_TYPE_SEMANTIC,
			Content:    "User's name is " + strings.TrimSpace(m[1]),
			Importance: 0.9,
			Tags:       []string{"identity"},
		})
	}
	if m := preferencePattern.FindStringSubmatch(turn.User); m != nil {
		out = append(out, Candidate{
			Type:       model.MEMORY_TYPE_SEMANTIC,
			Content:    "User preference: " + strings.TrimSpace(strings.TrimRight(m[0], ".!?")),
			Importance: 0.6,
			Tags:       []string{"preference"},
		})
	}
	user := strings.TrimSpace(turn.User)
	if len(user) > 0 && len(user) <= 200 {
		out = append(out, Candidate{
			Type:       model.MEMORY_TYPE_EPISODIC,
			Content:    "User said: " + user,
			Importance: 0.3,
		})
	}
	return out
}

func (c *Consolidator) prepare(ctx context.Context, workspaceId, agentId string, scope model.MemoryScope, scopeKey string, candidates []Candidate) []model.MemoryItem {
	now := time.Now()
	seen := make(map[string]bool)
	var items []model.MemoryItem
	for _, cand := range candidates {
		content := strings.TrimSpace(cand.Content)
		if content == "" {
			continue
		}
		if cand.Importance < c.conf.MinImportance {
			continue
		}
		if isSensitive(content) {
			logger.Debug("rejecting sensitive memory candidate")
			continue
		}
		item := model.MemoryItem{
			Id:             uuid.New().String(),
			WorkspaceId:    workspaceId,
			AgentId:        agentId,
			Scope:          scope,
			ScopeKey:       scopeKey,
			Type:           normalizeType(cand.Type),
			Content:        content,
			Importance:     clamp01(cand.Importance),
			Tags:           cand.Tags,
			CreatedAt:      now,
			LastAccessedAt: now,
		}
		hash := item.ContentHash()
		if seen[hash] {
			continue
		}
		seen[hash] = true
		item.ExpiresAt = expiry(item.Type, cand.TTLDays, c.conf.RetentionDays, now)
		if c.conf.EmbeddingsEnabled && c.embedder != nil {
			if vec, err := c.embedder.Embed(ctx, c.embeddingModel(item.Type), content); err == nil {
				item.Embedding = vec
			} else {
				logger.Debug("embedding generation failed, storing without vector", zap.Error(err))
			}
		}
		items = append(items, item)
	}
	return items
}

// embeddingModel applies the hybrid policy: episodic content may route to a
// different embedding model than semantic/procedural.
func (c *Consolidator) embeddingModel(t model.MemoryType) string {
	if t == model.MEMORY_TYPE_EPISODIC && c.conf.EpisodicEmbeddingModel != "" {
		return c.conf.EpisodicEmbeddingModel
	}
	return c.conf.EmbeddingModel
}

// expiry: episodic entries default to the retention window; semantic and
// procedural entries are durable unless given an explicit TTL.
func expiry(t model.MemoryType, ttlDays int, retentionDays int, now time.Time) *time.Time {
	days := ttlDays
	if days == 0 && t == model.MEMORY_TYPE_EPISODIC {
		days = retentionDays
		if days == 0 {
			days = 30
		}
	}
	if days <= 0 {
		return nil
	}
	exp := now.Add(time.Duration(days) * 24 * time.Hour)
	return &exp
}

func isSensitive(content string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}

func normalizeType(t model.MemoryType) model.MemoryType {
	switch t {
	case model.MEMORY_TYPE_SEMANTIC, model.MEMORY_TYPE_EPISODIC, model.MEMORY_TYPE_PROCEDURAL:
		return t
	default:
		return model.MEMORY_TYPE_SEMANTIC
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
