package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ Store = new(PostgresStore)

// PostgresStore is the durable relational provider. When the pgvector
// extension is available it ranks vector queries with the `<=>` cosine
// distance operator; otherwise vector criteria degrade to recency ordering.
type PostgresStore struct {
	db        *pgxpool.Pool
	hasVector bool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	if connString == "" {
		return nil, fmt.Errorf("memory: postgres provider requires a connection string")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("memory: connecting to postgres: %w", err)
	}
	s := &PostgresStore{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStoreFromPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{db: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err == nil {
		s.hasVector = true
	} else {
		logger.Info("pgvector unavailable, memory similarity search falls back to recency", zap.Error(err))
	}
	embeddingCol := "embedding JSONB"
	if s.hasVector {
		embeddingCol = "embedding vector(1536)"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		scope_key TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		importance DOUBLE PRECISION NOT NULL,
		tags JSONB,
		%s,
		created_at TIMESTAMPTZ NOT NULL,
		last_accessed_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ
	)`, embeddingCol)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("memory: creating memories table: %w", err)
	}
	_, err := s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS memories_partition_idx
		ON memories (workspace_id, agent_id, scope, scope_key)`)
	return err
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *PostgresStore) Put(ctx context.Context, items []model.MemoryItem) error {
	for _, item := range items {
		tags, _ := json.Marshal(item.Tags)
		var embedding any
		if len(item.Embedding) > 0 {
			if s.hasVector {
				embedding = vectorLiteral(item.Embedding)
			} else {
				b, _ := json.Marshal(item.Embedding)
				embedding = string(b)
			}
		}
		_, err := s.db.Exec(ctx, `INSERT INTO memories
			(id, workspace_id, agent_id, scope, scope_key, type, content, content_hash,
			 importance, tags, embedding, created_at, last_accessed_at, expires_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (content_hash) DO UPDATE SET
			 importance = GREATEST(memories.importance, EXCLUDED.importance),
			 last_accessed_at = EXCLUDED.last_accessed_at`,
			item.Id, item.WorkspaceId, item.AgentId, string(item.Scope), item.ScopeKey,
			string(item.Type), item.Content, item.ContentHash(), item.Importance,
			string(tags), embedding, item.CreatedAt, item.LastAccessedAt, item.ExpiresAt)
		if err != nil {
			return fmt.Errorf("memory: upserting item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, criteria QueryCriteria) ([]model.MemoryItem, error) {
	args := []any{criteria.WorkspaceId, criteria.AgentId, string(criteria.Scope), criteria.ScopeKey}
	query := `SELECT id, workspace_id, agent_id, scope, scope_key, type, content,
		importance, tags, created_at, last_accessed_at, expires_at FROM memories
		WHERE workspace_id = $1 AND agent_id = $2 AND scope = $3 AND scope_key = $4
		AND (expires_at IS NULL OR expires_at > NOW())`
	if len(criteria.Types) > 0 {
		types := make([]string, len(criteria.Types))
		for i, t := range criteria.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		query += fmt.Sprintf(" AND type = ANY($%d)", len(args))
	}
	if criteria.MinImportance > 0 {
		args = append(args, criteria.MinImportance)
		query += fmt.Sprintf(" AND importance >= $%d", len(args))
	}
	if len(criteria.Embedding) > 0 && s.hasVector {
		args = append(args, vectorLiteral(criteria.Embedding))
		query += fmt.Sprintf(" AND embedding IS NOT NULL ORDER BY embedding <=> $%d", len(args))
	} else {
		query += " ORDER BY last_accessed_at DESC"
	}
	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: querying items: %w", err)
	}
	defer rows.Close()
	var out []model.MemoryItem
	for rows.Next() {
		var item model.MemoryItem
		var scope, mtype, tags string
		var expiresAt *time.Time
		if err := rows.Scan(&item.Id, &item.WorkspaceId, &item.AgentId, &scope, &item.ScopeKey,
			&mtype, &item.Content, &item.Importance, &tags,
			&item.CreatedAt, &item.LastAccessedAt, &expiresAt); err != nil {
			return nil, err
		}
		item.Scope = model.MemoryScope(scope)
		item.Type = model.MemoryType(mtype)
		item.ExpiresAt = expiresAt
		json.Unmarshal([]byte(tags), &item.Tags)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Touch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, "UPDATE memories SET last_accessed_at = NOW() WHERE id = ANY($1)", ids)
	return err
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM memories WHERE expires_at IS NOT NULL AND expires_at <= NOW()")
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}
