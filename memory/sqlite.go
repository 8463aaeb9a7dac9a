package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/model"
	_ "modernc.org/sqlite"
)

var _ Store = new(SQLiteStore)

// SQLiteStore is the alternate relational backend for single-node and
// embedded deployments. No vector search; vector criteria order by recency.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("memory: sqlite provider requires a database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: opening sqlite database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		scope_key TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		importance REAL NOT NULL,
		tags TEXT,
		embedding TEXT,
		created_at INTEGER NOT NULL,
		last_accessed_at INTEGER NOT NULL,
		expires_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS memories_partition_idx
		ON memories (workspace_id, agent_id, scope, scope_key);`)
	if err != nil {
		return fmt.Errorf("memory: creating memories table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, items []model.MemoryItem) error {
	for _, item := range items {
		tags, _ := json.Marshal(item.Tags)
		var embedding *string
		if len(item.Embedding) > 0 {
			b, _ := json.Marshal(item.Embedding)
			str := string(b)
			embedding = &str
		}
		var expiresAt *int64
		if item.ExpiresAt != nil {
			v := item.ExpiresAt.UnixMilli()
			expiresAt = &v
		}
		_, err := s.db.ExecContext(ctx, `INSERT INTO memories
			(id, workspace_id, agent_id, scope, scope_key, type, content, content_hash,
			 importance, tags, embedding, created_at, last_accessed_at, expires_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT (content_hash) DO UPDATE SET
			 importance = MAX(memories.importance, excluded.importance),
			 last_accessed_at = excluded.last_accessed_at`,
			item.Id, item.WorkspaceId, item.AgentId, string(item.Scope), item.ScopeKey,
			string(item.Type), item.Content, item.ContentHash(), item.Importance,
			string(tags), embedding, item.CreatedAt.UnixMilli(), item.LastAccessedAt.UnixMilli(), expiresAt)
		if err != nil {
			return fmt.Errorf("memory: upserting item: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, criteria QueryCriteria) ([]model.MemoryItem, error) {
	now := time.Now().UnixMilli()
	args := []any{criteria.WorkspaceId, criteria.AgentId, string(criteria.Scope), criteria.ScopeKey, now}
	query := `SELECT id, workspace_id, agent_id, scope, scope_key, type, content,
		importance, tags, embedding, created_at, last_accessed_at, expires_at FROM memories
		WHERE workspace_id = ? AND agent_id = ? AND scope = ? AND scope_key = ?
		AND (expires_at IS NULL OR expires_at > ?)`
	if len(criteria.Types) > 0 {
		placeholders := make([]string, len(criteria.Types))
		for i, t := range criteria.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += " AND type IN (" + strings.Join(placeholders, ",") + ")"
	}
	if criteria.MinImportance > 0 {
		query += " AND importance >= ?"
		args = append(args, criteria.MinImportance)
	}
	query += " ORDER BY last_accessed_at DESC"
	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: querying items: %w", err)
	}
	defer rows.Close()
	var out []model.MemoryItem
	for rows.Next() {
		var item model.MemoryItem
		var scope, mtype, tags string
		var embedding *string
		var createdAt, lastAccessedAt int64
		var expiresAt *int64
		if err := rows.Scan(&item.Id, &item.WorkspaceId, &item.AgentId, &scope, &item.ScopeKey,
			&mtype, &item.Content, &item.Importance, &tags, &embedding,
			&createdAt, &lastAccessedAt, &expiresAt); err != nil {
			return nil, err
		}
		item.Scope = model.MemoryScope(scope)
		item.Type = model.MemoryType(mtype)
		item.CreatedAt = time.UnixMilli(createdAt)
		item.LastAccessedAt = time.UnixMilli(lastAccessedAt)
		if expiresAt != nil {
			t := time.UnixMilli(*expiresAt)
			item.ExpiresAt = &t
		}
		json.Unmarshal([]byte(tags), &item.Tags)
		if embedding != nil {
			json.Unmarshal([]byte(*embedding), &item.Embedding)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Touch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UnixMilli())
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE memories SET last_accessed_at = ? WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	return err
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM memories WHERE expires_at IS NOT NULL AND expires_at <= ?", time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
