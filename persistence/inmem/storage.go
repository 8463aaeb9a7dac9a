package inmem

import (
	"context"
	"sync"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/persistence"
)

var _ persistence.Storage = new(Storage)

// Storage is a map-backed persistence implementation for tests and local
// runs without redis.
type Storage struct {
	mu         sync.RWMutex
	sessions   map[string]*model.Session
	workspaces map[string]*model.Workspace
	// orgOrder preserves workspace declaration order per org so keyword
	// trigger scans stay deterministic.
	orgOrder map[string][]string
}

func NewStorage() *Storage {
	return &Storage{
		sessions:   make(map[string]*model.Session),
		workspaces: make(map[string]*model.Workspace),
		orgOrder:   make(map[string][]string),
	}
}

func (s *Storage) LoadSession(ctx context.Context, sessionId string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "session", Id: sessionId}
	}
	cp := *sess
	cp.Variables = sess.Variables.DeepCopy()
	return &cp, nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	cp.Variables = session.Variables.DeepCopy()
	s.sessions[session.SessionId] = &cp
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, sessionId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionId)
	return nil
}

func (s *Storage) LoadWorkspace(ctx context.Context, workspaceId string) (*model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[workspaceId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "workspace", Id: workspaceId}
	}
	return ws, nil
}

func (s *Storage) SaveWorkspace(ctx context.Context, workspace *model.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[workspace.Id]; !ok {
		s.orgOrder[workspace.OrgId] = append(s.orgOrder[workspace.OrgId], workspace.Id)
	}
	s.workspaces[workspace.Id] = workspace
	return nil
}

func (s *Storage) LoadWorkspacesForOrg(ctx context.Context, orgId string) ([]*model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Workspace
	for _, id := range s.orgOrder[orgId] {
		if ws, ok := s.workspaces[id]; ok {
			out = append(out, ws)
		}
	}
	return out, nil
}
