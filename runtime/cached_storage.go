package runtime

import (
	"context"
	"time"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/persistence"
	gocache "github.com/patrickmn/go-cache"
)

const (
	workspaceCacheTTL   = time.Minute
	workspaceCachePurge = 5 * time.Minute
)

// cachedStorage layers a short-TTL in-process cache over workspace reads.
// Workspaces change only through the external editor, so a small staleness
// window is acceptable; sessions are never cached.
type cachedStorage struct {
	persistence.Storage
	workspaces *gocache.Cache
}

func newCachedStorage(inner persistence.Storage) *cachedStorage {
	return &cachedStorage{
		Storage:    inner,
		workspaces: gocache.New(workspaceCacheTTL, workspaceCachePurge),
	}
}

func (c *cachedStorage) LoadWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	if cached, ok := c.workspaces.Get(id); ok {
		return cached.(*model.Workspace), nil
	}
	ws, err := c.Storage.LoadWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	c.workspaces.SetDefault(id, ws)
	return ws, nil
}

func (c *cachedStorage) SaveWorkspace(ctx context.Context, ws *model.Workspace) error {
	c.workspaces.Delete(ws.Id)
	return c.Storage.SaveWorkspace(ctx, ws)
}
