package persistence

import (
	"context"
	"fmt"

	"github.com/fafadexs1/chatflow/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Id   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Id)
}

func IsNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

// Storage is the keyed persistence surface the engine and ingestion consume.
// Missing rows come back as NotFoundError, never as nil/nil.
type Storage interface {
	LoadSession(ctx context.Context, sessionId string) (*model.Session, error)
	SaveSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, sessionId string) error

	LoadWorkspace(ctx context.Context, workspaceId string) (*model.Workspace, error)
	SaveWorkspace(ctx context.Context, workspace *model.Workspace) error
	LoadWorkspacesForOrg(ctx context.Context, orgId string) ([]*model.Workspace, error)
}
