package redis

import (
	"context"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/fafadexs1/chatflow/util"
	rd "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const SESSION_KEY string = "SESSION"
const WORKSPACE_KEY string = "WS"
const ORG_KEY string = "ORG"

var _ persistence.Storage = new(Storage)

// Storage keeps sessions and workspaces in redis hashes under the
// configured namespace. Org membership is a list so keyword trigger scans
// preserve workspace order.
type Storage struct {
	baseDao
	sessionEncDec   util.EncoderDecoder[model.Session]
	workspaceEncDec util.EncoderDecoder[model.Workspace]
}

func NewStorage(conf Config) *Storage {
	return &Storage{
		baseDao:         *newBaseDao(conf),
		sessionEncDec:   util.NewJsonEncoderDecoder[model.Session](),
		workspaceEncDec: util.NewJsonEncoderDecoder[model.Workspace](),
	}
}

func (s *Storage) LoadSession(ctx context.Context, sessionId string) (*model.Session, error) {
	key := s.getNamespaceKey(SESSION_KEY)
	data, err := s.redisClient.HGet(ctx, key, sessionId).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "session", Id: sessionId}
	}
	if err != nil {
		logger.Error("error in getting session", zap.String("sessionId", sessionId), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.sessionEncDec.Decode([]byte(data))
}

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	key := s.getNamespaceKey(SESSION_KEY)
	data, err := s.sessionEncDec.Encode(*session)
	if err != nil {
		return err
	}
	if err := s.redisClient.HSet(ctx, key, session.SessionId, string(data)).Err(); err != nil {
		logger.Error("error in saving session", zap.String("sessionId", session.SessionId), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, sessionId string) error {
	key := s.getNamespaceKey(SESSION_KEY)
	if err := s.redisClient.HDel(ctx, key, sessionId).Err(); err != nil {
		logger.Error("error in deleting session", zap.String("sessionId", sessionId), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *Storage) LoadWorkspace(ctx context.Context, workspaceId string) (*model.Workspace, error) {
	key := s.getNamespaceKey(WORKSPACE_KEY)
	data, err := s.redisClient.HGet(ctx, key, workspaceId).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "workspace", Id: workspaceId}
	}
	if err != nil {
		logger.Error("error in getting workspace", zap.String("workspaceId", workspaceId), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.workspaceEncDec.Decode([]byte(data))
}

func (s *Storage) SaveWorkspace(ctx context.Context, workspace *model.Workspace) error {
	key := s.getNamespaceKey(WORKSPACE_KEY)
	data, err := s.workspaceEncDec.Encode(*workspace)
	if err != nil {
		return err
	}
	exists, err := s.redisClient.HExists(ctx, key, workspace.Id).Result()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := s.redisClient.HSet(ctx, key, workspace.Id, string(data)).Err(); err != nil {
		logger.Error("error in saving workspace", zap.String("workspaceId", workspace.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if !exists {
		orgKey := s.getNamespaceKey(ORG_KEY, workspace.OrgId)
		if err := s.redisClient.RPush(ctx, orgKey, workspace.Id).Err(); err != nil {
			return persistence.StorageLayerError{Message: err.Error()}
		}
	}
	return nil
}

func (s *Storage) LoadWorkspacesForOrg(ctx context.Context, orgId string) ([]*model.Workspace, error) {
	orgKey := s.getNamespaceKey(ORG_KEY, orgId)
	ids, err := s.redisClient.LRange(ctx, orgKey, 0, -1).Result()
	if err != nil && err != rd.Nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	var out []*model.Workspace
	for _, id := range ids {
		ws, err := s.LoadWorkspace(ctx, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}
