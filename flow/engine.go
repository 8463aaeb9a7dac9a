// Package flow drives a session through its workspace graph until the run
// suspends, pauses at a dead end, or terminates.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fafadexs1/chatflow/analytics"
	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/node"
	"github.com/fafadexs1/chatflow/persistence"
	"go.uber.org/zap"
)

// maxSteps bounds a single engine invocation. Loops in the graph are legal,
// so a runaway graph is cut off rather than spinning forever.
const maxSteps = 200

type Engine struct {
	storage persistence.Storage
	deps    node.Deps
}

func NewEngine(storage persistence.Storage, deps node.Deps) *Engine {
	return &Engine{storage: storage, deps: deps}
}

// Execute runs the session loop from CurrentNodeId. Each iteration records
// the visited node in Steps before executing it, so traces survive crashes
// mid-node. The session is persisted at every stopping point; a send
// failure leaves it saved at the failing node.
func (e *Engine) Execute(ctx context.Context, session *model.Session, ws *model.Workspace) error {
	cc := channelContext(session)

	for i := 0; i < maxSteps; i++ {
		nodeId := session.CurrentNodeId
		if nodeId == "" {
			return e.pause(ctx, session, "")
		}
		def := ws.NodeById(nodeId)
		if def == nil {
			logger.Warn("session points at missing node, discarding",
				zap.String("sessionId", session.SessionId), zap.String("nodeId", nodeId))
			return e.storage.DeleteSession(ctx, session.SessionId)
		}

		session.Steps = append(session.Steps, nodeId)

		ec := &node.ExecContext{
			Session:    session,
			Workspace:  ws,
			ChannelCtx: cc,
			Deps:       e.deps,
		}
		transition, err := node.Build(*def).Execute(ctx, ec)
		if err != nil {
			analytics.RecordNodeFailure(ws.Id, session.SessionId, nodeId, err.Error())
			// Message delivery is fatal to the step. Keep the session where
			// it was so a retry replays this node, not the one after it.
			if saveErr := e.storage.SaveSession(ctx, session); saveErr != nil {
				logger.Error("failed to save session after node error",
					zap.String("sessionId", session.SessionId), zap.Error(saveErr))
			}
			return fmt.Errorf("node %s: %w", nodeId, err)
		}

		if transition.Terminal {
			logger.Info("flow finished", zap.String("sessionId", session.SessionId),
				zap.Int("steps", len(session.Steps)))
			return e.storage.DeleteSession(ctx, session.SessionId)
		}

		if transition.Await != nil {
			session.CurrentNodeId = nodeId
			session.AwaitingInputType = transition.Await.Type
			session.Awaiting = &model.AwaitingInput{
				NodeId:   nodeId,
				Variable: transition.Await.Variable,
				Options:  transition.Await.Options,
			}
			session.LastInteractionAt = time.Now()
			return e.storage.SaveSession(ctx, session)
		}

		conn := ws.ConnectionFrom(nodeId, transition.Handle)
		if conn == nil {
			return e.pause(ctx, session, nodeId)
		}
		session.CurrentNodeId = conn.To
		session.ClearAwaiting()
	}

	logger.Error("runaway flow stopped", zap.String("sessionId", session.SessionId),
		zap.String("workspaceId", ws.Id), zap.Int("maxSteps", maxSteps))
	return e.pause(ctx, session, session.CurrentNodeId)
}

// pause parks the session at a dead end. Subsequent inbound messages are
// ignored until the session times out or an operator intervenes.
func (e *Engine) pause(ctx context.Context, session *model.Session, atNode string) error {
	logger.Info("flow paused at dead end", zap.String("sessionId", session.SessionId),
		zap.String("nodeId", atNode))
	session.CurrentNodeId = ""
	session.ClearAwaiting()
	session.Variables.Set(model.VarFlowPaused, true)
	session.LastInteractionAt = time.Now()
	return e.storage.SaveSession(ctx, session)
}

// channelContext rebuilds the sender target stored at session creation.
func channelContext(session *model.Session) channel.Context {
	var cc channel.Context
	raw, ok := session.Variables.Get(model.VarChannelContext)
	if !ok {
		return cc
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return cc
	}
	json.Unmarshal(data, &cc)
	return cc
}

// StoreChannelContext persists the channel context into the variable bag as
// a plain map so it survives JSON round-trips with the session.
func StoreChannelContext(session *model.Session, cc channel.Context) {
	data, err := json.Marshal(cc)
	if err != nil {
		return
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return
	}
	session.Variables.Set(model.VarChannelContext, m)
}
