// Package trigger resolves inbound webhook payloads into exactly one
// session outcome: ignore, resume, start, or an out-of-band API response.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/flow"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

// ErrNoTrigger means no keyword or default trigger could start a flow for
// the inbound message. The webhook surface reports it as 404.
var ErrNoTrigger = errors.New("no matching trigger")

type Outcome string

const (
	OUTCOME_IGNORED Outcome = "ignored"
	OUTCOME_RESUMED Outcome = "resumed"
	OUTCOME_STARTED Outcome = "started"
	OUTCOME_PAUSED  Outcome = "paused"
)

type Service struct {
	storage        persistence.Storage
	engine         *flow.Engine
	locks          *keyedMutex
	timeoutSeconds int
	now            func() time.Time
}

func NewService(storage persistence.Storage, engine *flow.Engine, timeoutSeconds int) *Service {
	return &Service{
		storage:        storage,
		engine:         engine,
		locks:          newKeyedMutex(),
		timeoutSeconds: timeoutSeconds,
		now:            time.Now,
	}
}

// Ingest processes one webhook delivery for a workspace. It holds the
// per-session lock for the whole resolution so replayed or racing
// deliveries for the same conversation are serialized.
func (s *Service) Ingest(ctx context.Context, workspaceId string, payload map[string]any) (Outcome, error) {
	ws, err := s.storage.LoadWorkspace(ctx, workspaceId)
	if err != nil {
		return "", err
	}
	if !ws.Enabled {
		return OUTCOME_IGNORED, nil
	}

	ch := channel.Detect(payload)
	inbound, err := channel.Parse(ch, ws, payload)
	if err != nil || inbound.SessionKey == "" {
		logger.Debug("unparseable payload ignored", zap.String("workspaceId", workspaceId))
		return OUTCOME_IGNORED, nil
	}
	if inbound.AgentAuthored || inbound.HumanTakeover {
		return OUTCOME_IGNORED, nil
	}

	unlock := s.locks.Lock(inbound.SessionKey)
	defer unlock()

	session, err := s.storage.LoadSession(ctx, inbound.SessionKey)
	if err != nil && !persistence.IsNotFound(err) {
		return "", err
	}

	if session != nil {
		outcome, done, err := s.resumeExisting(ctx, session, inbound)
		if done || err != nil {
			return outcome, err
		}
		// The session was discarded; fall through to start a new flow.
	}

	return s.startNew(ctx, ws, inbound, payload)
}

// resumeExisting resolves an inbound message against a stored session.
// done=false means the session was deleted and ingestion should restart.
func (s *Service) resumeExisting(ctx context.Context, session *model.Session, inbound *channel.Inbound) (Outcome, bool, error) {
	if session.Expired(s.now()) {
		logger.Info("session timed out", zap.String("sessionId", session.SessionId))
		if err := s.storage.DeleteSession(ctx, session.SessionId); err != nil {
			return "", true, err
		}
		return "", false, nil
	}

	ws, err := s.storage.LoadWorkspace(ctx, session.WorkspaceId)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.Warn("session references deleted workspace",
				zap.String("sessionId", session.SessionId), zap.String("workspaceId", session.WorkspaceId))
			if err := s.storage.DeleteSession(ctx, session.SessionId); err != nil {
				return "", true, err
			}
			return "", false, nil
		}
		return "", true, err
	}

	// A dead-end pause swallows messages. Restarting here would silently
	// re-run the flow against a user who never asked for it.
	if session.Paused() {
		return OUTCOME_PAUSED, true, nil
	}

	if session.Awaiting != nil {
		return s.bindAwaited(ctx, session, ws, inbound)
	}

	// Engine never persists a running session, so treat anything else as
	// resumable from its current node.
	session.LastInteractionAt = s.now()
	return OUTCOME_RESUMED, true, s.engine.Execute(ctx, session, ws)
}

// bindAwaited fits the reply to the waiting node's expected shape.
func (s *Service) bindAwaited(ctx context.Context, session *model.Session, ws *model.Workspace, inbound *channel.Inbound) (Outcome, bool, error) {
	awaiting := session.Awaiting
	if ws.NodeById(awaiting.NodeId) == nil {
		if err := s.storage.DeleteSession(ctx, session.SessionId); err != nil {
			return "", true, err
		}
		return "", false, nil
	}

	text := strings.TrimSpace(inbound.Text)
	var value any

	switch session.AwaitingInputType {
	case model.AWAITING_OPTION:
		matched, ok := matchOption(text, awaiting.Options)
		if !ok {
			// Invalid choice re-prompts the same node without advancing.
			session.CurrentNodeId = awaiting.NodeId
			session.ClearAwaiting()
			session.LastInteractionAt = s.now()
			return OUTCOME_RESUMED, true, s.engine.Execute(ctx, session, ws)
		}
		value = matched
	case model.AWAITING_DATE:
		parsed, ok := parseInboundDate(text)
		if !ok {
			return s.restart(ctx, session)
		}
		value = parsed
	case model.AWAITING_RATING:
		rating, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return s.restart(ctx, session)
		}
		value = rating
	case model.AWAITING_TEXT, model.AWAITING_FILE:
		value = text
	case model.AWAITING_API_RESPONSE:
		// A user message cannot satisfy an API wait.
		return s.restart(ctx, session)
	default:
		return s.restart(ctx, session)
	}

	if awaiting.Variable != "" {
		session.Variables.Set(awaiting.Variable, value)
	}
	session.Variables.Set(model.VarLastUserMessage, text)
	return OUTCOME_RESUMED, true, s.advance(ctx, session, ws, awaiting.NodeId)
}

// Event resolves an out-of-band API response against a session explicitly
// awaiting one.
func (s *Service) Event(ctx context.Context, sessionId string, payload map[string]any) (Outcome, error) {
	unlock := s.locks.Lock(sessionId)
	defer unlock()

	session, err := s.storage.LoadSession(ctx, sessionId)
	if err != nil {
		return "", err
	}
	if session.Awaiting == nil || session.AwaitingInputType != model.AWAITING_API_RESPONSE {
		return OUTCOME_IGNORED, nil
	}
	ws, err := s.storage.LoadWorkspace(ctx, session.WorkspaceId)
	if err != nil {
		return "", err
	}
	if session.Awaiting.Variable != "" {
		session.Variables.Set(session.Awaiting.Variable, payload)
	}
	nodeId := session.Awaiting.NodeId
	return OUTCOME_RESUMED, s.advance(ctx, session, ws, nodeId)
}

// advance clears the wait and follows the waiting node's default edge.
func (s *Service) advance(ctx context.Context, session *model.Session, ws *model.Workspace, fromNode string) error {
	session.ClearAwaiting()
	session.LastInteractionAt = s.now()
	conn := ws.ConnectionFrom(fromNode, "default")
	if conn == nil {
		session.CurrentNodeId = ""
	} else {
		session.CurrentNodeId = conn.To
	}
	return s.engine.Execute(ctx, session, ws)
}

func (s *Service) restart(ctx context.Context, session *model.Session) (Outcome, bool, error) {
	logger.Info("reply did not match awaited input, restarting flow",
		zap.String("sessionId", session.SessionId), zap.String("awaiting", string(session.AwaitingInputType)))
	if err := s.storage.DeleteSession(ctx, session.SessionId); err != nil {
		return "", true, err
	}
	return "", false, nil
}

// startNew matches a trigger and creates a fresh session. Keyword triggers
// from sibling workspaces in the same organization take precedence over the
// originating workspace's default trigger, scanned in workspace order.
func (s *Service) startNew(ctx context.Context, origin *model.Workspace, inbound *channel.Inbound, payload map[string]any) (Outcome, error) {
	target := origin
	trig := (*model.Trigger)(nil)

	siblings, err := s.storage.LoadWorkspacesForOrg(ctx, origin.OrgId)
	if err != nil && !persistence.IsNotFound(err) {
		return "", err
	}
	for _, ws := range siblings {
		if !ws.Enabled {
			continue
		}
		if t := ws.MatchTrigger(inbound.Text); t != nil {
			target = ws
			trig = t
			break
		}
	}
	if trig == nil {
		trig = origin.DefaultTrigger()
		target = origin
	}
	if trig == nil {
		return "", fmt.Errorf("workspace %s: %w", origin.Id, ErrNoTrigger)
	}

	handle := triggerHandle(trig)
	startNode := target.NodeById(trig.NodeId)
	if startNode == nil || target.ConnectionFrom(trig.NodeId, handle) == nil {
		return "", fmt.Errorf("trigger start handle %q unconnected: %w", handle, ErrNoTrigger)
	}

	session := &model.Session{
		SessionId:         inbound.SessionKey,
		WorkspaceId:       target.Id,
		CurrentNodeId:     trig.NodeId,
		Variables:         model.Variables{},
		FlowContext:       inbound.Context.Channel,
		TimeoutSeconds:    s.timeoutSeconds,
		LastInteractionAt: s.now(),
	}
	seedVariables(session, inbound, trig, payload)

	logger.Info("starting flow", zap.String("sessionId", session.SessionId),
		zap.String("workspaceId", target.Id), zap.String("trigger", handle))
	return OUTCOME_STARTED, s.engine.Execute(ctx, session, target)
}

func seedVariables(session *model.Session, inbound *channel.Inbound, trig *model.Trigger, payload map[string]any) {
	vars := session.Variables
	vars.Set("conversationId", inbound.Context.ConversationId)
	vars.Set("contactId", inbound.Context.ContactId)
	vars.Set("contactName", inbound.Context.ContactName)
	vars.Set("contactPhone", inbound.Context.ContactPhone)
	vars.Set(model.VarTriggerHandle, triggerHandle(trig))
	vars.Set(model.VarLastUserMessage, inbound.Text)
	flow.StoreChannelContext(session, inbound.Context)

	for _, m := range trig.Mappings {
		if m.Variable == "" || m.Path == "" {
			continue
		}
		if v, err := jsonpath.JsonPathLookup(payload, m.Path); err == nil {
			vars.Set(m.Variable, v)
		}
	}
}

func triggerHandle(trig *model.Trigger) string {
	if trig.Keyword != "" {
		return strings.ToLower(trig.Keyword)
	}
	return "default"
}

// matchOption accepts a 1-based numeric index or a case-insensitive exact
// text match against the recorded choices.
func matchOption(text string, options []string) (string, bool) {
	if idx, err := strconv.Atoi(text); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1], true
		}
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(opt, text) {
			return opt, true
		}
	}
	return "", false
}

var inboundDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

func parseInboundDate(text string) (string, bool) {
	for _, layout := range inboundDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
