package model

import "time"

type AwaitingInputType string

const AWAITING_TEXT AwaitingInputType = "text"
const AWAITING_DATE AwaitingInputType = "date"
const AWAITING_FILE AwaitingInputType = "file"
const AWAITING_RATING AwaitingInputType = "rating"
const AWAITING_OPTION AwaitingInputType = "option"
const AWAITING_API_RESPONSE AwaitingInputType = "api_response"

// AwaitingInput records which node suspended the session and where the next
// reply should be bound. Options is populated only by option nodes so that
// ingestion can match by numeric index or exact text.
type AwaitingInput struct {
	NodeId   string   `json:"nodeId"`
	Variable string   `json:"variable"`
	Options  []string `json:"options,omitempty"`
}

// Session is the unit of resumability: durable execution state for one
// ongoing conversation instance of a flow.
//
// Exactly one of the following holds whenever a session is persisted: it has
// a next node to execute, it is awaiting input, or it is paused at a dead
// end (CurrentNodeId empty and the paused marker set in Variables).
type Session struct {
	SessionId         string            `json:"sessionId"`
	WorkspaceId       string            `json:"workspaceId"`
	CurrentNodeId     string            `json:"currentNodeId,omitempty"`
	Variables         Variables         `json:"variables"`
	AwaitingInputType AwaitingInputType `json:"awaitingInputType,omitempty"`
	Awaiting          *AwaitingInput    `json:"awaiting,omitempty"`
	FlowContext       ChannelType       `json:"flowContext"`
	TimeoutSeconds    int               `json:"timeoutSeconds"`
	LastInteractionAt time.Time         `json:"lastInteractionAt"`
	Steps             []string          `json:"steps"`
}

// VarFlowPaused marks a session parked at a dead end; inbound messages for a
// paused session are ignored rather than silently restarting the flow.
const VarFlowPaused = "__flowPaused"

// VarTriggerHandle carries the branch label the start node consumes once.
const VarTriggerHandle = "_triggerHandle"

// VarLastUserMessage holds the most recent inbound text for the node that
// resumes the session.
const VarLastUserMessage = "_lastUserMessage"

// VarChannelContext stores the serialized channel context so the engine can
// rebuild the sender target on resume.
const VarChannelContext = "_channelContext"

func (s *Session) Expired(now time.Time) bool {
	if s.TimeoutSeconds <= 0 {
		return false
	}
	return now.After(s.LastInteractionAt.Add(time.Duration(s.TimeoutSeconds) * time.Second))
}

func (s *Session) Paused() bool {
	v, _ := s.Variables.Get(VarFlowPaused)
	b, ok := v.(bool)
	return ok && b
}

func (s *Session) ClearAwaiting() {
	s.AwaitingInputType = ""
	s.Awaiting = nil
}
