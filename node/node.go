// Package node implements one executable behavior per flow node kind.
// Dispatch is by type tag through a registry; unrecognized types fall
// through to a default exit so newer editor node kinds do not break older
// engines.
package node

import (
	"context"

	"github.com/fafadexs1/chatflow/agent"
	"github.com/fafadexs1/chatflow/capability"
	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/model"
)

// Await asks the engine to suspend the session until the next inbound
// message binds to Variable.
type Await struct {
	Type     model.AwaitingInputType
	Variable string
	Options  []string
}

// Transition is the outcome of executing one node: the branch label to
// follow, or a suspension, or flow termination.
type Transition struct {
	Handle   string
	Await    *Await
	Terminal bool
}

// Deps are the externally provided collaborators nodes may use.
type Deps struct {
	Senders      func(model.ChannelType) channel.Sender
	Capabilities capability.Registry
	CapExecutor  capability.Executor
	Agent        *agent.Orchestrator
}

// ExecContext is the per-execution view handed to a node.
type ExecContext struct {
	Session    *model.Session
	Workspace  *model.Workspace
	ChannelCtx channel.Context
	Deps       Deps
}

func (ec *ExecContext) Vars() model.Variables {
	return ec.Session.Variables
}

func (ec *ExecContext) Send(ctx context.Context, text string) error {
	sender := ec.Deps.Senders(ec.Session.FlowContext)
	return sender.Send(ctx, ec.ChannelCtx, text)
}

type Node interface {
	Execute(ctx context.Context, ec *ExecContext) (Transition, error)
}

type Factory func(def model.Node) Node

var registry = map[string]Factory{
	"start":             newStartNode,
	"message":           newMessageNode,
	"input":             newInputNode,
	"date-input":        newInputNode,
	"file-upload":       newInputNode,
	"rating-input":      newInputNode,
	"option":            newOptionNode,
	"condition":         newConditionNode,
	"time-of-day":       newTimeOfDayNode,
	"switch":            newSwitchNode,
	"set-variable":      newSetVariableNode,
	"code-execution":    newScriptNode,
	"api-call":          newApiCallNode,
	"capability":        newCapabilityNode,
	"intelligent-agent": newAgentNode,
	"delay":             newDelayNode,
	"log-console":       newLogConsoleNode,
	"end-flow":          newEndFlowNode,
}

// Build resolves the implementation for a node definition. Unknown types
// get the default-exit behavior.
func Build(def model.Node) Node {
	if factory, ok := registry[def.Type]; ok {
		return factory(def)
	}
	return &defaultExitNode{}
}

// defaultExitNode is the forward-compatibility policy: an unrecognized node
// type attempts its default exit rather than failing the run.
type defaultExitNode struct{}

func (n *defaultExitNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	return Transition{Handle: "default"}, nil
}

// config access helpers shared by node implementations

func cfgString(def model.Node, key string) string {
	v, ok := def.Config[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func cfgFloat(def model.Node, key string) (float64, bool) {
	v, ok := def.Config[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func cfgBool(def model.Node, key string) bool {
	v, ok := def.Config[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func cfgSlice(def model.Node, key string) []any {
	v, ok := def.Config[key]
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

func cfgMap(def model.Node, key string) map[string]any {
	v, ok := def.Config[key]
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}
