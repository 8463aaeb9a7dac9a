package node

import (
	"context"

	"github.com/fafadexs1/chatflow/agent"
	"github.com/fafadexs1/chatflow/capability"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
	"go.uber.org/zap"
)

// agentNode hands the turn to the orchestrator and re-suspends until the
// conversation signals completion. Tools come from graph-wired tool nodes
// when present, otherwise from the whole workspace capability set. Memory
// is active only when a memory node is wired into the "memory" port.
type agentNode struct {
	def model.Node
}

func newAgentNode(def model.Node) Node {
	return &agentNode{def: def}
}

func (n *agentNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	userText := ec.Vars().GetString(model.VarLastUserMessage)
	if userText == "" {
		// First arrival at the node. Nothing to answer yet, wait for input.
		return n.suspend(), nil
	}
	ec.Vars().Delete(model.VarLastUserMessage)

	memoryWired := len(ec.Workspace.ConnectionsInto(n.def.Id, "memory")) > 0
	scope, scopeKey := n.memoryScope(ec)

	maxTurns := 0
	if v, ok := cfgFloat(n.def, "maxTurns"); ok {
		maxTurns = int(v)
	}

	result, err := ec.Deps.Agent.HandleTurn(ctx, agent.TurnInput{
		WorkspaceId:  ec.Workspace.Id,
		AgentId:      n.def.Id,
		SystemPrompt: util.Substitute(cfgString(n.def, "systemPrompt"), ec.Vars()),
		UserText:     userText,
		ChannelCtx:   ec.ChannelCtx,
		Vars:         ec.Vars(),
		GraphTools:   n.graphTools(ctx, ec),
		MemoryWired:  memoryWired,
		MemoryScope:  scope,
		ScopeKey:     scopeKey,
		MaxTurns:     maxTurns,
	})
	if err != nil {
		return Transition{}, err
	}
	if result.Completed {
		return Transition{Handle: "default"}, nil
	}
	return n.suspend(), nil
}

func (n *agentNode) suspend() Transition {
	return Transition{Await: &Await{
		Type:     model.AWAITING_TEXT,
		Variable: model.VarLastUserMessage,
	}}
}

// graphTools resolves tool nodes wired into the "tools" port. A capability
// tool node references a registered descriptor by name; any other node kind
// may declare the descriptor inline.
func (n *agentNode) graphTools(ctx context.Context, ec *ExecContext) []capability.Descriptor {
	var tools []capability.Descriptor
	for _, conn := range ec.Workspace.ConnectionsInto(n.def.Id, "tools") {
		toolNode := ec.Workspace.NodeById(conn.From)
		if toolNode == nil {
			continue
		}
		if name := cfgString(*toolNode, "capability"); name != "" {
			desc, err := ec.Deps.Capabilities.Get(ctx, ec.Workspace.Id, name)
			if err != nil {
				logger.Warn("tool node references unknown capability",
					zap.String("nodeId", toolNode.Id), zap.String("capability", name))
				continue
			}
			tools = append(tools, *desc)
			continue
		}
		if name := cfgString(*toolNode, "name"); name != "" {
			tools = append(tools, capability.Descriptor{
				Name:        name,
				Description: cfgString(*toolNode, "description"),
				Parameters:  cfgMap(*toolNode, "parameters"),
				Kind:        "http",
				URL:         cfgString(*toolNode, "url"),
				Method:      cfgString(*toolNode, "method"),
			})
		}
	}
	return tools
}

func (n *agentNode) memoryScope(ec *ExecContext) (model.MemoryScope, string) {
	scope := model.MemoryScope(cfgString(n.def, "memoryScope"))
	switch scope {
	case model.MEMORY_SCOPE_WORKSPACE:
		return scope, ec.Workspace.Id
	case model.MEMORY_SCOPE_SESSION:
		return scope, ec.Session.SessionId
	case model.MEMORY_SCOPE_USER:
	default:
		scope = model.MEMORY_SCOPE_USER
	}
	key := ec.ChannelCtx.ContactId
	if key == "" {
		key = ec.Session.SessionId
	}
	return scope, key
}
