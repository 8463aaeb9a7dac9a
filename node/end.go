package node

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

// endFlowNode optionally sends a goodbye message and terminates the run.
// The engine deletes the session on a terminal transition.
type endFlowNode struct {
	def model.Node
}

func newEndFlowNode(def model.Node) Node {
	return &endFlowNode{def: def}
}

func (n *endFlowNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	if text := util.Substitute(cfgString(n.def, "text"), ec.Vars()); text != "" {
		if err := ec.Send(ctx, text); err != nil {
			return Transition{}, err
		}
	}
	return Transition{Terminal: true}, nil
}
