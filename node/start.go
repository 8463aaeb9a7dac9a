package node

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
)

// startNode advances through the trigger handle seeded at ingestion time.
// The handle is consumed so a loop back through start re-evaluates nothing.
type startNode struct {
	def model.Node
}

func newStartNode(def model.Node) Node {
	return &startNode{def: def}
}

func (n *startNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	handle := ec.Vars().GetString(model.VarTriggerHandle)
	ec.Vars().Delete(model.VarTriggerHandle)
	if handle == "" {
		handle = "default"
	}
	return Transition{Handle: handle}, nil
}
