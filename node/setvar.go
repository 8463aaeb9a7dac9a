package node

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

type setVariableNode struct {
	def model.Node
}

func newSetVariableNode(def model.Node) Node {
	return &setVariableNode{def: def}
}

func (n *setVariableNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	name := cfgString(n.def, "variable")
	if name == "" {
		return Transition{Handle: "default"}, nil
	}
	value := util.ResolveValue(cfgString(n.def, "value"), ec.Vars())
	ec.Vars().Set(name, value)
	return Transition{Handle: "default"}, nil
}
