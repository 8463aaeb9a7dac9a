package node

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

type messageNode struct {
	def model.Node
}

func newMessageNode(def model.Node) Node {
	return &messageNode{def: def}
}

func (n *messageNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	text := util.Substitute(cfgString(n.def, "text"), ec.Vars())
	if text == "" {
		return Transition{Handle: "default"}, nil
	}
	// A failed send aborts the iteration. The user never saw this message,
	// so pretending the flow moved past it would desynchronize the dialog.
	if err := ec.Send(ctx, text); err != nil {
		return Transition{}, err
	}
	return Transition{Handle: "default"}, nil
}
