package node

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

// switchNode scans declared cases for an exact match on the evaluated
// expression. The matching case value doubles as the branch handle; no
// match follows "otherwise" so the flow never stalls on an unlisted value.
type switchNode struct {
	def model.Node
}

func newSwitchNode(def model.Node) Node {
	return &switchNode{def: def}
}

func (n *switchNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	value := util.Substitute(cfgString(n.def, "expression"), ec.Vars())
	for _, c := range cfgSlice(n.def, "cases") {
		caseValue := util.Stringify(c)
		if value == caseValue {
			return Transition{Handle: caseValue}, nil
		}
	}
	return Transition{Handle: "otherwise"}, nil
}
