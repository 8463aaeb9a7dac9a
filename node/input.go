package node

import (
	"context"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

var awaitTypeByNode = map[string]model.AwaitingInputType{
	"input":        model.AWAITING_TEXT,
	"date-input":   model.AWAITING_DATE,
	"file-upload":  model.AWAITING_FILE,
	"rating-input": model.AWAITING_RATING,
}

// inputNode covers the prompt-and-suspend family: input, date-input,
// file-upload and rating-input all send a prompt, then wait for the next
// inbound message to bind the reply to a variable.
type inputNode struct {
	def model.Node
}

func newInputNode(def model.Node) Node {
	return &inputNode{def: def}
}

func (n *inputNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	prompt := util.Substitute(cfgString(n.def, "prompt"), ec.Vars())
	if prompt != "" {
		if err := ec.Send(ctx, prompt); err != nil {
			return Transition{}, err
		}
	}
	awaitType, ok := awaitTypeByNode[n.def.Type]
	if !ok {
		awaitType = model.AWAITING_TEXT
	}
	return Transition{Await: &Await{
		Type:     awaitType,
		Variable: cfgString(n.def, "variable"),
	}}, nil
}
