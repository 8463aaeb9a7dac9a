package node

import (
	"context"
	"time"

	"github.com/fafadexs1/chatflow/model"
)

const maxDelay = 30 * time.Second

type delayNode struct {
	def model.Node
}

func newDelayNode(def model.Node) Node {
	return &delayNode{def: def}
}

func (n *delayNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	seconds, _ := cfgFloat(n.def, "seconds")
	d := time.Duration(seconds * float64(time.Second))
	if d > maxDelay {
		d = maxDelay
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Transition{}, ctx.Err()
		}
	}
	return Transition{Handle: "default"}, nil
}
