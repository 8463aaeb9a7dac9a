package node

import (
	"context"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
	"go.uber.org/zap"
)

type logConsoleNode struct {
	def model.Node
}

func newLogConsoleNode(def model.Node) Node {
	return &logConsoleNode{def: def}
}

func (n *logConsoleNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	message := util.Substitute(cfgString(n.def, "message"), ec.Vars())
	logger.Info("flow log", zap.String("sessionId", ec.Session.SessionId),
		zap.String("nodeId", n.def.Id), zap.String("message", message))
	return Transition{Handle: "default"}, nil
}
