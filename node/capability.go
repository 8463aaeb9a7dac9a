package node

import (
	"context"

	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
	"go.uber.org/zap"
)

// capabilityNode executes a named workspace capability with substituted
// input and records the result. Execution failures are captured into the
// output variable like api-call failures.
type capabilityNode struct {
	def model.Node
}

func newCapabilityNode(def model.Node) Node {
	return &capabilityNode{def: def}
}

func (n *capabilityNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	outputVar := cfgString(n.def, "outputVariable")
	if outputVar == "" {
		outputVar = "capabilityResult"
	}

	name := cfgString(n.def, "capability")
	desc, err := ec.Deps.Capabilities.Get(ctx, ec.Workspace.Id, name)
	if err != nil {
		ec.Vars().Set(outputVar, map[string]any{"error": err.Error()})
		return Transition{Handle: "default"}, nil
	}

	input := util.ResolveParams(cfgMap(n.def, "input"), ec.Vars())
	result, err := ec.Deps.CapExecutor.Execute(ctx, *desc, input)
	if err != nil {
		logger.Error("capability execution failed", zap.String("nodeId", n.def.Id),
			zap.String("capability", name), zap.Error(err))
		ec.Vars().Set(outputVar, map[string]any{"error": err.Error()})
		return Transition{Handle: "default"}, nil
	}
	ec.Vars().Set(outputVar, result)
	return Transition{Handle: "default"}, nil
}
