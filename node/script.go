package node

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/model"
	"go.uber.org/zap"
)

const scriptTimeout = 5 * time.Second

// scriptNode runs user-supplied code against a deep-copied snapshot of the
// variable bag inside a goja sandbox. The VM is interrupted on a hard
// wall-clock timeout; failures become an error object in the output
// variable instead of aborting the flow.
type scriptNode struct {
	def model.Node
}

func newScriptNode(def model.Node) Node {
	return &scriptNode{def: def}
}

func (n *scriptNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	outputVar := cfgString(n.def, "outputVariable")
	if outputVar == "" {
		outputVar = "scriptResult"
	}

	result, err := n.run(cfgString(n.def, "script"), ec.Vars())
	if err != nil {
		logger.Error("script execution failed", zap.String("nodeId", n.def.Id), zap.Error(err))
		ec.Vars().Set(outputVar, map[string]any{"error": err.Error()})
		return Transition{Handle: "default"}, nil
	}
	ec.Vars().Set(outputVar, result)
	return Transition{Handle: "default"}, nil
}

func (n *scriptNode) run(script string, vars model.Variables) (result any, err error) {
	snapshot, err := json.Marshal(vars.DeepCopy())
	if err != nil {
		return nil, fmt.Errorf("snapshot variables: %w", err)
	}

	vm := goja.New()
	timer := time.AfterFunc(scriptTimeout, func() {
		vm.Interrupt("script timed out")
	})
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panic: %v", r)
		}
	}()

	if _, err := vm.RunString(fmt.Sprintf("var $ = %s;", snapshot)); err != nil {
		return nil, fmt.Errorf("seed variables: %w", err)
	}
	value, err := vm.RunString(script)
	if err != nil {
		if _, ok := err.(*goja.InterruptedError); ok {
			return nil, fmt.Errorf("script timed out after %s", scriptTimeout)
		}
		return nil, err
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	// round trip through JSON so the result stays in the variable bag's
	// value domain
	exported, err := json.Marshal(value.Export())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(exported, &out); err != nil {
		return nil, err
	}
	return out, nil
}
