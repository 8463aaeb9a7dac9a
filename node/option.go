package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

// optionNode prompts with a numbered choice list and suspends. The resolved
// choices are recorded on the session so ingestion can match the reply by
// index or by case-insensitive text.
type optionNode struct {
	def model.Node
}

func newOptionNode(def model.Node) Node {
	return &optionNode{def: def}
}

func (n *optionNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	choices := n.resolveChoices(ec.Vars())

	var b strings.Builder
	prompt := util.Substitute(cfgString(n.def, "prompt"), ec.Vars())
	if prompt != "" {
		b.WriteString(prompt)
	}
	for i, choice := range choices {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, choice)
	}
	if b.Len() > 0 {
		if err := ec.Send(ctx, b.String()); err != nil {
			return Transition{}, err
		}
	}
	return Transition{Await: &Await{
		Type:     model.AWAITING_OPTION,
		Variable: cfgString(n.def, "variable"),
		Options:  choices,
	}}, nil
}

// resolveChoices expands either a static list or a variable holding one.
func (n *optionNode) resolveChoices(vars model.Variables) []string {
	var choices []string
	for _, v := range cfgSlice(n.def, "options") {
		choices = append(choices, util.Stringify(v))
	}
	if len(choices) > 0 {
		return choices
	}
	source := cfgString(n.def, "optionsVariable")
	if source == "" {
		return nil
	}
	raw, ok := vars.Get(strings.TrimPrefix(source, "$."))
	if !ok {
		return nil
	}
	if list, ok := raw.([]any); ok {
		for _, v := range list {
			choices = append(choices, util.Stringify(v))
		}
	}
	return choices
}
