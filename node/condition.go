package node

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/util"
)

// conditionNode compares a resolved variable against a substituted literal
// and branches "true" or "false".
type conditionNode struct {
	def model.Node
}

func newConditionNode(def model.Node) Node {
	return &conditionNode{def: def}
}

func (n *conditionNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	left := util.Stringify(util.ResolveValue(cfgString(n.def, "variable"), ec.Vars()))
	right := util.Substitute(cfgString(n.def, "value"), ec.Vars())
	op := cfgString(n.def, "operator")
	if evaluate(op, left, right) {
		return Transition{Handle: "true"}, nil
	}
	return Transition{Handle: "false"}, nil
}

func evaluate(op, left, right string) bool {
	switch op {
	case "equals", "==":
		return left == right
	case "notEquals", "!=":
		return left != right
	case "contains":
		return strings.Contains(left, right)
	case "notContains":
		return !strings.Contains(left, right)
	case "startsWith":
		return strings.HasPrefix(left, right)
	case "endsWith":
		return strings.HasSuffix(left, right)
	case "isEmpty":
		return strings.TrimSpace(left) == ""
	case "isNotEmpty":
		return strings.TrimSpace(left) != ""
	case "isTrue":
		return strings.EqualFold(left, "true")
	case "isFalse":
		return strings.EqualFold(left, "false")
	case "greaterThan", ">":
		return compareNumbers(left, right, func(a, b float64) bool { return a > b })
	case "greaterOrEqual", ">=":
		return compareNumbers(left, right, func(a, b float64) bool { return a >= b })
	case "lessThan", "<":
		return compareNumbers(left, right, func(a, b float64) bool { return a < b })
	case "lessOrEqual", "<=":
		return compareNumbers(left, right, func(a, b float64) bool { return a <= b })
	case "isDateBefore":
		return compareDates(left, right, func(a, b time.Time) bool { return a.Before(b) })
	case "isDateAfter":
		return compareDates(left, right, func(a, b time.Time) bool { return a.After(b) })
	}
	return false
}

func compareNumbers(left, right string, cmp func(a, b float64) bool) bool {
	a, errA := strconv.ParseFloat(strings.TrimSpace(left), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if errA != nil || errB != nil {
		return false
	}
	return cmp(a, b)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func compareDates(left, right string, cmp func(a, b time.Time) bool) bool {
	a, okA := parseDate(left)
	b, okB := parseDate(right)
	if !okA || !okB {
		return false
	}
	return cmp(a, b)
}
