package node

import (
	"context"
	"time"

	"github.com/fafadexs1/chatflow/model"
)

// timeNow is swapped by tests.
var timeNow = time.Now

// timeOfDayNode branches "true" while the wall clock is inside a
// start/end window. Windows may wrap past midnight (22:00 to 06:00).
// Malformed bounds resolve to "false".
type timeOfDayNode struct {
	def model.Node
}

func newTimeOfDayNode(def model.Node) Node {
	return &timeOfDayNode{def: def}
}

func (n *timeOfDayNode) Execute(ctx context.Context, ec *ExecContext) (Transition, error) {
	start, okStart := parseClock(cfgString(n.def, "startTime"))
	end, okEnd := parseClock(cfgString(n.def, "endTime"))
	if !okStart || !okEnd {
		return Transition{Handle: "false"}, nil
	}
	now := timeNow()
	minute := now.Hour()*60 + now.Minute()

	inside := false
	if start <= end {
		inside = minute >= start && minute < end
	} else {
		// window wraps midnight
		inside = minute >= start || minute < end
	}
	if inside {
		return Transition{Handle: "true"}, nil
	}
	return Transition{Handle: "false"}, nil
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
