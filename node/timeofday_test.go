package node

import (
	"context"
	"testing"
	"time"

	"github.com/fafadexs1/chatflow/model"
	"github.com/stretchr/testify/require"
)

func atClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
	}
}

func runTimeOfDay(t *testing.T, start, end string, now func() time.Time) string {
	orig := timeNow
	timeNow = now
	defer func() { timeNow = orig }()

	n := newTimeOfDayNode(model.Node{Id: "t1", Type: "time-of-day", Config: map[string]any{
		"startTime": start,
		"endTime":   end,
	}})
	tr, err := n.Execute(context.Background(), execCtx(model.Variables{}))
	require.NoError(t, err)
	return tr.Handle
}

func TestTimeOfDayNode(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test inside window":             testTodInside,
		"test outside window":            testTodOutside,
		"test window wrap past midnight": testTodWrap,
		"test malformed bounds":          testTodMalformed,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testTodInside(t *testing.T) {
	require.Equal(t, "true", runTimeOfDay(t, "09:00", "18:00", atClock(12, 30)))
}

func testTodOutside(t *testing.T) {
	require.Equal(t, "false", runTimeOfDay(t, "09:00", "18:00", atClock(20, 0)))
}

func testTodWrap(t *testing.T) {
	require.Equal(t, "true", runTimeOfDay(t, "22:00", "06:00", atClock(23, 15)))
	require.Equal(t, "true", runTimeOfDay(t, "22:00", "06:00", atClock(3, 0)))
	require.Equal(t, "false", runTimeOfDay(t, "22:00", "06:00", atClock(12, 0)))
}

func testTodMalformed(t *testing.T) {
	require.Equal(t, "false", runTimeOfDay(t, "25:99", "06:00", atClock(3, 0)))
	require.Equal(t, "false", runTimeOfDay(t, "", "", atClock(3, 0)))
}
