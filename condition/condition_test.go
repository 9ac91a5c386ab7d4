package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvalSimpleKinds(t *testing.T) {
	ctx := Context{CurrentMode: "performance", FrontmostApp: "Ableton", RunningApps: []string{"Ableton", "OBS"}}

	assert.True(t, Eval(Condition{Kind: Always}, ctx))
	assert.False(t, Eval(Condition{Kind: Never}, ctx))
	assert.True(t, Eval(Condition{Kind: ModeIs, Name: "performance"}, ctx))
	assert.False(t, Eval(Condition{Kind: ModeIs, Name: "idle"}, ctx))
	assert.True(t, Eval(Condition{Kind: AppFrontmost, Name: "Ableton"}, ctx))
	assert.True(t, Eval(Condition{Kind: AppRunning, Name: "OBS"}, ctx))
	assert.False(t, Eval(Condition{Kind: AppRunning, Name: "Chrome"}, ctx))
}

func TestEvalTimeRangeWraparound(t *testing.T) {
	ctx := Context{Now: time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)}
	c := Condition{Kind: TimeRange, Start: "22:00", End: "02:00"}
	assert.True(t, Eval(c, ctx))

	ctx.Now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.False(t, Eval(c, ctx))

	ctx.Now = time.Date(2026, 1, 1, 1, 30, 0, 0, time.UTC)
	assert.True(t, Eval(c, ctx))
}

func TestEvalTimeRangeSameDay(t *testing.T) {
	c := Condition{Kind: TimeRange, Start: "09:00", End: "17:00"}
	assert.True(t, Eval(c, Context{Now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}))
	assert.False(t, Eval(c, Context{Now: time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)}))
}

func TestEvalDayOfWeekISORemap(t *testing.T) {
	c := Condition{Kind: DayOfWeek, Days: []int{7}}
	sunday := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Sunday, sunday.Weekday())
	assert.True(t, Eval(c, Context{Now: sunday}))

	monday := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	assert.False(t, Eval(c, Context{Now: monday}))
}

func TestEvalBooleanComposition(t *testing.T) {
	ctx := Context{CurrentMode: "performance"}
	and := Condition{Kind: And, Children: []Condition{
		{Kind: ModeIs, Name: "performance"},
		{Kind: Always},
	}}
	assert.True(t, Eval(and, ctx))

	or := Condition{Kind: Or, Children: []Condition{
		{Kind: Never},
		{Kind: ModeIs, Name: "performance"},
	}}
	assert.True(t, Eval(or, ctx))

	notTrue := Condition{Kind: Always}
	not := Condition{Kind: Not, Inner: &notTrue}
	assert.False(t, Eval(not, ctx))
}
