// Package condition implements the Condition Evaluator (spec §4.5): a pure
// function over a point-in-time Context that decides whether a recursively
// tagged Condition tree is currently true.
package condition

import "time"

// Kind tags the variant of a Condition node.
type Kind int

const (
	Always Kind = iota
	Never
	TimeRange
	DayOfWeek
	AppRunning
	AppFrontmost
	ModeIs
	And
	Or
	Not
)

// Condition is a node in the recursively tagged condition tree (spec §3).
type Condition struct {
	Kind Kind

	// TimeRange fields, "HH:MM" local time.
	Start, End string

	// DayOfWeek: 1=Monday .. 7=Sunday.
	Days []int

	// AppRunning / AppFrontmost / ModeIs.
	Name string

	// And / Or / Not.
	Children []Condition
	Inner    *Condition
}

// Context is the point-in-time state the evaluator consults.
type Context struct {
	Now          time.Time
	CurrentMode  string
	FrontmostApp string
	RunningApps  []string
}

// Eval decides whether c holds under ctx.
func Eval(c Condition, ctx Context) bool {
	switch c.Kind {
	case Always:
		return true
	case Never:
		return false
	case TimeRange:
		return evalTimeRange(c.Start, c.End, ctx.Now)
	case DayOfWeek:
		return evalDayOfWeek(c.Days, ctx.Now)
	case AppRunning:
		for _, a := range ctx.RunningApps {
			if a == c.Name {
				return true
			}
		}
		return false
	case AppFrontmost:
		return ctx.FrontmostApp == c.Name
	case ModeIs:
		return ctx.CurrentMode == c.Name
	case And:
		for _, child := range c.Children {
			if !Eval(child, ctx) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range c.Children {
			if Eval(child, ctx) {
				return true
			}
		}
		return false
	case Not:
		if c.Inner == nil {
			return true
		}
		return !Eval(*c.Inner, ctx)
	default:
		return false
	}
}

// evalTimeRange accepts "HH:MM" in local time and wraps around midnight: if
// end < start, "in range" means now >= start OR now <= end (spec §4.5).
func evalTimeRange(start, end string, now time.Time) bool {
	s, errS := time.ParseInLocation("15:04", start, now.Location())
	e, errE := time.ParseInLocation("15:04", end, now.Location())
	if errS != nil || errE != nil {
		return false
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	startMinutes := s.Hour()*60 + s.Minute()
	endMinutes := e.Hour()*60 + e.Minute()

	if endMinutes < startMinutes {
		return nowMinutes >= startMinutes || nowMinutes <= endMinutes
	}
	return nowMinutes >= startMinutes && nowMinutes <= endMinutes
}

// evalDayOfWeek uses Monday=1..Sunday=7 (spec §4.5/§8).
func evalDayOfWeek(days []int, now time.Time) bool {
	wd := int(now.Weekday())
	if wd == 0 {
		wd = 7 // time.Sunday == 0; remap to ISO-8601 Sunday=7
	}
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}
