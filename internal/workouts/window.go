package workouts

import "time"

// Window is a closed time range; a zero End means no upper bound.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(ts time.Time) bool {
	if ts.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && ts.After(w.End) {
		return false
	}
	return true
}

// EffectiveWindow is the time range activity counts toward an
// assignment: its own start/due bounds where set, the fallback bounds
// where not.
func (a Assignment) EffectiveWindow(fallback Window) Window {
	w := fallback
	if a.StartAt != nil {
		w.Start = *a.StartAt
	}
	if a.DueAt != nil {
		w.End = *a.DueAt
	}
	return w
}
