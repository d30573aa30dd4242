package scoring

import "time"

// Window is an inclusive range of calendar dates. Start and End are
// midnight UTC values carrying only the date.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateOf truncates t to its calendar date as seen in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EvaluationWindow ends on the date of asOf in loc and starts days earlier.
func EvaluationWindow(asOf time.Time, loc *time.Location, days int) Window {
	if loc == nil {
		loc = time.UTC
	}
	end := DateOf(asOf.In(loc))
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// TrailingSpan is the order lookback ending on end, independent of the
// evaluation window start.
func TrailingSpan(end time.Time, days int) Window {
	end = DateOf(end)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}
