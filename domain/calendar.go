package domain

import "time"

// Quarter is one three-month window of an intervention's date span.
type Quarter struct {
	Index int // 1-based ordinal within the span
	Start time.Time
	End   time.Time
}

// QuartersInRange splits the inclusive date span (start, end) into consecutive
// three-month windows beginning at start. The last window is truncated at end.
// An empty or inverted span yields no quarters.
func QuartersInRange(start, end time.Time) []Quarter {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}

	var quarters []Quarter
	qStart := BeginningOfDay(start)
	end = BeginningOfDay(end)
	for i := 1; !qStart.After(end); i++ {
		qEnd := qStart.AddDate(0, 3, -1)
		if qEnd.After(end) {
			qEnd = end
		}
		quarters = append(quarters, Quarter{Index: i, Start: qStart, End: qEnd})
		qStart = qStart.AddDate(0, 3, 0)
	}
	return quarters
}

// SameDate reports whether two times fall on the same calendar date, ignoring clock time.
func SameDate(a, b time.Time) bool {
	return BeginningOfDay(a).Equal(BeginningOfDay(b))
}
