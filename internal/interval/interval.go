// Package interval implements the overlap test used for conflict detection.
//
// Both ends of an interval are inclusive: an interval ending at 11:00
// overlaps one starting at 11:00. Intervals with End before Start are not
// rejected; they simply contain no instant.
package interval

import "time"

// Interval is a closed time range [Start, End].
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether Start <= t <= End.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Overlaps reports whether any endpoint of either interval lies within the
// other one.
func Overlaps(a, b Interval) bool {
	return b.Contains(a.Start) ||
		b.Contains(a.End) ||
		a.Contains(b.Start) ||
		a.Contains(b.End)
}
