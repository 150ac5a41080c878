package recurrence

import (
	"time"

	"eventcal/internal/model"
)

// Window is a visible date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow spans the calendar month containing t, from its first instant
// to its last nanosecond, in t's location.
func MonthWindow(t time.Time) Window {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// GridWindow pads the month containing t to whole weeks starting on
// weekStart, as laid out by a month grid.
func GridWindow(t time.Time, weekStart time.Weekday) Window {
	month := MonthWindow(t)

	lead := (7 + int(month.Start.Weekday()) - int(weekStart)) % 7
	start := month.Start.AddDate(0, 0, -lead)

	y, m, d := month.End.Date()
	lastDay := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	trail := (7 + int(weekStart) + 6 - int(lastDay.Weekday())) % 7
	end := lastDay.AddDate(0, 0, trail+1).Add(-time.Nanosecond)

	return Window{Start: start, End: end}
}

// ExpandAll returns each event followed by its instances inside w. Base
// events are always included, whether or not they fall inside w.
func ExpandAll(events []model.Event, w Window) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, ev)
		if ev.IsRecurring() {
			out = append(out, Expand(ev, w.Start, w.End)...)
		}
	}
	return out
}
