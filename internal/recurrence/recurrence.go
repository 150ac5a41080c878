// Package recurrence materializes the instances of recurring events that fall
// inside a visible window.
//
// Expansion is deterministic: every instant comes from the arguments, the
// clock is never read, and re-running with the same input yields the same
// occurrences in the same order.
package recurrence

import (
	"slices"
	"time"

	"eventcal/internal/model"
)

const (
	// MaxInstances bounds the number of candidates stepped through per
	// event, whether or not they land in the window.
	MaxInstances = 100

	// HorizonPadding is added to the window end to get the cutoff for
	// rules without an end date, and to stop stepping once the cursor has
	// run that far past the window.
	HorizonPadding = 365 * 24 * time.Hour
)

// OccurrenceIDLayout formats the start instant (in UTC) that is appended to
// the base event ID.
const OccurrenceIDLayout = "2006-01-02T15:04:05.000Z"

// OccurrenceID derives the ID of the instance of base starting at start.
func OccurrenceID(baseID string, start time.Time) string {
	return baseID + "-" + start.UTC().Format(OccurrenceIDLayout)
}

// Expand returns the instances of ev strictly inside (windowStart,
// windowEnd), excluding ev itself. Events without an enabled rule yield
// nothing.
func Expand(ev model.Event, windowStart, windowEnd time.Time) []model.Event {
	rule := ev.Recurrence
	if !rule.Enabled() {
		return nil
	}
	step, ok := stepperFor(rule)
	if !ok {
		return nil
	}

	duration := ev.Duration()
	horizon := windowEnd.Add(HorizonPadding)
	cutoff := horizon
	if rule.EndDate != nil {
		cutoff = *rule.EndDate
	}

	var out []model.Event
	cursor := ev.StartTime
	for n := 0; cursor.Before(cutoff) && n < MaxInstances; n++ {
		next := step(cursor)
		if !next.After(cursor) {
			// Zero or negative step (interval <= 0, out-of-range weekdays).
			break
		}

		if next.After(windowStart) && next.Before(windowEnd) &&
			(rule.EndDate == nil || next.Before(*rule.EndDate)) {
			out = append(out, occurrence(ev, next, duration))
		}

		cursor = next
		if cursor.After(horizon) {
			break
		}
	}
	return out
}

func occurrence(base model.Event, start time.Time, duration time.Duration) model.Event {
	occ := base
	occ.ID = OccurrenceID(base.ID, start)
	occ.StartTime = start
	occ.EndTime = start.Add(duration)
	return occ
}

// stepper advances a cursor to the next candidate instant.
type stepper func(time.Time) time.Time

// stepperFor picks the step function for the rule's frequency once per
// expansion.
func stepperFor(rule *model.Recurrence) (stepper, bool) {
	switch rule.Type {
	case model.FrequencyDaily:
		return func(t time.Time) time.Time { return addDays(t, 1) }, true
	case model.FrequencyWeekly:
		if len(rule.DaysOfWeek) > 0 {
			days := slices.Clone(rule.DaysOfWeek)
			slices.Sort(days)
			return func(t time.Time) time.Time { return nextWeekday(t, days) }, true
		}
		return func(t time.Time) time.Time { return addDays(t, 7) }, true
	case model.FrequencyMonthly:
		return func(t time.Time) time.Time { return addMonths(t, 1) }, true
	case model.FrequencyYearly:
		return func(t time.Time) time.Time { return addMonths(t, 12) }, true
	case model.FrequencyCustom:
		n := rule.Interval
		switch rule.CustomUnit {
		case model.UnitWeeks:
			return func(t time.Time) time.Time { return addDays(t, 7*n) }, true
		case model.UnitMonths:
			return func(t time.Time) time.Time { return addMonths(t, n) }, true
		case model.UnitYears:
			return func(t time.Time) time.Time { return addMonths(t, 12*n) }, true
		default:
			return func(t time.Time) time.Time { return addDays(t, n) }, true
		}
	default:
		return nil, false
	}
}

// nextWeekday moves to the first day in sorted that comes after t's weekday
// in the same week, or wraps to sorted[0] of the following week.
func nextWeekday(t time.Time, sorted []int) time.Time {
	current := int(t.Weekday())
	for _, d := range sorted {
		if d > current {
			return addDays(t, d-current)
		}
	}
	return addDays(t, 7-current+sorted[0])
}

// addDays moves by calendar days, keeping the wall-clock time in t's
// location.
func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// addMonths moves by calendar months. When the target month is shorter than
// t's day of month the result is clamped to its last day, so Jan 31 + 1
// month is the last day of February.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	target := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
