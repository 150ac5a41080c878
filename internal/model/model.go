package model

import (
	"errors"
	"time"

	"eventcal/internal/interval"
)

// ErrNotFound is returned for unknown event IDs.
var ErrNotFound = errors.New("event not found")

// Frequency is the tag of a recurrence rule.
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyCustom  Frequency = "custom"
)

// CustomUnit is the step unit of a custom recurrence.
type CustomUnit string

const (
	UnitDays   CustomUnit = "days"
	UnitWeeks  CustomUnit = "weeks"
	UnitMonths CustomUnit = "months"
	UnitYears  CustomUnit = "years"
)

// Recurrence describes how a base event repeats.
type Recurrence struct {
	Type Frequency `json:"type"`

	// Interval is the step multiplier for FrequencyCustom. The named
	// frequencies always step by one unit.
	Interval int `json:"interval"`

	// DaysOfWeek holds weekday indices (0 = Sunday ... 6 = Saturday).
	// Only FrequencyWeekly looks at it.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`

	// EndDate, if set, is the first instant at which no more instances
	// are generated.
	EndDate *time.Time `json:"endDate,omitempty"`

	// CustomUnit is only meaningful for FrequencyCustom. Empty means days.
	CustomUnit CustomUnit `json:"customUnit,omitempty"`
}

// Enabled reports whether the rule produces any instances at all.
func (r *Recurrence) Enabled() bool {
	return r != nil && r.Type != "" && r.Type != FrequencyNone
}

// Event is a stored calendar event. Occurrences of a recurring event use
// the same type with a derived ID and shifted start/end.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     time.Time   `json:"endTime"`
	Category    string      `json:"category,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Interval returns the [StartTime, EndTime] span of the event.
func (e Event) Interval() interval.Interval {
	return interval.Interval{Start: e.StartTime, End: e.EndTime}
}

// Duration is EndTime - StartTime.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// IsRecurring reports whether the event carries an enabled recurrence rule.
func (e Event) IsRecurring() bool {
	return e.Recurrence.Enabled()
}

// In returns a copy of e with its instants, including the recurrence end
// date, converted to loc. Recurrence steps happen in the event's location,
// so callers convert stored UTC times before expanding.
func (e Event) In(loc *time.Location) Event {
	e.StartTime = e.StartTime.In(loc)
	e.EndTime = e.EndTime.In(loc)
	if e.Recurrence != nil {
		rec := *e.Recurrence
		if rec.EndDate != nil {
			end := rec.EndDate.In(loc)
			rec.EndDate = &end
		}
		e.Recurrence = &rec
	}
	return e
}
