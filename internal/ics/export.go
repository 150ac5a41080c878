package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// ProductID is the PRODID of exported feeds.
const ProductID = "-//eventcal//eventcal//EN"

// Export renders stored events as a VCALENDAR, one VEVENT per base event.
// Occurrences are not written; recurring events carry an RRULE instead.
// stamp is written as DTSTAMP.
func Export(events []model.Event, stamp time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.StartTime)
		ve.SetEndAt(ev.EndTime)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Category != "" {
			ve.AddProperty(ical.ComponentPropertyCategories, ev.Category)
		}
		if !ev.CreatedAt.IsZero() {
			ve.SetCreatedTime(ev.CreatedAt)
		}
		if !ev.UpdatedAt.IsZero() {
			ve.SetModifiedAt(ev.UpdatedAt)
		}

		rule, err := recurrence.ToRRule(ev.Recurrence, ev.StartTime)
		if err != nil {
			return "", fmt.Errorf("export %s: %w", ev.ID, err)
		}
		if rule != "" {
			ve.AddRrule(rule)
		}
	}
	return cal.Serialize(), nil
}
