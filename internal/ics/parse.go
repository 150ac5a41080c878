package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// untitled is the title of VEVENTs without a SUMMARY.
const untitled = "(untitled)"

// EventID is the store ID of an event imported from src.
func EventID(src Source, uid string) string {
	return IDPrefix(src) + uid
}

// IDPrefix is shared by every event imported from src.
func IDPrefix(src Source) string {
	return src.ID + ":"
}

// ParseICS parses an ICS payload into events owned by src.
//
// Overridden instances (RECURRENCE-ID) and cancelled events are skipped.
// RRULEs that have no recurrence equivalent are dropped with a warning and
// the event is kept as a single event. A VEVENT that cannot be read is
// logged and skipped; only an unreadable calendar is an error.
func ParseICS(src Source, body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar %s: %w", src.ID, err)
	}

	seen := make(map[string]struct{})
	events := make([]model.Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		if ve.GetProperty("RECURRENCE-ID") != nil {
			appLog.Debug("ics override skipped", "source", src.ID, "uid", propValue(ve, ical.ComponentPropertyUniqueId))
			continue
		}
		if strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "CANCELLED") {
			continue
		}

		ev, err := parseVEvent(src, ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", "source", src.ID, "error", err.Error())
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		events = append(events, ev)
	}

	appLog.Debug("ics parsed", "source", src.ID, "events", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (model.Event, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return model.Event{}, errors.New("missing UID")
	}

	allDay := isAllDay(ve)
	getStart, getEnd := ve.GetStartAt, ve.GetEndAt
	if allDay {
		getStart, getEnd = ve.GetAllDayStartAt, ve.GetAllDayEndAt
	}

	start, err := getStart()
	if err != nil {
		return model.Event{}, fmt.Errorf("uid %s: DTSTART: %w", uid, err)
	}
	end, err := getEnd()
	if err != nil {
		end = start
		if allDay {
			end = start.AddDate(0, 0, 1)
		}
	}

	ev := model.Event{
		ID:          EventID(src, uid),
		Title:       strings.TrimSpace(propValue(ve, ical.ComponentPropertySummary)),
		Description: propValue(ve, ical.ComponentPropertyDescription),
		StartTime:   start,
		EndTime:     end,
		Category:    src.Category,
	}
	if ev.Title == "" {
		ev.Title = untitled
	}
	if ev.Category == "" {
		ev.Category = firstCategory(propValue(ve, ical.ComponentPropertyCategories))
	}

	if raw := propValue(ve, ical.ComponentPropertyRrule); raw != "" {
		rec, err := recurrence.FromRRule(raw, start)
		if err != nil {
			appLog.Warn("ics rrule not supported, importing single event", "source", src.ID, "uid", uid, "rrule", raw, "error", err.Error())
		} else {
			ev.Recurrence = rec
			if recurrence.StartOffWeekdays(rec, start) {
				appLog.Warn("ics rrule starts outside its weekdays, keeping start as an instance", "source", src.ID, "uid", uid, "rrule", raw)
			}
		}
	}
	return ev, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// isAllDay reports whether DTSTART is a DATE rather than a DATE-TIME.
func isAllDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if vs := prop.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

func firstCategory(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
