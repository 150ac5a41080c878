// Package conflict finds stored events whose time spans overlap.
//
// Overlap uses interval.Overlaps, so back-to-back events (one ending exactly
// when the next starts) count as conflicting. Both functions are pure and
// never fail; callers decide what to do with the result.
package conflict

import (
	"eventcal/internal/interval"
	"eventcal/internal/model"
)

// FindConflicts returns every event overlapping candidate, in input order.
// The event whose ID equals excludeID is skipped; an empty excludeID skips
// nothing.
func FindConflicts(candidate interval.Interval, events []model.Event, excludeID string) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if excludeID != "" && ev.ID == excludeID {
			continue
		}
		if interval.Overlaps(candidate, ev.Interval()) {
			out = append(out, ev)
		}
	}
	return out
}

// FindAllConflictingPairs scans every pair (i < j) and returns each event
// involved in at least one overlap exactly once. Events appear in the order
// they were first found: event i, then the later events it conflicts with.
func FindAllConflictingPairs(events []model.Event) []model.Event {
	var out []model.Event
	seen := make(map[string]struct{})

	add := func(ev model.Event) {
		if _, ok := seen[ev.ID]; ok {
			return
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}

	for i := range events {
		span := events[i].Interval()
		var later []model.Event
		for j := i + 1; j < len(events); j++ {
			if interval.Overlaps(span, events[j].Interval()) {
				later = append(later, events[j])
			}
		}
		if len(later) == 0 {
			continue
		}
		add(events[i])
		for _, ev := range later {
			add(ev)
		}
	}
	return out
}

// IDs returns the IDs of events as a set, for quick flag lookups.
func IDs(events []model.Event) map[string]bool {
	ids := make(map[string]bool, len(events))
	for _, ev := range events {
		ids[ev.ID] = true
	}
	return ids
}
