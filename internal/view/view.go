// Package view combines expanded occurrences with the text and category
// filters and the conflict flags shown by a month view.
package view

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"eventcal/internal/conflict"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// MaxSuggestions caps the number of search suggestions.
const MaxSuggestions = 8

// minSuggestLen is the shortest term that produces suggestions.
const minSuggestLen = 2

// Filter narrows the projected events. A nil Category matches everything.
type Filter struct {
	Search   string
	Category *string
}

// Projection is what a month view renders.
type Projection struct {
	Window recurrence.Window
	// Events holds base events and their occurrences after filtering.
	Events []model.Event
	// Total counts events before filtering.
	Total int
	// Categories lists the distinct non-empty categories of the stored
	// events in first-seen order.
	Categories []string
	// Conflicting holds IDs of stored events overlapping another one.
	Conflicting map[string]bool
}

// Project expands stored events over w and applies f.
func Project(stored []model.Event, w recurrence.Window, f Filter) Projection {
	all := recurrence.ExpandAll(stored, w)

	m := newMatcher(f.Search)
	filtered := make([]model.Event, 0, len(all))
	for _, ev := range all {
		if !m.matches(ev) {
			continue
		}
		if f.Category != nil && ev.Category != *f.Category {
			continue
		}
		filtered = append(filtered, ev)
	}

	return Projection{
		Window:      w,
		Events:      filtered,
		Total:       len(all),
		Categories:  Categories(stored),
		Conflicting: conflict.IDs(conflict.FindAllConflictingPairs(stored)),
	}
}

// Categories returns the distinct non-empty categories in first-seen order.
func Categories(events []model.Event) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, ev := range events {
		if ev.Category == "" {
			continue
		}
		if _, ok := seen[ev.Category]; ok {
			continue
		}
		seen[ev.Category] = struct{}{}
		out = append(out, ev.Category)
	}
	return out
}

// MatchType tells which field a suggestion matched on.
type MatchType string

const (
	MatchTitle       MatchType = "title"
	MatchDescription MatchType = "description"
	MatchCategory    MatchType = "category"
)

// Suggestion is one search-box entry.
type Suggestion struct {
	Event     model.Event `json:"event"`
	MatchType MatchType   `json:"matchType"`
	MatchText string      `json:"matchText"`
}

// Suggest returns up to MaxSuggestions events matching term: title matches
// first, then the rest, each ordered by start time.
func Suggest(events []model.Event, term string) []Suggestion {
	if utf8.RuneCountInString(term) < minSuggestLen {
		return nil
	}

	m := newMatcher(term)
	var out []Suggestion
	for _, ev := range events {
		switch {
		case m.contains(ev.Title):
			out = append(out, Suggestion{Event: ev, MatchType: MatchTitle, MatchText: ev.Title})
		case m.contains(ev.Description):
			out = append(out, Suggestion{Event: ev, MatchType: MatchDescription, MatchText: ev.Description})
		case m.contains(ev.Category):
			out = append(out, Suggestion{Event: ev, MatchType: MatchCategory, MatchText: ev.Category})
		}
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		aTitle, bTitle := a.MatchType == MatchTitle, b.MatchType == MatchTitle
		if aTitle != bTitle {
			if aTitle {
				return -1
			}
			return 1
		}
		return a.Event.StartTime.Compare(b.Event.StartTime)
	})

	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// matcher does case-insensitive substring matching.
type matcher struct {
	fold   cases.Caser
	needle string
}

func newMatcher(term string) matcher {
	fold := cases.Fold()
	return matcher{fold: fold, needle: fold.String(term)}
}

func (m matcher) contains(s string) bool {
	if m.needle == "" || s == "" {
		return false
	}
	return strings.Contains(m.fold.String(s), m.needle)
}

// matches reports whether ev passes the search box: an empty term matches
// everything, otherwise the title or description must contain it.
func (m matcher) matches(ev model.Event) bool {
	if m.needle == "" {
		return true
	}
	return m.contains(ev.Title) || m.contains(ev.Description)
}

// SortByStart orders events by start time, keeping input order for ties.
func SortByStart(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return a.StartTime.Compare(b.StartTime)
	})
}
