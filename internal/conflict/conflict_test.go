package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"eventcal/internal/interval"
	"eventcal/internal/model"
)

func event(id string, startHour, endHour int) model.Event {
	return model.Event{
		ID:        id,
		Title:     id,
		StartTime: time.Date(2024, 3, 4, startHour, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 4, endHour, 0, 0, 0, time.UTC),
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

func TestFindConflicts(t *testing.T) {
	events := []model.Event{
		event("a", 8, 9),
		event("b", 9, 10),
		event("c", 12, 13),
		event("d", 10, 11),
	}
	candidate := interval.Interval{
		Start: time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}

	// d starts exactly when the candidate ends.
	assert.Equal(t, []string{"b", "d"}, ids(FindConflicts(candidate, events, "")))
	assert.Equal(t, []string{"d"}, ids(FindConflicts(candidate, events, "b")))
}

func TestFindConflicts_ExcludesSelf(t *testing.T) {
	self := event("self", 9, 10)
	events := []model.Event{self, event("other", 20, 21)}

	got := FindConflicts(self.Interval(), events, self.ID)
	assert.Empty(t, got)

	got = FindConflicts(self.Interval(), events, "")
	assert.Equal(t, []string{"self"}, ids(got))
}

func TestFindConflicts_EmptyCollection(t *testing.T) {
	assert.Empty(t, FindConflicts(event("x", 1, 2).Interval(), nil, ""))
}

func TestFindAllConflictingPairs(t *testing.T) {
	tests := []struct {
		name     string
		events   []model.Event
		expected []string
	}{
		{
			name:     "no conflicts",
			events:   []model.Event{event("a", 8, 9), event("b", 10, 11)},
			expected: nil,
		},
		{
			name:     "touching pair",
			events:   []model.Event{event("a", 10, 11), event("b", 11, 12)},
			expected: []string{"a", "b"},
		},
		{
			name: "event conflicting with three others appears once",
			events: []model.Event{
				event("big", 8, 18),
				event("x", 9, 10),
				event("y", 12, 13),
				event("z", 15, 16),
				event("lone", 20, 21),
			},
			expected: []string{"big", "x", "y", "z"},
		},
		{
			name: "insertion order follows first discovery",
			events: []model.Event{
				event("a", 1, 2),
				event("b", 5, 7),
				event("c", 6, 8),
				event("d", 2, 3),
			},
			expected: []string{"a", "d", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAllConflictingPairs(tt.events)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, ids(got))
		})
	}
}

func TestIDs(t *testing.T) {
	set := IDs([]model.Event{event("a", 1, 2), event("b", 2, 3)})
	assert.True(t, set["a"])
	assert.True(t, set["b"])
	assert.False(t, set["c"])
}
