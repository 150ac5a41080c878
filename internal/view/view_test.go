package view

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

func ev(id, title, desc, category string, day int) model.Event {
	return model.Event{
		ID:          id,
		Title:       title,
		Description: desc,
		Category:    category,
		StartTime:   time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC),
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestProject(t *testing.T) {
	gym := ev("gym", "Gym", "leg day", "health", 2)
	gym.Recurrence = &model.Recurrence{Type: model.FrequencyWeekly}
	stored := []model.Event{
		gym,
		ev("review", "Quarterly Review", "", "work", 2),
		ev("dinner", "Dinner", "with Ärzte team", "", 20),
	}
	w := recurrence.MonthWindow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	p := Project(stored, w, Filter{})
	assert.Equal(t, 7, p.Total)
	assert.Len(t, p.Events, 7)
	assert.Equal(t, []string{"health", "work"}, p.Categories)
	assert.Equal(t, map[string]bool{"gym": true, "review": true}, p.Conflicting)
	assert.Equal(t, w, p.Window)

	p = Project(stored, w, Filter{Category: strPtr("health")})
	assert.Equal(t, 7, p.Total)
	assert.Len(t, p.Events, 5)
	for _, e := range p.Events {
		assert.Equal(t, "health", e.Category)
	}

	p = Project(stored, w, Filter{Search: "REVIEW"})
	assert.Equal(t, []string{"review"}, ids(p.Events))

	p = Project(stored, w, Filter{Search: "ärzte"})
	assert.Equal(t, []string{"dinner"}, ids(p.Events), "description matches, case folded")

	p = Project(stored, w, Filter{Search: "leg", Category: strPtr("work")})
	assert.Empty(t, p.Events)
}

func TestCategories(t *testing.T) {
	got := Categories([]model.Event{
		ev("1", "a", "", "work", 1),
		ev("2", "b", "", "", 1),
		ev("3", "c", "", "home", 1),
		ev("4", "d", "", "work", 1),
	})
	assert.Equal(t, []string{"work", "home"}, got)
	assert.Empty(t, Categories(nil))
}

func TestSuggest(t *testing.T) {
	events := []model.Event{
		ev("late-desc", "Lunch", "plan the team offsite", "", 20),
		ev("cat", "Call", "", "teamwork", 3),
		ev("late-title", "Team sync", "", "", 15),
		ev("early-title", "TEAM retro", "", "", 5),
		ev("none", "Gym", "", "health", 1),
	}

	got := Suggest(events, "team")
	require.Len(t, got, 4)
	assert.Equal(t, "early-title", got[0].Event.ID)
	assert.Equal(t, MatchTitle, got[0].MatchType)
	assert.Equal(t, "late-title", got[1].Event.ID)
	assert.Equal(t, "cat", got[2].Event.ID)
	assert.Equal(t, MatchCategory, got[2].MatchType)
	assert.Equal(t, "teamwork", got[2].MatchText)
	assert.Equal(t, "late-desc", got[3].Event.ID)
	assert.Equal(t, MatchDescription, got[3].MatchType)

	assert.Nil(t, Suggest(events, "t"))
	assert.Nil(t, Suggest(events, ""))
}

func TestSuggest_Limit(t *testing.T) {
	var events []model.Event
	for i := 1; i <= 12; i++ {
		events = append(events, ev(fmt.Sprint(i), "Standup", "", "", i))
	}
	got := Suggest(events, "stand")
	assert.Len(t, got, MaxSuggestions)
	assert.Equal(t, "1", got[0].Event.ID)
}

func TestSortByStart(t *testing.T) {
	events := []model.Event{ev("c", "", "", "", 9), ev("a", "", "", "", 1), ev("b", "", "", "", 1)}
	SortByStart(events)
	assert.Equal(t, []string{"a", "b", "c"}, ids(events))
}
