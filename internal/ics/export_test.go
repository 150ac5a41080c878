package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
)

func TestExport(t *testing.T) {
	until := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{
			ID:          "gym",
			Title:       "Gym",
			Description: "leg day",
			Category:    "health",
			StartTime:   time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC),
			EndTime:     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			Recurrence: &model.Recurrence{
				Type:       model.FrequencyWeekly,
				Interval:   1,
				DaysOfWeek: []int{1, 4},
				EndDate:    &until,
			},
		},
		{
			ID:        "dentist",
			Title:     "Dentist",
			StartTime: time.Date(2024, 1, 12, 15, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2024, 1, 12, 15, 30, 0, 0, time.UTC),
		},
	}

	out, err := Export(events, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "RRULE:")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))

	parsed, err := ParseICS(Source{ID: "self"}, []byte(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	gym := parsed[0]
	assert.Equal(t, "self:gym", gym.ID)
	assert.Equal(t, "Gym", gym.Title)
	assert.Equal(t, "leg day", gym.Description)
	assert.Equal(t, "health", gym.Category)
	assert.True(t, gym.StartTime.Equal(events[0].StartTime))
	assert.True(t, gym.EndTime.Equal(events[0].EndTime))
	require.NotNil(t, gym.Recurrence)
	assert.Equal(t, model.FrequencyWeekly, gym.Recurrence.Type)
	assert.Equal(t, []int{1, 4}, gym.Recurrence.DaysOfWeek)
	require.NotNil(t, gym.Recurrence.EndDate)
	assert.True(t, gym.Recurrence.EndDate.Equal(until))

	assert.Nil(t, parsed[1].Recurrence)
	assert.Equal(t, 30*time.Minute, parsed[1].Duration())
}

func TestExport_InvalidRule(t *testing.T) {
	_, err := Export([]model.Event{{
		ID:         "bad",
		Title:      "Bad",
		Recurrence: &model.Recurrence{Type: model.FrequencyWeekly, DaysOfWeek: []int{9}},
	}}, time.Time{})
	assert.Error(t, err)
}
