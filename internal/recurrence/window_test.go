package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"eventcal/internal/model"
)

func TestMonthWindow(t *testing.T) {
	w := MonthWindow(utc(2024, 2, 17, 13, 45))

	assert.Equal(t, utc(2024, 2, 1, 0, 0), w.Start)
	assert.Equal(t, utc(2024, 3, 1, 0, 0).Add(-time.Nanosecond), w.End)
}

func TestGridWindow(t *testing.T) {
	// January 2024 starts on a Monday and ends on a Wednesday.
	jan := utc(2024, 1, 20, 0, 0)

	sunday := GridWindow(jan, time.Sunday)
	assert.Equal(t, utc(2023, 12, 31, 0, 0), sunday.Start)
	assert.Equal(t, utc(2024, 2, 4, 0, 0).Add(-time.Nanosecond), sunday.End)

	monday := GridWindow(jan, time.Monday)
	assert.Equal(t, utc(2024, 1, 1, 0, 0), monday.Start)
	assert.Equal(t, utc(2024, 2, 5, 0, 0).Add(-time.Nanosecond), monday.End)
}

func TestGridWindow_MonthEndingOnSaturday(t *testing.T) {
	// August 2024 ends on a Saturday.
	w := GridWindow(utc(2024, 8, 1, 0, 0), time.Sunday)
	assert.Equal(t, utc(2024, 7, 28, 0, 0), w.Start)
	assert.Equal(t, utc(2024, 9, 1, 0, 0).Add(-time.Nanosecond), w.End)
}

func TestExpandAll(t *testing.T) {
	single := model.Event{
		ID:        "single",
		Title:     "Dentist",
		StartTime: utc(2023, 11, 5, 14, 0),
		EndTime:   utc(2023, 11, 5, 15, 0),
	}
	weekly := model.Event{
		ID:         "weekly",
		Title:      "Review",
		StartTime:  utc(2024, 1, 1, 9, 0),
		EndTime:    utc(2024, 1, 1, 10, 0),
		Recurrence: &model.Recurrence{Type: model.FrequencyWeekly},
	}
	disabled := model.Event{
		ID:         "disabled",
		Title:      "Once",
		StartTime:  utc(2024, 1, 3, 9, 0),
		EndTime:    utc(2024, 1, 3, 10, 0),
		Recurrence: &model.Recurrence{Type: model.FrequencyNone},
	}

	got := ExpandAll([]model.Event{single, weekly, disabled}, MonthWindow(utc(2024, 1, 1, 0, 0)))

	ids := make([]string, 0, len(got))
	for _, ev := range got {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{
		"single",
		"weekly",
		"weekly-2024-01-08T09:00:00.000Z",
		"weekly-2024-01-15T09:00:00.000Z",
		"weekly-2024-01-22T09:00:00.000Z",
		"weekly-2024-01-29T09:00:00.000Z",
		"disabled",
	}, ids)
}
