package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceEnabled(t *testing.T) {
	var nilRule *Recurrence
	assert.False(t, nilRule.Enabled())
	assert.False(t, (&Recurrence{}).Enabled())
	assert.False(t, (&Recurrence{Type: FrequencyNone}).Enabled())
	assert.True(t, (&Recurrence{Type: FrequencyDaily}).Enabled())
}

func TestEventIn(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	rec := &Recurrence{Type: FrequencyDaily, EndDate: &end}
	ev := Event{
		ID:         "a",
		StartTime:  time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC),
		Recurrence: rec,
	}

	got := ev.In(loc)
	assert.Equal(t, loc, got.StartTime.Location())
	assert.Equal(t, 2, got.StartTime.Day())
	assert.True(t, got.StartTime.Equal(ev.StartTime))
	assert.Equal(t, time.Hour, got.Duration())
	require.NotNil(t, got.Recurrence.EndDate)
	assert.Equal(t, loc, got.Recurrence.EndDate.Location())

	assert.Equal(t, time.UTC, ev.Recurrence.EndDate.Location(), "original untouched")
}
