package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "events.db"))
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(db, WithClock(clock.now)), clock
}

func sampleEvent(title string, day int) model.Event {
	return model.Event{
		Title:       title,
		Description: "notes for " + title,
		StartTime:   time.Date(2024, 2, day, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 2, day, 10, 0, 0, 0, time.UTC),
		Category:    "work",
	}
}

func TestStore_CreateGetList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first := sampleEvent("first", 5)
	first.Recurrence = &model.Recurrence{
		Type:       model.FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []int{1, 3},
		EndDate:    &end,
	}

	created, err := s.Create(ctx, first)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	second, err := s.Create(ctx, sampleEvent("second", 3))
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	ev, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, "first", ev.Title)
	assert.True(t, ev.StartTime.Equal(first.StartTime))
	require.NotNil(t, ev.Recurrence)
	assert.Equal(t, model.FrequencyWeekly, ev.Recurrence.Type)
	assert.Equal(t, []int{1, 3}, ev.Recurrence.DaysOfWeek)
	require.NotNil(t, ev.Recurrence.EndDate)
	assert.True(t, end.Equal(*ev.Recurrence.EndDate))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID, "insertion order, not start order")
	assert.Equal(t, second.ID, list[1].ID)
	assert.Nil(t, list[1].Recurrence)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestStore_Update(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleEvent("draft", 5))
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, func(ev *model.Event) error {
		ev.Title = "final"
		ev.ID = "hijack"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = s.Update(ctx, "missing", func(*model.Event) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))

	boom := errors.New("boom")
	_, err = s.Update(ctx, created.ID, func(*model.Event) error { return boom })
	assert.True(t, errors.Is(err, boom))
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleEvent("gone", 5))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	assert.True(t, errors.Is(s.Delete(ctx, created.ID), ErrNotFound))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_UpsertAndDeleteStale(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := sampleEvent("a", 1)
	a.ID = "feed:a"
	b := sampleEvent("b", 2)
	b.ID = "feed:b"
	local, err := s.Create(ctx, sampleEvent("local", 3))
	require.NoError(t, err)

	firstA, err := s.Upsert(ctx, a)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, b)
	require.NoError(t, err)

	a.Title = "a renamed"
	againA, err := s.Upsert(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "a renamed", againA.Title)
	assert.True(t, firstA.CreatedAt.Equal(againA.CreatedAt), "created_at survives replace")

	removed, err := s.DeleteStale(ctx, "feed:", []string{"feed:a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err := s.List(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, ev := range list {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{local.ID, "feed:a"}, ids)

	removed, err = s.DeleteStale(ctx, "feed:", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = s.Upsert(ctx, sampleEvent("no id", 4))
	assert.Error(t, err)
}

func TestStore_DeleteStaleNonASCIIPrefix(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"휴일:a", "휴일:b", "휴일2:c"} {
		ev := sampleEvent(id, i+1)
		ev.ID = id
		_, err := s.Upsert(ctx, ev)
		require.NoError(t, err)
	}

	removed, err := s.DeleteStale(ctx, "휴일:", []string{"휴일:a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err := s.List(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, ev := range list {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"휴일:a", "휴일2:c"}, ids)
}
