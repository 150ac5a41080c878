// Package store persists events in SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventcal/internal/model"
)

// ErrNotFound is returned when an event ID is unknown.
var ErrNotFound = model.ErrNotFound

// eventRecord is the persisted row. Field names mirror model.Event.
type eventRecord struct {
	ID          string            `gorm:"primaryKey"`
	Title       string            `gorm:"not null"`
	Description string
	StartTime   time.Time         `gorm:"index"`
	EndTime     time.Time
	Category    string            `gorm:"index"`
	Recurrence  *model.Recurrence `gorm:"serializer:json"`
	CreatedAt   time.Time         `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime:false"`
}

func (eventRecord) TableName() string {
	return "events"
}

func toRecord(ev model.Event) eventRecord {
	return eventRecord{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		Category:    ev.Category,
		Recurrence:  ev.Recurrence,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

func (r eventRecord) toModel() model.Event {
	return model.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Category:    r.Category,
		Recurrence:  r.Recurrence,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Store handles CRUD for events.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all events in insertion order.
func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	var records []eventRecord
	if err := s.db.WithContext(ctx).Order("rowid").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]model.Event, 0, len(records))
	for _, r := range records {
		events = append(events, r.toModel())
	}
	return events, nil
}

// Get looks an event up by ID. A missing event is mo.None, not an error.
func (s *Store) Get(ctx context.Context, id string) (mo.Option[model.Event], error) {
	var r eventRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mo.None[model.Event](), nil
	}
	if err != nil {
		return mo.None[model.Event](), fmt.Errorf("get event %s: %w", id, err)
	}
	return mo.Some(r.toModel()), nil
}

// Create stores a new event. An empty ID is replaced with a random UUID.
func (s *Store) Create(ctx context.Context, ev model.Event) (model.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := s.now()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	rec := toRecord(ev)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return rec.toModel(), nil
}

// Update loads the event, applies fn and saves the result in one
// transaction. ID and CreatedAt cannot be changed by fn.
func (s *Store) Update(ctx context.Context, id string, fn func(*model.Event) error) (model.Event, error) {
	var out model.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r eventRecord
		if err := tx.Where("id = ?", id).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		ev := r.toModel()
		if err := fn(&ev); err != nil {
			return err
		}
		ev.ID = r.ID
		ev.CreatedAt = r.CreatedAt
		ev.UpdatedAt = s.now()

		rec := toRecord(ev)
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		out = rec.toModel()
		return nil
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("update event %s: %w", id, err)
	}
	return out, nil
}

// Delete removes an event by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&eventRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete event %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete event %s: %w", id, ErrNotFound)
	}
	return nil
}

// Upsert inserts or replaces an event with a caller-chosen ID, keeping the
// original CreatedAt on replace. Used by subscription imports.
func (s *Store) Upsert(ctx context.Context, ev model.Event) (model.Event, error) {
	if ev.ID == "" {
		return model.Event{}, errors.New("upsert event: empty id")
	}
	now := s.now()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	rec := toRecord(ev)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "start_time", "end_time", "category", "recurrence", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return model.Event{}, fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}

	var saved eventRecord
	if err := s.db.WithContext(ctx).Where("id = ?", ev.ID).First(&saved).Error; err != nil {
		return model.Event{}, fmt.Errorf("reload event %s: %w", ev.ID, err)
	}
	return saved.toModel(), nil
}

// DeleteStale removes events whose ID starts with prefix and is not listed
// in keep. It returns the number of removed events.
func (s *Store) DeleteStale(ctx context.Context, prefix string, keep []string) (int64, error) {
	// substr counts characters, not bytes.
	q := s.db.WithContext(ctx).Where("substr(id, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	res := q.Delete(&eventRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete stale events %s*: %w", prefix, res.Error)
	}
	return res.RowsAffected, nil
}
