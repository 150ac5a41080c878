// Package calendar applies validation and the conflict policy around the
// event store. It is the only caller of the conflict detector that decides
// whether a save goes through.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"eventcal/internal/config"
	"eventcal/internal/conflict"
	"eventcal/internal/interval"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

// Source is the read side of the event collection.
type Source interface {
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (mo.Option[model.Event], error)
}

// Repository is the event collection the service writes to.
type Repository interface {
	Source
	Create(ctx context.Context, ev model.Event) (model.Event, error)
	Update(ctx context.Context, id string, fn func(*model.Event) error) (model.Event, error)
	Delete(ctx context.Context, id string) error
}

// Input carries the editable fields of an event.
type Input struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	Category    string            `json:"category,omitempty"`
	Recurrence  *model.Recurrence `json:"recurrence,omitempty"`
}

func (in Input) interval() interval.Interval {
	return interval.Interval{Start: in.StartTime, End: in.EndTime}
}

// apply copies the input onto ev. A "none" rule is stored as no rule.
func (in Input) apply(ev *model.Event) {
	ev.Title = strings.TrimSpace(in.Title)
	ev.Description = in.Description
	ev.StartTime = in.StartTime
	ev.EndTime = in.EndTime
	ev.Category = strings.TrimSpace(in.Category)
	ev.Recurrence = nil
	if in.Recurrence.Enabled() {
		rec := *in.Recurrence
		if rec.Interval < 1 {
			rec.Interval = 1
		}
		ev.Recurrence = &rec
	}
}

// SaveResult is the saved event plus the conflicts that were accepted.
type SaveResult struct {
	Event     model.Event   `json:"event"`
	Conflicts []model.Event `json:"conflicts"`
}

// Service creates, edits, moves and deletes events.
type Service struct {
	repo   Repository
	policy string
}

// NewService builds a Service. policy is config.ConflictWarn or
// config.ConflictBlock; anything else behaves as warn.
func NewService(repo Repository, policy string) *Service {
	return &Service{repo: repo, policy: policy}
}

func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (model.Event, error) {
	opt, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	ev, ok := opt.Get()
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ev, nil
}

// CheckConflicts returns the stored events that overlap candidate,
// skipping excludeID.
func (s *Service) CheckConflicts(ctx context.Context, candidate interval.Interval, excludeID string) ([]model.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return conflict.FindConflicts(candidate, events, excludeID), nil
}

// AllConflicts returns every stored event that overlaps at least one other.
func (s *Service) AllConflicts(ctx context.Context) ([]model.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return conflict.FindAllConflictingPairs(events), nil
}

// Create validates and stores a new event.
func (s *Service) Create(ctx context.Context, in Input, force bool) (SaveResult, error) {
	if err := Validate(in); err != nil {
		return SaveResult{}, err
	}

	conflicts, err := s.gate(ctx, in.interval(), "", force)
	if err != nil {
		return SaveResult{}, err
	}

	var ev model.Event
	in.apply(&ev)
	saved, err := s.repo.Create(ctx, ev)
	if err != nil {
		return SaveResult{}, err
	}

	appLog.Info("event created", "id", saved.ID, "conflicts", len(conflicts))
	return SaveResult{Event: saved, Conflicts: conflicts}, nil
}

// Update replaces the editable fields of an existing event.
func (s *Service) Update(ctx context.Context, id string, in Input, force bool) (SaveResult, error) {
	if err := Validate(in); err != nil {
		return SaveResult{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return SaveResult{}, err
	}

	conflicts, err := s.gate(ctx, in.interval(), id, force)
	if err != nil {
		return SaveResult{}, err
	}

	saved, err := s.repo.Update(ctx, id, func(ev *model.Event) error {
		in.apply(ev)
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}

	appLog.Info("event updated", "id", id, "conflicts", len(conflicts))
	return SaveResult{Event: saved, Conflicts: conflicts}, nil
}

// Move shifts an event to day, keeping its hour and minute of day and its
// duration.
func (s *Service) Move(ctx context.Context, id string, day time.Time, force bool) (SaveResult, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}

	start := MovedStart(ev.StartTime, day)
	end := start.Add(ev.Duration())

	conflicts, err := s.gate(ctx, interval.Interval{Start: start, End: end}, id, force)
	if err != nil {
		return SaveResult{}, err
	}

	saved, err := s.repo.Update(ctx, id, func(ev *model.Event) error {
		ev.StartTime = start
		ev.EndTime = end
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}

	appLog.Info("event moved", "id", id, "start", start.Format(time.RFC3339), "conflicts", len(conflicts))
	return SaveResult{Event: saved, Conflicts: conflicts}, nil
}

// MovedStart puts original's hour and minute on day's date, in day's
// location. Seconds are dropped.
func MovedStart(original, day time.Time) time.Time {
	orig := original.In(day.Location())
	y, m, d := day.Date()
	return time.Date(y, m, d, orig.Hour(), orig.Minute(), 0, 0, day.Location())
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	appLog.Info("event deleted", "id", id)
	return nil
}

// gate runs the conflict check and applies the policy.
func (s *Service) gate(ctx context.Context, candidate interval.Interval, excludeID string, force bool) ([]model.Event, error) {
	conflicts, err := s.CheckConflicts(ctx, candidate, excludeID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 && s.policy == config.ConflictBlock && !force {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	return conflicts, nil
}

// IsNotFound reports whether err means the event does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
