package calendar

import (
	"fmt"

	"eventcal/internal/model"
)

// ErrNotFound is returned for unknown event IDs. It is the same sentinel
// the store returns.
var ErrNotFound = model.ErrNotFound

// ValidationError reports an input field the form layer must fix before the
// event can be saved.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError is returned when the block policy refuses a save that
// overlaps existing events.
type ConflictError struct {
	Conflicts []model.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("event conflicts with %d existing event(s)", len(e.Conflicts))
}
