package calendar

import (
	"strings"

	"eventcal/internal/model"
)

// Validate checks an input the way the event form does. The core packages
// accept anything; this is where bad input is turned away.
func Validate(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if in.StartTime.IsZero() {
		return &ValidationError{Field: "startTime", Message: "is required"}
	}
	if in.EndTime.IsZero() {
		return &ValidationError{Field: "endTime", Message: "is required"}
	}
	if in.EndTime.Before(in.StartTime) {
		return &ValidationError{Field: "endTime", Message: "must not be before startTime"}
	}
	return validateRecurrence(in)
}

func validateRecurrence(in Input) error {
	rec := in.Recurrence
	if !rec.Enabled() {
		return nil
	}

	switch rec.Type {
	case model.FrequencyDaily, model.FrequencyMonthly, model.FrequencyYearly:
	case model.FrequencyWeekly:
		for _, d := range rec.DaysOfWeek {
			if d < 0 || d > 6 {
				return &ValidationError{Field: "recurrence.daysOfWeek", Message: "weekdays must be between 0 and 6"}
			}
		}
	case model.FrequencyCustom:
		if rec.Interval < 1 {
			return &ValidationError{Field: "recurrence.interval", Message: "must be at least 1"}
		}
		switch rec.CustomUnit {
		case "", model.UnitDays, model.UnitWeeks, model.UnitMonths, model.UnitYears:
		default:
			return &ValidationError{Field: "recurrence.customUnit", Message: "unknown unit " + string(rec.CustomUnit)}
		}
	default:
		return &ValidationError{Field: "recurrence.type", Message: "unknown type " + string(rec.Type)}
	}

	if rec.EndDate != nil && rec.EndDate.Before(in.StartTime) {
		return &ValidationError{Field: "recurrence.endDate", Message: "must not be before startTime"}
	}
	return nil
}
