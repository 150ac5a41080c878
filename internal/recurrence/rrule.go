package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"eventcal/internal/model"
)

// ErrUnsupportedRule is returned by FromRRule for RRULEs that have no
// equivalent recurrence type.
var ErrUnsupportedRule = errors.New("unsupported RRULE")

// rrule weekdays indexed by Go's time.Weekday (0 = Sunday).
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ToRRule renders rec as an RFC 5545 RRULE value (without the "RRULE:"
// prefix). A disabled rule renders as "".
//
// UNTIL is inclusive in RFC 5545 while EndDate is exclusive, so UNTIL is
// written one second before EndDate.
func ToRRule(rec *model.Recurrence, dtstart time.Time) (string, error) {
	if !rec.Enabled() {
		return "", nil
	}

	opt := rrule.ROption{
		Dtstart:  dtstart,
		Interval: 1,
	}

	switch rec.Type {
	case model.FrequencyDaily:
		opt.Freq = rrule.DAILY
	case model.FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range rec.DaysOfWeek {
			if d < 0 || d > 6 {
				return "", fmt.Errorf("weekday %d out of range", d)
			}
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case model.FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
	case model.FrequencyYearly:
		opt.Freq = rrule.YEARLY
	case model.FrequencyCustom:
		if rec.Interval < 1 {
			return "", fmt.Errorf("custom interval %d must be positive", rec.Interval)
		}
		opt.Interval = rec.Interval
		switch rec.CustomUnit {
		case model.UnitWeeks:
			opt.Freq = rrule.WEEKLY
		case model.UnitMonths:
			opt.Freq = rrule.MONTHLY
		case model.UnitYears:
			opt.Freq = rrule.YEARLY
		default:
			opt.Freq = rrule.DAILY
		}
	default:
		return "", fmt.Errorf("%w: frequency %q", ErrUnsupportedRule, rec.Type)
	}

	if rec.EndDate != nil {
		opt.Until = rec.EndDate.Add(-time.Second)
	}

	// NewRRule validates the option set.
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("build RRULE: %w", err)
	}
	return opt.RRuleString(), nil
}

// FromRRule maps an RRULE value onto a recurrence. dtstart is only needed to
// turn a COUNT into an end date.
//
// BYMONTHDAY, BYSETPOS and similar refinements, sub-daily frequencies and
// BYDAY combined with an interval above one are rejected with
// ErrUnsupportedRule.
func FromRRule(value string, dtstart time.Time) (*model.Recurrence, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "RRULE:")
	if value == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedRule)
	}

	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", value, err)
	}

	if len(opt.Bymonthday) > 0 || len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 ||
		len(opt.Byweekno) > 0 || len(opt.Bymonth) > 0 || len(opt.Byhour) > 0 ||
		len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, value)
	}

	interval := opt.Interval
	if interval < 1 {
		interval = 1
	}

	rec := &model.Recurrence{Interval: interval}
	switch opt.Freq {
	case rrule.DAILY:
		rec.Type, rec.CustomUnit = namedOrCustom(interval, model.FrequencyDaily, model.UnitDays)
	case rrule.WEEKLY:
		if len(opt.Byweekday) > 0 && interval > 1 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, value)
		}
		rec.Type, rec.CustomUnit = namedOrCustom(interval, model.FrequencyWeekly, model.UnitWeeks)
		for i := range opt.Byweekday {
			if opt.Byweekday[i].N() != 0 {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, value)
			}
			// rrule weekdays count from Monday.
			rec.DaysOfWeek = append(rec.DaysOfWeek, (opt.Byweekday[i].Day()+1)%7)
		}
	case rrule.MONTHLY:
		if len(opt.Byweekday) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, value)
		}
		rec.Type, rec.CustomUnit = namedOrCustom(interval, model.FrequencyMonthly, model.UnitMonths)
	case rrule.YEARLY:
		if len(opt.Byweekday) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, value)
		}
		rec.Type, rec.CustomUnit = namedOrCustom(interval, model.FrequencyYearly, model.UnitYears)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, value)
	}

	switch {
	case !opt.Until.IsZero():
		end := opt.Until.Add(time.Second)
		rec.EndDate = &end
	case opt.Count > 0:
		end, err := countToEndDate(*opt, dtstart)
		if err != nil {
			return nil, err
		}
		rec.EndDate = &end
	}

	return rec, nil
}

// StartOffWeekdays reports whether a weekly rule with weekdays starts on a
// day outside them. RFC 5545 does not count such a DTSTART as an instance,
// while the stored event keeps it as the base.
func StartOffWeekdays(rec *model.Recurrence, dtstart time.Time) bool {
	if !rec.Enabled() || rec.Type != model.FrequencyWeekly || len(rec.DaysOfWeek) == 0 {
		return false
	}
	return !slices.Contains(rec.DaysOfWeek, int(dtstart.Weekday()))
}

func namedOrCustom(interval int, named model.Frequency, unit model.CustomUnit) (model.Frequency, model.CustomUnit) {
	if interval == 1 {
		return named, ""
	}
	return model.FrequencyCustom, unit
}

// countToEndDate walks the rule to its last instance and returns the instant
// just after it.
func countToEndDate(opt rrule.ROption, dtstart time.Time) (time.Time, error) {
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("build RRULE: %w", err)
	}

	var last time.Time
	next := r.Iterator()
	for v, ok := next(); ok; v, ok = next() {
		last = v
	}
	if last.IsZero() {
		last = dtstart
	}
	return last.Add(time.Second), nil
}
