package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in messages.
const DateLayout = "2006-01-02"

// Period lifecycle actions recorded in period events.
const (
	PeriodActionClose  = "CLOSE"
	PeriodActionReopen = "REOPEN"
)

// ErrInvalidPeriodTransition indicates status change not allowed.
var ErrInvalidPeriodTransition = fmt.Errorf("period transition invalid: %w", ErrInvalidStatus)

// ValidatePeriodTransition checks an action against the current lock state.
func ValidatePeriodTransition(closed bool, action string) error {
	switch action {
	case PeriodActionClose:
		if !closed {
			return nil
		}
	case PeriodActionReopen:
		if closed {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is empty")
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
