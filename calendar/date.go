package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates in overrides and the API.
const DateLayout = "2006-01-02"

// =============================================================================
// CALENDAR DATES - Midnight UTC, no time-of-day component
// =============================================================================

// NewDate returns the calendar date year-month-day as midnight UTC.
// Out-of-range days normalise the way time.Date does.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf strips the time-of-day from t, keeping the calendar date as read
// in t's own location.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// SameDay reports whether a and b fall on the same calendar date, each
// read in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddDays moves a calendar date by n days.
func AddDays(d time.Time, n int) time.Time { return d.AddDate(0, 0, n) }

// DaysBetween counts whole calendar days from a to b (negative if b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(d time.Time) string { return d.Format(DateLayout) }

// ParseDate parses a YYYY-MM-DD string into a midnight-UTC date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}
