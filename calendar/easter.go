package calendar

import "time"

// Easter returns Gregorian Easter Sunday for year, using the anonymous
// Gregorian computus with integer division throughout.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	g := (8*b + 13) / 25
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 19*l) / 433
	month := (h + l - 7*m + 90) / 25
	day := (h + l - 7*m + 33*month + 19) % 32
	return NewDate(year, time.Month(month), day)
}

// NthWeekday returns the n-th occurrence (1-based) of weekday in the given
// month. The result is not clamped: an ordinal past the last occurrence
// spills into the following month, and callers that care check Month().
func NthWeekday(year int, month time.Month, n int, weekday time.Weekday) time.Time {
	first := NewDate(year, month, 1)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return NewDate(year, month, 1+offset+(n-1)*7)
}

// ObservedDate shifts a weekend date to the following Monday
// (Saturday +2, Sunday +1). Weekdays are returned unchanged.
func ObservedDate(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return AddDays(d, 2)
	case time.Sunday:
		return AddDays(d, 1)
	}
	return d
}
