package calendar

import (
	"sort"
	"strings"
	"time"
)

// Source records where a resolved holiday came from.
type Source string

const (
	SourceRule     Source = "rule"
	SourceOverride Source = "override"
)

// Holiday is a resolved public holiday for one state and year.
// Code and Note are empty for override entries.
type Holiday struct {
	Name   string
	Date   time.Time
	Code   string
	Note   string
	Source Source
}

// DateString returns the holiday date as YYYY-MM-DD.
func (h Holiday) DateString() string { return FormatDate(h.Date) }

// NormalizeState upper-cases and trims a state code.
func NormalizeState(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// sortHolidays orders by date; entries sharing a date keep their input order.
func sortHolidays(hs []Holiday) {
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Date.Before(hs[j].Date) })
}

func cloneHolidays(hs []Holiday) []Holiday {
	out := make([]Holiday, len(hs))
	copy(out, hs)
	return out
}
