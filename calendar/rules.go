/*
rules.go - Declarative holiday rules per state

PURPOSE:
  A Rule describes how to compute one named holiday in any year. A RuleSet
  holds the rules for each state (TAS, NSW, VIC, ...). Rules are data: the
  same Easter-relative holiday is repeated per state rather than shared, so
  each jurisdiction stays independently editable.

RULE KINDS:
  fixed        Same month/day each year. With SubstituteOnWeekend, a
               Saturday moves to Monday (+2) and a Sunday to Monday (+1).
  nth_weekday  The n-th weekday of a month (e.g. 2nd Monday of June).
  easter       Easter Sunday plus a signed day offset (Good Friday = -2).

SEE ALSO:
  - easter.go: Easter, NthWeekday, ObservedDate
  - calculator.go: Turns a RuleSet plus overrides into holiday lists
  - factory/holidays.go: Builds a RuleSet from YAML/JSON
*/
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// RuleKind selects how a rule computes its date.
type RuleKind string

const (
	KindFixed          RuleKind = "fixed"
	KindNthWeekday     RuleKind = "nth_weekday"
	KindEasterRelative RuleKind = "easter"
)

// Rule describes one named holiday.
type Rule struct {
	Code string
	Name string
	Kind RuleKind

	// Fixed and NthWeekday
	Month time.Month

	// Fixed
	Day                 int
	SubstituteOnWeekend bool

	// NthWeekday
	WeekOrdinal int
	Weekday     time.Weekday

	// EasterRelative
	DayOffset int

	Note string
}

// Validate checks the fields required by the rule's kind.
func (r Rule) Validate(state string) error {
	fail := func(format string, args ...any) error {
		return &RuleError{State: state, Code: r.Code, Reason: fmt.Sprintf(format, args...)}
	}

	if r.Code == "" {
		return fail("code is required")
	}
	if r.Name == "" {
		return fail("name is required")
	}

	switch r.Kind {
	case KindFixed:
		if r.Month < time.January || r.Month > time.December {
			return fail("month %d out of range", r.Month)
		}
		// Feb 29 is allowed; non-leap years drop it.
		if r.Day < 1 || r.Day > daysIn(r.Month, 2024) {
			return fail("day %d out of range for %s", r.Day, r.Month)
		}
	case KindNthWeekday:
		if r.Month < time.January || r.Month > time.December {
			return fail("month %d out of range", r.Month)
		}
		if r.WeekOrdinal < 1 || r.WeekOrdinal > 5 {
			return fail("week ordinal %d out of range 1..5", r.WeekOrdinal)
		}
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return fail("weekday %d out of range 0..6", r.Weekday)
		}
	case KindEasterRelative:
		// Any offset is representable.
	default:
		return fail("unknown kind %q", r.Kind)
	}
	return nil
}

// DateIn computes the rule's date for year. easter is that year's Easter
// Sunday, passed in so a state's rules share one computation. The second
// return is false when the rule has no date that year (Feb 29 in a common
// year, or a 5th weekday the month does not have).
func (r Rule) DateIn(year int, easter time.Time) (time.Time, bool) {
	switch r.Kind {
	case KindFixed:
		d := NewDate(year, r.Month, r.Day)
		if d.Month() != r.Month {
			return time.Time{}, false
		}
		if r.SubstituteOnWeekend {
			d = ObservedDate(d)
		}
		return d, true
	case KindNthWeekday:
		d := NthWeekday(year, r.Month, r.WeekOrdinal, r.Weekday)
		if d.Month() != r.Month {
			return time.Time{}, false
		}
		return d, true
	case KindEasterRelative:
		return AddDays(easter, r.DayOffset), true
	}
	return time.Time{}, false
}

func daysIn(m time.Month, year int) int {
	return NewDate(year, m+1, 0).Day()
}

// =============================================================================
// STATE RULES
// =============================================================================

// StateRules is the ordered rule list for one state.
type StateRules struct {
	Code  string
	Name  string
	Rules []Rule
}

// RuleSet maps state codes to their rules. Immutable after construction.
type RuleSet struct {
	states map[string]StateRules
}

// NewRuleSet validates and indexes the given states.
func NewRuleSet(states ...StateRules) (*RuleSet, error) {
	rs := &RuleSet{states: make(map[string]StateRules, len(states))}
	for _, s := range states {
		code := NormalizeState(s.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: empty state code", ErrInvalidRule)
		}
		if _, dup := rs.states[code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateState, code)
		}

		seen := make(map[string]bool, len(s.Rules))
		for _, r := range s.Rules {
			if err := r.Validate(code); err != nil {
				return nil, err
			}
			if seen[r.Code] {
				return nil, &RuleError{State: code, Code: r.Code, Reason: "duplicate code"}
			}
			seen[r.Code] = true
		}

		rules := make([]Rule, len(s.Rules))
		copy(rules, s.Rules)
		rs.states[code] = StateRules{Code: code, Name: s.Name, Rules: rules}
	}
	return rs, nil
}

// State returns the rules for a state code.
func (rs *RuleSet) State(code string) (StateRules, bool) {
	if rs == nil {
		return StateRules{}, false
	}
	s, ok := rs.states[NormalizeState(code)]
	return s, ok
}

// States returns all configured state codes, sorted.
func (rs *RuleSet) States() []string {
	if rs == nil {
		return nil
	}
	codes := make([]string, 0, len(rs.states))
	for code := range rs.states {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Resolve computes the holidays for a state and year from rules alone,
// sorted by date. Unknown states yield nil.
func (rs *RuleSet) Resolve(state string, year int) []Holiday {
	s, ok := rs.State(state)
	if !ok {
		return nil
	}

	easter := Easter(year)
	holidays := make([]Holiday, 0, len(s.Rules))
	for _, r := range s.Rules {
		d, ok := r.DateIn(year, easter)
		if !ok {
			continue
		}
		holidays = append(holidays, Holiday{
			Name:   r.Name,
			Date:   d,
			Code:   r.Code,
			Note:   r.Note,
			Source: SourceRule,
		})
	}
	sortHolidays(holidays)
	return holidays
}
