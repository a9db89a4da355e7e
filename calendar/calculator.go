/*
calculator.go - Holiday calculator (rules + overrides + memo cache)

PURPOSE:
  Answers the holiday questions the pay engine and the API ask:
    HolidaysForYear   full sorted calendar for (state, year)
    IsPublicHoliday   is this calendar date a holiday in state?
    HolidayDetails    which holiday is it?
    Upcoming          next n holidays on or after a date

RESOLUTION:
  1. If an override list exists for (state, year) it is the calendar,
     verbatim apart from sorting by date. Rules are not consulted.
  2. Otherwise every rule for the state is evaluated and the results sorted.
  3. Unknown states resolve to an empty list, not an error.

  An empty state code means the calculator's default state.

CACHING:
  Results are memoised per (state, year) in an LRU. Each entry remembers
  the override version it was built from; an override edit bumps the
  version so the next lookup rebuilds that year. Invalidate() drops all.

CONCURRENCY:
  Safe for concurrent use. RuleSet is immutable, Overrides has its own lock
  and the LRU is internally synchronised.

SEE ALSO:
  - rules.go: Rule evaluation
  - overrides.go: Manual lists
  - pay/daytype.go: Classifier, the main consumer
*/
package calendar

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize holds a few years of every configured state.
const DefaultCacheSize = 64

// Config wires a Calculator.
type Config struct {
	Rules        *RuleSet
	Overrides    *Overrides
	DefaultState string
	CacheSize    int
}

// Calculator resolves holiday calendars.
type Calculator struct {
	rules        *RuleSet
	overrides    *Overrides
	defaultState string
	cache        *lru.Cache[cacheKey, cacheEntry]
}

type cacheKey struct {
	State string
	Year  int
}

type cacheEntry struct {
	version  uint64
	holidays []Holiday
}

// NewCalculator creates a calculator. Nil rules or overrides are treated as
// empty.
func NewCalculator(cfg Config) (*Calculator, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create holiday cache: %w", err)
	}

	rules := cfg.Rules
	if rules == nil {
		rules = &RuleSet{states: map[string]StateRules{}}
	}
	overrides := cfg.Overrides
	if overrides == nil {
		overrides = NewOverrides()
	}

	return &Calculator{
		rules:        rules,
		overrides:    overrides,
		defaultState: NormalizeState(cfg.DefaultState),
		cache:        cache,
	}, nil
}

func (c *Calculator) DefaultState() string { return c.defaultState }
func (c *Calculator) Rules() *RuleSet { return c.rules }
func (c *Calculator) Overrides() *Overrides { return c.overrides }

func (c *Calculator) state(code string) string {
	if s := NormalizeState(code); s != "" {
		return s
	}
	return c.defaultState
}

// KnownState reports whether state has rules or any override. Callers use it
// to warn about jurisdictions that will never see a holiday.
func (c *Calculator) KnownState(state string) bool {
	state = c.state(state)
	if _, ok := c.rules.State(state); ok {
		return true
	}
	return c.overrides.HasState(state)
}

// =============================================================================
// LOOKUPS
// =============================================================================

// HolidaysForYear returns the sorted calendar for (state, year). The only
// error is a malformed override date.
func (c *Calculator) HolidaysForYear(state string, year int) ([]Holiday, error) {
	state = c.state(state)
	key := cacheKey{State: state, Year: year}

	// Read the version before resolving: a concurrent edit then leaves a
	// stale version on the entry, never stale data under a fresh version.
	version := c.overrides.Version()
	if entry, ok := c.cache.Get(key); ok && entry.version == version {
		return cloneHolidays(entry.holidays), nil
	}

	holidays, overridden, err := c.overrides.resolve(state, year)
	if err != nil {
		return nil, err
	}
	if !overridden {
		holidays = c.rules.Resolve(state, year)
	}
	if holidays == nil {
		holidays = []Holiday{}
	}

	c.cache.Add(key, cacheEntry{version: version, holidays: holidays})
	return cloneHolidays(holidays), nil
}

// IsPublicHoliday compares calendar dates only; date is read in its own
// location, so callers convert to the venue's zone first.
func (c *Calculator) IsPublicHoliday(date time.Time, state string) (bool, error) {
	h, err := c.HolidayDetails(date, state)
	if err != nil {
		return false, err
	}
	return h != nil, nil
}

// HolidayDetails returns the first holiday on date, or nil.
func (c *Calculator) HolidayDetails(date time.Time, state string) (*Holiday, error) {
	holidays, err := c.HolidaysForYear(state, date.Year())
	if err != nil {
		return nil, err
	}
	for i := range holidays {
		if SameDay(holidays[i].Date, date) {
			h := holidays[i]
			return &h, nil
		}
	}
	return nil, nil
}

// Upcoming returns up to n holidays dated on or after from, looking at
// from's year and the next.
func (c *Calculator) Upcoming(state string, from time.Time, n int) ([]Holiday, error) {
	if n <= 0 {
		return []Holiday{}, nil
	}
	today := DateOf(from)

	var candidates []Holiday
	for _, year := range []int{today.Year(), today.Year() + 1} {
		hs, err := c.HolidaysForYear(state, year)
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			if !h.Date.Before(today) {
				candidates = append(candidates, h)
			}
		}
	}
	sortHolidays(candidates)

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	if candidates == nil {
		candidates = []Holiday{}
	}
	return candidates, nil
}

// =============================================================================
// EDITS
// =============================================================================

// RenamedEntries returns state's override list for date's year with the
// holiday on date renamed, or added if absent. A year with no override yet
// is seeded from its rules so the other holidays survive. Nothing is
// changed: callers persist the list first, then apply it with
// Overrides().Set.
func (c *Calculator) RenamedEntries(state string, date time.Time, name string) ([]OverrideEntry, error) {
	state = c.state(state)
	year := date.Year()
	entry := OverrideEntry{Date: FormatDate(date), Name: name}
	if err := validateEntry(state, year, entry); err != nil {
		return nil, err
	}

	list, ok := c.overrides.Get(state, year)
	if !ok {
		list = c.ruleEntries(state, year)
	}
	return upsertEntry(list, entry), nil
}

func (c *Calculator) ruleEntries(state string, year int) []OverrideEntry {
	rules := c.rules.Resolve(state, year)
	entries := make([]OverrideEntry, 0, len(rules))
	for _, h := range rules {
		entries = append(entries, OverrideEntry{Date: h.DateString(), Name: h.Name})
	}
	return entries
}

// Invalidate drops every memoised year.
func (c *Calculator) Invalidate() {
	c.cache.Purge()
}
