package calendar

import (
	"sort"
	"sync"
)

// =============================================================================
// OVERRIDE STORE - Per (state, year) manual holiday lists
// =============================================================================

// OverrideEntry is one manually configured holiday. Date is YYYY-MM-DD.
type OverrideEntry struct {
	Date string
	Name string
}

// OverrideList is the full override for one state and year.
type OverrideList struct {
	State   string
	Year    int
	Entries []OverrideEntry
}

// Overrides holds the manual holiday lists. When a list exists for a
// (state, year) it replaces the rule-based calendar for that year entirely.
//
// Every mutation bumps Version so calculators can tell a cached year is stale.
type Overrides struct {
	mu      sync.RWMutex
	lists   map[overrideKey][]OverrideEntry
	version uint64
}

type overrideKey struct {
	State string
	Year  int
}

func NewOverrides() *Overrides {
	return &Overrides{lists: make(map[overrideKey][]OverrideEntry)}
}

// Set replaces the list for (state, year). Every date must parse and fall
// within year.
func (o *Overrides) Set(state string, year int, entries []OverrideEntry) error {
	state = NormalizeState(state)
	if err := ValidateEntries(state, year, entries); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setLocked(state, year, entries)
	return nil
}

// ValidateEntries checks a list before it is stored anywhere. A date in
// another year could never match a lookup, which reads date.Year().
func ValidateEntries(state string, year int, entries []OverrideEntry) error {
	state = NormalizeState(state)
	for _, e := range entries {
		if err := validateEntry(state, year, e); err != nil {
			return err
		}
	}
	return nil
}

func validateEntry(state string, year int, e OverrideEntry) error {
	d, err := ParseDate(e.Date)
	if err != nil {
		return &OverrideDateError{State: state, Year: year, Value: e.Date}
	}
	if d.Year() != year {
		return &OverrideDateError{State: state, Year: year, Value: e.Date, Reason: "date outside override year"}
	}
	return nil
}

func (o *Overrides) setLocked(state string, year int, entries []OverrideEntry) {
	list := make([]OverrideEntry, len(entries))
	copy(list, entries)
	o.lists[overrideKey{State: state, Year: year}] = list
	o.version++
}

// Get returns a copy of the list for (state, year).
func (o *Overrides) Get(state string, year int) ([]OverrideEntry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	list, ok := o.lists[overrideKey{State: NormalizeState(state), Year: year}]
	if !ok {
		return nil, false
	}
	result := make([]OverrideEntry, len(list))
	copy(result, list)
	return result, true
}

// Has reports whether an override exists for (state, year).
func (o *Overrides) Has(state string, year int) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.lists[overrideKey{State: NormalizeState(state), Year: year}]
	return ok
}

// HasState reports whether any year has an override for state.
func (o *Overrides) HasState(state string) bool {
	state = NormalizeState(state)
	o.mu.RLock()
	defer o.mu.RUnlock()
	for k := range o.lists {
		if k.State == state {
			return true
		}
	}
	return false
}

// Delete removes the list for (state, year). Returns false if none existed.
func (o *Overrides) Delete(state string, year int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	k := overrideKey{State: NormalizeState(state), Year: year}
	if _, ok := o.lists[k]; !ok {
		return false
	}
	delete(o.lists, k)
	o.version++
	return true
}

// upsertEntry returns a copy of list with entry's name set on the entry of
// the same date, or entry appended.
func upsertEntry(list []OverrideEntry, entry OverrideEntry) []OverrideEntry {
	updated := make([]OverrideEntry, 0, len(list)+1)
	found := false
	for _, e := range list {
		if e.Date == entry.Date {
			e.Name = entry.Name
			found = true
		}
		updated = append(updated, e)
	}
	if !found {
		updated = append(updated, entry)
	}
	return updated
}

// All returns every list, ordered by state then year.
func (o *Overrides) All() []OverrideList {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]OverrideList, 0, len(o.lists))
	for k, list := range o.lists {
		entries := make([]OverrideEntry, len(list))
		copy(entries, list)
		result = append(result, OverrideList{State: k.State, Year: k.Year, Entries: entries})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].State != result[j].State {
			return result[i].State < result[j].State
		}
		return result[i].Year < result[j].Year
	})
	return result
}

// Version increases on every mutation.
func (o *Overrides) Version() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}

// resolve parses the (state, year) list into holidays, sorted by date.
func (o *Overrides) resolve(state string, year int) ([]Holiday, bool, error) {
	entries, ok := o.Get(state, year)
	if !ok {
		return nil, false, nil
	}

	holidays := make([]Holiday, 0, len(entries))
	for _, e := range entries {
		d, err := ParseDate(e.Date)
		if err != nil {
			return nil, true, &OverrideDateError{State: NormalizeState(state), Year: year, Value: e.Date}
		}
		holidays = append(holidays, Holiday{Name: e.Name, Date: d, Source: SourceOverride})
	}
	sortHolidays(holidays)
	return holidays, true, nil
}
