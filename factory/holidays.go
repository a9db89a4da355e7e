/*
Package factory converts holiday configuration documents into calendar types.

PURPOSE:
  Holiday rules and overrides live in a YAML (or JSON) document so a new
  state, or a corrected year, needs no code change. The factory validates
  the document up front: a rule that cannot produce a date, or an override
  date that does not parse, fails the load instead of the first lookup.

DOCUMENT SCHEMA (YAML):
  default_state: TAS
  states:
    TAS:
      name: Tasmania
      holidays:
        - {code: NEW_YEARS_DAY, name: "New Year's Day", kind: fixed, month: 1, day: 1, substitute: true}
        - {code: KINGS_BIRTHDAY, name: "King's Birthday", kind: nth_weekday, month: 6, week: 2, weekday: 1}
        - {code: GOOD_FRIDAY, name: "Good Friday", kind: easter, offset: -2}
  overrides:
    - state: TAS
      year: 2025
      holidays:
        - {date: "2025-01-01", name: "New Year's Day"}

  kind "variable" is accepted as an alias for nth_weekday.
  weekday is 0 (Sunday) to 6 (Saturday).

USAGE:
  f := factory.NewHolidayFactory()

  cfg, err := f.Default()            // embedded TAS/NSW/VIC document
  cfg, err := f.LoadFile(path)       // .yaml/.yml or .json
  calc, err := cfg.Calculator(64)

SEE ALSO:
  - defaults/holidays.yaml: Embedded default document
  - calendar/rules.go: Rule and RuleSet
  - calendar/overrides.go: Overrides
*/
package factory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/warp/roster-engine/calendar"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/holidays.yaml
var defaultHolidaysYAML []byte

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// HolidayConfigDoc is the serialized holiday configuration.
type HolidayConfigDoc struct {
	DefaultState string              `yaml:"default_state" json:"default_state"`
	States       map[string]StateDoc `yaml:"states" json:"states"`
	Overrides    []OverrideDoc       `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// StateDoc lists one state's holiday rules in order.
type StateDoc struct {
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Holidays []RuleDoc `yaml:"holidays" json:"holidays"`
}

// RuleDoc is one holiday rule. Which fields apply depends on Kind.
type RuleDoc struct {
	Code       string `yaml:"code" json:"code"`
	Name       string `yaml:"name" json:"name"`
	Kind       string `yaml:"kind" json:"kind"`
	Month      int    `yaml:"month,omitempty" json:"month,omitempty"`
	Day        int    `yaml:"day,omitempty" json:"day,omitempty"`
	Substitute bool   `yaml:"substitute,omitempty" json:"substitute,omitempty"`
	Week       int    `yaml:"week,omitempty" json:"week,omitempty"`
	Weekday    int    `yaml:"weekday,omitempty" json:"weekday,omitempty"`
	Offset     int    `yaml:"offset,omitempty" json:"offset,omitempty"`
	Note       string `yaml:"note,omitempty" json:"note,omitempty"`
}

// OverrideDoc is the override list for one state and year.
type OverrideDoc struct {
	State    string           `yaml:"state" json:"state"`
	Year     int              `yaml:"year" json:"year"`
	Holidays []OverrideDayDoc `yaml:"holidays" json:"holidays"`
}

type OverrideDayDoc struct {
	Date string `yaml:"date" json:"date"`
	Name string `yaml:"name" json:"name"`
}

// =============================================================================
// FACTORY
// =============================================================================

// HolidayConfig is a validated configuration ready to build a calculator.
type HolidayConfig struct {
	DefaultState string
	Rules        *calendar.RuleSet
	Overrides    *calendar.Overrides
}

// Calculator builds a calendar.Calculator from the configuration.
func (c *HolidayConfig) Calculator(cacheSize int) (*calendar.Calculator, error) {
	return calendar.NewCalculator(calendar.Config{
		Rules:        c.Rules,
		Overrides:    c.Overrides,
		DefaultState: c.DefaultState,
		CacheSize:    cacheSize,
	})
}

// HolidayFactory parses holiday configuration documents.
type HolidayFactory struct{}

func NewHolidayFactory() *HolidayFactory {
	return &HolidayFactory{}
}

// Default returns the embedded configuration.
func (f *HolidayFactory) Default() (*HolidayConfig, error) {
	return f.ParseYAML(defaultHolidaysYAML)
}

// LoadFile reads a document, choosing the parser by extension.
func (f *HolidayFactory) LoadFile(path string) (*HolidayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return f.ParseJSON(data)
	}
	return f.ParseYAML(data)
}

// ParseYAML parses and validates a YAML document.
func (f *HolidayFactory) ParseYAML(data []byte) (*HolidayConfig, error) {
	var doc HolidayConfigDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid holiday YAML: %w", err)
	}
	return f.FromDoc(doc)
}

// ParseJSON parses and validates a JSON document.
func (f *HolidayFactory) ParseJSON(data []byte) (*HolidayConfig, error) {
	var doc HolidayConfigDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid holiday JSON: %w", err)
	}
	return f.FromDoc(doc)
}

// FromDoc converts a parsed document.
func (f *HolidayFactory) FromDoc(doc HolidayConfigDoc) (*HolidayConfig, error) {
	// Sorted so that errors are reported deterministically
	codes := make([]string, 0, len(doc.States))
	for code := range doc.States {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	states := make([]calendar.StateRules, 0, len(codes))
	for _, code := range codes {
		sd := doc.States[code]
		rules := make([]calendar.Rule, 0, len(sd.Holidays))
		for _, rd := range sd.Holidays {
			r, err := rd.toRule(code)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		states = append(states, calendar.StateRules{Code: code, Name: sd.Name, Rules: rules})
	}

	ruleSet, err := calendar.NewRuleSet(states...)
	if err != nil {
		return nil, err
	}

	overrides := calendar.NewOverrides()
	for _, od := range doc.Overrides {
		if od.Year <= 0 {
			return nil, fmt.Errorf("override for %s: year is required", od.State)
		}
		entries := make([]calendar.OverrideEntry, 0, len(od.Holidays))
		for _, h := range od.Holidays {
			entries = append(entries, calendar.OverrideEntry{Date: h.Date, Name: h.Name})
		}
		if err := overrides.Set(od.State, od.Year, entries); err != nil {
			return nil, err
		}
	}

	defaultState := calendar.NormalizeState(doc.DefaultState)
	if defaultState == "" && len(codes) > 0 {
		defaultState = calendar.NormalizeState(codes[0])
	}

	return &HolidayConfig{
		DefaultState: defaultState,
		Rules:        ruleSet,
		Overrides:    overrides,
	}, nil
}

func (rd RuleDoc) toRule(state string) (calendar.Rule, error) {
	r := calendar.Rule{
		Code: rd.Code,
		Name: rd.Name,
		Note: rd.Note,
	}

	switch strings.ToLower(rd.Kind) {
	case "fixed":
		r.Kind = calendar.KindFixed
		r.Month = time.Month(rd.Month)
		r.Day = rd.Day
		r.SubstituteOnWeekend = rd.Substitute
	case "nth_weekday", "variable":
		r.Kind = calendar.KindNthWeekday
		r.Month = time.Month(rd.Month)
		r.WeekOrdinal = rd.Week
		r.Weekday = time.Weekday(rd.Weekday)
	case "easter":
		r.Kind = calendar.KindEasterRelative
		r.DayOffset = rd.Offset
	default:
		return calendar.Rule{}, &calendar.RuleError{
			State:  calendar.NormalizeState(state),
			Code:   rd.Code,
			Reason: fmt.Sprintf("unknown kind %q", rd.Kind),
		}
	}
	return r, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ToDoc renders rules and the current overrides back into a document.
func ToDoc(defaultState string, rules *calendar.RuleSet, overrides *calendar.Overrides) HolidayConfigDoc {
	doc := HolidayConfigDoc{
		DefaultState: defaultState,
		States:       make(map[string]StateDoc),
	}

	for _, code := range rules.States() {
		sr, _ := rules.State(code)
		sd := StateDoc{Name: sr.Name}
		for _, r := range sr.Rules {
			rd := RuleDoc{Code: r.Code, Name: r.Name, Kind: string(r.Kind), Note: r.Note}
			switch r.Kind {
			case calendar.KindFixed:
				rd.Month, rd.Day, rd.Substitute = int(r.Month), r.Day, r.SubstituteOnWeekend
			case calendar.KindNthWeekday:
				rd.Month, rd.Week, rd.Weekday = int(r.Month), r.WeekOrdinal, int(r.Weekday)
			case calendar.KindEasterRelative:
				rd.Offset = r.DayOffset
			}
			sd.Holidays = append(sd.Holidays, rd)
		}
		doc.States[code] = sd
	}

	if overrides != nil {
		for _, list := range overrides.All() {
			od := OverrideDoc{State: list.State, Year: list.Year}
			for _, e := range list.Entries {
				od.Holidays = append(od.Holidays, OverrideDayDoc{Date: e.Date, Name: e.Name})
			}
			doc.Overrides = append(doc.Overrides, od)
		}
	}
	return doc
}
