/*
errors.go - Error types for the holiday calendar

PURPOSE:
  Configuration problems surface here: a rule that cannot produce a date,
  or an override entry whose date string does not parse. Both are detected
  when configuration is loaded, and again on first use if an override slips
  through unchecked.

USAGE:
  if errors.Is(err, calendar.ErrMalformedOverrideDate) { ... }

  var odErr *calendar.OverrideDateError
  if errors.As(err, &odErr) {
      log.Printf("bad override for %s %d: %q", odErr.State, odErr.Year, odErr.Value)
  }

SEE ALSO:
  - overrides.go: Validates entries on Set
  - rules.go: Rule.Validate
*/
package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrMalformedOverrideDate is returned when an override entry's date is
	// not a valid YYYY-MM-DD string, or lies outside the list's year.
	ErrMalformedOverrideDate = errors.New("malformed override date")

	// ErrInvalidRule is returned when a rule's parameters cannot describe a date.
	ErrInvalidRule = errors.New("invalid holiday rule")

	// ErrDuplicateState is returned when a rule set defines the same state twice.
	ErrDuplicateState = errors.New("duplicate state")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// OverrideDateError identifies the override list and the offending value.
// Reason is empty when the value does not parse.
type OverrideDateError struct {
	State  string
	Year   int
	Value  string
	Reason string
}

func (e *OverrideDateError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "malformed date"
	}
	return fmt.Sprintf("override %s/%d: %s %q", e.State, e.Year, reason, e.Value)
}

func (e *OverrideDateError) Unwrap() error { return ErrMalformedOverrideDate }

// RuleError identifies the rule that failed validation.
type RuleError struct {
	State  string
	Code   string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s/%s: %s", e.State, e.Code, e.Reason)
}

func (e *RuleError) Unwrap() error { return ErrInvalidRule }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true if the error comes from holiday configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMalformedOverrideDate) ||
		errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrDuplicateState)
}
