/*
errors.go - Error types for shift pay

PURPOSE:
  Errors a caller must handle when computing or recording shift pay.
  The API maps client errors to 400/409 and not-found errors to 404.

SEE ALSO:
  - shift.go: Returns DateRangeError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package pay

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrInvalidDateRange is returned when clock-out is not after clock-in.
	ErrInvalidDateRange = errors.New("invalid date range: clock-out must be after clock-in")

	// ErrShiftNotOpen is returned when clocking out without an open shift.
	ErrShiftNotOpen = errors.New("no open shift")

	// ErrShiftAlreadyOpen is returned when clocking in twice.
	ErrShiftAlreadyOpen = errors.New("shift already open")

	// ErrShiftAlreadyClosed is returned when closing a shift a second time.
	ErrShiftAlreadyClosed = errors.New("shift already closed")

	// ErrRateCardNotFound is returned when a staff member has no rate card.
	ErrRateCardNotFound = errors.New("rate card not found")

	// ErrStaffNotFound is returned when a referenced staff member doesn't exist.
	ErrStaffNotFound = errors.New("staff not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DateRangeError carries the rejected interval.
type DateRangeError struct {
	ClockIn  time.Time
	ClockOut time.Time
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: clock-out %s is not after clock-in %s",
		e.ClockOut.Format(time.RFC3339), e.ClockIn.Format(time.RFC3339))
}

func (e *DateRangeError) Unwrap() error {
	return ErrInvalidDateRange
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrShiftNotOpen) ||
		errors.Is(err, ErrShiftAlreadyOpen) ||
		errors.Is(err, ErrShiftAlreadyClosed)
}

// IsConflict returns true if the error reflects the shift's current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrShiftAlreadyOpen) ||
		errors.Is(err, ErrShiftAlreadyClosed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateCardNotFound) ||
		errors.Is(err, ErrStaffNotFound)
}
