package pay

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AUTO-CLOSE POLICY - Forced clock-out of shifts left open past the cap
// =============================================================================

// RateMode selects how an auto-closed shift is paid.
type RateMode string

const (
	// AutoCloseWeekdayRate pays cap hours at the weekday rate, ignoring day
	// type and overtime. This is the long-standing kiosk behaviour.
	AutoCloseWeekdayRate RateMode = "weekday"

	// AutoCloseDayTypeRate pays the capped interval exactly like a manual
	// clock-out at clockIn+cap.
	AutoCloseDayTypeRate RateMode = "day_type"
)

// DefaultMaxShift is the auto-close cap.
const DefaultMaxShift = 8 * time.Hour

// AutoClosePolicy decides when an open shift is force-closed and how it is paid.
type AutoClosePolicy struct {
	MaxDuration time.Duration
	Mode        RateMode
}

func DefaultAutoClosePolicy() AutoClosePolicy {
	return AutoClosePolicy{MaxDuration: DefaultMaxShift, Mode: AutoCloseWeekdayRate}
}

// ParseRateMode validates a configured mode.
func ParseRateMode(s string) (RateMode, error) {
	switch RateMode(s) {
	case AutoCloseWeekdayRate, AutoCloseDayTypeRate:
		return RateMode(s), nil
	case "":
		return AutoCloseWeekdayRate, nil
	}
	return "", fmt.Errorf("unknown auto-close rate mode %q", s)
}

// Due reports whether a shift opened at clockIn has run past the cap at now.
func (p AutoClosePolicy) Due(clockIn, now time.Time) bool {
	return now.Sub(clockIn) > p.MaxDuration
}

// ClockOut is the forced clock-out time.
func (p AutoClosePolicy) ClockOut(clockIn time.Time) time.Time {
	return clockIn.Add(p.MaxDuration)
}

// Compute prices a force-closed shift. dt is the classified day type of the
// clock-in; weekday mode keeps it on the result for display but pays at the
// weekday rate.
func (p AutoClosePolicy) Compute(card RateCard, dt DayType, clockIn time.Time) (Result, error) {
	clockOut := p.ClockOut(clockIn)

	if p.Mode == AutoCloseDayTypeRate {
		result, err := ComputePay(card, dt, clockIn, clockOut)
		if err != nil {
			return Result{}, err
		}
		result.AutoClosed = true
		return result, nil
	}

	if !clockOut.After(clockIn) {
		return Result{}, &DateRangeError{ClockIn: clockIn, ClockOut: clockOut}
	}
	hours := Hours(p.MaxDuration)
	rate := card.Weekday()
	return Result{
		DayType:       dt,
		ClockIn:       clockIn,
		ClockOut:      clockOut,
		DurationHours: hours,
		Rate:          rate,
		OrdinaryHours: hours,
		OvertimeHours: decimal.Zero,
		OvertimeRate:  rate,
		TotalPay:      hours.Mul(rate),
		AutoClosed:    true,
	}, nil
}
