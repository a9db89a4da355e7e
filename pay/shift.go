package pay

import (
	"time"

	"github.com/shopspring/decimal"
)

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// =============================================================================
// SHIFT INTERVAL
// =============================================================================

// Interval is a shift's clock-in and optional clock-out. ClockOut is set
// exactly once, by a clock-out or by auto-close.
type Interval struct {
	ClockIn  time.Time
	ClockOut *time.Time
}

func (i Interval) IsOpen() bool { return i.ClockOut == nil }

// Close returns the interval closed at at.
func (i Interval) Close(at time.Time) (Interval, error) {
	if !i.IsOpen() {
		return i, ErrShiftAlreadyClosed
	}
	if !at.After(i.ClockIn) {
		return i, &DateRangeError{ClockIn: i.ClockIn, ClockOut: at}
	}
	out := at
	return Interval{ClockIn: i.ClockIn, ClockOut: &out}, nil
}

// Elapsed is how long the shift has been running at now (or ran, if closed).
func (i Interval) Elapsed(now time.Time) time.Duration {
	if i.ClockOut != nil {
		return i.ClockOut.Sub(i.ClockIn)
	}
	return now.Sub(i.ClockIn)
}

// =============================================================================
// SHIFT PAY
// =============================================================================

// Result is the computed pay for one closed shift.
type Result struct {
	DayType  DayType
	ClockIn  time.Time
	ClockOut time.Time

	DurationHours decimal.Decimal
	Rate          decimal.Decimal

	// OrdinaryHours + OvertimeHours == DurationHours
	OrdinaryHours decimal.Decimal
	OvertimeHours decimal.Decimal
	OvertimeRate  decimal.Decimal

	TotalPay decimal.Decimal

	AutoClosed bool
}

// Hours converts a duration to decimal hours, keeping sub-second parts.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(d.Nanoseconds()).Div(nanosPerHour)
}

// ComputePay prices the interval [clockIn, clockOut) at the day type's rate.
// With a daily threshold (weekly hours / 5), hours beyond it are paid at
// the overtime rate, falling back to the resolved rate. Overtime does not
// depend on the day type.
func ComputePay(card RateCard, dt DayType, clockIn, clockOut time.Time) (Result, error) {
	if !clockOut.After(clockIn) {
		return Result{}, &DateRangeError{ClockIn: clockIn, ClockOut: clockOut}
	}

	hours := Hours(clockOut.Sub(clockIn))
	rate := ResolveRate(card, dt)

	result := Result{
		DayType:       dt,
		ClockIn:       clockIn,
		ClockOut:      clockOut,
		DurationHours: hours,
		Rate:          rate,
		OrdinaryHours: hours,
		OvertimeHours: decimal.Zero,
		OvertimeRate:  card.OvertimeOr(rate),
	}

	if threshold, ok := card.DailyThreshold(); ok && hours.GreaterThan(threshold) {
		result.OrdinaryHours = threshold
		result.OvertimeHours = hours.Sub(threshold)
	}

	result.TotalPay = result.OrdinaryHours.Mul(rate).
		Add(result.OvertimeHours.Mul(result.OvertimeRate))
	return result, nil
}
