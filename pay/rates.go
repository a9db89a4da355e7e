/*
Package pay turns shift timestamps into day types, hourly rates and totals.

PURPOSE:
  Every place that pays a shift (clock-out, the auto-close sweep, the pay
  quote endpoint, shift history summaries) goes through this package, so
  the rate fallback chain and the overtime split exist exactly once.

KEY CONCEPTS IN THIS FILE (rates.go):
  - RateCard: A staff member's hourly rates, each nullable
  - ResolveRate: Day type + rate card -> one hourly rate

FALLBACK CHAIN:
  PublicHoliday -> publicHolidayRate, else weekdayRate
  Sunday        -> sundayRate,        else weekdayRate
  Saturday      -> saturdayRate,      else weekdayRate
  Weekday       -> weekdayRate,       else 0
  A rate that is present but zero counts as absent.

PRECISION:
  Rates, hours and pay are decimal.Decimal. NullDecimal models the nullable
  rate columns and scans straight from SQLite.

USAGE:
  card := pay.RateCard{WeekdayRate: pay.Rate(25), SaturdayRate: pay.Rate(35)}
  rate := pay.ResolveRate(card, pay.Saturday) // 35

SEE ALSO:
  - daytype.go: DayType and Classifier
  - shift.go: ComputePay
  - autoclose.go: AutoClosePolicy
*/
package pay

import (
	"github.com/shopspring/decimal"
)

// WorkDaysPerWeek splits weekly contracted hours into a daily threshold.
const WorkDaysPerWeek = 5

// =============================================================================
// RATE CARD
// =============================================================================

// RateCard holds a staff member's hourly rates. Any field may be absent.
type RateCard struct {
	WeekdayRate         decimal.NullDecimal
	SaturdayRate        decimal.NullDecimal
	SundayRate          decimal.NullDecimal
	PublicHolidayRate   decimal.NullDecimal
	OvertimeRate        decimal.NullDecimal
	DefaultHoursPerWeek decimal.NullDecimal
}

// Rate wraps a float as a present rate. Convenient for literals and tests.
func Rate(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

// ParseRate parses a decimal string; an empty string is an absent rate.
func ParseRate(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func present(v decimal.NullDecimal) bool {
	return v.Valid && !v.Decimal.IsZero()
}

// Weekday returns the weekday rate, or zero.
func (rc RateCard) Weekday() decimal.Decimal {
	if present(rc.WeekdayRate) {
		return rc.WeekdayRate.Decimal
	}
	return decimal.Zero
}

func (rc RateCard) orWeekday(v decimal.NullDecimal) decimal.Decimal {
	if present(v) {
		return v.Decimal
	}
	return rc.Weekday()
}

// RateFor resolves the hourly rate for a day type.
func (rc RateCard) RateFor(dt DayType) decimal.Decimal {
	switch dt.Kind {
	case KindPublicHoliday:
		return rc.orWeekday(rc.PublicHolidayRate)
	case KindSunday:
		return rc.orWeekday(rc.SundayRate)
	case KindSaturday:
		return rc.orWeekday(rc.SaturdayRate)
	default:
		return rc.Weekday()
	}
}

// OvertimeOr returns the overtime rate, or fallback when none is set.
func (rc RateCard) OvertimeOr(fallback decimal.Decimal) decimal.Decimal {
	if present(rc.OvertimeRate) {
		return rc.OvertimeRate.Decimal
	}
	return fallback
}

// DailyThreshold is DefaultHoursPerWeek / 5. The second return is false
// when no weekly hours are set, meaning no overtime split applies.
func (rc RateCard) DailyThreshold() (decimal.Decimal, bool) {
	if !present(rc.DefaultHoursPerWeek) || rc.DefaultHoursPerWeek.Decimal.IsNegative() {
		return decimal.Zero, false
	}
	return rc.DefaultHoursPerWeek.Decimal.Div(decimal.NewFromInt(WorkDaysPerWeek)), true
}

// ResolveRate is the single rate resolver used by every pay path.
func ResolveRate(card RateCard, dt DayType) decimal.Decimal {
	return card.RateFor(dt)
}
