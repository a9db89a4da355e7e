package pay

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/roster-engine/calendar"
)

// =============================================================================
// PERIOD - Date range for pay summaries
// =============================================================================

// Period is an inclusive calendar-date range [Start, End].
//
// Examples:
//   - Week of 2025-06-09: Mon 2025-06-09 - Sun 2025-06-15
//   - Month: 2025-06-01 - 2025-06-30
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains compares calendar dates; t is read in its own location.
func (p Period) Contains(t time.Time) bool {
	d := calendar.DateOf(t)
	return !d.Before(calendar.DateOf(p.Start)) && !d.After(calendar.DateOf(p.End))
}

func (p Period) String() string {
	return "[" + calendar.FormatDate(p.Start) + ", " + calendar.FormatDate(p.End) + "]"
}

// WeekOf returns the Monday-to-Sunday week containing t.
func WeekOf(t time.Time) Period {
	d := calendar.DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	start := calendar.AddDays(d, -offset)
	return Period{Start: start, End: calendar.AddDays(start, 6)}
}

// =============================================================================
// SUMMARY
// =============================================================================

// Bucket totals shifts of one day kind.
type Bucket struct {
	Shifts int
	Hours  decimal.Decimal
	Pay    decimal.Decimal
}

// Summary totals results within a period.
type Summary struct {
	Period        Period
	Shifts        int
	TotalHours    decimal.Decimal
	OvertimeHours decimal.Decimal
	TotalPay      decimal.Decimal
	ByKind        map[DayKind]Bucket
}

// Summarize totals the results whose clock-in date falls in period.
func Summarize(period Period, results []Result) Summary {
	s := Summary{
		Period:        period,
		TotalHours:    decimal.Zero,
		OvertimeHours: decimal.Zero,
		TotalPay:      decimal.Zero,
		ByKind:        make(map[DayKind]Bucket),
	}

	for _, r := range results {
		if !period.Contains(r.ClockIn) {
			continue
		}
		s.Shifts++
		s.TotalHours = s.TotalHours.Add(r.DurationHours)
		s.OvertimeHours = s.OvertimeHours.Add(r.OvertimeHours)
		s.TotalPay = s.TotalPay.Add(r.TotalPay)

		b, ok := s.ByKind[r.DayType.Kind]
		if !ok {
			b = Bucket{Hours: decimal.Zero, Pay: decimal.Zero}
		}
		b.Shifts++
		b.Hours = b.Hours.Add(r.DurationHours)
		b.Pay = b.Pay.Add(r.TotalPay)
		s.ByKind[r.DayType.Kind] = b
	}
	return s
}
