package pay_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/pay"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestClassifier(t *testing.T, loc *time.Location) *pay.Classifier {
	rules, err := calendar.NewRuleSet(calendar.StateRules{
		Code: "TAS",
		Rules: []calendar.Rule{
			{Code: "AUSTRALIA_DAY", Name: "Australia Day", Kind: calendar.KindFixed, Month: time.January, Day: 26, SubstituteOnWeekend: true},
			{Code: "ANZAC_DAY", Name: "ANZAC Day", Kind: calendar.KindFixed, Month: time.April, Day: 25},
			{Code: "CHRISTMAS_DAY", Name: "Christmas Day", Kind: calendar.KindFixed, Month: time.December, Day: 25, SubstituteOnWeekend: true},
			{Code: "GOOD_FRIDAY", Name: "Good Friday", Kind: calendar.KindEasterRelative, DayOffset: -2},
		},
	})
	require.NoError(t, err)

	calc, err := calendar.NewCalculator(calendar.Config{Rules: rules, DefaultState: "TAS"})
	require.NoError(t, err)
	return pay.NewClassifier(calc, loc)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// stubLookup reports every date as a holiday but has no details for it.
type stubLookup struct{}

func (stubLookup) IsPublicHoliday(time.Time, string) (bool, error) { return true, nil }
func (stubLookup) HolidayDetails(time.Time, string) (*calendar.Holiday, error) {
	return nil, nil
}

type failingLookup struct{ err error }

func (f failingLookup) IsPublicHoliday(time.Time, string) (bool, error) { return false, f.err }
func (f failingLookup) HolidayDetails(time.Time, string) (*calendar.Holiday, error) {
	return nil, f.err
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestClassify_Precedence(t *testing.T) {
	c := newTestClassifier(t, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want pay.DayType
	}{
		{"holiday on a Saturday", time.Date(2026, time.April, 25, 10, 0, 0, 0, time.UTC), pay.PublicHoliday("ANZAC Day")},
		{"holiday on a weekday", time.Date(2025, time.April, 18, 10, 0, 0, 0, time.UTC), pay.PublicHoliday("Good Friday")},
		{"substituted Monday", time.Date(2025, time.January, 27, 10, 0, 0, 0, time.UTC), pay.PublicHoliday("Australia Day")},
		{"original Sunday", time.Date(2025, time.January, 26, 10, 0, 0, 0, time.UTC), pay.Sunday},
		{"plain Saturday", time.Date(2025, time.June, 7, 9, 0, 0, 0, time.UTC), pay.Saturday},
		{"plain weekday", time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC), pay.Weekday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.at, "TAS")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_UsesLocalDate(t *testing.T) {
	// GIVEN: A shift starting 14:00 UTC on Christmas Eve, 01:00 Christmas Day in Hobart
	at := time.Date(2025, time.December, 24, 14, 0, 0, 0, time.UTC)
	hobart := time.FixedZone("AEDT", 11*60*60)

	// THEN: The venue's zone decides the calendar date
	local, err := newTestClassifier(t, hobart).Classify(at, "TAS")
	require.NoError(t, err)
	assert.Equal(t, pay.PublicHoliday("Christmas Day"), local)

	utc, err := newTestClassifier(t, time.UTC).Classify(at, "TAS")
	require.NoError(t, err)
	assert.Equal(t, pay.Weekday, utc)
}

func TestClassify_FallbackHolidayName(t *testing.T) {
	c := pay.NewClassifier(stubLookup{}, nil)

	got, err := c.Classify(time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC), "TAS")
	require.NoError(t, err)
	assert.Equal(t, pay.KindPublicHoliday, got.Kind)
	assert.Equal(t, "Public Holiday", got.HolidayName)
}

func TestClassify_PropagatesCalendarErrors(t *testing.T) {
	boom := errors.New("boom")
	c := pay.NewClassifier(failingLookup{err: boom}, nil)

	_, err := c.Classify(time.Now(), "TAS")
	assert.ErrorIs(t, err, boom)
}

func TestDayType_Labels(t *testing.T) {
	assert.Equal(t, "Public Holiday", pay.PublicHoliday("ANZAC Day").Label())
	assert.Equal(t, "Public Holiday (ANZAC Day)", pay.PublicHoliday("ANZAC Day").String())
	assert.Equal(t, "Saturday", pay.Saturday.Label())
}

// =============================================================================
// RATE RESOLUTION
// =============================================================================

func TestResolveRate_FallbackChain(t *testing.T) {
	tests := []struct {
		name string
		card pay.RateCard
		dt   pay.DayType
		want string
	}{
		{"sunday falls back to weekday", pay.RateCard{WeekdayRate: pay.Rate(25)}, pay.Sunday, "25"},
		{"sunday rate set", pay.RateCard{WeekdayRate: pay.Rate(25), SundayRate: pay.Rate(40)}, pay.Sunday, "40"},
		{"zero sunday rate counts as absent", pay.RateCard{WeekdayRate: pay.Rate(25), SundayRate: pay.Rate(0)}, pay.Sunday, "25"},
		{"saturday rate set", pay.RateCard{WeekdayRate: pay.Rate(25), SaturdayRate: pay.Rate(35)}, pay.Saturday, "35"},
		{"holiday falls back to weekday", pay.RateCard{WeekdayRate: pay.Rate(25), SundayRate: pay.Rate(40)}, pay.PublicHoliday("Christmas Day"), "25"},
		{"holiday rate set", pay.RateCard{WeekdayRate: pay.Rate(25), PublicHolidayRate: pay.Rate(62.5)}, pay.PublicHoliday("Christmas Day"), "62.5"},
		{"weekday ignores weekend rates", pay.RateCard{WeekdayRate: pay.Rate(25), SaturdayRate: pay.Rate(35)}, pay.Weekday, "25"},
		{"empty card is zero", pay.RateCard{}, pay.Sunday, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, pay.ResolveRate(tt.card, tt.dt))
		})
	}
}

func TestParseRate(t *testing.T) {
	r, err := pay.ParseRate("")
	require.NoError(t, err)
	assert.False(t, r.Valid)

	r, err = pay.ParseRate("31.45")
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assertDecimal(t, "31.45", r.Decimal)

	_, err = pay.ParseRate("abc")
	assert.Error(t, err)
}

// =============================================================================
// SHIFT PAY
// =============================================================================

func TestComputePay_SaturdayShift(t *testing.T) {
	// GIVEN: Saturday 2025-06-07 09:00-17:00, no weekly hours set
	card := pay.RateCard{WeekdayRate: pay.Rate(25), SaturdayRate: pay.Rate(35)}
	in := time.Date(2025, time.June, 7, 9, 0, 0, 0, time.UTC)
	out := time.Date(2025, time.June, 7, 17, 0, 0, 0, time.UTC)

	// WHEN
	result, err := pay.ComputePay(card, pay.Saturday, in, out)

	// THEN: 8h at the Saturday rate
	require.NoError(t, err)
	assertDecimal(t, "8", result.DurationHours)
	assertDecimal(t, "35", result.Rate)
	assertDecimal(t, "280", result.TotalPay)
	assertDecimal(t, "0", result.OvertimeHours)
}

func TestComputePay_OvertimeSplit(t *testing.T) {
	// GIVEN: 25 contracted hours a week gives a 5h daily threshold
	card := pay.RateCard{
		WeekdayRate:         pay.Rate(25),
		SaturdayRate:        pay.Rate(35),
		OvertimeRate:        pay.Rate(45),
		DefaultHoursPerWeek: pay.Rate(25),
	}
	in := time.Date(2025, time.June, 7, 9, 0, 0, 0, time.UTC)
	out := time.Date(2025, time.June, 7, 17, 0, 0, 0, time.UTC)

	result, err := pay.ComputePay(card, pay.Saturday, in, out)
	require.NoError(t, err)

	// THEN: 5 * 35 + 3 * 45
	assertDecimal(t, "5", result.OrdinaryHours)
	assertDecimal(t, "3", result.OvertimeHours)
	assertDecimal(t, "45", result.OvertimeRate)
	assertDecimal(t, "310", result.TotalPay)
}

func TestComputePay_OvertimeFallsBackToResolvedRate(t *testing.T) {
	card := pay.RateCard{WeekdayRate: pay.Rate(25), SaturdayRate: pay.Rate(35), DefaultHoursPerWeek: pay.Rate(25)}
	in := time.Date(2025, time.June, 7, 9, 0, 0, 0, time.UTC)

	result, err := pay.ComputePay(card, pay.Saturday, in, in.Add(8*time.Hour))
	require.NoError(t, err)
	assertDecimal(t, "35", result.OvertimeRate)
	assertDecimal(t, "280", result.TotalPay)
}

func TestComputePay_UnderThresholdHasNoOvertime(t *testing.T) {
	card := pay.RateCard{WeekdayRate: pay.Rate(30), OvertimeRate: pay.Rate(45), DefaultHoursPerWeek: pay.Rate(38)}
	in := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)

	result, err := pay.ComputePay(card, pay.Weekday, in, in.Add(7*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assertDecimal(t, "7.5", result.DurationHours)
	assertDecimal(t, "0", result.OvertimeHours)
	assertDecimal(t, "225", result.TotalPay)
}

func TestComputePay_RejectsInvalidRange(t *testing.T) {
	card := pay.RateCard{WeekdayRate: pay.Rate(25)}
	in := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)

	for _, out := range []time.Time{in, in.Add(-time.Hour)} {
		_, err := pay.ComputePay(card, pay.Weekday, in, out)
		require.Error(t, err)

		var rangeErr *pay.DateRangeError
		assert.ErrorAs(t, err, &rangeErr)
		assert.ErrorIs(t, err, pay.ErrInvalidDateRange)
		assert.True(t, pay.IsClientError(err))
	}
}

func TestComputePay_KeepsSubSecondDuration(t *testing.T) {
	// GIVEN: A 900ms interval on a weekday
	card := pay.RateCard{WeekdayRate: pay.Rate(25)}
	in := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)

	// WHEN: It is priced
	result, err := pay.ComputePay(card, pay.Weekday, in, in.Add(900*time.Millisecond))
	require.NoError(t, err)

	// THEN: The fraction of a second is paid, not rounded away
	assert.Equal(t, "0.00025", result.DurationHours.String())
	assert.Equal(t, "0.00625", result.TotalPay.String())
	assert.Equal(t, "1.5", pay.Hours(90*time.Minute).String())
}

func TestInterval_ClosesOnce(t *testing.T) {
	in := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)
	open := pay.Interval{ClockIn: in}
	assert.True(t, open.IsOpen())

	closed, err := open.Close(in.Add(4 * time.Hour))
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, 4*time.Hour, closed.Elapsed(time.Time{}))

	_, err = closed.Close(in.Add(5 * time.Hour))
	assert.ErrorIs(t, err, pay.ErrShiftAlreadyClosed)

	_, err = open.Close(in)
	assert.ErrorIs(t, err, pay.ErrInvalidDateRange)
}

// =============================================================================
// AUTO-CLOSE
// =============================================================================

func TestAutoClosePolicy_Due(t *testing.T) {
	policy := pay.DefaultAutoClosePolicy()
	in := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)

	assert.False(t, policy.Due(in, in.Add(8*time.Hour)), "exactly the cap is not over it")
	assert.True(t, policy.Due(in, in.Add(8*time.Hour+time.Second)))
}

func TestAutoClosePolicy_WeekdayModeIgnoresDayType(t *testing.T) {
	card := pay.RateCard{
		WeekdayRate:         pay.Rate(25),
		SaturdayRate:        pay.Rate(35),
		OvertimeRate:        pay.Rate(45),
		DefaultHoursPerWeek: pay.Rate(25),
	}
	in := time.Date(2025, time.June, 7, 9, 0, 0, 0, time.UTC)

	result, err := pay.DefaultAutoClosePolicy().Compute(card, pay.Saturday, in)
	require.NoError(t, err)

	assert.True(t, result.AutoClosed)
	assert.Equal(t, in.Add(8*time.Hour), result.ClockOut)
	assert.Equal(t, pay.Saturday, result.DayType)
	assertDecimal(t, "25", result.Rate)
	assertDecimal(t, "200", result.TotalPay)
}

func TestAutoClosePolicy_DayTypeModeMatchesClockOut(t *testing.T) {
	card := pay.RateCard{
		WeekdayRate:         pay.Rate(25),
		SaturdayRate:        pay.Rate(35),
		OvertimeRate:        pay.Rate(45),
		DefaultHoursPerWeek: pay.Rate(25),
	}
	in := time.Date(2025, time.June, 7, 9, 0, 0, 0, time.UTC)
	policy := pay.AutoClosePolicy{MaxDuration: 8 * time.Hour, Mode: pay.AutoCloseDayTypeRate}

	auto, err := policy.Compute(card, pay.Saturday, in)
	require.NoError(t, err)
	manual, err := pay.ComputePay(card, pay.Saturday, in, in.Add(8*time.Hour))
	require.NoError(t, err)

	assert.True(t, auto.AutoClosed)
	assertDecimal(t, manual.TotalPay.String(), auto.TotalPay)
	assertDecimal(t, "310", auto.TotalPay)
}

func TestParseRateMode(t *testing.T) {
	mode, err := pay.ParseRateMode("")
	require.NoError(t, err)
	assert.Equal(t, pay.AutoCloseWeekdayRate, mode)

	mode, err = pay.ParseRateMode("day_type")
	require.NoError(t, err)
	assert.Equal(t, pay.AutoCloseDayTypeRate, mode)

	_, err = pay.ParseRateMode("holiday")
	assert.Error(t, err)
}

// =============================================================================
// PERIODS + SUMMARY
// =============================================================================

func TestWeekOf(t *testing.T) {
	wed := pay.WeekOf(time.Date(2025, time.June, 11, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "[2025-06-09, 2025-06-15]", wed.String())

	sun := pay.WeekOf(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, wed, sun)
}

func TestSummarize(t *testing.T) {
	card := pay.RateCard{WeekdayRate: pay.Rate(25), SaturdayRate: pay.Rate(35)}
	mon := time.Date(2025, time.June, 9, 9, 0, 0, 0, time.UTC)
	sat := time.Date(2025, time.June, 14, 9, 0, 0, 0, time.UTC)
	nextMon := time.Date(2025, time.June, 16, 9, 0, 0, 0, time.UTC)

	var results []pay.Result
	for _, s := range []struct {
		in time.Time
		dt pay.DayType
	}{{mon, pay.Weekday}, {sat, pay.Saturday}, {nextMon, pay.Weekday}} {
		r, err := pay.ComputePay(card, s.dt, s.in, s.in.Add(4*time.Hour))
		require.NoError(t, err)
		results = append(results, r)
	}

	summary := pay.Summarize(pay.WeekOf(mon), results)

	assert.Equal(t, 2, summary.Shifts)
	assertDecimal(t, "8", summary.TotalHours)
	assertDecimal(t, "240", summary.TotalPay)
	assert.Equal(t, 1, summary.ByKind[pay.KindSaturday].Shifts)
	assertDecimal(t, "140", summary.ByKind[pay.KindSaturday].Pay)
	assertDecimal(t, "100", summary.ByKind[pay.KindWeekday].Pay)
}
