/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Clock-in / clock-out and recorded pay
- Auto-close on read and the sweep
- Holiday listing, checks, overrides and rename
- Current state setting and validation errors
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/factory"
	"github.com/warp/roster-engine/pay"
	"github.com/warp/roster-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Hobart standard time, without depending on the tz database.
var hobart = time.FixedZone("AEST", 10*60*60)

type testEnv struct {
	handler *Handler
	router  http.Handler
	store   *sqlite.Store
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := factory.NewHolidayFactory().Default()
	require.NoError(t, err)
	calc, err := cfg.Calculator(0)
	require.NoError(t, err)

	env := &testEnv{store: store, now: time.Date(2025, time.June, 7, 9, 0, 0, 0, hobart)}
	env.handler = NewHandler(store, calc, hobart, pay.DefaultAutoClosePolicy())
	env.handler.now = func() time.Time { return env.now }
	env.router = NewRouter(env.handler, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedStaff creates a staff member with a weekday/Saturday/holiday card.
func (e *testEnv) seedStaff(t *testing.T, id string) {
	rec := e.do(t, http.MethodPost, "/api/staff", map[string]any{"id": id, "name": "Staff " + id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/api/staff/"+id+"/rates", map[string]any{
		"weekdayRate":       25,
		"saturdayRate":      35,
		"publicHolidayRate": 50,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// =============================================================================
// STAFF
// =============================================================================

func TestCreateStaff_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/staff", map[string]any{"name": ""})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Contains(t, resp.Details, "Name")
}

func TestCreateStaff_GeneratesID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/staff", map[string]any{"name": "Sam"})
	require.Equal(t, http.StatusCreated, rec.Code)

	staff := decode[StaffDTO](t, rec)
	assert.NotEmpty(t, staff.ID)
	assert.True(t, staff.Active)

	rec = env.do(t, http.MethodGet, "/api/staff/"+staff.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaveRates_RejectsNegative(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPut, "/api/staff/s-1/rates", map[string]any{"weekdayRate": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStaff_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/staff/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CLOCK-IN / CLOCK-OUT
// =============================================================================

func TestClockInOut_SaturdayShift(t *testing.T) {
	// GIVEN: A staff member with a Saturday rate
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	// WHEN: They work 09:00-17:00 on Saturday 7 June 2025
	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", map[string]any{"at": "2025-06-07T09:00:00+10:00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opened := decode[ShiftDTO](t, rec)
	assert.True(t, opened.Open)
	assert.Equal(t, pay.KindSaturday, opened.DayType.Kind)
	assert.Equal(t, "35", opened.HourlyRate.String())
	assert.Equal(t, "TAS", opened.State)

	rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-out", map[string]any{"at": "2025-06-07T17:00:00+10:00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: 8 hours at 35
	closed := decode[ShiftDTO](t, rec)
	assert.False(t, closed.Open)
	require.NotNil(t, closed.TotalPay)
	assert.Equal(t, "280", closed.TotalPay.String())
	assert.Equal(t, "8", closed.HoursWorked.String())
	assert.Equal(t, "2025-06-07", closed.Payday)
	assert.False(t, closed.AutoClosed)
}

func TestClockIn_PublicHolidaySnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", map[string]any{"at": "2025-04-25T08:00:00+10:00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	shift := decode[ShiftDTO](t, rec)
	assert.Equal(t, pay.KindPublicHoliday, shift.DayType.Kind)
	assert.Equal(t, "ANZAC Day", shift.DayType.HolidayName)
	assert.Equal(t, "50", shift.HourlyRate.String())
}

func TestClockIn_ClassifiesByLocalDate(t *testing.T) {
	// 23:30 on Friday UTC is Saturday morning in Hobart.
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", map[string]any{"at": "2025-06-06T23:30:00Z"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	shift := decode[ShiftDTO](t, rec)
	assert.Equal(t, pay.KindSaturday, shift.DayType.Kind)
}

func TestClockIn_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Second clock-in conflicts
	rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown staff
	rec = env.do(t, http.MethodPost, "/api/staff/ghost/clock-in", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No rate card
	rec = env.do(t, http.MethodPost, "/api/staff", map[string]any{"id": "s-2", "name": "No Card"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/staff/s-2/clock-in", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClockOut_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-out", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "no open shift")

	rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", map[string]any{"at": "2025-06-07T09:00:00+10:00"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-out", map[string]any{"at": "2025-06-07T09:00:00+10:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "clock-out must be after clock-in")

	open, err := env.store.GetOpenShift(context.Background(), "s-1")
	require.NoError(t, err)
	assert.NotNil(t, open, "rejected clock-out leaves the shift open")
}

// =============================================================================
// AUTO-CLOSE
// =============================================================================

func TestGetActiveShift_RunningShift(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	env.now = env.now.Add(90 * time.Minute)
	rec = env.do(t, http.MethodGet, "/api/staff/s-1/shift", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	active := decode[ActiveShiftDTO](t, rec)
	assert.True(t, active.Active)
	assert.Equal(t, "1.50", active.ElapsedHours)
	assert.False(t, active.AutoClosed)
}

func TestGetActiveShift_AutoClosesOverCap(t *testing.T) {
	// GIVEN: A Saturday shift left open for 9 hours
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")
	clockIn := env.now

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	env.now = clockIn.Add(9 * time.Hour)

	// WHEN: The kiosk asks for the active shift
	rec = env.do(t, http.MethodGet, "/api/staff/s-1/shift", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: It was closed at the 8 hour cap, paid at the weekday rate
	active := decode[ActiveShiftDTO](t, rec)
	assert.False(t, active.Active)
	assert.True(t, active.AutoClosed)
	require.NotNil(t, active.Shift)
	require.NotNil(t, active.Shift.ClockOut)
	assert.True(t, clockIn.Add(8*time.Hour).Equal(*active.Shift.ClockOut))
	assert.Equal(t, "200", active.Shift.TotalPay.String())
	assert.True(t, active.Shift.AutoClosed)

	// AND: Clocking out afterwards finds no open shift
	rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-out", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSweepAutoClose(t *testing.T) {
	// GIVEN: One shift past the cap and one still within it
	env := newTestEnv(t)
	env.seedStaff(t, "early")
	env.seedStaff(t, "late")

	rec := env.do(t, http.MethodPost, "/api/staff/early/clock-in", map[string]any{"at": "2025-06-07T06:00:00+10:00"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/staff/late/clock-in", map[string]any{"at": "2025-06-07T12:00:00+10:00"})
	require.Equal(t, http.StatusCreated, rec.Code)
	env.now = at("2025-06-07T15:00:00+10:00")

	// WHEN: The sweep runs
	rec = env.do(t, http.MethodPost, "/api/admin/auto-close", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Only the early shift is closed
	run := decode[AutoCloseRunDTO](t, rec)
	assert.Equal(t, 1, run.Checked)
	assert.Equal(t, 1, run.Closed)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, "weekday", run.RateMode)
	assert.Equal(t, "8", run.MaxHours)

	open, err := env.store.ListOpenShifts(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "late", open[0].StaffID)

	rec = env.do(t, http.MethodGet, "/api/admin/auto-close/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]AutoCloseRunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestAutoCloseShift_SkipsShiftClosedByOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	stale, err := env.store.GetOpenShift(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, stale)

	env.now = env.now.Add(4 * time.Hour)
	rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-out", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The sweep read the shift before the owner closed it
	closed, err := env.handler.autoCloseShift(context.Background(), *stale)
	require.NoError(t, err)
	assert.False(t, closed)

	got, err := env.store.GetShift(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.False(t, got.AutoClosed)
	assert.Equal(t, "140", got.TotalPay.Decimal.String())
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	env := newTestEnv(t)
	scheduler := NewAutoCloseScheduler(env.handler)
	scheduler.CheckInterval = time.Hour

	scheduler.Start()
	scheduler.Stop()

	runs, err := env.store.ListAutoCloseRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

// =============================================================================
// HISTORY + QUOTES
// =============================================================================

func TestListShifts_Summary(t *testing.T) {
	env := newTestEnv(t)
	env.seedStaff(t, "s-1")

	shifts := [][2]string{
		{"2025-06-05T09:00:00+10:00", "2025-06-05T13:00:00+10:00"}, // Thursday, 4h x 25
		{"2025-06-07T09:00:00+10:00", "2025-06-07T17:00:00+10:00"}, // Saturday, 8h x 35
		{"2025-06-10T09:00:00+10:00", "2025-06-10T10:00:00+10:00"}, // next week
	}
	for _, s := range shifts {
		rec := env.do(t, http.MethodPost, "/api/staff/s-1/clock-in", map[string]any{"at": s[0]})
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = env.do(t, http.MethodPost, "/api/staff/s-1/clock-out", map[string]any{"at": s[1]})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/staff/s-1/shifts?from=2025-06-02&to=2025-06-08", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	history := decode[ShiftHistoryDTO](t, rec)
	assert.Len(t, history.Shifts, 2)
	assert.Equal(t, 2, history.Summary.Shifts)
	assert.Equal(t, "12", history.Summary.TotalHours.String())
	assert.Equal(t, "380", history.Summary.TotalPay.String())
	assert.Equal(t, "280", history.Summary.ByDayType[string(pay.KindSaturday)].Pay.String())

	rec = env.do(t, http.MethodGet, "/api/staff/s-1/shifts?from=2025-06-08&to=2025-06-02", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuotePay_OvertimeSplit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pay/quote", map[string]any{
		"clockIn":  "2025-06-07T09:00:00+10:00",
		"clockOut": "2025-06-07T17:00:00+10:00",
		"rates": map[string]any{
			"weekdayRate":         25,
			"saturdayRate":        35,
			"overtimeRate":        45,
			"defaultHoursPerWeek": 25,
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[PayResultDTO](t, rec)
	assert.Equal(t, pay.KindSaturday, result.DayType.Kind)
	assert.Equal(t, "5", result.OrdinaryHours.String())
	assert.Equal(t, "3", result.OvertimeHours.String())
	assert.Equal(t, "310", result.TotalPay.String())
}

func TestQuotePay_SubSecondInterval(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pay/quote", map[string]any{
		"clockIn":  "2025-06-04T09:00:00+10:00",
		"clockOut": "2025-06-04T09:00:00.9+10:00",
		"rates":    map[string]any{"weekdayRate": 25},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[PayResultDTO](t, rec)
	assert.Equal(t, "0.00025", result.DurationHours.String())
	assert.Equal(t, "0.00625", result.TotalPay.String())
}

func TestQuotePay_InvalidRange(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pay/quote", map[string]any{
		"clockIn":  "2025-06-07T17:00:00+10:00",
		"clockOut": "2025-06-07T09:00:00+10:00",
		"rates":    map[string]any{"weekdayRate": 25},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/pay/quote", map[string]any{"rates": map[string]any{"weekdayRate": 25}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "clock times are required")
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestListHolidays(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/holidays?state=tas&year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[HolidayListDTO](t, rec)
	assert.Equal(t, "TAS", list.State)
	assert.True(t, list.Overridden)
	require.Len(t, list.Holidays, 10)
	assert.Equal(t, "2025-01-01", list.Holidays[0].Date)
	assert.Equal(t, "Past", list.Holidays[0].DaysUntil)

	rec = env.do(t, http.MethodGet, "/api/holidays?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHolidays_UnknownStateIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/holidays?state=QLD&year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[HolidayListDTO](t, rec)
	assert.Empty(t, list.Holidays)
}

func TestCheckHoliday(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/holidays/check?date=2025-12-25&state=TAS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[HolidayCheckDTO](t, rec)
	assert.True(t, check.IsPublicHoliday)
	require.NotNil(t, check.Holiday)
	assert.Equal(t, "Christmas Day", check.Holiday.Name)
	assert.Equal(t, "Christmas Period", check.Holiday.Category)
	assert.Equal(t, pay.KindPublicHoliday, check.DayType.Kind)

	rec = env.do(t, http.MethodGet, "/api/holidays/check?date=2025-06-08&state=TAS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	check = decode[HolidayCheckDTO](t, rec)
	assert.False(t, check.IsPublicHoliday)
	assert.Equal(t, pay.KindSunday, check.DayType.Kind)

	rec = env.do(t, http.MethodGet, "/api/holidays/check?date=25-12-2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpcomingHolidays_CrossesYear(t *testing.T) {
	env := newTestEnv(t)
	env.now = time.Date(2025, time.December, 20, 10, 0, 0, 0, hobart)

	rec := env.do(t, http.MethodGet, "/api/holidays/upcoming?state=TAS", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	upcoming := decode[[]HolidayDTO](t, rec)
	require.Len(t, upcoming, 3)
	assert.Equal(t, "2025-12-25", upcoming[0].Date)
	assert.Equal(t, "In 5 days", upcoming[0].DaysUntil)
	assert.Equal(t, "2025-12-26", upcoming[1].Date)
	assert.Equal(t, "2026-01-01", upcoming[2].Date)

	rec = env.do(t, http.MethodGet, "/api/holidays/upcoming?count=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverrides_ReplaceAndDelete(t *testing.T) {
	// GIVEN: NSW 2026 is computed from rules
	env := newTestEnv(t)
	ctx := context.Background()

	// WHEN: An override with a single holiday is installed
	rec := env.do(t, http.MethodPut, "/api/holidays/overrides", map[string]any{
		"state": "NSW",
		"year":  2026,
		"holidays": []map[string]any{
			{"date": "2026-01-01", "name": "New Year's Day"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: It replaces the rules entirely, and is persisted
	rec = env.do(t, http.MethodGet, "/api/holidays?state=NSW&year=2026", nil)
	list := decode[HolidayListDTO](t, rec)
	assert.True(t, list.Overridden)
	assert.Len(t, list.Holidays, 1)

	stored, err := env.store.LoadOverrides(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "NSW", stored[0].State)

	rec = env.do(t, http.MethodGet, "/api/holidays/overrides?state=NSW&year=2026", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[OverrideDTO](t, rec).Exists)

	// WHEN: The override is dropped
	rec = env.do(t, http.MethodDelete, "/api/holidays/overrides?state=NSW&year=2026", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: The rules apply again
	rec = env.do(t, http.MethodGet, "/api/holidays?state=NSW&year=2026", nil)
	list = decode[HolidayListDTO](t, rec)
	assert.False(t, list.Overridden)
	assert.Greater(t, len(list.Holidays), 1)

	stored, err = env.store.LoadOverrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestOverrides_MalformedDateRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/holidays/overrides", map[string]any{
		"state":    "TAS",
		"year":     2026,
		"holidays": []map[string]any{{"date": "2026-13-01", "name": "Nope"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "2026-13-01")

	rec = env.do(t, http.MethodPut, "/api/holidays/overrides", map[string]any{
		"state":    "TAS",
		"year":     2026,
		"holidays": []map[string]any{{"date": "2027-01-01", "name": "New Year's Day"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "outside override year")

	// The existing override is untouched
	holidays, err := env.handler.Holidays.HolidaysForYear("TAS", 2026)
	require.NoError(t, err)
	assert.Len(t, holidays, 10)
}

func TestOverrides_FailedSaveLeavesCalendarUnchanged(t *testing.T) {
	// GIVEN: A TAS 2026 override, then a database that rejects writes
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPut, "/api/holidays/overrides", map[string]any{
		"state":    "TAS",
		"year":     2026,
		"holidays": []map[string]any{{"date": "2026-01-01", "name": "New Year's Day"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, env.store.Close())

	// WHEN: A new NSW override is put
	rec = env.do(t, http.MethodPut, "/api/holidays/overrides", map[string]any{
		"state":    "NSW",
		"year":     2026,
		"holidays": []map[string]any{{"date": "2026-01-01", "name": "New Year's Day"}},
	})

	// THEN: The save fails and NSW 2026 still comes from its rules
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.handler.Holidays.Overrides().Has("NSW", 2026))
	nsw, err := env.handler.Holidays.HolidaysForYear("NSW", 2026)
	require.NoError(t, err)
	assert.Greater(t, len(nsw), 1)

	// WHEN: The TAS override is deleted
	rec = env.do(t, http.MethodDelete, "/api/holidays/overrides?state=TAS&year=2026", nil)

	// THEN: It stays in force
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, env.handler.Holidays.Overrides().Has("TAS", 2026))

	// WHEN: A TAS holiday is renamed
	rec = env.do(t, http.MethodPut, "/api/holidays/overrides/rename", map[string]any{
		"state": "TAS",
		"date":  "2026-01-01",
		"name":  "Renamed",
	})

	// THEN: The old name is kept
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	h, err := env.handler.Holidays.HolidayDetails(calendar.NewDate(2026, time.January, 1), "TAS")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "New Year's Day", h.Name)
}

func TestRenameHoliday_SeedsFromRules(t *testing.T) {
	env := newTestEnv(t)

	before, err := env.handler.Holidays.HolidaysForYear("NSW", 2026)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/api/holidays/overrides/rename", map[string]any{
		"state": "NSW",
		"date":  "2026-08-03",
		"name":  "Bank Holiday (NSW)",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	override := decode[OverrideDTO](t, rec)
	assert.Len(t, override.Holidays, len(before), "other holidays are kept")

	h, err := env.handler.Holidays.HolidayDetails(calendar.NewDate(2026, time.August, 3), "NSW")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "Bank Holiday (NSW)", h.Name)

	// Persisted overrides survive a restart
	fresh := newTestEnv(t)
	fresh.handler.Store = env.store
	require.NoError(t, fresh.handler.LoadOverrides(context.Background()))
	h, err = fresh.handler.Holidays.HolidayDetails(calendar.NewDate(2026, time.August, 3), "NSW")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "Bank Holiday (NSW)", h.Name)

	rec = env.do(t, http.MethodPut, "/api/holidays/overrides/rename", map[string]any{
		"date": "03/08/2026",
		"name": "Bad",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestStateSetting(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/settings/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	setting := decode[StateSettingDTO](t, rec)
	assert.Equal(t, "TAS", setting.State)
	assert.True(t, setting.Known)
	assert.Equal(t, []string{"NSW", "TAS", "VIC"}, setting.Available)

	rec = env.do(t, http.MethodPut, "/api/settings/state", map[string]any{"state": "vic"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VIC", decode[StateSettingDTO](t, rec).State)

	// Requests without a state now use VIC
	rec = env.do(t, http.MethodGet, "/api/holidays/check?date=2025-11-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[HolidayCheckDTO](t, rec)
	assert.Equal(t, "VIC", check.State)
	assert.True(t, check.IsPublicHoliday, "Melbourne Cup")

	rec = env.do(t, http.MethodPut, "/api/settings/state", map[string]any{"state": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
