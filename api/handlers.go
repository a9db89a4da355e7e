/*
handlers.go - HTTP API handlers for the roster engine

PURPOSE:
  Exposes the holiday calendar and shift pay engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the calendar
  and pay packages. Every pay figure comes from pay.ComputePay or
  pay.AutoClosePolicy; nothing here prices a shift on its own.

ENDPOINTS:
  Holidays:
    GET    /api/holidays                   Holidays for (state, year)
    GET    /api/holidays/check             Is a date a public holiday
    GET    /api/holidays/upcoming          Next N holidays
    GET    /api/holidays/overrides         Raw override list
    PUT    /api/holidays/overrides         Replace an override list
    DELETE /api/holidays/overrides         Drop an override (back to rules)
    PUT    /api/holidays/overrides/rename  Rename or add one holiday

  Settings:
    GET    /api/settings/state             Current state
    PUT    /api/settings/state             Change current state

  Staff and shifts:
    GET    /api/staff                      List staff
    POST   /api/staff                      Create staff member
    GET    /api/staff/{id}                 Get staff member
    GET    /api/staff/{id}/rates           Get rate card
    PUT    /api/staff/{id}/rates           Replace rate card
    POST   /api/staff/{id}/clock-in        Open a shift
    POST   /api/staff/{id}/clock-out       Close the open shift
    GET    /api/staff/{id}/shift           Active shift (auto-closes over-cap)
    GET    /api/staff/{id}/shifts          History and pay summary

  Pay:
    POST   /api/pay/quote                  Price an interval without saving

  Admin:
    POST   /api/admin/auto-close           Run the auto-close sweep now
    GET    /api/admin/auto-close/runs      Recent sweeps

STATE RESOLUTION:
  Explicit "state" parameter, then the persisted current state, then the
  configured default. A state with neither rules nor overrides is allowed
  (it simply has no holidays) but is logged as a warning.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid date range, malformed override date
  - 404: Staff member or rate card not found
  - 409: Shift already open / no open shift
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Auto-close sweep
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/pay"
	"github.com/warp/roster-engine/store/sqlite"
)

const (
	defaultUpcoming = 3
	maxUpcoming     = 50
	defaultRunLimit = 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Holidays   *calendar.Calculator
	Classifier *pay.Classifier
	AutoClose  pay.AutoClosePolicy
	Location   *time.Location

	validate *validator.Validate
	now      func() time.Time

	// overridesMu serialises override edits so the database and the
	// in-memory calendar apply them in the same order.
	overridesMu sync.Mutex
}

// NewHandler creates a new handler. loc is the venue time zone used for
// calendar dates; nil means UTC.
func NewHandler(store *sqlite.Store, holidays *calendar.Calculator, loc *time.Location, policy pay.AutoClosePolicy) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Store:      store,
		Holidays:   holidays,
		Classifier: pay.NewClassifier(holidays, loc),
		AutoClose:  policy,
		Location:   loc,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// LoadOverrides installs persisted overrides over the configured ones.
func (h *Handler) LoadOverrides(ctx context.Context) error {
	lists, err := h.Store.LoadOverrides(ctx)
	if err != nil {
		return err
	}
	for _, l := range lists {
		if err := h.Holidays.Overrides().Set(l.State, l.Year, l.Entries); err != nil {
			return fmt.Errorf("persisted override: %w", err)
		}
	}
	return nil
}

// currentState resolves an explicit state, then the stored setting, then
// the default.
func (h *Handler) currentState(ctx context.Context, explicit string) (string, error) {
	state := calendar.NormalizeState(explicit)
	if state == "" {
		stored, ok, err := h.Store.GetSetting(ctx, sqlite.SettingCurrentState)
		if err != nil {
			return "", err
		}
		if ok {
			state = calendar.NormalizeState(stored)
		}
	}
	if state == "" {
		state = h.Holidays.DefaultState()
	}
	if !h.Holidays.KnownState(state) {
		log.Printf("[Holidays] Unknown state %q: no rules or overrides, every day is a working day", state)
	}
	return state, nil
}

func (h *Handler) today() time.Time {
	return calendar.DateOf(h.now().In(h.Location))
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// ListStaff returns all staff.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Store.ListStaff(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list staff", err)
		return
	}

	dtos := make([]StaffDTO, len(staff))
	for i, st := range staff {
		dtos[i] = toStaffDTO(st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStaff returns a single staff member.
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStaffDTO(*st))
}

// CreateStaff creates a new staff member.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	st := sqlite.Staff{ID: req.ID, Name: req.Name, VenueID: req.VenueID, Active: true}
	if err := h.Store.SaveStaff(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create staff member", err)
		return
	}

	saved, err := h.Store.GetStaff(r.Context(), st.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load staff member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStaffDTO(*saved))
}

// GetRates returns a staff member's rate card.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}
	card, err := h.Store.GetRateCard(r.Context(), st.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate card", err)
		return
	}
	if card == nil {
		writeError(w, http.StatusNotFound, "Rate card not found", pay.ErrRateCardNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toRateCardDTO(*card))
}

// SaveRates replaces a staff member's rate card.
func (h *Handler) SaveRates(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}

	var req RateCardDTO
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if field := req.negative(); field != "" {
		writeError(w, http.StatusBadRequest, "Invalid rate card", fmt.Errorf("%s must not be negative", field))
		return
	}

	card := req.toRateCard()
	if err := h.Store.SaveRateCard(r.Context(), st.ID, card); err != nil {
		writeDomainError(w, "Failed to save rate card", err)
		return
	}
	writeJSON(w, http.StatusOK, toRateCardDTO(card))
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ClockIn opens a shift. The day type and rate are snapshotted for display;
// pay is recomputed at clock-out.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}

	var req ClockInRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.rateCard(ctx, st.ID)
	if err != nil {
		writeDomainError(w, "Cannot clock in", err)
		return
	}

	state, err := h.currentState(ctx, req.State)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}

	at := h.now()
	if req.At != nil {
		at = *req.At
	}

	dt, err := h.Classifier.Classify(at, state)
	if err != nil {
		writeDomainError(w, "Failed to classify day", err)
		return
	}

	sh := sqlite.Shift{
		ID:         uuid.NewString(),
		StaffID:    st.ID,
		State:      state,
		ClockIn:    at.UTC(),
		DayType:    dt,
		HourlyRate: pay.ResolveRate(card, dt),
	}
	if err := h.Store.OpenShift(ctx, sh); err != nil {
		writeDomainError(w, "Cannot clock in", err)
		return
	}

	log.Printf("[Shifts] %s clocked in (%s, %s)", st.ID, state, dt)

	saved, err := h.Store.GetShift(ctx, sh.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(*saved))
}

// ClockOut closes the open shift and records its pay.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}

	var req ClockOutRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	open, err := h.Store.GetOpenShift(ctx, st.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shift", err)
		return
	}
	if open == nil {
		writeDomainError(w, "Cannot clock out", pay.ErrShiftNotOpen)
		return
	}

	at := h.now()
	if req.At != nil {
		at = *req.At
	}

	result, err := h.closeShift(ctx, *open, at)
	if err != nil {
		writeDomainError(w, "Cannot clock out", err)
		return
	}

	log.Printf("[Shifts] %s clocked out: %s h, pay %s", st.ID, result.DurationHours.StringFixed(2), result.TotalPay.StringFixed(2))

	saved, err := h.Store.GetShift(ctx, open.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*saved))
}

// GetActiveShift returns the open shift. A shift past the auto-close cap is
// closed first, the same way the sweep would close it.
func (h *Handler) GetActiveShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}

	open, err := h.Store.GetOpenShift(ctx, st.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shift", err)
		return
	}
	if open == nil {
		writeJSON(w, http.StatusOK, ActiveShiftDTO{Active: false})
		return
	}

	now := h.now()
	if h.AutoClose.Due(open.ClockIn, now) {
		closed, err := h.autoCloseShift(ctx, *open)
		if err != nil {
			writeDomainError(w, "Failed to auto-close shift", err)
			return
		}
		saved, err := h.Store.GetShift(ctx, open.ID)
		if err != nil || saved == nil {
			writeError(w, http.StatusInternalServerError, "Failed to load shift", err)
			return
		}
		dto := toShiftDTO(*saved)
		writeJSON(w, http.StatusOK, ActiveShiftDTO{Active: false, Shift: &dto, AutoClosed: closed})
		return
	}

	dto := toShiftDTO(*open)
	writeJSON(w, http.StatusOK, ActiveShiftDTO{
		Active:       true,
		Shift:        &dto,
		ElapsedHours: pay.Hours(open.Interval().Elapsed(now)).StringFixed(2),
	})
}

// ListShifts returns shifts whose clock-in falls in [from, to] (local dates)
// and a pay summary. Defaults to the current week.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, ok := h.loadStaff(w, r)
	if !ok {
		return
	}

	period := pay.WeekOf(h.today())
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		period.Start = from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		period.End = to
	}
	if period.End.Before(period.Start) {
		writeError(w, http.StatusBadRequest, "Invalid range", fmt.Errorf("to %s is before from %s",
			calendar.FormatDate(period.End), calendar.FormatDate(period.Start)))
		return
	}

	shifts, err := h.Store.ListShifts(ctx, st.ID, h.localMidnight(period.Start), h.localMidnight(calendar.AddDays(period.End, 1)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	dtos := make([]ShiftDTO, len(shifts))
	results := make([]pay.Result, 0, len(shifts))
	for i, sh := range shifts {
		dtos[i] = toShiftDTO(sh)
		if res, ok := sh.Result(); ok {
			res.ClockIn = res.ClockIn.In(h.Location)
			results = append(results, res)
		}
	}

	writeJSON(w, http.StatusOK, ShiftHistoryDTO{
		Shifts:  dtos,
		Summary: toSummaryDTO(pay.Summarize(period, results)),
	})
}

// =============================================================================
// PAY HANDLERS
// =============================================================================

// QuotePay prices an interval against a supplied rate card.
func (h *Handler) QuotePay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PayQuoteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if field := req.Rates.negative(); field != "" {
		writeError(w, http.StatusBadRequest, "Invalid rate card", fmt.Errorf("%s must not be negative", field))
		return
	}

	state, err := h.currentState(ctx, req.State)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}

	dt, err := h.Classifier.Classify(req.ClockIn, state)
	if err != nil {
		writeDomainError(w, "Failed to classify day", err)
		return
	}

	result, err := pay.ComputePay(req.Rates.toRateCard(), dt, req.ClockIn, req.ClockOut)
	if err != nil {
		writeDomainError(w, "Cannot price shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayResultDTO(result))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holidays for (state, year).
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := h.currentState(ctx, r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	holidays, err := h.Holidays.HolidaysForYear(state, year)
	if err != nil {
		writeDomainError(w, "Failed to compute holidays", err)
		return
	}

	today := h.today()
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
		dtos[i].DaysUntil = calendar.DaysUntilLabel(today, hol.Date)
	}

	writeJSON(w, http.StatusOK, HolidayListDTO{
		State:      state,
		Year:       year,
		Overridden: h.Holidays.Overrides().Has(state, year),
		Holidays:   dtos,
	})
}

// CheckHoliday reports whether a date is a public holiday and its day type.
func (h *Handler) CheckHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := h.today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		date = d
	}

	state, err := h.currentState(ctx, r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}

	details, err := h.Holidays.HolidayDetails(date, state)
	if err != nil {
		writeDomainError(w, "Failed to compute holidays", err)
		return
	}
	dt, err := h.Classifier.Classify(h.localNoon(date), state)
	if err != nil {
		writeDomainError(w, "Failed to classify day", err)
		return
	}

	resp := HolidayCheckDTO{
		Date:            calendar.FormatDate(date),
		State:           state,
		IsPublicHoliday: details != nil,
		DayType:         toDayTypeDTO(dt),
	}
	if details != nil {
		dto := toHolidayDTO(*details)
		resp.Holiday = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpcomingHolidays returns the next holidays from today.
func (h *Handler) UpcomingHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count := defaultUpcoming
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxUpcoming {
			writeError(w, http.StatusBadRequest, "Invalid count", fmt.Errorf("count must be 1..%d", maxUpcoming))
			return
		}
		count = n
	}

	state, err := h.currentState(ctx, r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}

	today := h.today()
	holidays, err := h.Holidays.Upcoming(state, today, count)
	if err != nil {
		writeDomainError(w, "Failed to compute holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
		dtos[i].DaysUntil = calendar.DaysUntilLabel(today, hol.Date)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOverrides returns the raw override list for (state, year).
func (h *Handler) GetOverrides(w http.ResponseWriter, r *http.Request) {
	state, err := h.currentState(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	entries, exists := h.Holidays.Overrides().Get(state, year)
	writeJSON(w, http.StatusOK, toOverrideDTO(state, year, entries, exists))
}

// PutOverrides replaces the override list for (state, year). The list is
// validated, persisted and only then applied to the calendar, so a failed
// save leaves pay classification unchanged.
func (h *Handler) PutOverrides(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	state := calendar.NormalizeState(req.State)
	entries := make([]calendar.OverrideEntry, len(req.Holidays))
	for i, d := range req.Holidays {
		entries[i] = calendar.OverrideEntry{Date: strings.TrimSpace(d.Date), Name: d.Name}
	}
	if err := calendar.ValidateEntries(state, req.Year, entries); err != nil {
		writeDomainError(w, "Invalid override", err)
		return
	}

	h.overridesMu.Lock()
	defer h.overridesMu.Unlock()

	if err := h.Store.ReplaceOverrides(r.Context(), state, req.Year, entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	if err := h.Holidays.Overrides().Set(state, req.Year, entries); err != nil {
		writeDomainError(w, "Invalid override", err)
		return
	}

	log.Printf("[Holidays] Override for %s %d replaced (%d holidays)", state, req.Year, len(entries))

	stored, _ := h.Holidays.Overrides().Get(state, req.Year)
	writeJSON(w, http.StatusOK, toOverrideDTO(state, req.Year, stored, true))
}

// DeleteOverrides drops the override for (state, year); the rules apply again.
func (h *Handler) DeleteOverrides(w http.ResponseWriter, r *http.Request) {
	state, err := h.currentState(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	h.overridesMu.Lock()
	defer h.overridesMu.Unlock()

	if err := h.Store.DeleteOverrides(r.Context(), state, year); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete override", err)
		return
	}
	h.Holidays.Overrides().Delete(state, year)

	log.Printf("[Holidays] Override for %s %d removed", state, year)
	w.WriteHeader(http.StatusNoContent)
}

// RenameHoliday renames (or adds) one holiday. A year without an override
// is seeded from its rules so the other holidays are kept.
func (h *Handler) RenameHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RenameHolidayRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	state, err := h.currentState(ctx, req.State)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}

	h.overridesMu.Lock()
	defer h.overridesMu.Unlock()

	entries, err := h.Holidays.RenamedEntries(state, date, req.Name)
	if err != nil {
		writeDomainError(w, "Cannot rename holiday", err)
		return
	}
	if err := h.Store.ReplaceOverrides(ctx, state, date.Year(), entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	if err := h.Holidays.Overrides().Set(state, date.Year(), entries); err != nil {
		writeDomainError(w, "Cannot rename holiday", err)
		return
	}

	writeJSON(w, http.StatusOK, toOverrideDTO(state, date.Year(), entries, true))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetStateSetting returns the current state.
func (h *Handler) GetStateSetting(w http.ResponseWriter, r *http.Request) {
	state, err := h.currentState(r.Context(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve state", err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateSetting(state))
}

// PutStateSetting changes the current state.
func (h *Handler) PutStateSetting(w http.ResponseWriter, r *http.Request) {
	var req StateSettingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	state := calendar.NormalizeState(req.State)
	if !h.Holidays.KnownState(state) {
		log.Printf("[Holidays] Current state set to %q, which has no rules or overrides", state)
	}
	if err := h.Store.SaveSetting(r.Context(), sqlite.SettingCurrentState, state); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save setting", err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateSetting(state))
}

func (h *Handler) stateSetting(state string) StateSettingDTO {
	return StateSettingDTO{
		State:     state,
		Known:     h.Holidays.KnownState(state),
		Available: h.Holidays.Rules().States(),
	}
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerAutoClose runs the auto-close sweep immediately.
func (h *Handler) TriggerAutoClose(w http.ResponseWriter, r *http.Request) {
	run, err := h.SweepAutoClose(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Auto-close sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toAutoCloseRunDTO(run))
}

// ListAutoCloseRuns returns recent sweeps, newest first.
func (h *Handler) ListAutoCloseRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListAutoCloseRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]AutoCloseRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAutoCloseRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SHIFT CLOSING
// =============================================================================

func (h *Handler) rateCard(ctx context.Context, staffID string) (pay.RateCard, error) {
	card, err := h.Store.GetRateCard(ctx, staffID)
	if err != nil {
		return pay.RateCard{}, err
	}
	if card == nil {
		return pay.RateCard{}, pay.ErrRateCardNotFound
	}
	return *card, nil
}

// closeShift prices and records a manual clock-out. The day type is taken
// from the clock-in instant against the current calendar.
func (h *Handler) closeShift(ctx context.Context, sh sqlite.Shift, at time.Time) (pay.Result, error) {
	if _, err := sh.Interval().Close(at); err != nil {
		return pay.Result{}, err
	}

	card, err := h.rateCard(ctx, sh.StaffID)
	if err != nil {
		return pay.Result{}, err
	}
	dt, err := h.Classifier.Classify(sh.ClockIn, sh.State)
	if err != nil {
		return pay.Result{}, err
	}

	result, err := pay.ComputePay(card, dt, sh.ClockIn, at.UTC())
	if err != nil {
		return pay.Result{}, err
	}

	closed, err := h.Store.CloseShift(ctx, sh.ID, result, h.Classifier.LocalDate(result.ClockOut))
	if err != nil {
		return pay.Result{}, err
	}
	if !closed {
		return pay.Result{}, pay.ErrShiftAlreadyClosed
	}
	return result, nil
}

// autoCloseShift force-closes sh at clockIn + cap. closed is false when the
// owner clocked out first.
func (h *Handler) autoCloseShift(ctx context.Context, sh sqlite.Shift) (bool, error) {
	card, err := h.rateCard(ctx, sh.StaffID)
	if err != nil {
		return false, err
	}
	dt, err := h.Classifier.Classify(sh.ClockIn, sh.State)
	if err != nil {
		return false, err
	}

	result, err := h.AutoClose.Compute(card, dt, sh.ClockIn)
	if err != nil {
		return false, err
	}

	closed, err := h.Store.CloseShift(ctx, sh.ID, result, h.Classifier.LocalDate(result.ClockOut))
	if err != nil {
		return false, err
	}
	if closed {
		log.Printf("[AutoClose] Closed shift %s for %s at %s (%s mode)",
			sh.ID, sh.StaffID, result.ClockOut.Format(time.RFC3339), h.AutoClose.Mode)
	}
	return closed, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadStaff(w http.ResponseWriter, r *http.Request) (*sqlite.Staff, bool) {
	id := chi.URLParam(r, "id")
	st, err := h.Store.GetStaff(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load staff member", err)
		return nil, false
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Staff member not found", fmt.Errorf("%w: %s", pay.ErrStaffNotFound, id))
		return nil, false
	}
	return st, true
}

// decodeAndValidate decodes an optional JSON body into v and validates it.
// An empty body decodes to the zero value.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", errors.New(validationDetails(err)))
		return false
	}
	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return h.today().Year(), true
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1900 || year > 2200 {
		writeError(w, http.StatusBadRequest, "Invalid year", fmt.Errorf("year %q out of range", v))
		return 0, false
	}
	return year, true
}

func (h *Handler) localMidnight(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, h.Location)
}

func (h *Handler) localNoon(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, h.Location)
}

func toStaffDTO(st sqlite.Staff) StaffDTO {
	return StaffDTO{ID: st.ID, Name: st.Name, VenueID: st.VenueID, Active: st.Active, CreatedAt: st.CreatedAt}
}

func toOverrideDTO(state string, year int, entries []calendar.OverrideEntry, exists bool) OverrideDTO {
	days := make([]OverrideDayDTO, len(entries))
	for i, e := range entries {
		days[i] = OverrideDayDTO{Date: e.Date, Name: e.Name}
	}
	return OverrideDTO{State: state, Year: year, Exists: exists, Holidays: days}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case pay.IsConflict(err), errors.Is(err, pay.ErrShiftNotOpen):
		status = http.StatusConflict
	case pay.IsNotFound(err):
		status = http.StatusNotFound
	case pay.IsClientError(err), calendar.IsConfigError(err):
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}
