/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the calendar and pay packages from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  h.validate.Struct before touching the domain; anything the domain checks
  itself (override dates, clock-out after clock-in) is left to the domain
  so its structured errors reach the client.

MONEY AND HOURS:
  Rates, hours and pay are decimal.Decimal and serialize as JSON strings
  ("280", "7.5"). Requests accept numbers or strings.

SEE ALSO:
  - handlers.go: Uses these types
  - pay/shift.go: Result
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/pay"
	"github.com/warp/roster-engine/store/sqlite"
)

// =============================================================================
// STAFF
// =============================================================================

// StaffDTO represents a staff member in API responses.
type StaffDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VenueID   string    `json:"venueId,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateStaffRequest is the request body for creating a staff member.
// ID is generated when empty.
type CreateStaffRequest struct {
	ID      string `json:"id" validate:"omitempty,max=64"`
	Name    string `json:"name" validate:"required,max=200"`
	VenueID string `json:"venueId" validate:"omitempty,max=64"`
}

// RateCardDTO is used both ways. Absent or zero rates fall back to the
// weekday rate.
type RateCardDTO struct {
	WeekdayRate         decimal.NullDecimal `json:"weekdayRate"`
	SaturdayRate        decimal.NullDecimal `json:"saturdayRate"`
	SundayRate          decimal.NullDecimal `json:"sundayRate"`
	PublicHolidayRate   decimal.NullDecimal `json:"publicHolidayRate"`
	OvertimeRate        decimal.NullDecimal `json:"overtimeRate"`
	DefaultHoursPerWeek decimal.NullDecimal `json:"defaultHoursPerWeek"`
}

func (d RateCardDTO) toRateCard() pay.RateCard {
	return pay.RateCard{
		WeekdayRate:         d.WeekdayRate,
		SaturdayRate:        d.SaturdayRate,
		SundayRate:          d.SundayRate,
		PublicHolidayRate:   d.PublicHolidayRate,
		OvertimeRate:        d.OvertimeRate,
		DefaultHoursPerWeek: d.DefaultHoursPerWeek,
	}
}

// negative returns the name of the first negative field, if any.
func (d RateCardDTO) negative() string {
	fields := []struct {
		name  string
		value decimal.NullDecimal
	}{
		{"weekdayRate", d.WeekdayRate},
		{"saturdayRate", d.SaturdayRate},
		{"sundayRate", d.SundayRate},
		{"publicHolidayRate", d.PublicHolidayRate},
		{"overtimeRate", d.OvertimeRate},
		{"defaultHoursPerWeek", d.DefaultHoursPerWeek},
	}
	for _, f := range fields {
		if f.value.Valid && f.value.Decimal.IsNegative() {
			return f.name
		}
	}
	return ""
}

func toRateCardDTO(card pay.RateCard) RateCardDTO {
	return RateCardDTO{
		WeekdayRate:         card.WeekdayRate,
		SaturdayRate:        card.SaturdayRate,
		SundayRate:          card.SundayRate,
		PublicHolidayRate:   card.PublicHolidayRate,
		OvertimeRate:        card.OvertimeRate,
		DefaultHoursPerWeek: card.DefaultHoursPerWeek,
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

// ClockInRequest is optional; an empty body clocks in now in the current state.
type ClockInRequest struct {
	At    *time.Time `json:"at"`
	State string     `json:"state" validate:"omitempty,alpha,min=2,max=3"`
}

// ClockOutRequest is optional; an empty body clocks out now.
type ClockOutRequest struct {
	At *time.Time `json:"at"`
}

// DayTypeDTO is a classified day.
type DayTypeDTO struct {
	Kind        pay.DayKind `json:"kind"`
	Label       string      `json:"label"`
	HolidayName string      `json:"holidayName,omitempty"`
}

func toDayTypeDTO(dt pay.DayType) DayTypeDTO {
	return DayTypeDTO{Kind: dt.Kind, Label: dt.Label(), HolidayName: dt.HolidayName}
}

// ShiftDTO represents a shift. Pay fields are null while the shift is open.
type ShiftDTO struct {
	ID            string           `json:"id"`
	StaffID       string           `json:"staffId"`
	State         string           `json:"state"`
	ClockIn       time.Time        `json:"clockIn"`
	ClockOut      *time.Time       `json:"clockOut,omitempty"`
	DayType       DayTypeDTO       `json:"dayType"`
	HourlyRate    decimal.Decimal  `json:"hourlyRate"`
	HoursWorked   *decimal.Decimal `json:"hoursWorked"`
	OvertimeHours *decimal.Decimal `json:"overtimeHours"`
	TotalPay      *decimal.Decimal `json:"totalPay"`
	Payday        string           `json:"payday,omitempty"`
	AutoClosed    bool             `json:"autoClosed"`
	Open          bool             `json:"open"`
}

func nullable(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func toShiftDTO(sh sqlite.Shift) ShiftDTO {
	return ShiftDTO{
		ID:            sh.ID,
		StaffID:       sh.StaffID,
		State:         sh.State,
		ClockIn:       sh.ClockIn,
		ClockOut:      sh.ClockOut,
		DayType:       toDayTypeDTO(sh.DayType),
		HourlyRate:    sh.HourlyRate,
		HoursWorked:   nullable(sh.HoursWorked),
		OvertimeHours: nullable(sh.OvertimeHours),
		TotalPay:      nullable(sh.TotalPay),
		Payday:        sh.Payday,
		AutoClosed:    sh.AutoClosed,
		Open:          sh.IsOpen(),
	}
}

// ActiveShiftDTO answers GET /api/staff/{id}/shift.
type ActiveShiftDTO struct {
	Active       bool      `json:"active"`
	Shift        *ShiftDTO `json:"shift,omitempty"`
	ElapsedHours string    `json:"elapsedHours,omitempty"`
	// AutoClosed is true when this read force-closed an over-cap shift.
	AutoClosed bool `json:"autoClosed"`
}

// SummaryDTO totals a shift history.
type SummaryDTO struct {
	Start         string               `json:"start"`
	End           string               `json:"end"`
	Shifts        int                  `json:"shifts"`
	TotalHours    decimal.Decimal      `json:"totalHours"`
	OvertimeHours decimal.Decimal      `json:"overtimeHours"`
	TotalPay      decimal.Decimal      `json:"totalPay"`
	ByDayType     map[string]BucketDTO `json:"byDayType"`
}

type BucketDTO struct {
	Shifts int             `json:"shifts"`
	Hours  decimal.Decimal `json:"hours"`
	Pay    decimal.Decimal `json:"pay"`
}

func toSummaryDTO(s pay.Summary) SummaryDTO {
	dto := SummaryDTO{
		Start:         calendar.FormatDate(s.Period.Start),
		End:           calendar.FormatDate(s.Period.End),
		Shifts:        s.Shifts,
		TotalHours:    s.TotalHours,
		OvertimeHours: s.OvertimeHours,
		TotalPay:      s.TotalPay,
		ByDayType:     make(map[string]BucketDTO, len(s.ByKind)),
	}
	for kind, b := range s.ByKind {
		dto.ByDayType[string(kind)] = BucketDTO{Shifts: b.Shifts, Hours: b.Hours, Pay: b.Pay}
	}
	return dto
}

// ShiftHistoryDTO answers GET /api/staff/{id}/shifts.
type ShiftHistoryDTO struct {
	Shifts  []ShiftDTO `json:"shifts"`
	Summary SummaryDTO `json:"summary"`
}

// =============================================================================
// PAY
// =============================================================================

// PayQuoteRequest prices an arbitrary interval without recording it.
type PayQuoteRequest struct {
	ClockIn  time.Time   `json:"clockIn" validate:"required"`
	ClockOut time.Time   `json:"clockOut" validate:"required"`
	State    string      `json:"state" validate:"omitempty,alpha,min=2,max=3"`
	Rates    RateCardDTO `json:"rates"`
}

// PayResultDTO is a computed shift.
type PayResultDTO struct {
	DayType       DayTypeDTO      `json:"dayType"`
	ClockIn       time.Time       `json:"clockIn"`
	ClockOut      time.Time       `json:"clockOut"`
	DurationHours decimal.Decimal `json:"durationHours"`
	Rate          decimal.Decimal `json:"rate"`
	OrdinaryHours decimal.Decimal `json:"ordinaryHours"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	OvertimeRate  decimal.Decimal `json:"overtimeRate"`
	TotalPay      decimal.Decimal `json:"totalPay"`
	AutoClosed    bool            `json:"autoClosed"`
}

func toPayResultDTO(r pay.Result) PayResultDTO {
	return PayResultDTO{
		DayType:       toDayTypeDTO(r.DayType),
		ClockIn:       r.ClockIn,
		ClockOut:      r.ClockOut,
		DurationHours: r.DurationHours,
		Rate:          r.Rate,
		OrdinaryHours: r.OrdinaryHours,
		OvertimeHours: r.OvertimeHours,
		OvertimeRate:  r.OvertimeRate,
		TotalPay:      r.TotalPay,
		AutoClosed:    r.AutoClosed,
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	Note      string `json:"note,omitempty"`
	Source    string `json:"source"`
	Weekday   string `json:"weekday"`
	Category  string `json:"category"`
	DaysUntil string `json:"daysUntil,omitempty"`
}

func toHolidayDTO(h calendar.Holiday) HolidayDTO {
	return HolidayDTO{
		Date:     h.DateString(),
		Name:     h.Name,
		Code:     h.Code,
		Note:     h.Note,
		Source:   string(h.Source),
		Weekday:  h.Date.Weekday().String(),
		Category: calendar.Category(h),
	}
}

// HolidayListDTO answers GET /api/holidays.
type HolidayListDTO struct {
	State      string       `json:"state"`
	Year       int          `json:"year"`
	Overridden bool         `json:"overridden"`
	Holidays   []HolidayDTO `json:"holidays"`
}

// HolidayCheckDTO answers GET /api/holidays/check.
type HolidayCheckDTO struct {
	Date            string      `json:"date"`
	State           string      `json:"state"`
	IsPublicHoliday bool        `json:"isPublicHoliday"`
	Holiday         *HolidayDTO `json:"holiday,omitempty"`
	DayType         DayTypeDTO  `json:"dayType"`
}

// OverrideDayDTO is one override entry. Dates are checked by the calendar
// so a malformed one is reported with its state and year.
type OverrideDayDTO struct {
	Date string `json:"date" validate:"required"`
	Name string `json:"name" validate:"required,max=200"`
}

// OverrideRequest replaces the full list for (state, year).
type OverrideRequest struct {
	State    string           `json:"state" validate:"required,alpha,min=2,max=3"`
	Year     int              `json:"year" validate:"required,min=1900,max=2200"`
	Holidays []OverrideDayDTO `json:"holidays" validate:"required,dive"`
}

// OverrideDTO answers GET /api/holidays/overrides.
type OverrideDTO struct {
	State    string           `json:"state"`
	Year     int              `json:"year"`
	Exists   bool             `json:"exists"`
	Holidays []OverrideDayDTO `json:"holidays"`
}

// RenameHolidayRequest renames or adds a single holiday.
type RenameHolidayRequest struct {
	State string `json:"state" validate:"omitempty,alpha,min=2,max=3"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Name  string `json:"name" validate:"required,max=200"`
}

// StateSettingRequest updates the current state.
type StateSettingRequest struct {
	State string `json:"state" validate:"required,alpha,min=2,max=3"`
}

// StateSettingDTO answers GET/PUT /api/settings/state.
type StateSettingDTO struct {
	State     string   `json:"state"`
	Known     bool     `json:"known"`
	Available []string `json:"available"`
}

// =============================================================================
// AUTO-CLOSE
// =============================================================================

// AutoCloseRunDTO represents one sweep.
type AutoCloseRunDTO struct {
	ID          string     `json:"id"`
	RateMode    string     `json:"rateMode"`
	MaxHours    string     `json:"maxHours"`
	Checked     int        `json:"checked"`
	Closed      int        `json:"closed"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func toAutoCloseRunDTO(r sqlite.AutoCloseRun) AutoCloseRunDTO {
	return AutoCloseRunDTO{
		ID:          r.ID,
		RateMode:    r.RateMode,
		MaxHours:    r.MaxHours.String(),
		Checked:     r.Checked,
		Closed:      r.Closed,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
