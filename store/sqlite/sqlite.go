/*
Package sqlite provides the SQLite persistence layer for the roster engine.

PURPOSE:
  Stores everything the pay engine consumes but does not own: staff and
  their rate cards, shift intervals, admin-edited holiday overrides, the
  current-state setting and the auto-close audit trail.

KEY TABLES:
  staff:             Staff records
  rate_cards:        One nullable rate per column, per staff member
  shifts:            Clock-in/clock-out intervals with computed pay
  holiday_overrides: Ordered (state, year) override lists
  settings:          Key/value settings (current_state)
  auto_close_runs:   One row per auto-close sweep

SHIFT LIFECYCLE:
  A shift is inserted open (clock_out NULL) and closed exactly once. Close
  is a conditional UPDATE ... WHERE clock_out IS NULL, so a manual
  clock-out racing the auto-close sweep closes the row once; the loser sees
  zero affected rows. A partial unique index allows one open shift per staff.

MONEY:
  Rates, hours and pay are stored as TEXT decimals (shopspring/decimal
  implements Scanner/Valuer), never as REAL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, WAL for concurrent readers.

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - pay/shift.go: Result, the computed values persisted on close
  - calendar/overrides.go: In-memory overrides mirrored by holiday_overrides
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/pay"
)

// SettingCurrentState is the settings key for the default jurisdiction.
const SettingCurrentState = "current_state"

// Store implements persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		venue_id TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- NULL rate = not set; resolution falls back to weekday_rate
	CREATE TABLE IF NOT EXISTS rate_cards (
		staff_id TEXT PRIMARY KEY REFERENCES staff(id) ON DELETE CASCADE,
		weekday_rate TEXT,
		saturday_rate TEXT,
		sunday_rate TEXT,
		public_holiday_rate TEXT,
		overtime_rate TEXT,
		default_hours_per_week TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		state TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT,
		day_kind TEXT NOT NULL,
		holiday_name TEXT,
		hourly_rate TEXT NOT NULL,
		hours_worked TEXT,
		overtime_hours TEXT,
		total_pay TEXT,
		payday TEXT,
		auto_closed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_staff_clock_in
		ON shifts(staff_id, clock_in);

	-- At most one open shift per staff member
	CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_one_open
		ON shifts(staff_id) WHERE clock_out IS NULL;

	CREATE TABLE IF NOT EXISTS holiday_overrides (
		state TEXT NOT NULL,
		year INTEGER NOT NULL,
		position INTEGER NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (state, year, position)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auto_close_runs (
		id TEXT PRIMARY KEY,
		rate_mode TEXT NOT NULL,
		max_hours TEXT NOT NULL,
		checked INTEGER NOT NULL DEFAULT 0,
		closed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_auto_close_runs_started
		ON auto_close_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STAFF
// =============================================================================

type Staff struct {
	ID        string
	Name      string
	VenueID   string
	Active    bool
	CreatedAt time.Time
}

// SaveStaff creates or updates a staff member.
func (s *Store) SaveStaff(ctx context.Context, st Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO staff (id, name, venue_id, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			venue_id = excluded.venue_id,
			active = excluded.active
	`

	createdAt := st.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.Name, nullString(st.VenueID), st.Active,
		formatTime(createdAt),
	)
	return err
}

// GetStaff retrieves a staff member by ID. Returns nil if not found.
func (s *Store) GetStaff(ctx context.Context, id string) (*Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Staff
	var venueID sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, venue_id, active, created_at FROM staff WHERE id = ?",
		id,
	).Scan(&st.ID, &st.Name, &venueID, &st.Active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st.VenueID = venueID.String
	st.CreatedAt = parseTime(createdAt)
	return &st, nil
}

// ListStaff returns all staff ordered by name.
func (s *Store) ListStaff(ctx context.Context) ([]Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, venue_id, active, created_at FROM staff ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []Staff
	for rows.Next() {
		var st Staff
		var venueID sql.NullString
		var createdAt string
		if err := rows.Scan(&st.ID, &st.Name, &venueID, &st.Active, &createdAt); err != nil {
			return nil, err
		}
		st.VenueID = venueID.String
		st.CreatedAt = parseTime(createdAt)
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

// =============================================================================
// RATE CARDS
// =============================================================================

// SaveRateCard replaces a staff member's rate card.
func (s *Store) SaveRateCard(ctx context.Context, staffID string, card pay.RateCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rate_cards (staff_id, weekday_rate, saturday_rate, sunday_rate,
			public_holiday_rate, overtime_rate, default_hours_per_week, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(staff_id) DO UPDATE SET
			weekday_rate = excluded.weekday_rate,
			saturday_rate = excluded.saturday_rate,
			sunday_rate = excluded.sunday_rate,
			public_holiday_rate = excluded.public_holiday_rate,
			overtime_rate = excluded.overtime_rate,
			default_hours_per_week = excluded.default_hours_per_week,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		staffID,
		card.WeekdayRate, card.SaturdayRate, card.SundayRate,
		card.PublicHolidayRate, card.OvertimeRate, card.DefaultHoursPerWeek,
		formatTime(time.Now()),
	)
	if isForeignKeyError(err) {
		return pay.ErrStaffNotFound
	}
	return err
}

// GetRateCard returns the staff member's rate card, or nil if none is set.
func (s *Store) GetRateCard(ctx context.Context, staffID string) (*pay.RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var card pay.RateCard
	err := s.db.QueryRowContext(ctx, `
		SELECT weekday_rate, saturday_rate, sunday_rate, public_holiday_rate,
			overtime_rate, default_hours_per_week
		FROM rate_cards WHERE staff_id = ?`,
		staffID,
	).Scan(
		&card.WeekdayRate, &card.SaturdayRate, &card.SundayRate,
		&card.PublicHolidayRate, &card.OvertimeRate, &card.DefaultHoursPerWeek,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// =============================================================================
// SHIFTS
// =============================================================================

// Shift is a persisted shift interval. Pay fields are set when closed.
type Shift struct {
	ID      string
	StaffID string
	State   string

	ClockIn  time.Time
	ClockOut *time.Time

	// Snapshot taken at clock-in, replaced on close
	DayType    pay.DayType
	HourlyRate decimal.Decimal

	HoursWorked   decimal.NullDecimal
	OvertimeHours decimal.NullDecimal
	TotalPay      decimal.NullDecimal
	Payday        string
	AutoClosed    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sh Shift) IsOpen() bool { return sh.ClockOut == nil }

// Interval returns the shift's clock-in/clock-out pair.
func (sh Shift) Interval() pay.Interval {
	return pay.Interval{ClockIn: sh.ClockIn, ClockOut: sh.ClockOut}
}

// Result rebuilds the stored pay result. The second return is false for
// open shifts.
func (sh Shift) Result() (pay.Result, bool) {
	if sh.ClockOut == nil || !sh.HoursWorked.Valid || !sh.TotalPay.Valid {
		return pay.Result{}, false
	}
	overtime := decimal.Zero
	if sh.OvertimeHours.Valid {
		overtime = sh.OvertimeHours.Decimal
	}
	return pay.Result{
		DayType:       sh.DayType,
		ClockIn:       sh.ClockIn,
		ClockOut:      *sh.ClockOut,
		DurationHours: sh.HoursWorked.Decimal,
		Rate:          sh.HourlyRate,
		OrdinaryHours: sh.HoursWorked.Decimal.Sub(overtime),
		OvertimeHours: overtime,
		TotalPay:      sh.TotalPay.Decimal,
		AutoClosed:    sh.AutoClosed,
	}, true
}

const shiftColumns = `id, staff_id, state, clock_in, clock_out, day_kind, holiday_name,
	hourly_rate, hours_worked, overtime_hours, total_pay, payday, auto_closed,
	created_at, updated_at`

// OpenShift inserts a new open shift. Returns pay.ErrShiftAlreadyOpen if the
// staff member already has one.
func (s *Store) OpenShift(ctx context.Context, sh Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, staff_id, state, clock_in, day_kind, holiday_name,
			hourly_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.StaffID, sh.State, formatTime(sh.ClockIn),
		string(sh.DayType.Kind), nullString(sh.DayType.HolidayName),
		sh.HourlyRate, now, now,
	)
	if isUniqueConstraintError(err) {
		return pay.ErrShiftAlreadyOpen
	}
	if isForeignKeyError(err) {
		return pay.ErrStaffNotFound
	}
	return err
}

// CloseShift records the computed pay on an open shift. The update only
// applies while clock_out is NULL; closed is false if the shift was already
// closed (or does not exist), in which case nothing changes.
func (s *Store) CloseShift(ctx context.Context, id string, result pay.Result, payday string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE shifts SET
			clock_out = ?,
			day_kind = ?,
			holiday_name = ?,
			hourly_rate = ?,
			hours_worked = ?,
			overtime_hours = ?,
			total_pay = ?,
			payday = ?,
			auto_closed = ?,
			updated_at = ?
		WHERE id = ? AND clock_out IS NULL`,
		formatTime(result.ClockOut),
		string(result.DayType.Kind), nullString(result.DayType.HolidayName),
		result.Rate, result.DurationHours, result.OvertimeHours, result.TotalPay,
		payday, result.AutoClosed, formatTime(time.Now()),
		id,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetShift retrieves a shift by ID. Returns nil if not found.
func (s *Store) GetShift(ctx context.Context, id string) (*Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shifts, err := s.queryShifts(ctx, "SELECT "+shiftColumns+" FROM shifts WHERE id = ?", id)
	if err != nil || len(shifts) == 0 {
		return nil, err
	}
	return &shifts[0], nil
}

// GetOpenShift returns the staff member's open shift, or nil.
func (s *Store) GetOpenShift(ctx context.Context, staffID string) (*Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shifts, err := s.queryShifts(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE staff_id = ? AND clock_out IS NULL",
		staffID,
	)
	if err != nil || len(shifts) == 0 {
		return nil, err
	}
	return &shifts[0], nil
}

// ListOpenShifts returns every open shift, oldest first.
func (s *Store) ListOpenShifts(ctx context.Context) ([]Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryShifts(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE clock_out IS NULL ORDER BY clock_in",
	)
}

// ListShifts returns a staff member's shifts with clock-in in [from, to),
// newest first. A zero bound is open.
func (s *Store) ListShifts(ctx context.Context, staffID string, from, to time.Time) ([]Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + shiftColumns + " FROM shifts WHERE staff_id = ?"
	args := []any{staffID}
	if !from.IsZero() {
		query += " AND clock_in >= ?"
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += " AND clock_in < ?"
		args = append(args, formatTime(to))
	}
	query += " ORDER BY clock_in DESC"

	return s.queryShifts(ctx, query, args...)
}

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]Shift, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

func scanShift(rows *sql.Rows) (Shift, error) {
	var sh Shift
	var clockIn, createdAt, updatedAt, dayKind string
	var clockOut, holidayName, payday sql.NullString

	err := rows.Scan(
		&sh.ID, &sh.StaffID, &sh.State, &clockIn, &clockOut, &dayKind, &holidayName,
		&sh.HourlyRate, &sh.HoursWorked, &sh.OvertimeHours, &sh.TotalPay, &payday,
		&sh.AutoClosed, &createdAt, &updatedAt,
	)
	if err != nil {
		return Shift{}, err
	}

	sh.ClockIn = parseTime(clockIn)
	if clockOut.Valid {
		t := parseTime(clockOut.String)
		sh.ClockOut = &t
	}
	sh.DayType = pay.DayType{Kind: pay.DayKind(dayKind), HolidayName: holidayName.String}
	sh.Payday = payday.String
	sh.CreatedAt = parseTime(createdAt)
	sh.UpdatedAt = parseTime(updatedAt)
	return sh, nil
}

// =============================================================================
// HOLIDAY OVERRIDES
// =============================================================================

// ReplaceOverrides stores the full list for (state, year), replacing any
// previous one.
func (s *Store) ReplaceOverrides(ctx context.Context, state string, year int, entries []calendar.OverrideEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM holiday_overrides WHERE state = ? AND year = ?", state, year,
	); err != nil {
		return err
	}

	for i, e := range entries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO holiday_overrides (state, year, position, date, name) VALUES (?, ?, ?, ?, ?)",
			state, year, i, e.Date, e.Name,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteOverrides removes the list for (state, year).
func (s *Store) DeleteOverrides(ctx context.Context, state string, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM holiday_overrides WHERE state = ? AND year = ?", state, year,
	)
	return err
}

// LoadOverrides returns every stored list, ordered by state and year.
func (s *Store) LoadOverrides(ctx context.Context) ([]calendar.OverrideList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT state, year, date, name FROM holiday_overrides ORDER BY state, year, position",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []calendar.OverrideList
	for rows.Next() {
		var state, date, name string
		var year int
		if err := rows.Scan(&state, &year, &date, &name); err != nil {
			return nil, err
		}

		n := len(lists)
		if n == 0 || lists[n-1].State != state || lists[n-1].Year != year {
			lists = append(lists, calendar.OverrideList{State: state, Year: year})
			n++
		}
		lists[n-1].Entries = append(lists[n-1].Entries, calendar.OverrideEntry{Date: date, Name: name})
	}
	return lists, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSetting returns a setting value; ok is false if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SaveSetting upserts a setting.
func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	return err
}

// =============================================================================
// AUTO-CLOSE RUNS
// =============================================================================

type AutoCloseRun struct {
	ID          string
	RateMode    string
	MaxHours    decimal.Decimal
	Checked     int
	Closed      int
	Skipped     int // closed concurrently by their owner
	Failed      int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveAutoCloseRun creates or updates a run.
func (s *Store) SaveAutoCloseRun(ctx context.Context, r AutoCloseRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO auto_close_runs (id, rate_mode, max_hours, checked, closed, skipped,
			failed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			checked = excluded.checked,
			closed = excluded.closed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		ts := formatTime(*r.CompletedAt)
		completedAt = &ts
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RateMode, r.MaxHours, r.Checked, r.Closed, r.Skipped, r.Failed,
		nullString(r.Error), formatTime(r.StartedAt), completedAt,
	)
	return err
}

// ListAutoCloseRuns returns the most recent runs, newest first.
func (s *Store) ListAutoCloseRuns(ctx context.Context, limit int) ([]AutoCloseRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rate_mode, max_hours, checked, closed, skipped, failed, error,
			started_at, completed_at
		FROM auto_close_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AutoCloseRun
	for rows.Next() {
		var r AutoCloseRun
		var runErr, completedAt sql.NullString
		var startedAt string
		if err := rows.Scan(
			&r.ID, &r.RateMode, &r.MaxHours, &r.Checked, &r.Closed, &r.Skipped, &r.Failed,
			&runErr, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.Error = runErr.String
		r.StartedAt = parseTime(startedAt)
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

// timeLayout is fixed-width UTC with nanoseconds, so stored instants keep
// their sub-second part and still compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
