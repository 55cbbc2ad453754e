/*
Package sqlite provides the SQLite-backed implementation of engine.Store.

PURPOSE:
  Implements every repository interface over one SQLite database. The same
  SQL shape applies to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  engine.TimeEntryStore, engine.HolidayRequestStore, engine.HolidayStore,
  engine.HolidayTypeStore, engine.EmployeeDirectory, engine.ProjectDirectory,
  plus WithTx as the unit-of-work boundary.

KEY TABLES:
  time_entries:        one row per entry, breaks as a JSON array
  holiday_requests:    absence requests with approval fields
  holiday_definitions: generated public holidays, one batch per year
  holiday_types:       absence categories, system rows seeded at migrate
  employees/projects:  the consumed directories

INVARIANT BACKSTOPS:
  - idx_unique_holiday enforces at most one active definition per
    (year, date, canton)
  - status transitions run as UPDATE ... WHERE status = ?, so a race on
    the same PENDING row has exactly one winner
  - WithTx wraps the validators' check-then-insert so overlap validation
    and the insert commit atomically (SQLite's single-writer model makes
    this serializable)

WAL MODE:
  Opened with WAL so aggregation reads don't block submissions.

USAGE:
  store, err := sqlite.New("./data/timekeeping.db")
  defer store.Close()

SEE ALSO:
  - engine/store.go: interface contracts
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/timekeeping-engine/engine"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same repository
// code runs inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements engine.Store over SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		weekly_hours TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		contract_start TEXT NOT NULL,
		vacation_days TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		start_min INTEGER NOT NULL,
		end_min INTEGER NOT NULL,
		breaks_json TEXT NOT NULL DEFAULT '[]',
		title TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		billable INTEGER NOT NULL DEFAULT 0,
		invoiced INTEGER NOT NULL DEFAULT 0,
		night_surcharge INTEGER NOT NULL DEFAULT 0,
		weekend_surcharge INTEGER NOT NULL DEFAULT 0,
		holiday_surcharge INTEGER NOT NULL DEFAULT 0,
		travel_minutes INTEGER NOT NULL DEFAULT 0,
		waiting_minutes INTEGER NOT NULL DEFAULT 0,
		disposal_cost TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap validation reads this path on every submission
	CREATE INDEX IF NOT EXISTS idx_entries_employee_date
		ON time_entries(employee_id, entry_date);

	CREATE TABLE IF NOT EXISTS holiday_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		type_code TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee_status
		ON holiday_requests(employee_id, status);

	CREATE TABLE IF NOT EXISTS holiday_definitions (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		canton TEXT NOT NULL DEFAULT '',
		movable INTEGER NOT NULL DEFAULT 0,
		editable INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		work_free INTEGER NOT NULL DEFAULT 1,
		type_code TEXT NOT NULL DEFAULT 'PUBLIC_HOLIDAY'
	);

	-- At most one active definition per (year, date, canton)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_holiday
		ON holiday_definitions(year, date, canton) WHERE active = 1;

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holiday_definitions(date);

	CREATE TABLE IF NOT EXISTS holiday_types (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		expected_factor TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1,
		system_reserved INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedSystemTypes()
}

// seedSystemTypes inserts the reserved absence categories. Idempotent.
func (s *Store) seedSystemTypes() error {
	rows := []struct {
		code, name, factor string
	}{
		{engine.TypePaidVacation, "Bezahlte Ferien", "0"},
		{engine.TypeSickness, "Krankheit", "0"},
		{engine.TypeAccident, "Unfall", "0"},
		{engine.TypeUnpaidLeave, "Unbezahlter Urlaub", "1"},
		{engine.TypeMilitary, "Militärdienst", "0"},
	}
	for _, r := range rows {
		_, err := s.db.Exec(`INSERT OR IGNORE INTO holiday_types
			(code, name, expected_factor, active, system_reserved)
			VALUES (?, ?, ?, 1, 1)`, r.code, r.name, r.factor)
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// STORES BUNDLE / TRANSACTIONS
// =============================================================================

func (s *Store) TimeEntries() engine.TimeEntryStore          { return &entryRepo{q: s.db} }
func (s *Store) HolidayRequests() engine.HolidayRequestStore { return &requestRepo{q: s.db} }
func (s *Store) Holidays() engine.HolidayStore               { return &holidayRepo{q: s.db} }
func (s *Store) HolidayTypes() engine.HolidayTypeStore       { return &typeRepo{q: s.db} }
func (s *Store) Employees() engine.EmployeeDirectory         { return &employeeRepo{q: s.db} }
func (s *Store) Projects() engine.ProjectDirectory           { return &projectRepo{q: s.db} }

// WithTx runs fn inside one database transaction. Rolls back when fn
// errors, commits otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStores{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

type txStores struct {
	q querier
}

func (t *txStores) TimeEntries() engine.TimeEntryStore          { return &entryRepo{q: t.q} }
func (t *txStores) HolidayRequests() engine.HolidayRequestStore { return &requestRepo{q: t.q} }
func (t *txStores) Holidays() engine.HolidayStore               { return &holidayRepo{q: t.q} }
func (t *txStores) HolidayTypes() engine.HolidayTypeStore       { return &typeRepo{q: t.q} }
func (t *txStores) Employees() engine.EmployeeDirectory         { return &employeeRepo{q: t.q} }
func (t *txStores) Projects() engine.ProjectDirectory           { return &projectRepo{q: t.q} }

// =============================================================================
// DIRECTORY WRITES - Owned by the back office; the server exposes them for
// standalone operation and seeding
// =============================================================================

func (s *Store) UpsertEmployee(ctx context.Context, e *engine.Employee) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO employees
		(id, name, weekly_hours, hourly_rate, contract_start, vacation_days)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			weekly_hours = excluded.weekly_hours,
			hourly_rate = excluded.hourly_rate,
			contract_start = excluded.contract_start,
			vacation_days = excluded.vacation_days`,
		e.ID, e.Name, e.WeeklyHours.String(), e.HourlyRate.String(),
		e.ContractStart.String(), e.VacationDays.String())
	return err
}

func (s *Store) UpsertProject(ctx context.Context, p *engine.Project) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (id, name, active)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active`,
		p.ID, p.Name, boolInt(p.Active))
	return err
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

type entryRepo struct {
	q querier
}

const entryColumns = `id, employee_id, project_id, entry_date, start_min, end_min,
	breaks_json, title, hourly_rate, billable, invoiced, night_surcharge,
	weekend_surcharge, holiday_surcharge, travel_minutes, waiting_minutes,
	disposal_cost, status, approved_by, approved_at, created_at, updated_at`

func (r *entryRepo) Get(ctx context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (r *entryRepo) ListByEmployeeDate(ctx context.Context, employeeID engine.EmployeeID, date engine.Date) ([]*engine.TimeEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE employee_id = ? AND entry_date = ?
		 ORDER BY start_min`, employeeID, date.String())
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *entryRepo) ListByEmployeeRange(ctx context.Context, employeeID engine.EmployeeID, from, to engine.Date) ([]*engine.TimeEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE employee_id = ? AND entry_date >= ? AND entry_date <= ?
		 ORDER BY entry_date, start_min`, employeeID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *entryRepo) Insert(ctx context.Context, e *engine.TimeEntry) error {
	if e.ID == "" {
		e.ID = engine.EntryID(uuid.NewString())
	}
	breaks, err := json.Marshal(breaksToJSON(e.Breaks))
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `INSERT INTO time_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, e.ProjectID, e.Date.String(), e.Start.Minutes(), e.End.Minutes(),
		string(breaks), e.Title, e.HourlyRate.String(), boolInt(e.Billable), boolInt(e.Invoiced),
		boolInt(e.NightSurcharge), boolInt(e.WeekendSurcharge), boolInt(e.HolidaySurcharge),
		e.TravelMinutes, e.WaitingMinutes, e.DisposalCost.String(), e.Status,
		nullStr(string(e.ApprovedBy)), nullTime(e.ApprovedAt),
		e.CreatedAt.UTC().Format(time.RFC3339), e.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *entryRepo) Update(ctx context.Context, e *engine.TimeEntry) error {
	breaks, err := json.Marshal(breaksToJSON(e.Breaks))
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `UPDATE time_entries SET
		project_id = ?, entry_date = ?, start_min = ?, end_min = ?, breaks_json = ?,
		title = ?, hourly_rate = ?, billable = ?, invoiced = ?, night_surcharge = ?,
		weekend_surcharge = ?, holiday_surcharge = ?, travel_minutes = ?,
		waiting_minutes = ?, disposal_cost = ?, updated_at = ?
		WHERE id = ?`,
		e.ProjectID, e.Date.String(), e.Start.Minutes(), e.End.Minutes(), string(breaks),
		e.Title, e.HourlyRate.String(), boolInt(e.Billable), boolInt(e.Invoiced),
		boolInt(e.NightSurcharge), boolInt(e.WeekendSurcharge), boolInt(e.HolidaySurcharge),
		e.TravelMinutes, e.WaitingMinutes, e.DisposalCost.String(),
		e.UpdatedAt.UTC().Format(time.RFC3339), e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.NotFoundError{Kind: "time entry", ID: string(e.ID)}
	}
	return nil
}

func (r *entryRepo) UpdateStatus(ctx context.Context, id engine.EntryID, from, to engine.ApprovalStatus, approver engine.EmployeeID, at time.Time, reason string) error {
	_ = reason // entries carry no rejection reason column
	res, err := r.q.ExecContext(ctx, `UPDATE time_entries
		SET status = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, approver, at.UTC().Format(time.RFC3339), at.UTC().Format(time.RFC3339), id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// Distinguish "gone" from "already decided".
	var exists int
	err = r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM time_entries WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return &engine.ApprovalTargetError{Kind: "time entry", ID: string(id)}
	}
	return engine.ErrAlreadyFinalized
}

type breakJSON struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func breaksToJSON(breaks []engine.BreakInterval) []breakJSON {
	out := make([]breakJSON, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, breakJSON{Start: b.Start.Minutes(), End: b.End.Minutes()})
	}
	return out
}

func scanEntries(rows *sql.Rows) ([]*engine.TimeEntry, error) {
	defer rows.Close()
	var out []*engine.TimeEntry
	for rows.Next() {
		var (
			e                                    engine.TimeEntry
			dateStr, breaksStr, rateStr, costStr string
			startMin, endMin                     int
			billable, invoiced, night, wknd, hol int
			approvedBy, approvedAt               sql.NullString
			createdAt, updatedAt                 string
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.ProjectID, &dateStr, &startMin, &endMin,
			&breaksStr, &e.Title, &rateStr, &billable, &invoiced, &night, &wknd, &hol,
			&e.TravelMinutes, &e.WaitingMinutes, &costStr, &e.Status,
			&approvedBy, &approvedAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		date, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		e.Date = date
		e.Start = engine.ClockTime(startMin)
		e.End = engine.ClockTime(endMin)

		var bs []breakJSON
		if err := json.Unmarshal([]byte(breaksStr), &bs); err != nil {
			return nil, err
		}
		for _, b := range bs {
			e.Breaks = append(e.Breaks, engine.BreakInterval{
				Start: engine.ClockTime(b.Start),
				End:   engine.ClockTime(b.End),
			})
		}

		if e.HourlyRate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, err
		}
		if e.DisposalCost, err = decimal.NewFromString(costStr); err != nil {
			return nil, err
		}
		e.Billable = billable == 1
		e.Invoiced = invoiced == 1
		e.NightSurcharge = night == 1
		e.WeekendSurcharge = wknd == 1
		e.HolidaySurcharge = hol == 1
		if approvedBy.Valid {
			e.ApprovedBy = engine.EmployeeID(approvedBy.String)
		}
		if approvedAt.Valid && approvedAt.String != "" {
			t, err := time.Parse(time.RFC3339, approvedAt.String)
			if err != nil {
				return nil, err
			}
			e.ApprovedAt = &t
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY REQUESTS
// =============================================================================

type requestRepo struct {
	q querier
}

const requestColumns = `id, employee_id, start_date, end_date, type_code, reason,
	status, approved_by, approved_at, rejection_reason, created_at, updated_at`

func (r *requestRepo) Get(ctx context.Context, id engine.RequestID) (*engine.HolidayRequest, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM holiday_requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	reqs, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return reqs[0], nil
}

func (r *requestRepo) ListActiveByEmployee(ctx context.Context, employeeID engine.EmployeeID) ([]*engine.HolidayRequest, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM holiday_requests
		 WHERE employee_id = ? AND status IN (?, ?)
		 ORDER BY start_date`, employeeID, engine.StatusPending, engine.StatusApproved)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *requestRepo) ListApprovedInRange(ctx context.Context, employeeID engine.EmployeeID, from, to engine.Date) ([]*engine.HolidayRequest, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM holiday_requests
		 WHERE employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date`, employeeID, engine.StatusApproved, to.String(), from.String())
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *requestRepo) ListByEmployee(ctx context.Context, employeeID engine.EmployeeID) ([]*engine.HolidayRequest, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM holiday_requests
		 WHERE employee_id = ? ORDER BY created_at DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *requestRepo) Insert(ctx context.Context, req *engine.HolidayRequest) error {
	if req.ID == "" {
		req.ID = engine.RequestID(uuid.NewString())
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO holiday_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.EmployeeID, req.StartDate.String(), req.EndDate.String(),
		req.TypeCode, req.Reason, req.Status,
		nullStr(string(req.ApprovedBy)), nullTime(req.ApprovedAt), req.RejectionReason,
		req.CreatedAt.UTC().Format(time.RFC3339), req.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *requestRepo) UpdateStatus(ctx context.Context, id engine.RequestID, from, to engine.ApprovalStatus, approver engine.EmployeeID, at time.Time, reason string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE holiday_requests
		SET status = ?, approved_by = ?, approved_at = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, approver, at.UTC().Format(time.RFC3339), reason,
		at.UTC().Format(time.RFC3339), id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM holiday_requests WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return &engine.ApprovalTargetError{Kind: "holiday request", ID: string(id)}
	}
	return engine.ErrAlreadyFinalized
}

func scanRequests(rows *sql.Rows) ([]*engine.HolidayRequest, error) {
	defer rows.Close()
	var out []*engine.HolidayRequest
	for rows.Next() {
		var (
			req                    engine.HolidayRequest
			startStr, endStr       string
			approvedBy, approvedAt sql.NullString
			createdAt, updatedAt   string
		)
		if err := rows.Scan(&req.ID, &req.EmployeeID, &startStr, &endStr, &req.TypeCode,
			&req.Reason, &req.Status, &approvedBy, &approvedAt, &req.RejectionReason,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		var err error
		if req.StartDate, err = engine.ParseDate(startStr); err != nil {
			return nil, err
		}
		if req.EndDate, err = engine.ParseDate(endStr); err != nil {
			return nil, err
		}
		if approvedBy.Valid {
			req.ApprovedBy = engine.EmployeeID(approvedBy.String)
		}
		if approvedAt.Valid && approvedAt.String != "" {
			t, err := time.Parse(time.RFC3339, approvedAt.String)
			if err != nil {
				return nil, err
			}
			req.ApprovedAt = &t
		}
		if req.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		if req.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY DEFINITIONS
// =============================================================================

type holidayRepo struct {
	q querier
}

func (r *holidayRepo) YearExists(ctx context.Context, year int, canton string) (bool, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM holiday_definitions
		 WHERE year = ? AND (canton = '' OR canton = ?)`, year, canton).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *holidayRepo) InsertDefinitions(ctx context.Context, defs []engine.HolidayDefinition) error {
	for _, d := range defs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		_, err := r.q.ExecContext(ctx, `INSERT INTO holiday_definitions
			(id, year, date, name, canton, movable, editable, active, work_free, type_code)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Year, d.Date.String(), d.Name, d.Canton,
			boolInt(d.Movable), boolInt(d.Editable), boolInt(d.Active),
			boolInt(d.WorkFree), d.TypeCode)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *holidayRepo) ListYear(ctx context.Context, year int, canton string) ([]engine.HolidayDefinition, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, year, date, name, canton, movable, editable, active, work_free, type_code
		 FROM holiday_definitions
		 WHERE year = ? AND active = 1 AND (canton = '' OR canton = ?)
		 ORDER BY date`, year, canton)
	if err != nil {
		return nil, err
	}
	return scanHolidays(rows)
}

func (r *holidayRepo) ListRange(ctx context.Context, canton string, from, to engine.Date) ([]engine.HolidayDefinition, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, year, date, name, canton, movable, editable, active, work_free, type_code
		 FROM holiday_definitions
		 WHERE active = 1 AND work_free = 1 AND (canton = '' OR canton = ?)
		   AND date >= ? AND date <= ?
		 ORDER BY date`, canton, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	return scanHolidays(rows)
}

func scanHolidays(rows *sql.Rows) ([]engine.HolidayDefinition, error) {
	defer rows.Close()
	var out []engine.HolidayDefinition
	for rows.Next() {
		var (
			d                                   engine.HolidayDefinition
			dateStr                             string
			movable, editable, active, workFree int
		)
		if err := rows.Scan(&d.ID, &d.Year, &dateStr, &d.Name, &d.Canton,
			&movable, &editable, &active, &workFree, &d.TypeCode); err != nil {
			return nil, err
		}
		date, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		d.Date = date
		d.Movable = movable == 1
		d.Editable = editable == 1
		d.Active = active == 1
		d.WorkFree = workFree == 1
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

type typeRepo struct {
	q querier
}

func (r *typeRepo) Get(ctx context.Context, code string) (*engine.HolidayType, error) {
	var (
		t              engine.HolidayType
		factorStr      string
		active, system int
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT code, name, expected_factor, active, system_reserved
		 FROM holiday_types WHERE code = ?`, code).
		Scan(&t.Code, &t.Name, &factorStr, &active, &system)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.ExpectedFactor, err = decimal.NewFromString(factorStr); err != nil {
		return nil, err
	}
	t.Active = active == 1
	t.SystemReserved = system == 1
	return &t, nil
}

func (r *typeRepo) List(ctx context.Context) ([]engine.HolidayType, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT code, name, expected_factor, active, system_reserved
		 FROM holiday_types ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.HolidayType
	for rows.Next() {
		var (
			t              engine.HolidayType
			factorStr      string
			active, system int
		)
		if err := rows.Scan(&t.Code, &t.Name, &factorStr, &active, &system); err != nil {
			return nil, err
		}
		if t.ExpectedFactor, err = decimal.NewFromString(factorStr); err != nil {
			return nil, err
		}
		t.Active = active == 1
		t.SystemReserved = system == 1
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *typeRepo) Insert(ctx context.Context, t engine.HolidayType) error {
	res, err := r.q.ExecContext(ctx, `INSERT OR IGNORE INTO holiday_types
		(code, name, expected_factor, active, system_reserved)
		VALUES (?, ?, ?, ?, ?)`,
		t.Code, t.Name, t.ExpectedFactor.String(), boolInt(t.Active), boolInt(t.SystemReserved))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &engine.RuleError{Rule: "holiday type code", Detail: "code already exists: " + t.Code}
	}
	return nil
}

// =============================================================================
// DIRECTORIES
// =============================================================================

type employeeRepo struct {
	q querier
}

func (r *employeeRepo) Get(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, weekly_hours, hourly_rate, contract_start, vacation_days
		 FROM employees WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	employees, err := scanEmployees(rows)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, nil
	}
	return employees[0], nil
}

func (r *employeeRepo) List(ctx context.Context) ([]*engine.Employee, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, weekly_hours, hourly_rate, contract_start, vacation_days
		 FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

func scanEmployees(rows *sql.Rows) ([]*engine.Employee, error) {
	defer rows.Close()
	var out []*engine.Employee
	for rows.Next() {
		var (
			e                           engine.Employee
			weekly, rate, start, vacDay string
		)
		if err := rows.Scan(&e.ID, &e.Name, &weekly, &rate, &start, &vacDay); err != nil {
			return nil, err
		}
		var err error
		if e.WeeklyHours, err = decimal.NewFromString(weekly); err != nil {
			return nil, err
		}
		if e.HourlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		if e.ContractStart, err = engine.ParseDate(start); err != nil {
			return nil, err
		}
		if e.VacationDays, err = decimal.NewFromString(vacDay); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

type projectRepo struct {
	q querier
}

func (r *projectRepo) Get(ctx context.Context, id engine.ProjectID) (*engine.Project, error) {
	var (
		p      engine.Project
		active int
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, active FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Active = active == 1
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context) ([]*engine.Project, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, active FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*engine.Project
	for rows.Next() {
		var (
			p      engine.Project
			active int
		)
		if err := rows.Scan(&p.ID, &p.Name, &active); err != nil {
			return nil, err
		}
		p.Active = active == 1
		out = append(out, &p)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
