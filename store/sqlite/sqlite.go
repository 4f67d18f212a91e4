/*
Package sqlite provides a SQLite-backed attendance.TxStore.

KEY TABLES:
  employees:          directory entries and their ledger fields
  attendance_records: one row per (employee_code, day), enforced by UNIQUE
  ledger_entries:     append-only journal of ledger movements

CONCURRENCY:
  A single connection is used and guarded by a sync.RWMutex. WithTx holds
  the write lock for the whole unit of work, and the Store handed to fn
  runs every statement on the sql.Tx without taking the lock again.

DECIMALS AND TIMES:
  Decimals are stored as TEXT (decimal.Decimal.String). Timestamps are
  RFC3339; record days are kept both as the RFC3339 midnight (to keep the
  zone offset) and as a YYYY-MM-DD key for uniqueness and range scans.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ attendance.TxStore = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the database at dbPath and migrates it. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// WithTx must see its own writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		code TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		work_days_per_week INTEGER NOT NULL DEFAULT 6,
		work_hours_per_day TEXT NOT NULL DEFAULT '9',
		shift_start TEXT NOT NULL DEFAULT '08:30',
		shift_end TEXT NOT NULL DEFAULT '17:30',
		base_salary TEXT NOT NULL DEFAULT '0',
		advances TEXT NOT NULL DEFAULT '0',
		monthly_late_allowance INTEGER NOT NULL DEFAULT 120,
		remaining_late_allowance INTEGER NOT NULL DEFAULT 120,
		allowance_cycle TEXT,
		annual_leave_balance TEXT NOT NULL DEFAULT '21',
		custom_annual_leave TEXT NOT NULL DEFAULT '0',
		medical_leave_deduction TEXT NOT NULL DEFAULT '0.25',
		total_official_leave_days INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		employee_code TEXT NOT NULL REFERENCES employees(code),
		day TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		state TEXT NOT NULL,
		work_hours TEXT NOT NULL,
		overtime TEXT NOT NULL,
		late_minutes INTEGER NOT NULL,
		late_deduction TEXT NOT NULL,
		early_leave_deduction TEXT NOT NULL,
		medical_leave_deduction TEXT NOT NULL,
		is_single_fingerprint BOOLEAN NOT NULL,
		absence BOOLEAN NOT NULL,
		annual_leave BOOLEAN NOT NULL,
		medical_leave BOOLEAN NOT NULL,
		official_leave BOOLEAN NOT NULL,
		leave_compensation TEXT NOT NULL,
		appropriate_value TEXT NOT NULL,
		appropriate_value_days INTEGER NOT NULL,
		late_allowance_used INTEGER NOT NULL,
		anomaly TEXT,
		employee_name TEXT,
		snapshot_work_days_per_week INTEGER,
		snapshot_annual_leave_balance TEXT,
		snapshot_custom_annual_leave TEXT,
		snapshot_advances TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One record per employee per calendar day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_employee_day
		ON attendance_records(employee_code, day);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		employee_code TEXT NOT NULL,
		ledger TEXT NOT NULL,
		record_date TEXT NOT NULL,
		delta TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_employee
		ON ledger_entries(employee_code, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKED OPERATIONS (attendance.Store)
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, code string) (*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, code)
}

func (s *Store) SaveEmployee(ctx context.Context, emp *attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployee(ctx, s.db, emp)
}

func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db)
}

func (s *Store) FindRecord(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecord(ctx, s.db, key)
}

func (s *Store) UpsertRecord(ctx context.Context, rec *attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertRecord(ctx, s.db, rec)
}

func (s *Store) DeleteRecord(ctx context.Context, key attendance.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s.db, key)
}

func (s *Store) ListRecords(ctx context.Context, code string, from, to time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(ctx, s.db, code, from, to)
}

func (s *Store) AppendEntry(ctx context.Context, e attendance.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func (s *Store) Entries(ctx context.Context, code string) ([]attendance.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEntries(ctx, s.db, code)
}

// =============================================================================
// TRANSACTIONAL STORE (attendance.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(attendance.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) GetEmployee(ctx context.Context, code string) (*attendance.Employee, error) {
	return getEmployee(ctx, t.tx, code)
}

func (t *txStore) SaveEmployee(ctx context.Context, emp *attendance.Employee) error {
	return saveEmployee(ctx, t.tx, emp)
}

func (t *txStore) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	return listEmployees(ctx, t.tx)
}

func (t *txStore) FindRecord(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	return findRecord(ctx, t.tx, key)
}

func (t *txStore) UpsertRecord(ctx context.Context, rec *attendance.Record) error {
	return upsertRecord(ctx, t.tx, rec)
}

func (t *txStore) DeleteRecord(ctx context.Context, key attendance.Key) error {
	return deleteRecord(ctx, t.tx, key)
}

func (t *txStore) ListRecords(ctx context.Context, code string, from, to time.Time) ([]attendance.Record, error) {
	return listRecords(ctx, t.tx, code, from, to)
}

func (t *txStore) AppendEntry(ctx context.Context, e attendance.LedgerEntry) error {
	return appendEntry(ctx, t.tx, e)
}

func (t *txStore) Entries(ctx context.Context, code string) ([]attendance.LedgerEntry, error) {
	return listEntries(ctx, t.tx, code)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `code, full_name, work_days_per_week, work_hours_per_day, shift_start, shift_end,
	base_salary, advances, monthly_late_allowance, remaining_late_allowance, allowance_cycle,
	annual_leave_balance, custom_annual_leave, medical_leave_deduction, total_official_leave_days,
	created_at, updated_at`

func saveEmployee(ctx context.Context, q querier, emp *attendance.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			full_name = excluded.full_name,
			work_days_per_week = excluded.work_days_per_week,
			work_hours_per_day = excluded.work_hours_per_day,
			shift_start = excluded.shift_start,
			shift_end = excluded.shift_end,
			base_salary = excluded.base_salary,
			advances = excluded.advances,
			monthly_late_allowance = excluded.monthly_late_allowance,
			remaining_late_allowance = excluded.remaining_late_allowance,
			allowance_cycle = excluded.allowance_cycle,
			annual_leave_balance = excluded.annual_leave_balance,
			custom_annual_leave = excluded.custom_annual_leave,
			medical_leave_deduction = excluded.medical_leave_deduction,
			total_official_leave_days = excluded.total_official_leave_days,
			updated_at = excluded.updated_at
	`
	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := q.ExecContext(ctx, query,
		emp.Code, emp.FullName, emp.WorkDaysPerWeek, emp.WorkHoursPerDay.String(),
		emp.ShiftStart.String(), emp.ShiftEnd.String(),
		emp.BaseSalary.String(), emp.Advances.String(),
		emp.MonthlyLateAllowance, emp.RemainingLateAllowance, formatTime(emp.AllowanceCycle),
		emp.AnnualLeaveBalance.String(), emp.CustomAnnualLeave.String(),
		emp.MedicalLeaveDeduction.String(), emp.TotalOfficialLeaveDays,
		createdAt.UTC().Format(time.RFC3339), emp.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", emp.Code, err)
	}
	return nil
}

func getEmployee(ctx context.Context, q querier, code string) (*attendance.Employee, error) {
	row := q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE code = ?", code)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return emp, err
}

func listEmployees(ctx context.Context, q querier) ([]attendance.Employee, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []attendance.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(sc scanner) (*attendance.Employee, error) {
	var (
		emp                                      attendance.Employee
		hours, salary, advances, balance, custom string
		medical, shiftStart, shiftEnd            string
		allowanceCycle                           sql.NullString
		createdAt, updatedAt                     string
	)
	err := sc.Scan(
		&emp.Code, &emp.FullName, &emp.WorkDaysPerWeek, &hours, &shiftStart, &shiftEnd,
		&salary, &advances, &emp.MonthlyLateAllowance, &emp.RemainingLateAllowance, &allowanceCycle,
		&balance, &custom, &medical, &emp.TotalOfficialLeaveDays,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	emp.WorkHoursPerDay = parseDecimal(hours)
	emp.BaseSalary = parseDecimal(salary)
	emp.Advances = parseDecimal(advances)
	emp.AnnualLeaveBalance = parseDecimal(balance)
	emp.CustomAnnualLeave = parseDecimal(custom)
	emp.MedicalLeaveDeduction = parseDecimal(medical)
	emp.ShiftStart, _ = attendance.ParseClockTime(shiftStart)
	emp.ShiftEnd, _ = attendance.ParseClockTime(shiftEnd)
	emp.AllowanceCycle = parseTime(allowanceCycle.String)
	emp.CreatedAt = parseTime(createdAt)
	emp.UpdatedAt = parseTime(updatedAt)
	return &emp, nil
}

// =============================================================================
// RECORDS
// =============================================================================

const recordColumns = `id, employee_code, date, check_in, check_out, state,
	work_hours, overtime, late_minutes, late_deduction, early_leave_deduction, medical_leave_deduction,
	is_single_fingerprint, absence, annual_leave, medical_leave, official_leave,
	leave_compensation, appropriate_value, appropriate_value_days, late_allowance_used, anomaly,
	employee_name, snapshot_work_days_per_week, snapshot_annual_leave_balance,
	snapshot_custom_annual_leave, snapshot_advances, created_at, updated_at`

func upsertRecord(ctx context.Context, q querier, r *attendance.Record) error {
	query := `
		INSERT INTO attendance_records (day, ` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_code, day) DO UPDATE SET
			date = excluded.date,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			state = excluded.state,
			work_hours = excluded.work_hours,
			overtime = excluded.overtime,
			late_minutes = excluded.late_minutes,
			late_deduction = excluded.late_deduction,
			early_leave_deduction = excluded.early_leave_deduction,
			medical_leave_deduction = excluded.medical_leave_deduction,
			is_single_fingerprint = excluded.is_single_fingerprint,
			absence = excluded.absence,
			annual_leave = excluded.annual_leave,
			medical_leave = excluded.medical_leave,
			official_leave = excluded.official_leave,
			leave_compensation = excluded.leave_compensation,
			appropriate_value = excluded.appropriate_value,
			appropriate_value_days = excluded.appropriate_value_days,
			late_allowance_used = excluded.late_allowance_used,
			anomaly = excluded.anomaly,
			employee_name = excluded.employee_name,
			snapshot_work_days_per_week = excluded.snapshot_work_days_per_week,
			snapshot_annual_leave_balance = excluded.snapshot_annual_leave_balance,
			snapshot_custom_annual_leave = excluded.snapshot_custom_annual_leave,
			snapshot_advances = excluded.snapshot_advances,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		dayKey(r.Date),
		r.ID, r.EmployeeCode, r.Date.Format(time.RFC3339),
		formatTimePtr(r.CheckIn), formatTimePtr(r.CheckOut), string(r.State),
		r.WorkHours.String(), r.Overtime.String(), r.LateMinutes,
		r.LateDeduction.String(), r.EarlyLeaveDeduction.String(), r.MedicalLeaveDeduction.String(),
		r.IsSingleFingerprint, r.Absence, r.AnnualLeave, r.MedicalLeave, r.OfficialLeave,
		r.LeaveCompensation.String(), r.AppropriateValue.String(), r.AppropriateValueDays,
		r.LateAllowanceUsed, nullString(r.Anomaly),
		r.EmployeeName, r.WorkDaysPerWeek, r.AnnualLeaveBalance.String(),
		r.CustomAnnualLeave.String(), r.Advances.String(),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func findRecord(ctx context.Context, q querier, key attendance.Key) (*attendance.Record, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM attendance_records WHERE employee_code = ? AND day = ?",
		key.EmployeeCode, dayKey(key.Date),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func deleteRecord(ctx context.Context, q querier, key attendance.Key) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM attendance_records WHERE employee_code = ? AND day = ?",
		key.EmployeeCode, dayKey(key.Date),
	)
	return err
}

func listRecords(ctx context.Context, q querier, code string, from, to time.Time) ([]attendance.Record, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM attendance_records WHERE employee_code = ? AND day >= ? AND day <= ? ORDER BY day",
		code, dayKey(from), dayKey(to),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(sc scanner) (*attendance.Record, error) {
	var (
		r                                          attendance.Record
		date, state, createdAt, updatedAt          string
		checkIn, checkOut, anomaly, name           sql.NullString
		hours, overtime, lateDed, earlyDed, medDed string
		leaveComp, appropriate                     string
		snapDays                                   sql.NullInt64
		snapBalance, snapCustom, snapAdvances      sql.NullString
	)
	err := sc.Scan(
		&r.ID, &r.EmployeeCode, &date, &checkIn, &checkOut, &state,
		&hours, &overtime, &r.LateMinutes, &lateDed, &earlyDed, &medDed,
		&r.IsSingleFingerprint, &r.Absence, &r.AnnualLeave, &r.MedicalLeave, &r.OfficialLeave,
		&leaveComp, &appropriate, &r.AppropriateValueDays, &r.LateAllowanceUsed, &anomaly,
		&name, &snapDays, &snapBalance, &snapCustom, &snapAdvances, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Date = parseTime(date)
	r.CheckIn = parseTimePtr(checkIn)
	r.CheckOut = parseTimePtr(checkOut)
	r.State = attendance.State(state)
	r.WorkHours = parseDecimal(hours)
	r.Overtime = parseDecimal(overtime)
	r.LateDeduction = parseDecimal(lateDed)
	r.EarlyLeaveDeduction = parseDecimal(earlyDed)
	r.MedicalLeaveDeduction = parseDecimal(medDed)
	r.LeaveCompensation = parseDecimal(leaveComp)
	r.AppropriateValue = parseDecimal(appropriate)
	r.Anomaly = anomaly.String
	r.EmployeeName = name.String
	r.WorkDaysPerWeek = int(snapDays.Int64)
	r.AnnualLeaveBalance = parseDecimal(snapBalance.String)
	r.CustomAnnualLeave = parseDecimal(snapCustom.String)
	r.Advances = parseDecimal(snapAdvances.String)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// =============================================================================
// LEDGER JOURNAL (append-only: no UPDATE, no DELETE)
// =============================================================================

func appendEntry(ctx context.Context, q querier, e attendance.LedgerEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, employee_code, ledger, record_date, delta, entry_type, reason, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_entries))
	`,
		e.ID, e.EmployeeCode, string(e.Ledger), e.RecordDate.Format(time.RFC3339),
		e.Delta.String(), string(e.Type), nullString(e.Reason),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func listEntries(ctx context.Context, q querier, code string) ([]attendance.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, employee_code, ledger, record_date, delta, entry_type, reason, created_at
		FROM ledger_entries WHERE employee_code = ? ORDER BY seq
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []attendance.LedgerEntry
	for rows.Next() {
		var (
			e                                  attendance.LedgerEntry
			ledger, recordDate, delta, typ, at string
			reason                             sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeCode, &ledger, &recordDate, &delta, &typ, &reason, &at); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Ledger = attendance.LedgerKind(ledger)
		e.RecordDate = parseTime(recordDate)
		e.Delta = parseDecimal(delta)
		e.Type = attendance.EntryType(typ)
		e.Reason = reason.String
		e.CreatedAt = parseTime(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
