/*
Package attendance derives daily attendance and payroll facts from raw punches
and declared leave.

PURPOSE:
  Each employee-day is one Record. A Record is computed by the Resolver from
  the day's Input (declared status + raw punches) and the employee's
  configuration, while two running balances owned by the Employee are moved:
  the annual-leave balance and the monthly late-minute allowance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: the directory entry whose ledger fields the engine mutates
  - Record: one computed employee-day
  - Status: the six mutually exclusive declared statuses
  - Input: what a caller supplies for a day before computation
  - LedgerEntry: an immutable journal line for every ledger movement

DESIGN PRINCIPLES:
  1. Precision: all fractional quantities use decimal.Decimal
  2. Derived fields are only ever written by the Resolver
  3. Ledger moves are paired with record transitions, never with saves

SEE ALSO:
  - resolver.go: the per-day state machine
  - allowance.go, leave.go: the ledgers
  - engine.go: the unit of work that ties them together
*/
package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE - External directory entry (ledger fields owned here)
// =============================================================================

// Defaults applied to employees created without explicit configuration.
var (
	DefaultWorkHoursPerDay       = decimal.NewFromInt(9)
	DefaultAnnualLeaveBalance    = decimal.NewFromInt(21)
	DefaultMedicalLeaveDeduction = decimal.RequireFromString("0.25")
)

const (
	DefaultMonthlyLateAllowance = 120
	DefaultWorkDaysPerWeek      = 6
)

// ClockTime is a wall-clock hour and minute, e.g. a shift start.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On anchors the clock time to the calendar day of date in loc.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

type Employee struct {
	Code            string
	FullName        string
	WorkDaysPerWeek int
	WorkHoursPerDay decimal.Decimal
	ShiftStart      ClockTime
	ShiftEnd        ClockTime
	BaseSalary      decimal.Decimal
	Advances        decimal.Decimal

	// Late allowance: RemainingLateAllowance is what is left of
	// MonthlyLateAllowance for the month starting at AllowanceCycle.
	MonthlyLateAllowance   int
	RemainingLateAllowance int
	AllowanceCycle         time.Time

	AnnualLeaveBalance     decimal.Decimal
	CustomAnnualLeave      decimal.Decimal
	MedicalLeaveDeduction  decimal.Decimal
	TotalOfficialLeaveDays int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEmployee returns an employee carrying the documented defaults.
func NewEmployee(code, fullName string) *Employee {
	return &Employee{
		Code:                   code,
		FullName:               fullName,
		WorkDaysPerWeek:        DefaultWorkDaysPerWeek,
		WorkHoursPerDay:        DefaultWorkHoursPerDay,
		ShiftStart:             ClockTime{Hour: 8, Minute: 30},
		ShiftEnd:               ClockTime{Hour: 17, Minute: 30},
		BaseSalary:             decimal.Zero,
		Advances:               decimal.Zero,
		MonthlyLateAllowance:   DefaultMonthlyLateAllowance,
		RemainingLateAllowance: DefaultMonthlyLateAllowance,
		AnnualLeaveBalance:     DefaultAnnualLeaveBalance,
		CustomAnnualLeave:      decimal.Zero,
		MedicalLeaveDeduction:  DefaultMedicalLeaveDeduction,
	}
}

// Validate checks the configuration the resolver depends on and that no
// ledger field is negative.
func (e *Employee) Validate() error {
	if e.Code == "" {
		return &ValidationError{Field: "code", Reason: "required"}
	}
	if e.WorkDaysPerWeek != 5 && e.WorkDaysPerWeek != 6 {
		return &ValidationError{Field: "work_days_per_week", Reason: "must be 5 or 6"}
	}
	if e.WorkHoursPerDay.IsNegative() {
		return &ValidationError{Field: "work_hours_per_day", Reason: "must not be negative"}
	}
	if e.MonthlyLateAllowance < 0 {
		return &ValidationError{Field: "monthly_late_allowance", Reason: "must not be negative"}
	}
	if e.RemainingLateAllowance < 0 {
		return &ValidationError{Field: "remaining_late_allowance", Reason: "must not be negative"}
	}
	if e.AnnualLeaveBalance.IsNegative() {
		return &ValidationError{Field: "annual_leave_balance", Reason: "must not be negative"}
	}
	if e.TotalOfficialLeaveDays < 0 {
		return &ValidationError{Field: "total_official_leave_days", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// STATUS - Declared status of a day (mutually exclusive group)
// =============================================================================

// Status holds the six declared status signals of a record. A monetary
// status is active when its value is greater than zero.
type Status struct {
	Absence           bool
	AnnualLeave       bool
	MedicalLeave      bool
	OfficialLeave     bool
	LeaveCompensation decimal.Decimal
	AppropriateValue  decimal.Decimal
}

// Category is the single active status of a record, or CategoryNone.
type Category string

const (
	CategoryNone              Category = "none"
	CategoryAbsence           Category = "absence"
	CategoryAnnualLeave       Category = "annual_leave"
	CategoryMedicalLeave      Category = "medical_leave"
	CategoryOfficialLeave     Category = "official_leave"
	CategoryLeaveCompensation Category = "leave_compensation"
	CategoryAppropriateValue  Category = "appropriate_value"
)

// =============================================================================
// STATE - Outcome of the resolver for one record
// =============================================================================

type State string

const (
	StateLeaveCompensation State = "leave_compensation"
	StateAnnualLeave       State = "annual_leave"
	StateAppropriateValue  State = "appropriate_value"
	StateOfficialLeave     State = "official_leave"
	StateMedicalLeave      State = "medical_leave"
	StateWeeklyOff         State = "weekly_off"
	StateSinglePunch       State = "single_punch"
	StateAbsent            State = "absent"
	StateWorked            State = "worked"
	StateInvalidPunches    State = "invalid_punches"
)

// =============================================================================
// RECORD - One computed employee-day
// =============================================================================

type Record struct {
	ID           string
	EmployeeCode string
	Date         time.Time
	CheckIn      *time.Time
	CheckOut     *time.Time
	State        State

	WorkHours             decimal.Decimal
	Overtime              decimal.Decimal
	LateMinutes           int
	LateDeduction         decimal.Decimal
	EarlyLeaveDeduction   decimal.Decimal
	MedicalLeaveDeduction decimal.Decimal
	IsSingleFingerprint   bool

	Absence              bool
	AnnualLeave          bool
	MedicalLeave         bool
	OfficialLeave        bool
	LeaveCompensation    decimal.Decimal
	AppropriateValue     decimal.Decimal
	AppropriateValueDays int

	// LateAllowanceUsed is the number of allowance minutes this record
	// charged against its employee's monthly budget.
	LateAllowanceUsed int
	Anomaly           string

	// Snapshot of the employee at compute time. Not a source of truth.
	EmployeeName       string
	WorkDaysPerWeek    int
	AnnualLeaveBalance decimal.Decimal
	CustomAnnualLeave  decimal.Decimal
	Advances           decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status returns the record's status group.
func (r *Record) Status() Status {
	return Status{
		Absence:           r.Absence,
		AnnualLeave:       r.AnnualLeave,
		MedicalLeave:      r.MedicalLeave,
		OfficialLeave:     r.OfficialLeave,
		LeaveCompensation: r.LeaveCompensation,
		AppropriateValue:  r.AppropriateValue,
	}
}

// Key identifies a record in the store.
type Key struct {
	EmployeeCode string
	Date         time.Time
}

func (k Key) String() string { return k.EmployeeCode + "@" + k.Date.Format("2006-01-02") }

// =============================================================================
// INPUT - What a caller supplies for a day
// =============================================================================

// Input is the declared part of a day. Punches are raw strings in one of
// the forms accepted by ParsePunch; an empty string means no punch.
type Input struct {
	CheckIn  string
	CheckOut string
	Status   Status
}

// InputFrom derives the declared input of a persisted record so callers can
// change one field and resubmit. Absence is an outcome and is not carried;
// punches synthesized for annual leave are not carried either.
func InputFrom(r *Record) Input {
	if r == nil {
		return Input{}
	}
	in := Input{
		Status: Status{
			AnnualLeave:       r.AnnualLeave,
			MedicalLeave:      r.MedicalLeave,
			OfficialLeave:     r.OfficialLeave,
			LeaveCompensation: r.LeaveCompensation,
			AppropriateValue:  r.AppropriateValue,
		},
	}
	if r.State == StateAnnualLeave {
		return in
	}
	if r.CheckIn != nil {
		in.CheckIn = r.CheckIn.Format(time.RFC3339)
	}
	if r.CheckOut != nil {
		in.CheckOut = r.CheckOut.Format(time.RFC3339)
	}
	return in
}

// =============================================================================
// LEDGER ENTRY - Journal of every ledger movement (append-only)
// =============================================================================

type LedgerKind string

const (
	LedgerAnnualLeave   LedgerKind = "annual_leave"
	LedgerLateAllowance LedgerKind = "late_allowance"
	LedgerOfficialLeave LedgerKind = "official_leave"
)

type EntryType string

const (
	EntryConsumption EntryType = "consumption"
	EntryReversal    EntryType = "reversal"
	EntryReset       EntryType = "reset"
	EntryGrant       EntryType = "grant"
	EntryAdjustment  EntryType = "adjustment"
)

// LedgerEntry records one movement of an employee ledger. Entries are never
// modified; corrections appear as reversals.
type LedgerEntry struct {
	ID           string
	EmployeeCode string
	Ledger       LedgerKind
	RecordDate   time.Time
	Delta        decimal.Decimal
	Type         EntryType
	Reason       string
	CreatedAt    time.Time
}
