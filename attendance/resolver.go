/*
resolver.go - Per-day attendance state machine

PURPOSE:
  Turns one day's Input into a fully derived Record and moves the employee's
  ledgers by exactly the difference between the persisted prior record and
  the new one.

STATE SELECTION (first match wins, evaluated fresh on every compute):
  1. leave compensation     6. weekly off
  2. annual leave           7. declared absence
  3. appropriate value      8. single punch
  4. official leave         9. no punch -> absent
  5. medical leave         10. both punches -> worked (or invalid punches)

LEDGER EDGES:
  annual leave    false->true: decrement (fails if balance <= 0)
                  true->false: restore
  official leave  false->true: increment, true->false: decrement
  late allowance  the prior record's charge is handed back and the new
                  charge taken; only the net difference is written

FAILURES:
  InvalidStatusCombination and InsufficientLeaveBalance abort the unit of
  work. Unparsable or inverted punches and impossible hours are recovered:
  the record is saved as a zero day with Record.Anomaly set, and logged.
*/
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Resolver struct {
	Policy   Policy
	Location *time.Location
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewResolver(policy Policy, loc *time.Location, logger *zap.Logger) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Policy: policy, Location: loc, Logger: logger, Now: time.Now}
}

// Resolve computes the record of code on date from in. prior is the
// persisted record of that day, or nil. Ledger moves are written through
// store, which should be the transactional view of the unit of work.
func (r *Resolver) Resolve(ctx context.Context, store Store, prior *Record, code string, date time.Time, in Input) (*Record, error) {
	category, err := in.Status.Classify()
	if err != nil {
		return nil, err
	}

	emp, err := loadEmployee(ctx, store, code)
	if err != nil {
		return nil, err
	}
	date = StartOfDay(date, r.Location)
	ledgers := NewLedgers(store, r.Now)

	// A day past the open cycle opens its own month first, as the monthly
	// reset would.
	if month := StartOfMonth(date, r.Location); !emp.AllowanceCycle.IsZero() && emp.AllowanceCycle.Before(month) {
		if err := ledgers.OpenCycle(ctx, code, month); err != nil {
			return nil, err
		}
		r.Logger.Info("allowance cycle opened by record",
			zap.String("employee_code", code),
			zap.String("cycle", month.Format("2006-01")),
		)
		if emp, err = loadEmployee(ctx, store, code); err != nil {
			return nil, err
		}
	}

	checkIn, errIn := ParsePunch(in.CheckIn, date, r.Location)
	checkOut, errOut := ParsePunch(in.CheckOut, date, r.Location)
	unparsable := false
	for _, perr := range []error{errIn, errOut} {
		switch {
		case perr == nil:
		case errors.Is(perr, errUnparsable):
			unparsable = true
		default:
			return nil, perr
		}
	}

	rec := r.newRecord(prior, code, date)
	rec.CheckIn, rec.CheckOut = checkIn, checkOut
	state := r.selectState(category, date, emp, checkIn, checkOut, unparsable)

	wasAnnual := prior != nil && prior.AnnualLeave
	if state == StateAnnualLeave && !wasAnnual {
		balance, err := ledgers.Annual.Balance(ctx, code)
		if err != nil {
			return nil, err
		}
		if !balance.IsPositive() {
			return nil, &InsufficientLeaveBalanceError{EmployeeCode: code, Balance: balance}
		}
	}

	r.apply(rec, state, emp, in.Status, unparsable)

	if err := r.moveLedgers(ctx, ledgers, emp, prior, rec); err != nil {
		return nil, err
	}

	// Snapshot after the ledgers moved.
	emp, err = loadEmployee(ctx, store, code)
	if err != nil {
		return nil, err
	}
	rec.EmployeeName = emp.FullName
	rec.WorkDaysPerWeek = emp.WorkDaysPerWeek
	rec.AnnualLeaveBalance = emp.AnnualLeaveBalance
	rec.CustomAnnualLeave = emp.CustomAnnualLeave
	rec.Advances = emp.Advances
	return rec, nil
}

// Release reverses every ledger effect of rec. Used before deleting it.
func (r *Resolver) Release(ctx context.Context, store Store, rec *Record) error {
	emp, err := loadEmployee(ctx, store, rec.EmployeeCode)
	if err != nil {
		return err
	}
	ledgers := NewLedgers(store, r.Now)
	if rec.AnnualLeave {
		if err := ledgers.Annual.Restore(ctx, rec.EmployeeCode, rec.Date); err != nil {
			return err
		}
	}
	if rec.OfficialLeave {
		if err := ledgers.Official.Decrement(ctx, rec.EmployeeCode, rec.Date); err != nil {
			return err
		}
	}
	if r.inAllowanceCycle(emp, rec.Date) {
		return ledgers.Late.Restore(ctx, rec.EmployeeCode, rec.Date, rec.LateAllowanceUsed)
	}
	return nil
}

func (r *Resolver) newRecord(prior *Record, code string, date time.Time) *Record {
	now := r.Now()
	rec := &Record{EmployeeCode: code, Date: date, CreatedAt: now, UpdatedAt: now}
	if prior != nil {
		rec.ID = prior.ID
		rec.CreatedAt = prior.CreatedAt
	}
	zeroDerived(rec)
	return rec
}

func (r *Resolver) selectState(c Category, date time.Time, emp *Employee, in, out *time.Time, unparsable bool) State {
	switch c {
	case CategoryLeaveCompensation:
		return StateLeaveCompensation
	case CategoryAnnualLeave:
		return StateAnnualLeave
	case CategoryAppropriateValue:
		return StateAppropriateValue
	case CategoryOfficialLeave:
		return StateOfficialLeave
	case CategoryMedicalLeave:
		return StateMedicalLeave
	}
	if IsWeeklyOff(date, emp.WorkDaysPerWeek) {
		return StateWeeklyOff
	}
	switch {
	case c == CategoryAbsence:
		return StateAbsent
	case unparsable:
		return StateInvalidPunches
	case (in == nil) != (out == nil):
		return StateSinglePunch
	case in == nil:
		return StateAbsent
	case out.Before(*in):
		return StateInvalidPunches
	default:
		return StateWorked
	}
}

func (r *Resolver) apply(rec *Record, state State, emp *Employee, declared Status, unparsable bool) {
	rec.State = state
	perDay := workHoursPerDay(emp)

	switch state {
	case StateLeaveCompensation:
		rec.LeaveCompensation = declared.LeaveCompensation
		if emp.BaseSalary.IsPositive() {
			rec.LeaveCompensation = emp.BaseSalary.Div(decimal.NewFromInt(30)).Mul(decimal.NewFromInt(2)).Round(2)
		}

	case StateAnnualLeave:
		in := emp.ShiftStart.On(rec.Date, r.Location)
		out := emp.ShiftEnd.On(rec.Date, r.Location)
		rec.CheckIn, rec.CheckOut = &in, &out
		rec.WorkHours = perDay
		rec.AnnualLeave = true

	case StateAppropriateValue:
		rec.AppropriateValue = declared.AppropriateValue
		rec.AppropriateValueDays = 1

	case StateOfficialLeave:
		rec.OfficialLeave = true

	case StateMedicalLeave:
		rec.MedicalLeave = true
		rec.MedicalLeaveDeduction = emp.MedicalLeaveDeduction

	case StateWeeklyOff:

	case StateSinglePunch:
		rec.WorkHours = perDay
		rec.IsSingleFingerprint = true

	case StateAbsent:
		rec.CheckIn, rec.CheckOut = nil, nil
		rec.Absence = true
		rec.EarlyLeaveDeduction = deductionFull

	case StateInvalidPunches:
		anomaly := AnomalyCheckOutBeforeCheckIn
		if unparsable {
			anomaly = AnomalyUnparsablePunch
		}
		r.recordAnomaly(rec, anomaly)

	case StateWorked:
		r.applyWorked(rec, perDay)
	}
}

func (r *Resolver) applyWorked(rec *Record, perDay decimal.Decimal) {
	in, out := *rec.CheckIn, *rec.CheckOut

	seconds := decimal.NewFromInt(int64(out.Sub(in) / time.Second))
	hours := decimal.Max(seconds.Div(decimal.NewFromInt(3600)).Round(2), decimal.Zero)
	if hours.GreaterThan(r.Policy.MaxWorkHours) {
		r.recordAnomaly(rec, AnomalyImpossibleWorkHours)
		rec.State = StateInvalidPunches
		return
	}
	rec.WorkHours = hours
	rec.Overtime = decimal.Max(hours.Sub(perDay), decimal.Zero).Round(2)

	if in.After(r.Policy.GraceEnd.On(rec.Date, r.Location)) {
		rec.LateMinutes = int(in.Sub(r.Policy.OfficialStart.On(rec.Date, r.Location)) / time.Minute)
	}

	switch {
	case !out.After(r.Policy.HalfDayLeaveBy.On(rec.Date, r.Location)):
		rec.EarlyLeaveDeduction = deductionHalf
	case !out.After(r.Policy.QuarterDayLeaveBy.On(rec.Date, r.Location)):
		rec.EarlyLeaveDeduction = deductionQuarter
	}
}

// moveLedgers writes the difference between prior and rec to the ledgers.
// It also settles rec's lateness against the allowance.
func (r *Resolver) moveLedgers(ctx context.Context, l Ledgers, emp *Employee, prior, rec *Record) error {
	wasAnnual := prior != nil && prior.AnnualLeave
	switch {
	case rec.AnnualLeave && !wasAnnual:
		if err := l.Annual.Decrement(ctx, rec.EmployeeCode, rec.Date); err != nil {
			return err
		}
	case !rec.AnnualLeave && wasAnnual:
		if err := l.Annual.Restore(ctx, rec.EmployeeCode, rec.Date); err != nil {
			return err
		}
	}

	wasOfficial := prior != nil && prior.OfficialLeave
	switch {
	case rec.OfficialLeave && !wasOfficial:
		if err := l.Official.Increment(ctx, rec.EmployeeCode, rec.Date); err != nil {
			return err
		}
	case !rec.OfficialLeave && wasOfficial:
		if err := l.Official.Decrement(ctx, rec.EmployeeCode, rec.Date); err != nil {
			return err
		}
	}

	return r.settleLateness(ctx, l.Late, emp, prior, rec)
}

// settleLateness charges rec.LateMinutes against the allowance available to
// the record, which is what remains plus what the prior version of the same
// record had charged. Lateness beyond that triggers a deduction tier. Records
// dated before the open allowance cycle keep their earlier charge and never
// touch the ledger.
func (r *Resolver) settleLateness(ctx context.Context, l *LateAllowanceLedger, emp *Employee, prior, rec *Record) error {
	priorCharge := 0
	if prior != nil {
		priorCharge = prior.LateAllowanceUsed
	}
	open := r.inAllowanceCycle(emp, rec.Date)

	available := priorCharge
	if open {
		remaining, err := l.Remaining(ctx, rec.EmployeeCode)
		if err != nil {
			return err
		}
		available += remaining
	}

	used := min(rec.LateMinutes, available)
	if rec.LateMinutes > available {
		rec.LateDeduction = deductionHalf
		if !rec.CheckIn.After(r.Policy.QuarterLateBy.On(rec.Date, r.Location)) {
			rec.LateDeduction = deductionQuarter
		}
		r.Logger.Info("late allowance exhausted",
			zap.String("employee_code", rec.EmployeeCode),
			zap.String("date", rec.Date.Format("2006-01-02")),
			zap.Int("late_minutes", rec.LateMinutes),
			zap.Int("available", available),
			zap.String("deduction", rec.LateDeduction.String()),
		)
	}
	rec.LateAllowanceUsed = used

	if !open {
		return nil
	}
	switch delta := used - priorCharge; {
	case delta > 0:
		_, err := l.Consume(ctx, rec.EmployeeCode, rec.Date, delta)
		return err
	case delta < 0:
		return l.Restore(ctx, rec.EmployeeCode, rec.Date, -delta)
	}
	return nil
}

func (r *Resolver) inAllowanceCycle(emp *Employee, date time.Time) bool {
	if emp.AllowanceCycle.IsZero() {
		return true
	}
	return !StartOfMonth(date, r.Location).Before(StartOfMonth(emp.AllowanceCycle, r.Location))
}

func (r *Resolver) recordAnomaly(rec *Record, anomaly string) {
	zeroDerived(rec)
	rec.Anomaly = anomaly
	r.Logger.Warn("computation anomaly, saving zero day",
		zap.String("employee_code", rec.EmployeeCode),
		zap.String("date", rec.Date.Format("2006-01-02")),
		zap.String("anomaly", anomaly),
	)
}

// zeroDerived resets every derived numeric and status flag of rec.
func zeroDerived(rec *Record) {
	rec.WorkHours = decimal.Zero
	rec.Overtime = decimal.Zero
	rec.LateMinutes = 0
	rec.LateDeduction = decimal.Zero
	rec.EarlyLeaveDeduction = decimal.Zero
	rec.MedicalLeaveDeduction = decimal.Zero
	rec.IsSingleFingerprint = false
	rec.Absence = false
	rec.AnnualLeave = false
	rec.MedicalLeave = false
	rec.OfficialLeave = false
	rec.LeaveCompensation = decimal.Zero
	rec.AppropriateValue = decimal.Zero
	rec.AppropriateValueDays = 0
	rec.Anomaly = ""
}

func workHoursPerDay(emp *Employee) decimal.Decimal {
	if emp.WorkHoursPerDay.IsPositive() {
		return emp.WorkHoursPerDay
	}
	return DefaultWorkHoursPerDay
}
