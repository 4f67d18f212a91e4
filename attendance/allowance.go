/*
allowance.go - Monthly late-minute allowance

PURPOSE:
  Every employee has a monthly budget of late minutes (default 120) excused
  without deduction. Records charge their late minutes against it, capped
  at what remains. The budget is reset to the configured allowance at the
  start of each month by an external trigger (Engine.ResetMonth), or by the
  first record computed in a month past the open cycle.

INVARIANTS:
  - RemainingLateAllowance never goes below 0
  - RemainingLateAllowance never exceeds MonthlyLateAllowance
  - Every movement is journaled as a LedgerEntry

RE-DERIVATION:
  A record remembers how much it charged (Record.LateAllowanceUsed). When it
  is recomputed the resolver hands the previous charge back before charging
  again, so recomputing an earlier day re-derives rather than adds.
*/
package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LateAllowanceLedger struct {
	store Store
	now   func() time.Time
}

func NewLateAllowanceLedger(store Store, now func() time.Time) *LateAllowanceLedger {
	if now == nil {
		now = time.Now
	}
	return &LateAllowanceLedger{store: store, now: now}
}

// Remaining returns the employee's unused late minutes for the current cycle.
func (l *LateAllowanceLedger) Remaining(ctx context.Context, code string) (int, error) {
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return 0, err
	}
	return emp.RemainingLateAllowance, nil
}

// Consume charges up to minutes against the allowance and returns how many
// were actually charged. It never drives the allowance negative.
func (l *LateAllowanceLedger) Consume(ctx context.Context, code string, day time.Time, minutes int) (int, error) {
	if minutes <= 0 {
		return 0, nil
	}
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return 0, err
	}
	consumed := min(minutes, emp.RemainingLateAllowance)
	if consumed == 0 {
		return 0, nil
	}
	emp.RemainingLateAllowance -= consumed
	if err := l.save(ctx, emp); err != nil {
		return 0, err
	}
	return consumed, appendEntry(ctx, l.store, l.now(), LedgerEntry{
		EmployeeCode: code,
		Ledger:       LedgerLateAllowance,
		RecordDate:   day,
		Delta:        decimal.NewFromInt(int64(-consumed)),
		Type:         EntryConsumption,
		Reason:       "late arrival",
	})
}

// Restore hands minutes previously charged by a record back to the allowance.
func (l *LateAllowanceLedger) Restore(ctx context.Context, code string, day time.Time, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return err
	}
	restored := min(minutes, emp.MonthlyLateAllowance-emp.RemainingLateAllowance)
	if restored <= 0 {
		return nil
	}
	emp.RemainingLateAllowance += restored
	if err := l.save(ctx, emp); err != nil {
		return err
	}
	return appendEntry(ctx, l.store, l.now(), LedgerEntry{
		EmployeeCode: code,
		Ledger:       LedgerLateAllowance,
		RecordDate:   day,
		Delta:        decimal.NewFromInt(int64(restored)),
		Type:         EntryReversal,
		Reason:       "record recomputed or deleted",
	})
}

// Cap lowers the remaining minutes to the monthly allowance when the
// allowance was reconfigured below them.
func (l *LateAllowanceLedger) Cap(ctx context.Context, code string, day time.Time) error {
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return err
	}
	excess := emp.RemainingLateAllowance - emp.MonthlyLateAllowance
	if excess <= 0 {
		return nil
	}
	emp.RemainingLateAllowance = emp.MonthlyLateAllowance
	if err := l.save(ctx, emp); err != nil {
		return err
	}
	return appendEntry(ctx, l.store, l.now(), LedgerEntry{
		EmployeeCode: code,
		Ledger:       LedgerLateAllowance,
		RecordDate:   day,
		Delta:        decimal.NewFromInt(int64(-excess)),
		Type:         EntryAdjustment,
		Reason:       "monthly allowance lowered",
	})
}

// Reset restores the full monthly allowance and starts a new cycle at cycle.
func (l *LateAllowanceLedger) Reset(ctx context.Context, code string, cycle time.Time) error {
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return err
	}
	delta := emp.MonthlyLateAllowance - emp.RemainingLateAllowance
	emp.RemainingLateAllowance = emp.MonthlyLateAllowance
	emp.AllowanceCycle = cycle
	if err := l.save(ctx, emp); err != nil {
		return err
	}
	return appendEntry(ctx, l.store, l.now(), LedgerEntry{
		EmployeeCode: code,
		Ledger:       LedgerLateAllowance,
		RecordDate:   cycle,
		Delta:        decimal.NewFromInt(int64(delta)),
		Type:         EntryReset,
		Reason:       "monthly reset",
	})
}

func (l *LateAllowanceLedger) save(ctx context.Context, emp *Employee) error {
	emp.UpdatedAt = l.now()
	return l.store.SaveEmployee(ctx, emp)
}
