package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ANNUAL-LEAVE LEDGER
// =============================================================================

// AnnualLeaveLedger moves an employee's annual-leave balance one day at a
// time. Callers pair exactly one call with each transition of a record's
// annual-leave flag.
type AnnualLeaveLedger struct {
	store Store
	now   func() time.Time
}

func NewAnnualLeaveLedger(store Store, now func() time.Time) *AnnualLeaveLedger {
	if now == nil {
		now = time.Now
	}
	return &AnnualLeaveLedger{store: store, now: now}
}

func (l *AnnualLeaveLedger) Balance(ctx context.Context, code string) (decimal.Decimal, error) {
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return decimal.Zero, err
	}
	return emp.AnnualLeaveBalance, nil
}

// Decrement takes one day from the balance. It is a no-op when the balance
// is already at or below zero.
func (l *AnnualLeaveLedger) Decrement(ctx context.Context, code string, day time.Time) error {
	return l.move(ctx, code, day, decimal.NewFromInt(-1), EntryConsumption, "annual leave taken")
}

// Restore gives one day back. The balance is not capped.
func (l *AnnualLeaveLedger) Restore(ctx context.Context, code string, day time.Time) error {
	return l.move(ctx, code, day, decimal.NewFromInt(1), EntryReversal, "annual leave revoked")
}

// Adjust sets the balance to target and journals the difference. It is the
// only way to change the balance outside a record transition.
func (l *AnnualLeaveLedger) Adjust(ctx context.Context, code string, day time.Time, target decimal.Decimal, reason string) error {
	if target.IsNegative() {
		return &ValidationError{Field: "annual_leave_balance", Reason: "must not be negative"}
	}
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return err
	}
	delta := target.Sub(emp.AnnualLeaveBalance)
	if delta.IsZero() {
		return nil
	}
	return l.move(ctx, code, day, delta, EntryAdjustment, reason)
}

func (l *AnnualLeaveLedger) move(ctx context.Context, code string, day time.Time, delta decimal.Decimal, typ EntryType, reason string) error {
	emp, err := loadEmployee(ctx, l.store, code)
	if err != nil {
		return err
	}
	if delta.IsNegative() && !emp.AnnualLeaveBalance.IsPositive() {
		return nil
	}
	emp.AnnualLeaveBalance = emp.AnnualLeaveBalance.Add(delta)
	emp.UpdatedAt = l.now()
	if err := l.store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	return appendEntry(ctx, l.store, l.now(), LedgerEntry{
		EmployeeCode: code,
		Ledger:       LedgerAnnualLeave,
		RecordDate:   day,
		Delta:        delta,
		Type:         typ,
		Reason:       reason,
	})
}

// =============================================================================
// OFFICIAL-LEAVE COUNTER
// =============================================================================

// OfficialLeaveCounter maintains Employee.TotalOfficialLeaveDays.
type OfficialLeaveCounter struct {
	store Store
	now   func() time.Time
}

func NewOfficialLeaveCounter(store Store, now func() time.Time) *OfficialLeaveCounter {
	if now == nil {
		now = time.Now
	}
	return &OfficialLeaveCounter{store: store, now: now}
}

func (c *OfficialLeaveCounter) Increment(ctx context.Context, code string, day time.Time) error {
	return c.move(ctx, code, day, 1, EntryGrant, "official leave")
}

func (c *OfficialLeaveCounter) Decrement(ctx context.Context, code string, day time.Time) error {
	return c.move(ctx, code, day, -1, EntryReversal, "official leave revoked")
}

// Reset zeroes the counter at the start of a cycle.
func (c *OfficialLeaveCounter) Reset(ctx context.Context, code string, cycle time.Time) error {
	emp, err := loadEmployee(ctx, c.store, code)
	if err != nil {
		return err
	}
	if emp.TotalOfficialLeaveDays == 0 {
		return nil
	}
	return c.move(ctx, code, cycle, -emp.TotalOfficialLeaveDays, EntryReset, "monthly reset")
}

func (c *OfficialLeaveCounter) move(ctx context.Context, code string, day time.Time, delta int, typ EntryType, reason string) error {
	emp, err := loadEmployee(ctx, c.store, code)
	if err != nil {
		return err
	}
	next := max(emp.TotalOfficialLeaveDays+delta, 0)
	if next == emp.TotalOfficialLeaveDays {
		return nil
	}
	applied := next - emp.TotalOfficialLeaveDays
	emp.TotalOfficialLeaveDays = next
	emp.UpdatedAt = c.now()
	if err := c.store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	return appendEntry(ctx, c.store, c.now(), LedgerEntry{
		EmployeeCode: code,
		Ledger:       LedgerOfficialLeave,
		RecordDate:   day,
		Delta:        decimal.NewFromInt(int64(applied)),
		Type:         typ,
		Reason:       reason,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// Ledgers bundles every ledger of one unit of work.
type Ledgers struct {
	Annual   *AnnualLeaveLedger
	Late     *LateAllowanceLedger
	Official *OfficialLeaveCounter
}

func NewLedgers(store Store, now func() time.Time) Ledgers {
	return Ledgers{
		Annual:   NewAnnualLeaveLedger(store, now),
		Late:     NewLateAllowanceLedger(store, now),
		Official: NewOfficialLeaveCounter(store, now),
	}
}

// OpenCycle starts the allowance cycle at cycle: full late allowance, zero
// official-leave days.
func (l Ledgers) OpenCycle(ctx context.Context, code string, cycle time.Time) error {
	if err := l.Late.Reset(ctx, code, cycle); err != nil {
		return err
	}
	return l.Official.Reset(ctx, code, cycle)
}

func loadEmployee(ctx context.Context, d Directory, code string) (*Employee, error) {
	emp, err := d.GetEmployee(ctx, code)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &EmployeeNotFoundError{Code: code}
	}
	return emp, nil
}

func appendEntry(ctx context.Context, j Journal, at time.Time, e LedgerEntry) error {
	e.ID = uuid.NewString()
	e.CreatedAt = at
	return j.AppendEntry(ctx, e)
}
