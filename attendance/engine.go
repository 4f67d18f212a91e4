/*
engine.go - Unit of work for one employee-day

PURPOSE:
  The Engine is the only writer of records and employee ledgers. Every
  operation runs as one transaction on the TxStore while holding the
  employee's lock, so two writes for the same employee's different days can
  never race on the annual-leave balance or the late allowance. Different
  employees proceed in parallel.

FLOW (Save):
  1. lock employee
  2. load prior record for (code, date)
  3. derive Input from prior, let the caller mutate it
  4. Resolver.Resolve: classify, compute, move ledgers by the diff
  5. upsert record; commit

SEE ALSO:
  - resolver.go: state machine and ledger edges
  - batch.go: bulk import, leave declarations, backfill
*/
package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Engine struct {
	store    TxStore
	resolver *Resolver
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
	workers  int
	locks    keyedMutex
}

type Option func(*Engine)

// WithClock overrides time.Now, for tests and replays.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.resolver.Policy = p }
}

// WithWorkers bounds how many employees a batch processes at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(store TxStore, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		store:    store,
		resolver: NewResolver(DefaultPolicy(), loc, nil),
		logger:   zap.NewNop(),
		loc:      loc,
		now:      time.Now,
		workers:  8,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver.Logger = e.logger.Named("resolver")
	e.resolver.Now = e.now
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

// Now is the engine clock in the engine's location.
func (e *Engine) Now() time.Time { return e.now().In(e.loc) }

// =============================================================================
// RECORD OPERATIONS
// =============================================================================

// Save recomputes the record of code on date. mutate receives the input
// derived from the persisted record (or an empty input) and may change it.
func (e *Engine) Save(ctx context.Context, code string, date time.Time, mutate func(*Input)) (*Record, error) {
	rec, _, err := e.save(ctx, code, date, mutate, false)
	return rec, err
}

// save runs one unit of work. With onlyIfMissing an existing record is left
// untouched and reported as not written.
func (e *Engine) save(ctx context.Context, code string, date time.Time, mutate func(*Input), onlyIfMissing bool) (*Record, bool, error) {
	day, err := e.validateDate(date)
	if err != nil {
		return nil, false, err
	}
	unlock := e.locks.lock(code)
	defer unlock()

	var saved *Record
	err = e.store.WithTx(ctx, func(s Store) error {
		key := Key{EmployeeCode: code, Date: day}
		prior, err := s.FindRecord(ctx, key)
		if err != nil {
			return fmt.Errorf("load record %s: %w", key, err)
		}
		if prior != nil && onlyIfMissing {
			return nil
		}
		in := InputFrom(prior)
		if mutate != nil {
			mutate(&in)
		}
		rec, err := e.resolver.Resolve(ctx, s, prior, code, day, in)
		if err != nil {
			return err
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		// The group must still be exclusive after derivation.
		if _, err := rec.Status().Classify(); err != nil {
			return err
		}
		if err := s.UpsertRecord(ctx, rec); err != nil {
			return fmt.Errorf("save record %s: %w", key, err)
		}
		saved = rec
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return saved, saved != nil, nil
}

// Put replaces every declared field of the day with in.
func (e *Engine) Put(ctx context.Context, code string, date time.Time, in Input) (*Record, error) {
	return e.Save(ctx, code, date, func(cur *Input) { *cur = in })
}

// Delete removes the record of code on date after reversing its ledger
// effects.
func (e *Engine) Delete(ctx context.Context, code string, date time.Time) error {
	day := StartOfDay(date, e.loc)
	unlock := e.locks.lock(code)
	defer unlock()

	return e.store.WithTx(ctx, func(s Store) error {
		key := Key{EmployeeCode: code, Date: day}
		rec, err := s.FindRecord(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%s: %w", key, ErrRecordNotFound)
		}
		if err := e.resolver.Release(ctx, s, rec); err != nil {
			return err
		}
		return s.DeleteRecord(ctx, key)
	})
}

// Records returns the computed records of code between from and to inclusive.
func (e *Engine) Records(ctx context.Context, code string, from, to time.Time) ([]Record, error) {
	return e.store.ListRecords(ctx, code, StartOfDay(from, e.loc), StartOfDay(to, e.loc))
}

// Entries returns the ledger journal of code.
func (e *Engine) Entries(ctx context.Context, code string) ([]LedgerEntry, error) {
	return e.store.Entries(ctx, code)
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

// RemainingLateAllowance returns the unused late minutes of the current
// month. A month whose cycle has not been opened yet reports the full
// budget it will open with.
func (e *Engine) RemainingLateAllowance(ctx context.Context, code string) (int, error) {
	emp, err := loadEmployee(ctx, e.store, code)
	if err != nil {
		return 0, err
	}
	if !emp.AllowanceCycle.IsZero() && emp.AllowanceCycle.Before(StartOfMonth(e.now(), e.loc)) {
		return emp.MonthlyLateAllowance, nil
	}
	return emp.RemainingLateAllowance, nil
}

// SetAnnualLeaveBalance moves the annual-leave balance of code to balance
// through the ledger, journaling the difference.
func (e *Engine) SetAnnualLeaveBalance(ctx context.Context, code string, balance decimal.Decimal, reason string) (*Employee, error) {
	unlock := e.locks.lock(code)
	defer unlock()

	var saved *Employee
	err := e.store.WithTx(ctx, func(s Store) error {
		if err := NewAnnualLeaveLedger(s, e.now).Adjust(ctx, code, StartOfDay(e.now(), e.loc), balance, reason); err != nil {
			return err
		}
		var err error
		saved, err = loadEmployee(ctx, s, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ResetLateAllowance restores the full allowance of code and opens the
// cycle of the current month.
func (e *Engine) ResetLateAllowance(ctx context.Context, code string) error {
	unlock := e.locks.lock(code)
	defer unlock()
	return e.store.WithTx(ctx, func(s Store) error {
		return NewLateAllowanceLedger(s, e.now).Reset(ctx, code, StartOfMonth(e.now(), e.loc))
	})
}

// ResetMonth opens the allowance cycle starting at month for every employee:
// late allowance back to the monthly budget, official-leave counter to zero.
// Employees already in that cycle are skipped, so the call is idempotent.
// It returns how many employees were reset.
func (e *Engine) ResetMonth(ctx context.Context, month time.Time) (int, error) {
	cycle := StartOfMonth(month, e.loc)
	employees, err := e.store.ListEmployees(ctx)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, emp := range employees {
		done, err := e.resetEmployee(ctx, emp.Code, cycle)
		if err != nil {
			return reset, fmt.Errorf("reset %s: %w", emp.Code, err)
		}
		if done {
			reset++
		}
	}
	e.logger.Info("monthly reset completed",
		zap.String("cycle", cycle.Format("2006-01")),
		zap.Int("reset", reset),
		zap.Int("employees", len(employees)),
	)
	return reset, nil
}

func (e *Engine) resetEmployee(ctx context.Context, code string, cycle time.Time) (bool, error) {
	unlock := e.locks.lock(code)
	defer unlock()

	done := false
	err := e.store.WithTx(ctx, func(s Store) error {
		emp, err := loadEmployee(ctx, s, code)
		if err != nil {
			return err
		}
		if !emp.AllowanceCycle.IsZero() && !emp.AllowanceCycle.Before(cycle) {
			return nil
		}
		if err := NewLedgers(s, e.now).OpenCycle(ctx, code, cycle); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// RegisterEmployee creates a directory entry with the ledger fields emp
// carries. For an existing employee only the configuration is updated, as
// by UpdateEmployee; ledger fields of emp are ignored. emp is refreshed with
// the stored row.
func (e *Engine) RegisterEmployee(ctx context.Context, emp *Employee) error {
	if err := emp.Validate(); err != nil {
		return err
	}
	unlock := e.locks.lock(emp.Code)
	defer unlock()

	var saved *Employee
	err := e.store.WithTx(ctx, func(s Store) error {
		existing, err := s.GetEmployee(ctx, emp.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			saved, err = e.reconfigure(ctx, s, existing, emp)
			return err
		}
		created := *emp
		now := e.now()
		created.CreatedAt, created.UpdatedAt = now, now
		if created.AllowanceCycle.IsZero() {
			created.AllowanceCycle = StartOfMonth(now, e.loc)
		}
		saved = &created
		return s.SaveEmployee(ctx, saved)
	})
	if err != nil {
		return err
	}
	*emp = *saved
	return nil
}

// UpdateEmployee applies mutate to the stored configuration of code under
// the employee's lock. Changes mutate makes to ledger fields are discarded.
func (e *Engine) UpdateEmployee(ctx context.Context, code string, mutate func(*Employee) error) (*Employee, error) {
	unlock := e.locks.lock(code)
	defer unlock()

	var saved *Employee
	err := e.store.WithTx(ctx, func(s Store) error {
		stored, err := loadEmployee(ctx, s, code)
		if err != nil {
			return err
		}
		next := *stored
		if err := mutate(&next); err != nil {
			return err
		}
		next.Code = code
		if err := next.Validate(); err != nil {
			return err
		}
		saved, err = e.reconfigure(ctx, s, stored, &next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// reconfigure copies the configuration of next onto stored and saves it.
// A monthly allowance lowered below what remains caps the remaining minutes
// through the ledger.
func (e *Engine) reconfigure(ctx context.Context, s Store, stored, next *Employee) (*Employee, error) {
	stored.FullName = next.FullName
	stored.WorkDaysPerWeek = next.WorkDaysPerWeek
	stored.WorkHoursPerDay = next.WorkHoursPerDay
	stored.ShiftStart = next.ShiftStart
	stored.ShiftEnd = next.ShiftEnd
	stored.BaseSalary = next.BaseSalary
	stored.Advances = next.Advances
	stored.MonthlyLateAllowance = next.MonthlyLateAllowance
	stored.CustomAnnualLeave = next.CustomAnnualLeave
	stored.MedicalLeaveDeduction = next.MedicalLeaveDeduction
	stored.UpdatedAt = e.now()
	if err := s.SaveEmployee(ctx, stored); err != nil {
		return nil, err
	}
	if err := NewLateAllowanceLedger(s, e.now).Cap(ctx, stored.Code, StartOfDay(e.now(), e.loc)); err != nil {
		return nil, err
	}
	return loadEmployee(ctx, s, stored.Code)
}

func (e *Engine) Employee(ctx context.Context, code string) (*Employee, error) {
	return loadEmployee(ctx, e.store, code)
}

func (e *Engine) Employees(ctx context.Context) ([]Employee, error) {
	return e.store.ListEmployees(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) validateDate(date time.Time) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, &ValidationError{Field: "date", Reason: "required"}
	}
	day := StartOfDay(date, e.loc)
	if day.After(StartOfDay(e.now(), e.loc)) {
		return time.Time{}, &ValidationError{Field: "date", Reason: day.Format("2006-01-02") + " is in the future"}
	}
	return day, nil
}

// keyedMutex serializes work per employee code.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
