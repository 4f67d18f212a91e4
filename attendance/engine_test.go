package attendance_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_ReversesLedgerEffects(t *testing.T) {
	// GIVEN: an annual-leave day, an official-leave day and a late day
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()

	_, err := e.Put(ctx, "E1", oct(5), attendance.Input{Status: attendance.Status{AnnualLeave: true}})
	require.NoError(t, err)
	_, err = e.Put(ctx, "E1", oct(6), attendance.Input{Status: attendance.Status{OfficialLeave: true}})
	require.NoError(t, err)
	_, err = e.Put(ctx, "E1", oct(7), punches("09:30", "17:30"))
	require.NoError(t, err)

	emp := employee(t, e, "E1")
	assertDec(t, "20", emp.AnnualLeaveBalance, "balance")
	assert.Equal(t, 1, emp.TotalOfficialLeaveDays)
	assert.Equal(t, 60, emp.RemainingLateAllowance)

	// WHEN: all three are deleted
	for _, d := range []int{5, 6, 7} {
		require.NoError(t, e.Delete(ctx, "E1", oct(d)))
	}

	// THEN: every ledger is back where it started
	emp = employee(t, e, "E1")
	assertDec(t, "21", emp.AnnualLeaveBalance, "balance")
	assert.Zero(t, emp.TotalOfficialLeaveDays)
	assert.Equal(t, 120, emp.RemainingLateAllowance)

	records, err := e.Records(ctx, "E1", oct(1), oct(20))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDelete_MissingRecord(t *testing.T) {
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))

	err := e.Delete(context.Background(), "E1", oct(5))
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

// =============================================================================
// MONTHLY RESET
// =============================================================================

func TestResetMonth(t *testing.T) {
	// GIVEN: an employee still in September's cycle with part of the
	// allowance used and two official-leave days
	e, _ := newTestEngine(t)
	emp := attendance.NewEmployee("E1", "Mona")
	emp.AllowanceCycle = time.Date(2026, time.September, 1, 0, 0, 0, 0, testLoc)
	emp.RemainingLateAllowance = 30
	emp.TotalOfficialLeaveDays = 2
	register(t, e, emp)
	ctx := context.Background()

	// WHEN: October is opened
	n, err := e.ResetMonth(ctx, oct(1))
	require.NoError(t, err)

	// THEN: allowance refilled, counter zeroed, cycle moved
	assert.Equal(t, 1, n)
	emp = employee(t, e, "E1")
	assert.Equal(t, 120, emp.RemainingLateAllowance)
	assert.Zero(t, emp.TotalOfficialLeaveDays)
	assert.True(t, emp.AllowanceCycle.Equal(oct(1)))

	resets := entriesOf(t, e, "E1", attendance.LedgerLateAllowance)
	require.Len(t, resets, 1)
	assert.Equal(t, attendance.EntryReset, resets[0].Type)
	assertDec(t, "90", resets[0].Delta, "reset delta")

	// AND: running it again for the same month changes nothing
	entriesBefore, err := e.Entries(ctx, "E1")
	require.NoError(t, err)
	n, err = e.ResetMonth(ctx, oct(15))
	require.NoError(t, err)
	assert.Zero(t, n)
	entriesAfter, err := e.Entries(ctx, "E1")
	require.NoError(t, err)
	assert.Len(t, entriesAfter, len(entriesBefore))
}

func TestResetMonth_FreezesPreviousCycle(t *testing.T) {
	// GIVEN: a late day on September 30 charged to September's cycle
	e, _ := newTestEngine(t)
	emp := attendance.NewEmployee("E1", "Mona")
	emp.AllowanceCycle = time.Date(2026, time.September, 1, 0, 0, 0, 0, testLoc)
	register(t, e, emp)
	ctx := context.Background()
	sep30 := time.Date(2026, time.September, 30, 0, 0, 0, 0, testLoc)

	_, err := e.Put(ctx, "E1", sep30, punches("09:30", "17:30"))
	require.NoError(t, err)
	assert.Equal(t, 60, employee(t, e, "E1").RemainingLateAllowance)

	_, err = e.ResetMonth(ctx, oct(1))
	require.NoError(t, err)

	// WHEN: the September day is corrected after the reset
	rec, err := e.Put(ctx, "E1", sep30, punches("08:30", "17:30"))
	require.NoError(t, err)

	// THEN: October's allowance is untouched
	assert.Zero(t, rec.LateMinutes)
	assert.Equal(t, 120, employee(t, e, "E1").RemainingLateAllowance)
}

func TestResetLateAllowance(t *testing.T) {
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()

	_, err := e.Put(ctx, "E1", oct(5), punches("09:30", "17:30"))
	require.NoError(t, err)
	require.NoError(t, e.ResetLateAllowance(ctx, "E1"))

	remaining, err := e.RemainingLateAllowance(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 120, remaining)
}

func TestNewMonthOpensCycleWithoutReset(t *testing.T) {
	// GIVEN: an employee registered in September who spent the allowance
	// and took official leave, and no monthly reset since
	now := time.Date(2026, time.September, 20, 12, 0, 0, 0, testLoc)
	e, _ := newTestEngine(t, attendance.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	sep := func(d int) time.Time { return time.Date(2026, time.September, d, 0, 0, 0, 0, testLoc) }
	_, err := e.Put(ctx, "E1", sep(14), punches("10:30", "17:30"))
	require.NoError(t, err)
	_, err = e.Put(ctx, "E1", sep(15), attendance.Input{Status: attendance.Status{OfficialLeave: true}})
	require.NoError(t, err)
	require.Zero(t, employee(t, e, "E1").RemainingLateAllowance)

	// WHEN: the clock moves into October
	now = testNow

	// THEN: the open month reports its full budget before any record
	remaining, err := e.RemainingLateAllowance(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 120, remaining)

	// AND: the first late October day is charged against it
	rec, err := e.Put(ctx, "E1", oct(19), punches("09:30", "17:30"))
	require.NoError(t, err)
	assert.Equal(t, 60, rec.LateMinutes)
	assert.Equal(t, 60, rec.LateAllowanceUsed)
	assertDec(t, "0", rec.LateDeduction, "late deduction")

	emp := employee(t, e, "E1")
	assert.Equal(t, 60, emp.RemainingLateAllowance)
	assert.True(t, emp.AllowanceCycle.Equal(oct(1)))
	assert.Zero(t, emp.TotalOfficialLeaveDays)

	// AND: the explicit reset later finds the month already open
	n, err := e.ResetMonth(ctx, oct(1))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 60, employee(t, e, "E1").RemainingLateAllowance)
}

// =============================================================================
// BATCHES
// =============================================================================

func TestImport(t *testing.T) {
	// GIVEN: two employees
	e, _ := newTestEngine(t)
	boss := attendance.NewEmployee("E2", "Karim")
	boss.BaseSalary = decimal.NewFromInt(3000)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	register(t, e, boss)
	ctx := context.Background()
	yes := true
	comp := decimal.NewFromInt(1)

	// WHEN: a punch batch arrives, including one unknown employee
	report := e.Import(ctx, []attendance.PunchRow{
		{EmployeeCode: "E1", Date: oct(5), CheckIn: "08:25", CheckOut: "17:40"},
		{EmployeeCode: "E1", Date: oct(6), CheckIn: "09:30", CheckOut: "17:40"},
		{EmployeeCode: "E2", Date: oct(5), OfficialLeave: &yes},
		{EmployeeCode: "E2", Date: oct(6), LeaveCompensation: &comp},
		{EmployeeCode: "E9", Date: oct(5), CheckIn: "08:30", CheckOut: "17:30"},
	})

	// THEN: the bad row fails alone
	assert.Equal(t, 4, report.Processed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "E9", report.Failed[0].EmployeeCode)
	assert.ErrorIs(t, report.Failed[0].Err, attendance.ErrEmployeeNotFound)

	records, err := e.Records(ctx, "E1", oct(1), oct(20))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.StateWorked, records[0].State)
	assert.Equal(t, 60, records[1].LateMinutes)

	records, err = e.Records(ctx, "E2", oct(1), oct(20))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.StateOfficialLeave, records[0].State)
	assert.Equal(t, attendance.StateLeaveCompensation, records[1].State)
	assertDec(t, "200", records[1].LeaveCompensation, "leave compensation")
	assert.Equal(t, 1, employee(t, e, "E2").TotalOfficialLeaveDays)
}

func TestImport_MergesIntoDeclaredDay(t *testing.T) {
	// GIVEN: a day declared as official leave
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()
	_, err := e.Put(ctx, "E1", oct(5), attendance.Input{Status: attendance.Status{OfficialLeave: true}})
	require.NoError(t, err)

	// WHEN: punches for that day are imported without an official-leave value
	report := e.Import(ctx, []attendance.PunchRow{
		{EmployeeCode: "E1", Date: oct(5), CheckIn: "08:30", CheckOut: "17:30"},
	})
	require.Empty(t, report.Failed)

	// THEN: the declaration stays, punches are stored with it
	records, err := e.Records(ctx, "E1", oct(5), oct(5))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StateOfficialLeave, records[0].State)
	require.NotNil(t, records[0].CheckIn)
	assert.Equal(t, 1, employee(t, e, "E1").TotalOfficialLeaveDays)

	// AND: an explicit false clears it
	no := false
	e.Import(ctx, []attendance.PunchRow{
		{EmployeeCode: "E1", Date: oct(5), CheckIn: "08:30", CheckOut: "17:30", OfficialLeave: &no},
	})
	records, err = e.Records(ctx, "E1", oct(5), oct(5))
	require.NoError(t, err)
	assert.Equal(t, attendance.StateWorked, records[0].State)
	assert.Zero(t, employee(t, e, "E1").TotalOfficialLeaveDays)
}

func TestDeclareLeave(t *testing.T) {
	// GIVEN: a 6-day-week employee
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()
	decl := attendance.LeaveDeclaration{
		EmployeeCodes: []string{"E1"},
		From:          oct(1),
		To:            oct(7),
		Status:        attendance.CategoryAnnualLeave,
	}

	// WHEN: annual leave is declared for October 1-7
	report := e.DeclareLeave(ctx, decl)

	// THEN: six working days are charged, Friday is skipped
	assert.Equal(t, 6, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Failed)
	assertDec(t, "15", employee(t, e, "E1").AnnualLeaveBalance, "balance")

	// AND: declaring it again does not charge again
	report = e.DeclareLeave(ctx, decl)
	assert.Empty(t, report.Failed)
	assertDec(t, "15", employee(t, e, "E1").AnnualLeaveBalance, "balance")
}

func TestDeclareLeave_ReplacesOtherStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()
	_, err := e.Put(ctx, "E1", oct(5), attendance.Input{Status: attendance.Status{AnnualLeave: true}})
	require.NoError(t, err)

	report := e.DeclareLeave(ctx, attendance.LeaveDeclaration{
		EmployeeCodes: []string{"E1"},
		From:          oct(5),
		To:            oct(5),
		Status:        attendance.CategoryMedicalLeave,
	})
	require.Empty(t, report.Failed)

	records, err := e.Records(ctx, "E1", oct(5), oct(5))
	require.NoError(t, err)
	assert.Equal(t, attendance.StateMedicalLeave, records[0].State)
	assertDec(t, "21", employee(t, e, "E1").AnnualLeaveBalance, "balance")
}

func TestDeclareLeave_StopsChargingAtZeroBalance(t *testing.T) {
	// GIVEN: two days of annual leave left
	e, _ := newTestEngine(t)
	emp := attendance.NewEmployee("E1", "Mona")
	emp.AnnualLeaveBalance = decimal.NewFromInt(2)
	register(t, e, emp)

	// WHEN: four working days are requested
	report := e.DeclareLeave(context.Background(), attendance.LeaveDeclaration{
		EmployeeCodes: []string{"E1"},
		From:          oct(4),
		To:            oct(7),
		Status:        attendance.CategoryAnnualLeave,
	})

	// THEN: the first two succeed in date order, the rest are rejected
	assert.Equal(t, 2, report.Processed)
	require.Len(t, report.Failed, 2)
	assert.True(t, report.Failed[0].Date.Equal(oct(6)))
	assert.ErrorIs(t, report.Failed[0].Err, attendance.ErrInsufficientLeaveBalance)
	assertDec(t, "0", employee(t, e, "E1").AnnualLeaveBalance, "balance")
}

func TestDeclareLeave_MonetaryStatusNeedsAmount(t *testing.T) {
	// GIVEN: an annual-leave day inside the range
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()
	_, err := e.Put(ctx, "E1", oct(5), attendance.Input{Status: attendance.Status{AnnualLeave: true}})
	require.NoError(t, err)

	for _, status := range []attendance.Category{attendance.CategoryLeaveCompensation, attendance.CategoryAppropriateValue} {
		// WHEN: a monetary status is declared without an amount
		report := e.DeclareLeave(ctx, attendance.LeaveDeclaration{
			EmployeeCodes: []string{"E1"},
			From:          oct(5),
			To:            oct(6),
			Status:        status,
		})

		// THEN: every day fails and nothing is cleared
		assert.Zero(t, report.Processed, status)
		require.Len(t, report.Failed, 2, status)
		assert.ErrorIs(t, report.Failed[0].Err, attendance.ErrValidation)
	}

	records, err := e.Records(ctx, "E1", oct(5), oct(6))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StateAnnualLeave, records[0].State)
	assertDec(t, "20", employee(t, e, "E1").AnnualLeaveBalance, "balance")
}

func TestBackfill(t *testing.T) {
	// GIVEN: one recorded day in October
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx := context.Background()
	worked, err := e.Put(ctx, "E1", oct(5), punches("08:30", "17:30"))
	require.NoError(t, err)

	// WHEN: October is backfilled on the 20th
	report, err := e.Backfill(ctx, 2026, time.October)
	require.NoError(t, err)

	// THEN: the other 19 days up to today are created, nothing in the future
	assert.Equal(t, 19, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Failed)

	records, err := e.Records(ctx, "E1", oct(1), oct(31))
	require.NoError(t, err)
	require.Len(t, records, 20)
	for _, rec := range records {
		switch rec.Date.Day() {
		case 2, 9, 16:
			assert.Equal(t, attendance.StateWeeklyOff, rec.State, rec.Date)
		case 5:
			assert.Equal(t, worked.ID, rec.ID)
			assert.Equal(t, attendance.StateWorked, rec.State)
		default:
			assert.Equal(t, attendance.StateAbsent, rec.State, rec.Date)
		}
	}

	// AND: a second run creates nothing
	report, err = e.Backfill(ctx, 2026, time.October)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 20, report.Skipped)
}

func TestBatch_CancelledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := e.Import(ctx, []attendance.PunchRow{
		{EmployeeCode: "E1", Date: oct(5), CheckIn: "08:30", CheckOut: "17:30"},
	})

	assert.Zero(t, report.Processed)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0].Err, context.Canceled)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestConcurrentWritesKeepLedgersConsistent(t *testing.T) {
	// GIVEN: two employees
	e, _ := newTestEngine(t)
	codes := []string{"E1", "E2"}
	for _, code := range codes {
		register(t, e, attendance.NewEmployee(code, "Employee "+code))
	}
	ctx := context.Background()

	// WHEN: late days and leave days are written concurrently
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for _, code := range codes {
		for d := 1; d <= 20; d++ {
			if d == 2 || d == 9 || d == 16 {
				continue
			}
			wg.Add(1)
			go func(code string, d int) {
				defer wg.Done()
				in := punches("09:20", "17:30")
				if d%3 == 0 {
					in = attendance.Input{Status: attendance.Status{AnnualLeave: true}}
				}
				if _, err := e.Put(ctx, code, oct(d), in); err != nil {
					errs <- fmt.Errorf("%s %d: %w", code, d, err)
				}
			}(code, d)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	// THEN: each ledger equals what its records account for
	for _, code := range codes {
		records, err := e.Records(ctx, code, oct(1), oct(20))
		require.NoError(t, err)
		require.Len(t, records, 17)

		charged, leaveDays := 0, 0
		for _, rec := range records {
			charged += rec.LateAllowanceUsed
			if rec.AnnualLeave {
				leaveDays++
			}
		}
		emp := employee(t, e, code)
		assert.Equal(t, 120, charged+emp.RemainingLateAllowance, code)
		assert.Zero(t, emp.RemainingLateAllowance, code)
		assertDec(t, fmt.Sprint(21-leaveDays), emp.AnnualLeaveBalance, code)
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestRegisterEmployee(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	emp := register(t, e, attendance.NewEmployee("E1", "Mona"))
	assert.True(t, emp.AllowanceCycle.Equal(oct(1)))
	assert.Equal(t, testNow, emp.CreatedAt)

	emp.FullName = "Mona Adel"
	require.NoError(t, e.RegisterEmployee(ctx, emp))
	assert.Equal(t, "Mona Adel", employee(t, e, "E1").FullName)

	bad := attendance.NewEmployee("E2", "Bad")
	bad.WorkDaysPerWeek = 4
	assert.ErrorIs(t, e.RegisterEmployee(ctx, bad), attendance.ErrValidation)

	all, err := e.Employees(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisterEmployee_StaleCopyKeepsLedgers(t *testing.T) {
	// GIVEN: a copy of the employee taken before a leave day is saved
	e, _ := newTestEngine(t)
	ctx := context.Background()
	stale := register(t, e, attendance.NewEmployee("E1", "Mona"))
	_, err := e.Put(ctx, "E1", oct(19), attendance.Input{Status: attendance.Status{AnnualLeave: true}})
	require.NoError(t, err)
	assertDec(t, "20", employee(t, e, "E1").AnnualLeaveBalance, "balance")

	// WHEN: the stale copy is registered with a new name
	stale.FullName = "Mona Adel"
	stale.AnnualLeaveBalance = decimal.NewFromInt(21)
	stale.RemainingLateAllowance = 120
	require.NoError(t, e.RegisterEmployee(ctx, stale))

	// THEN: the name changes, the ledger still matches its journal
	emp := employee(t, e, "E1")
	assert.Equal(t, "Mona Adel", emp.FullName)
	assertDec(t, "20", emp.AnnualLeaveBalance, "balance")
	assertDec(t, "-1", sumDeltas(entriesOf(t, e, "E1", attendance.LedgerAnnualLeave)), "journal")
	assertDec(t, "20", stale.AnnualLeaveBalance, "refreshed copy")
}

func TestRegisterEmployee_RejectsNegativeLedgers(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	emp := attendance.NewEmployee("E1", "Mona")
	emp.AnnualLeaveBalance = decimal.NewFromInt(-1)
	assert.ErrorIs(t, e.RegisterEmployee(ctx, emp), attendance.ErrValidation)

	emp = attendance.NewEmployee("E2", "Karim")
	emp.RemainingLateAllowance = -5
	assert.ErrorIs(t, e.RegisterEmployee(ctx, emp), attendance.ErrValidation)

	all, err := e.Employees(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateEmployee(t *testing.T) {
	// GIVEN: an employee with 60 late minutes left
	e, _ := newTestEngine(t)
	ctx := context.Background()
	register(t, e, attendance.NewEmployee("E1", "Mona"))
	_, err := e.Put(ctx, "E1", oct(5), punches("09:30", "17:30"))
	require.NoError(t, err)

	// WHEN: the monthly allowance is lowered and the ledgers are tampered with
	emp, err := e.UpdateEmployee(ctx, "E1", func(emp *attendance.Employee) error {
		emp.MonthlyLateAllowance = 30
		emp.RemainingLateAllowance = 999
		emp.AnnualLeaveBalance = decimal.NewFromInt(99)
		return nil
	})
	require.NoError(t, err)

	// THEN: only the configuration is taken; remaining is capped via the ledger
	assert.Equal(t, 30, emp.MonthlyLateAllowance)
	assert.Equal(t, 30, emp.RemainingLateAllowance)
	assertDec(t, "21", emp.AnnualLeaveBalance, "balance")

	late := entriesOf(t, e, "E1", attendance.LedgerLateAllowance)
	require.Len(t, late, 2)
	assert.Equal(t, attendance.EntryAdjustment, late[1].Type)
	assertDec(t, "-30", late[1].Delta, "cap")

	// AND: invalid configuration and unknown employees are rejected
	_, err = e.UpdateEmployee(ctx, "E1", func(emp *attendance.Employee) error {
		emp.WorkDaysPerWeek = 7
		return nil
	})
	assert.ErrorIs(t, err, attendance.ErrValidation)
	_, err = e.UpdateEmployee(ctx, "E9", func(*attendance.Employee) error { return nil })
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestSetAnnualLeaveBalance(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	register(t, e, attendance.NewEmployee("E1", "Mona"))

	emp, err := e.SetAnnualLeaveBalance(ctx, "E1", decimal.NewFromInt(25), "carry-over")
	require.NoError(t, err)
	assertDec(t, "25", emp.AnnualLeaveBalance, "balance")

	entries := entriesOf(t, e, "E1", attendance.LedgerAnnualLeave)
	require.Len(t, entries, 1)
	assert.Equal(t, attendance.EntryAdjustment, entries[0].Type)
	assertDec(t, "4", entries[0].Delta, "delta")
	assert.Equal(t, "carry-over", entries[0].Reason)

	_, err = e.SetAnnualLeaveBalance(ctx, "E1", decimal.NewFromInt(-1), "typo")
	assert.ErrorIs(t, err, attendance.ErrValidation)
	assertDec(t, "25", employee(t, e, "E1").AnnualLeaveBalance, "balance")
}
