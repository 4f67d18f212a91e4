package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/store/memory"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// Cairo-like fixed zone; tests do not depend on the tz database.
var testLoc = time.FixedZone("EET", 3*3600)

// Tuesday 2026-10-20, noon. October 2026 starts on a Thursday; Fridays are
// the 2nd, 9th and 16th.
var testNow = time.Date(2026, 10, 20, 12, 0, 0, 0, testLoc)

func oct(d int) time.Time { return time.Date(2026, time.October, d, 0, 0, 0, 0, testLoc) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func newTestEngine(t *testing.T, opts ...attendance.Option) (*attendance.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	base := []attendance.Option{
		attendance.WithClock(func() time.Time { return testNow }),
		attendance.WithLogger(zaptest.NewLogger(t)),
		attendance.WithWorkers(4),
	}
	return attendance.NewEngine(store, testLoc, append(base, opts...)...), store
}

// register saves emp through the engine and returns the stored copy.
func register(t *testing.T, e *attendance.Engine, emp *attendance.Employee) *attendance.Employee {
	t.Helper()
	require.NoError(t, e.RegisterEmployee(context.Background(), emp))
	return employee(t, e, emp.Code)
}

func employee(t *testing.T, e *attendance.Engine, code string) *attendance.Employee {
	t.Helper()
	emp, err := e.Employee(context.Background(), code)
	require.NoError(t, err)
	return emp
}

func punches(in, out string) attendance.Input {
	return attendance.Input{CheckIn: in, CheckOut: out}
}

func entriesOf(t *testing.T, e *attendance.Engine, code string, ledger attendance.LedgerKind) []attendance.LedgerEntry {
	t.Helper()
	all, err := e.Entries(context.Background(), code)
	require.NoError(t, err)
	var out []attendance.LedgerEntry
	for _, entry := range all {
		if entry.Ledger == ledger {
			out = append(out, entry)
		}
	}
	return out
}

func sumDeltas(entries []attendance.LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Delta)
	}
	return sum
}

func assertZeroAttendance(t *testing.T, rec *attendance.Record) {
	t.Helper()
	assertDec(t, "0", rec.WorkHours, "work hours")
	assertDec(t, "0", rec.Overtime, "overtime")
	assert.Zero(t, rec.LateMinutes)
	assertDec(t, "0", rec.LateDeduction, "late deduction")
	assertDec(t, "0", rec.EarlyLeaveDeduction, "early leave deduction")
}
