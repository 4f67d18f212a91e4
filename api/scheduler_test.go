package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/store/memory"
	"go.uber.org/zap/zaptest"
)

func newSchedulerEngine(t *testing.T) *attendance.Engine {
	t.Helper()
	now := time.Date(2026, 10, 20, 12, 0, 0, 0, testLoc)
	engine := attendance.NewEngine(memory.New(), testLoc,
		attendance.WithClock(func() time.Time { return now }),
		attendance.WithLogger(zaptest.NewLogger(t)),
	)

	// An employee still in the September cycle with allowance spent.
	emp := attendance.NewEmployee("E1", "Mona")
	emp.AllowanceCycle = time.Date(2026, 9, 1, 0, 0, 0, 0, testLoc)
	emp.RemainingLateAllowance = 15
	emp.TotalOfficialLeaveDays = 2
	require.NoError(t, engine.RegisterEmployee(context.Background(), emp))
	return engine
}

func TestRunNow_ClosesPreviousMonthOnce(t *testing.T) {
	// GIVEN: an employee in last month's cycle
	engine := newSchedulerEngine(t)
	scheduler := NewMonthlyScheduler(engine, zaptest.NewLogger(t))
	ctx := context.Background()

	// WHEN: the scheduler runs
	ran := scheduler.RunNow(ctx)

	// THEN: September is backfilled and October opened
	assert.True(t, ran)

	emp, err := engine.Employee(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, emp.MonthlyLateAllowance, emp.RemainingLateAllowance)
	assert.Equal(t, 0, emp.TotalOfficialLeaveDays)
	assert.Equal(t, time.October, emp.AllowanceCycle.Month())

	records, err := engine.Records(ctx, "E1",
		time.Date(2026, 9, 1, 0, 0, 0, 0, testLoc),
		time.Date(2026, 9, 30, 0, 0, 0, 0, testLoc))
	require.NoError(t, err)
	assert.Len(t, records, 30)

	// AND: a second run in the same month does nothing
	assert.False(t, scheduler.RunNow(ctx))
}

func TestScheduler_StartStop(t *testing.T) {
	engine := newSchedulerEngine(t)

	t.Run("disabled scheduler never runs", func(t *testing.T) {
		scheduler := NewMonthlyScheduler(engine, zaptest.NewLogger(t))
		scheduler.Enabled = false

		scheduler.Start()
		scheduler.Stop()

		emp, err := engine.Employee(context.Background(), "E1")
		require.NoError(t, err)
		assert.Equal(t, 15, emp.RemainingLateAllowance)
	})

	t.Run("started scheduler closes the month immediately", func(t *testing.T) {
		scheduler := NewMonthlyScheduler(engine, zaptest.NewLogger(t))
		scheduler.CheckInterval = 10 * time.Millisecond

		scheduler.Start()
		scheduler.Start()
		time.Sleep(30 * time.Millisecond)
		scheduler.Stop()

		assert.False(t, scheduler.RunNow(context.Background()))
		emp, err := engine.Employee(context.Background(), "E1")
		require.NoError(t, err)
		assert.Equal(t, emp.MonthlyLateAllowance, emp.RemainingLateAllowance)
	})
}

func TestNextRunTime(t *testing.T) {
	engine := newSchedulerEngine(t)
	scheduler := NewMonthlyScheduler(engine, nil)

	assert.Equal(t, engine.Now().Add(time.Hour), scheduler.NextRunTime())
}
