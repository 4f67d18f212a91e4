/*
scheduler.go - Automated monthly close

PURPOSE:
  Periodically checks whether a new month has started and, once per month,
  closes the previous one: missing days of the previous month are
  backfilled, then every employee's late allowance is reset and the
  official-leave counter zeroed for the new month.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Remembers the last month it closed; the engine calls are idempotent,
    so a restart that closes the same month again changes nothing
  - Backfill runs before the reset so it still sees the old cycle

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active

USAGE:
  scheduler := NewMonthlyScheduler(engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerMonthlyReset and TriggerBackfill (manual triggers)
  - attendance/engine.go: ResetMonth
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"go.uber.org/zap"
)

// MonthlyScheduler handles the automated monthly close.
type MonthlyScheduler struct {
	Engine        *attendance.Engine
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	runMu      sync.Mutex
	lastClosed time.Time
}

func NewMonthlyScheduler(engine *attendance.Engine, logger *zap.Logger) *MonthlyScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonthlyScheduler{
		Engine:        engine,
		Logger:        logger.Named("scheduler"),
		CheckInterval: time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ms *MonthlyScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.Logger.Info("disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.wg.Add(1)
	go ms.run()

	ms.Logger.Info("started", zap.Duration("check_interval", ms.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (ms *MonthlyScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker != nil {
		ms.ticker.Stop()
		close(ms.stop)
		ms.wg.Wait()
		ms.ticker = nil
		ms.Logger.Info("stopped")
	}
}

func (ms *MonthlyScheduler) run() {
	defer ms.wg.Done()

	// Run immediately on start
	ms.RunNow(context.Background())

	for {
		select {
		case <-ms.ticker.C:
			ms.RunNow(context.Background())
		case <-ms.stop:
			return
		}
	}
}

// RunNow closes the previous month if it has not been closed by this
// scheduler yet. It reports whether a close ran.
func (ms *MonthlyScheduler) RunNow(ctx context.Context) bool {
	ms.runMu.Lock()
	defer ms.runMu.Unlock()

	loc := ms.Engine.Location()
	month := attendance.StartOfMonth(ms.Engine.Now(), loc)
	if !ms.lastClosed.IsZero() && !ms.lastClosed.Before(month) {
		return false
	}
	previous := month.AddDate(0, -1, 0)

	report, err := ms.Engine.Backfill(ctx, previous.Year(), previous.Month())
	if err != nil {
		ms.Logger.Error("backfill failed", zap.String("month", previous.Format(monthLayout)), zap.Error(err))
		return false
	}
	reset, err := ms.Engine.ResetMonth(ctx, month)
	if err != nil {
		ms.Logger.Error("monthly reset failed", zap.String("month", month.Format(monthLayout)), zap.Error(err))
		return false
	}

	ms.lastClosed = month
	ms.Logger.Info("month closed",
		zap.String("closed", previous.Format(monthLayout)),
		zap.String("opened", month.Format(monthLayout)),
		zap.Int("backfilled", report.Processed),
		zap.Int("backfill_failed", len(report.Failed)),
		zap.Int("reset", reset),
	)
	return true
}

// NextRunTime returns when the next scheduled check will occur.
func (ms *MonthlyScheduler) NextRunTime() time.Time {
	return ms.Engine.Now().Add(ms.CheckInterval)
}
