package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// BATCH TYPES
// =============================================================================

// PunchRow is one normalized employee-day from punch ingestion.
type PunchRow struct {
	EmployeeCode      string
	Date              time.Time
	CheckIn           string
	CheckOut          string
	OfficialLeave     *bool
	LeaveCompensation *decimal.Decimal
}

// LeaveDeclaration applies one status to a range of days for each listed
// employee. Weekly-off days are skipped unless IncludeWeeklyOff is set.
type LeaveDeclaration struct {
	EmployeeCodes    []string
	From             time.Time
	To               time.Time
	Status           Category
	Amount           decimal.Decimal
	IncludeWeeklyOff bool
}

// Validate rejects a declaration that would clear the range instead of
// declaring a status on it.
func (d LeaveDeclaration) Validate() error {
	switch d.Status {
	case CategoryLeaveCompensation, CategoryAppropriateValue:
		if !d.Amount.IsPositive() {
			return &ValidationError{Field: "amount", Reason: "must be positive for " + string(d.Status)}
		}
	}
	if d.To.Before(d.From) {
		return &ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return nil
}

type UnitError struct {
	EmployeeCode string
	Date         time.Time
	Err          error
}

func (u UnitError) Error() string {
	return u.EmployeeCode + "@" + u.Date.Format("2006-01-02") + ": " + u.Err.Error()
}

// BatchReport summarizes a bulk run. A failed unit never stops the others.
type BatchReport struct {
	Processed int
	Skipped   int
	Failed    []UnitError
}

type unit struct {
	code   string
	date   time.Time
	mutate func(*Input)
	// skip is consulted with the employee loaded; true leaves the day alone.
	skip          func(*Employee, time.Time) bool
	onlyIfMissing bool
}

// =============================================================================
// BULK OPERATIONS
// =============================================================================

// Import merges normalized punch rows into their days. Punches replace the
// stored ones; official leave and leave compensation are applied when given.
func (e *Engine) Import(ctx context.Context, rows []PunchRow) BatchReport {
	units := make([]unit, 0, len(rows))
	for _, row := range rows {
		row := row
		units = append(units, unit{
			code: row.EmployeeCode,
			date: row.Date,
			mutate: func(in *Input) {
				in.CheckIn, in.CheckOut = row.CheckIn, row.CheckOut
				if row.OfficialLeave != nil {
					switch {
					case *row.OfficialLeave:
						in.Status.OfficialLeave = true
					case in.Status.OfficialLeave:
						in.Status.OfficialLeave = false
					}
				}
				if row.LeaveCompensation != nil && row.LeaveCompensation.IsPositive() {
					in.Status = in.Status.Replace(CategoryLeaveCompensation, *row.LeaveCompensation)
				}
			},
		})
	}
	return e.runBatch(ctx, "import", units)
}

// DeclareLeave applies decl.Status to every day in [From, To] for each
// employee, replacing whatever status those days declared. An invalid
// declaration fails every day without touching any.
func (e *Engine) DeclareLeave(ctx context.Context, decl LeaveDeclaration) BatchReport {
	from, to := StartOfDay(decl.From, e.loc), StartOfDay(decl.To, e.loc)
	if err := decl.Validate(); err != nil {
		var report BatchReport
		for _, code := range decl.EmployeeCodes {
			for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
				report.Failed = append(report.Failed, UnitError{EmployeeCode: code, Date: d, Err: err})
			}
		}
		return report
	}
	var units []unit
	for _, code := range decl.EmployeeCodes {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			units = append(units, unit{
				code: code,
				date: d,
				mutate: func(in *Input) {
					in.Status = in.Status.Replace(decl.Status, decl.Amount)
				},
				skip: func(emp *Employee, day time.Time) bool {
					return !decl.IncludeWeeklyOff && IsWeeklyOff(day, emp.WorkDaysPerWeek)
				},
			})
		}
	}
	return e.runBatch(ctx, "leave_declaration", units)
}

// Backfill creates a record for every day of year/month that has none, up
// to today. Existing records are not recomputed.
func (e *Engine) Backfill(ctx context.Context, year int, month time.Month) (BatchReport, error) {
	employees, err := e.store.ListEmployees(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	today := StartOfDay(e.now(), e.loc)
	var units []unit
	for _, emp := range employees {
		for _, d := range MonthDays(year, month, e.loc) {
			if d.After(today) {
				break
			}
			units = append(units, unit{code: emp.Code, date: d, onlyIfMissing: true})
		}
	}
	return e.runBatch(ctx, "backfill", units), nil
}

// =============================================================================
// RUNNER
// =============================================================================

// runBatch processes units grouped by employee: employees run in parallel,
// bounded by the worker count; one employee's days run in date order.
func (e *Engine) runBatch(ctx context.Context, name string, units []unit) BatchReport {
	byEmployee := make(map[string][]unit)
	var codes []string
	for _, u := range units {
		if _, ok := byEmployee[u.code]; !ok {
			codes = append(codes, u.code)
		}
		byEmployee[u.code] = append(byEmployee[u.code], u)
	}

	var (
		mu     sync.Mutex
		report BatchReport
	)
	record := func(written bool, skipped bool, ue *UnitError) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case ue != nil:
			report.Failed = append(report.Failed, *ue)
		case skipped || !written:
			report.Skipped++
		default:
			report.Processed++
		}
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, code := range codes {
		days := byEmployee[code]
		sort.SliceStable(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })
		g.Go(func() error {
			var emp *Employee
			for _, u := range days {
				if err := ctx.Err(); err != nil {
					record(false, false, &UnitError{EmployeeCode: u.code, Date: u.date, Err: err})
					continue
				}
				if u.skip != nil {
					if emp == nil {
						loaded, err := e.Employee(ctx, u.code)
						if err != nil {
							record(false, false, &UnitError{EmployeeCode: u.code, Date: u.date, Err: err})
							continue
						}
						emp = loaded
					}
					if u.skip(emp, StartOfDay(u.date, e.loc)) {
						record(false, true, nil)
						continue
					}
				}
				_, written, err := e.save(ctx, u.code, u.date, u.mutate, u.onlyIfMissing)
				if err != nil {
					e.logger.Error("batch unit failed",
						zap.String("batch", name),
						zap.String("employee_code", u.code),
						zap.String("date", u.date.Format("2006-01-02")),
						zap.Error(err),
					)
					record(false, false, &UnitError{EmployeeCode: u.code, Date: u.date, Err: err})
					continue
				}
				record(written, false, nil)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		if report.Failed[i].EmployeeCode != report.Failed[j].EmployeeCode {
			return report.Failed[i].EmployeeCode < report.Failed[j].EmployeeCode
		}
		return report.Failed[i].Date.Before(report.Failed[j].Date)
	})
	e.logger.Info("batch completed",
		zap.String("batch", name),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)),
	)
	return report
}
