/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance Engine via REST API. Handles HTTP request/response
  and JSON serialization; every computation is delegated to the Engine.

ENDPOINTS:
  Employees:
    GET    /api/employees                          List employees
    POST   /api/employees                          Register or update employee
    GET    /api/employees/{code}                   Employee with ledger fields
    GET    /api/employees/{code}/ledger            Ledger journal
    GET    /api/employees/{code}/late-allowance    Remaining late minutes

  Records:
    GET    /api/employees/{code}/records?from=&to= Records in range
    PUT    /api/employees/{code}/records/{date}    Replace a day's inputs
    DELETE /api/employees/{code}/records/{date}    Delete a day

  Batches:
    POST   /api/imports/punches                    Punch ingestion
    POST   /api/leave-declarations                 Leave over a date range

  Admin:
    POST   /api/admin/monthly-reset                Reset late allowances
    POST   /api/admin/backfill                     Create missing days

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Employee or record not found
  - 409: Insufficient annual leave balance
  - 422: More than one status declared
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Put the server behind a gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/attendance-engine/attendance"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

type Handler struct {
	Engine *attendance.Engine
	Logger *zap.Logger
}

func NewHandler(engine *attendance.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Logger: logger}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Engine.Employees(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee registers an employee, or updates the given configuration
// of an existing one. An existing employee's ledgers are never overwritten;
// annual_leave_balance is applied as a journaled adjustment.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required", nil)
		return
	}

	ctx := r.Context()
	emp, err := h.Engine.UpdateEmployee(ctx, req.Code, func(emp *attendance.Employee) error {
		return applyEmployeeRequest(emp, req, false)
	})
	switch {
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		emp = attendance.NewEmployee(req.Code, req.FullName)
		if err := applyEmployeeRequest(emp, req, true); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid employee", err)
			return
		}
		if req.AnnualLeaveBalance != nil {
			emp.AnnualLeaveBalance = *req.AnnualLeaveBalance
		}
		if err := h.Engine.RegisterEmployee(ctx, emp); err != nil {
			h.writeEngineError(w, "Failed to save employee", err)
			return
		}
		writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
		return
	case err != nil:
		h.writeEngineError(w, "Failed to save employee", err)
		return
	}

	// The balance of an existing employee only moves through the ledger.
	if req.AnnualLeaveBalance != nil {
		emp, err = h.Engine.SetAnnualLeaveBalance(ctx, req.Code, *req.AnnualLeaveBalance, "balance set by directory update")
		if err != nil {
			h.writeEngineError(w, "Failed to adjust annual leave balance", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// applyEmployeeRequest copies the configuration named in req onto emp.
// Ledger fields are left to the engine.
func applyEmployeeRequest(emp *attendance.Employee, req CreateEmployeeRequest, created bool) error {
	if req.FullName != "" {
		emp.FullName = req.FullName
	}
	if req.WorkDaysPerWeek != nil {
		emp.WorkDaysPerWeek = *req.WorkDaysPerWeek
	}
	if req.WorkHoursPerDay != nil {
		emp.WorkHoursPerDay = *req.WorkHoursPerDay
	}
	if req.ShiftStart != "" {
		start, err := attendance.ParseClockTime(req.ShiftStart)
		if err != nil {
			return &attendance.ValidationError{Field: "shift_start", Reason: err.Error()}
		}
		emp.ShiftStart = start
	}
	if req.ShiftEnd != "" {
		end, err := attendance.ParseClockTime(req.ShiftEnd)
		if err != nil {
			return &attendance.ValidationError{Field: "shift_end", Reason: err.Error()}
		}
		emp.ShiftEnd = end
	}
	if req.BaseSalary != nil {
		emp.BaseSalary = *req.BaseSalary
	}
	if req.Advances != nil {
		emp.Advances = *req.Advances
	}
	if req.MonthlyLateAllowance != nil {
		emp.MonthlyLateAllowance = *req.MonthlyLateAllowance
		if created {
			emp.RemainingLateAllowance = emp.MonthlyLateAllowance
		}
	}
	if req.CustomAnnualLeave != nil {
		emp.CustomAnnualLeave = *req.CustomAnnualLeave
	}
	if req.MedicalLeaveDeduction != nil {
		emp.MedicalLeaveDeduction = *req.MedicalLeaveDeduction
	}
	return nil
}

// GetEmployee returns one employee with its ledger fields.
// GET /api/employees/{code}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.Employee(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, "Failed to load employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// GetLedger returns the employee's ledger journal, oldest first.
// GET /api/employees/{code}/ledger
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")
	if _, err := h.Engine.Employee(ctx, code); err != nil {
		h.writeEngineError(w, "Failed to load employee", err)
		return
	}
	entries, err := h.Engine.Entries(ctx, code)
	if err != nil {
		h.writeEngineError(w, "Failed to load ledger", err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLateAllowance returns the remaining late minutes of the open cycle.
// GET /api/employees/{code}/late-allowance
func (h *Handler) GetLateAllowance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.Engine.Employee(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, "Failed to load employee", err)
		return
	}
	remaining, err := h.Engine.RemainingLateAllowance(ctx, emp.Code)
	if err != nil {
		h.writeEngineError(w, "Failed to load late allowance", err)
		return
	}
	dto := LateAllowanceDTO{
		EmployeeCode: emp.Code,
		Monthly:      emp.MonthlyLateAllowance,
		Remaining:    remaining,
	}
	if !emp.AllowanceCycle.IsZero() {
		dto.Cycle = emp.AllowanceCycle.Format(monthLayout)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns the employee's records between from and to
// inclusive. Both default to the current month up to today.
// GET /api/employees/{code}/records?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")
	loc := h.Engine.Location()

	now := h.Engine.Now()
	from := attendance.StartOfMonth(now, loc)
	to := attendance.StartOfDay(now, loc)
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = time.ParseInLocation(dayLayout, s, loc); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = time.ParseInLocation(dayLayout, s, loc); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from", nil)
		return
	}

	if _, err := h.Engine.Employee(ctx, code); err != nil {
		h.writeEngineError(w, "Failed to load employee", err)
		return
	}
	records, err := h.Engine.Records(ctx, code, from, to)
	if err != nil {
		h.writeEngineError(w, "Failed to list records", err)
		return
	}
	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutRecord replaces the declared inputs of one day and returns the
// recomputed record.
// PUT /api/employees/{code}/records/{date}
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	var req PutRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Engine.Put(r.Context(), chi.URLParam(r, "code"), date, req.Input())
	if err != nil {
		h.writeEngineError(w, "Failed to save record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*rec))
}

// DeleteRecord removes one day and reverses its ledger effects.
// DELETE /api/employees/{code}/records/{date}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	if err := h.Engine.Delete(r.Context(), chi.URLParam(r, "code"), date); err != nil {
		h.writeEngineError(w, "Failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// ImportPunches merges normalized punch rows into their days.
// POST /api/imports/punches
func (h *Handler) ImportPunches(w http.ResponseWriter, r *http.Request) {
	var req ImportPunchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	loc := h.Engine.Location()
	rows := make([]attendance.PunchRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		if row.EmployeeCode == "" {
			writeError(w, http.StatusBadRequest, "employee_code is required", nil)
			return
		}
		date, err := time.ParseInLocation(dayLayout, row.Date, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date for "+row.EmployeeCode, err)
			return
		}
		rows = append(rows, attendance.PunchRow{
			EmployeeCode:      row.EmployeeCode,
			Date:              date,
			CheckIn:           row.CheckIn,
			CheckOut:          row.CheckOut,
			OfficialLeave:     row.OfficialLeave,
			LeaveCompensation: row.LeaveCompensation,
		})
	}
	report := h.Engine.Import(r.Context(), rows)
	writeJSON(w, http.StatusOK, toBatchReportDTO(report))
}

// DeclareLeave applies one status across a date range.
// POST /api/leave-declarations
func (h *Handler) DeclareLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveDeclarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.EmployeeCodes) == 0 {
		writeError(w, http.StatusBadRequest, "employee_codes is required", nil)
		return
	}
	status, err := attendance.ParseCategory(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status", err)
		return
	}
	loc := h.Engine.Location()
	from, err := time.ParseInLocation(dayLayout, req.From, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := time.ParseInLocation(dayLayout, req.To, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	decl := attendance.LeaveDeclaration{
		EmployeeCodes:    req.EmployeeCodes,
		From:             from,
		To:               to,
		Status:           status,
		Amount:           req.Amount,
		IncludeWeeklyOff: req.IncludeWeeklyOff,
	}
	if err := decl.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave declaration", err)
		return
	}
	report := h.Engine.DeclareLeave(r.Context(), decl)
	writeJSON(w, http.StatusOK, toBatchReportDTO(report))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerMonthlyReset opens the allowance cycle of the given month (default:
// current) for every employee. Repeating it for the same month is a no-op.
// POST /api/admin/monthly-reset
func (h *Handler) TriggerMonthlyReset(w http.ResponseWriter, r *http.Request) {
	month, ok := h.monthBody(w, r, 0)
	if !ok {
		return
	}
	reset, err := h.Engine.ResetMonth(r.Context(), month)
	if err != nil {
		h.writeEngineError(w, "Failed to reset month", err)
		return
	}
	writeJSON(w, http.StatusOK, MonthlyResetDTO{Month: month.Format(monthLayout), Reset: reset})
}

// TriggerBackfill creates the missing days of the given month (default:
// previous) for every employee.
// POST /api/admin/backfill
func (h *Handler) TriggerBackfill(w http.ResponseWriter, r *http.Request) {
	month, ok := h.monthBody(w, r, -1)
	if !ok {
		return
	}
	report, err := h.Engine.Backfill(r.Context(), month.Year(), month.Month())
	if err != nil {
		h.writeEngineError(w, "Failed to backfill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchReportDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := time.ParseInLocation(dayLayout, chi.URLParam(r, "date"), h.Engine.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return time.Time{}, false
	}
	return date, true
}

// monthBody reads an optional MonthRequest. An empty month resolves to the
// current month shifted by offset months.
func (h *Handler) monthBody(w http.ResponseWriter, r *http.Request, offset int) (time.Time, bool) {
	loc := h.Engine.Location()
	var req MonthRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return time.Time{}, false
		}
	}
	if req.Month == "" {
		return attendance.StartOfMonth(h.Engine.Now(), loc).AddDate(0, offset, 0), true
	}
	month, err := time.ParseInLocation(monthLayout, req.Month, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return time.Time{}, false
	}
	return month, true
}

// writeEngineError maps engine errors to HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case attendance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, attendance.ErrInvalidStatusCombination):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, attendance.ErrInsufficientLeaveBalance):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, attendance.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
