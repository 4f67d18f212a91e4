/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES AND AMOUNTS:
  Days are "YYYY-MM-DD", months "YYYY-MM", punches "HH:MM", "HH:MM:SS" or
  RFC3339. Decimal amounts are JSON strings on output and accept either a
  string or a number on input.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	Code                   string          `json:"code"`
	FullName               string          `json:"full_name"`
	WorkDaysPerWeek        int             `json:"work_days_per_week"`
	WorkHoursPerDay        decimal.Decimal `json:"work_hours_per_day"`
	ShiftStart             string          `json:"shift_start"`
	ShiftEnd               string          `json:"shift_end"`
	BaseSalary             decimal.Decimal `json:"base_salary"`
	Advances               decimal.Decimal `json:"advances"`
	MonthlyLateAllowance   int             `json:"monthly_late_allowance"`
	RemainingLateAllowance int             `json:"remaining_late_allowance"`
	AllowanceCycle         string          `json:"allowance_cycle,omitempty"`
	AnnualLeaveBalance     decimal.Decimal `json:"annual_leave_balance"`
	CustomAnnualLeave      decimal.Decimal `json:"custom_annual_leave"`
	MedicalLeaveDeduction  decimal.Decimal `json:"medical_leave_deduction"`
	TotalOfficialLeaveDays int             `json:"total_official_leave_days"`
}

// CreateEmployeeRequest registers or updates an employee. Omitted optional
// fields take the documented defaults for new employees.
type CreateEmployeeRequest struct {
	Code                  string           `json:"code"`
	FullName              string           `json:"full_name"`
	WorkDaysPerWeek       *int             `json:"work_days_per_week,omitempty"`
	WorkHoursPerDay       *decimal.Decimal `json:"work_hours_per_day,omitempty"`
	ShiftStart            string           `json:"shift_start,omitempty"`
	ShiftEnd              string           `json:"shift_end,omitempty"`
	BaseSalary            *decimal.Decimal `json:"base_salary,omitempty"`
	Advances              *decimal.Decimal `json:"advances,omitempty"`
	MonthlyLateAllowance  *int             `json:"monthly_late_allowance,omitempty"`
	AnnualLeaveBalance    *decimal.Decimal `json:"annual_leave_balance,omitempty"`
	CustomAnnualLeave     *decimal.Decimal `json:"custom_annual_leave,omitempty"`
	MedicalLeaveDeduction *decimal.Decimal `json:"medical_leave_deduction,omitempty"`
}

type LateAllowanceDTO struct {
	EmployeeCode string `json:"employee_code"`
	Monthly      int    `json:"monthly"`
	Remaining    int    `json:"remaining"`
	Cycle        string `json:"cycle,omitempty"`
}

// =============================================================================
// RECORDS
// =============================================================================

type RecordDTO struct {
	ID                    string          `json:"id"`
	EmployeeCode          string          `json:"employee_code"`
	Date                  string          `json:"date"`
	CheckIn               *string         `json:"check_in"`
	CheckOut              *string         `json:"check_out"`
	State                 string          `json:"state"`
	WorkHours             decimal.Decimal `json:"work_hours"`
	Overtime              decimal.Decimal `json:"overtime"`
	LateMinutes           int             `json:"late_minutes"`
	LateDeduction         decimal.Decimal `json:"late_deduction"`
	EarlyLeaveDeduction   decimal.Decimal `json:"early_leave_deduction"`
	MedicalLeaveDeduction decimal.Decimal `json:"medical_leave_deduction"`
	IsSingleFingerprint   bool            `json:"is_single_fingerprint"`
	Absence               bool            `json:"absence"`
	AnnualLeave           bool            `json:"annual_leave"`
	MedicalLeave          bool            `json:"medical_leave"`
	OfficialLeave         bool            `json:"official_leave"`
	LeaveCompensation     decimal.Decimal `json:"leave_compensation"`
	AppropriateValue      decimal.Decimal `json:"appropriate_value"`
	AppropriateValueDays  int             `json:"appropriate_value_days"`
	LateAllowanceUsed     int             `json:"late_allowance_used"`
	Anomaly               string          `json:"anomaly,omitempty"`
	EmployeeName          string          `json:"employee_name"`
	AnnualLeaveBalance    decimal.Decimal `json:"annual_leave_balance"`
	CreatedAt             string          `json:"created_at"`
	UpdatedAt             string          `json:"updated_at"`
}

// PutRecordRequest replaces the declared inputs of one day.
type PutRecordRequest struct {
	CheckIn           string          `json:"check_in"`
	CheckOut          string          `json:"check_out"`
	Absence           bool            `json:"absence"`
	AnnualLeave       bool            `json:"annual_leave"`
	MedicalLeave      bool            `json:"medical_leave"`
	OfficialLeave     bool            `json:"official_leave"`
	LeaveCompensation decimal.Decimal `json:"leave_compensation"`
	AppropriateValue  decimal.Decimal `json:"appropriate_value"`
}

func (p PutRecordRequest) Input() attendance.Input {
	return attendance.Input{
		CheckIn:  p.CheckIn,
		CheckOut: p.CheckOut,
		Status: attendance.Status{
			Absence:           p.Absence,
			AnnualLeave:       p.AnnualLeave,
			MedicalLeave:      p.MedicalLeave,
			OfficialLeave:     p.OfficialLeave,
			LeaveCompensation: p.LeaveCompensation,
			AppropriateValue:  p.AppropriateValue,
		},
	}
}

type LedgerEntryDTO struct {
	ID         string          `json:"id"`
	Ledger     string          `json:"ledger"`
	RecordDate string          `json:"record_date"`
	Delta      decimal.Decimal `json:"delta"`
	Type       string          `json:"type"`
	Reason     string          `json:"reason,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// =============================================================================
// BATCHES
// =============================================================================

type PunchRowRequest struct {
	EmployeeCode      string           `json:"employee_code"`
	Date              string           `json:"date"`
	CheckIn           string           `json:"check_in"`
	CheckOut          string           `json:"check_out"`
	OfficialLeave     *bool            `json:"official_leave,omitempty"`
	LeaveCompensation *decimal.Decimal `json:"leave_compensation,omitempty"`
}

type ImportPunchesRequest struct {
	Rows []PunchRowRequest `json:"rows"`
}

type LeaveDeclarationRequest struct {
	EmployeeCodes    []string        `json:"employee_codes"`
	From             string          `json:"from"`
	To               string          `json:"to"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	IncludeWeeklyOff bool            `json:"include_weekly_off"`
}

// MonthRequest names a month as "YYYY-MM". Empty means the current month
// for resets and the previous month for backfills.
type MonthRequest struct {
	Month string `json:"month"`
}

type UnitErrorDTO struct {
	EmployeeCode string `json:"employee_code"`
	Date         string `json:"date"`
	Error        string `json:"error"`
}

type BatchReportDTO struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    []UnitErrorDTO `json:"failed"`
}

type MonthlyResetDTO struct {
	Month string `json:"month"`
	Reset int    `json:"reset"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(e attendance.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		Code:                   e.Code,
		FullName:               e.FullName,
		WorkDaysPerWeek:        e.WorkDaysPerWeek,
		WorkHoursPerDay:        e.WorkHoursPerDay,
		ShiftStart:             e.ShiftStart.String(),
		ShiftEnd:               e.ShiftEnd.String(),
		BaseSalary:             e.BaseSalary,
		Advances:               e.Advances,
		MonthlyLateAllowance:   e.MonthlyLateAllowance,
		RemainingLateAllowance: e.RemainingLateAllowance,
		AnnualLeaveBalance:     e.AnnualLeaveBalance,
		CustomAnnualLeave:      e.CustomAnnualLeave,
		MedicalLeaveDeduction:  e.MedicalLeaveDeduction,
		TotalOfficialLeaveDays: e.TotalOfficialLeaveDays,
	}
	if !e.AllowanceCycle.IsZero() {
		dto.AllowanceCycle = e.AllowanceCycle.Format(monthLayout)
	}
	return dto
}

func toRecordDTO(r attendance.Record) RecordDTO {
	return RecordDTO{
		ID:                    r.ID,
		EmployeeCode:          r.EmployeeCode,
		Date:                  r.Date.Format(dayLayout),
		CheckIn:               formatPunch(r.CheckIn),
		CheckOut:              formatPunch(r.CheckOut),
		State:                 string(r.State),
		WorkHours:             r.WorkHours,
		Overtime:              r.Overtime,
		LateMinutes:           r.LateMinutes,
		LateDeduction:         r.LateDeduction,
		EarlyLeaveDeduction:   r.EarlyLeaveDeduction,
		MedicalLeaveDeduction: r.MedicalLeaveDeduction,
		IsSingleFingerprint:   r.IsSingleFingerprint,
		Absence:               r.Absence,
		AnnualLeave:           r.AnnualLeave,
		MedicalLeave:          r.MedicalLeave,
		OfficialLeave:         r.OfficialLeave,
		LeaveCompensation:     r.LeaveCompensation,
		AppropriateValue:      r.AppropriateValue,
		AppropriateValueDays:  r.AppropriateValueDays,
		LateAllowanceUsed:     r.LateAllowanceUsed,
		Anomaly:               r.Anomaly,
		EmployeeName:          r.EmployeeName,
		AnnualLeaveBalance:    r.AnnualLeaveBalance,
		CreatedAt:             r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             r.UpdatedAt.Format(time.RFC3339),
	}
}

func toLedgerEntryDTO(e attendance.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:         e.ID,
		Ledger:     string(e.Ledger),
		RecordDate: e.RecordDate.Format(dayLayout),
		Delta:      e.Delta,
		Type:       string(e.Type),
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func toBatchReportDTO(r attendance.BatchReport) BatchReportDTO {
	dto := BatchReportDTO{
		Processed: r.Processed,
		Skipped:   r.Skipped,
		Failed:    make([]UnitErrorDTO, len(r.Failed)),
	}
	for i, f := range r.Failed {
		dto.Failed[i] = UnitErrorDTO{
			EmployeeCode: f.EmployeeCode,
			Date:         f.Date.Format(dayLayout),
			Error:        f.Err.Error(),
		}
	}
	return dto
}

func formatPunch(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
