/*
errors.go - Error taxonomy of the attendance engine

ERROR CATEGORIES:
  1. Rejected before computation: ValidationError, EmployeeNotFound
  2. Rejected by a precondition: InvalidStatusCombination, InsufficientLeaveBalance
  3. Recovered locally: computation anomalies (see Anomaly*); the record is
     saved zeroed and the anomaly is logged, never returned

USAGE:
  if errors.Is(err, attendance.ErrInsufficientLeaveBalance) { ... }

  var comboErr *attendance.InvalidStatusCombinationError
  if errors.As(err, &comboErr) { ... comboErr.Active ... }
*/
package attendance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation               = errors.New("validation failed")
	ErrInvalidStatusCombination = errors.New("invalid status combination")
	ErrInsufficientLeaveBalance = errors.New("insufficient annual leave balance")
	ErrEmployeeNotFound         = errors.New("employee not found")
	ErrRecordNotFound           = errors.New("attendance record not found")
)

// Anomalies recovered by the resolver. Stored on Record.Anomaly.
const (
	AnomalyCheckOutBeforeCheckIn = "check_out_before_check_in"
	AnomalyUnparsablePunch       = "unparsable_punch"
	AnomalyImpossibleWorkHours   = "impossible_work_hours"
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStatusCombinationError lists the categories that were active together.
type InvalidStatusCombinationError struct {
	Active []Category
}

func (e *InvalidStatusCombinationError) Error() string {
	names := make([]string, len(e.Active))
	for i, c := range e.Active {
		names[i] = string(c)
	}
	return "only one status may be active, got: " + strings.Join(names, ", ")
}

func (e *InvalidStatusCombinationError) Unwrap() error { return ErrInvalidStatusCombination }

type InsufficientLeaveBalanceError struct {
	EmployeeCode string
	Balance      decimal.Decimal
}

func (e *InsufficientLeaveBalanceError) Error() string {
	return fmt.Sprintf("employee %s has %s annual leave days left", e.EmployeeCode, e.Balance.String())
}

func (e *InsufficientLeaveBalanceError) Unwrap() error { return ErrInsufficientLeaveBalance }

type EmployeeNotFoundError struct {
	Code string
}

func (e *EmployeeNotFoundError) Error() string { return "employee not found: " + e.Code }

func (e *EmployeeNotFoundError) Unwrap() error { return ErrEmployeeNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidStatusCombination) ||
		errors.Is(err, ErrInsufficientLeaveBalance)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrRecordNotFound)
}
