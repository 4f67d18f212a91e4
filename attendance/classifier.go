package attendance

import "github.com/shopspring/decimal"

// Classify returns the single active category of s, or CategoryNone when no
// status is set. It fails with InvalidStatusCombinationError when more than
// one is active.
func (s Status) Classify() (Category, error) {
	active := s.active()
	switch len(active) {
	case 0:
		return CategoryNone, nil
	case 1:
		return active[0], nil
	default:
		return CategoryNone, &InvalidStatusCombinationError{Active: active}
	}
}

func (s Status) active() []Category {
	var out []Category
	if s.LeaveCompensation.IsPositive() {
		out = append(out, CategoryLeaveCompensation)
	}
	if s.AnnualLeave {
		out = append(out, CategoryAnnualLeave)
	}
	if s.AppropriateValue.IsPositive() {
		out = append(out, CategoryAppropriateValue)
	}
	if s.OfficialLeave {
		out = append(out, CategoryOfficialLeave)
	}
	if s.MedicalLeave {
		out = append(out, CategoryMedicalLeave)
	}
	if s.Absence {
		out = append(out, CategoryAbsence)
	}
	return out
}

// Set activates category c on a copy of s. It fails when a different
// category is already active, so chained assignments cannot leave two
// statuses set. amount is only read for the monetary categories.
func (s Status) Set(c Category, amount decimal.Decimal) (Status, error) {
	current, err := s.Classify()
	if err != nil {
		return s, err
	}
	if current != CategoryNone && current != c {
		return s, &InvalidStatusCombinationError{Active: []Category{current, c}}
	}
	return s.Replace(c, amount), nil
}

// Replace clears every status and activates c. CategoryNone clears all.
func (s Status) Replace(c Category, amount decimal.Decimal) Status {
	out := Status{LeaveCompensation: decimal.Zero, AppropriateValue: decimal.Zero}
	switch c {
	case CategoryAbsence:
		out.Absence = true
	case CategoryAnnualLeave:
		out.AnnualLeave = true
	case CategoryMedicalLeave:
		out.MedicalLeave = true
	case CategoryOfficialLeave:
		out.OfficialLeave = true
	case CategoryLeaveCompensation:
		out.LeaveCompensation = amount
	case CategoryAppropriateValue:
		out.AppropriateValue = amount
	}
	return out
}

// ParseCategory maps an external name to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryNone, CategoryAbsence, CategoryAnnualLeave, CategoryMedicalLeave,
		CategoryOfficialLeave, CategoryLeaveCompensation, CategoryAppropriateValue:
		return c, nil
	}
	return CategoryNone, &ValidationError{Field: "status", Reason: "unknown status " + s}
}
