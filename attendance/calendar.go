package attendance

import "time"

// IsWeeklyOff reports whether date is a scheduled day off for an employee
// working workDaysPerWeek days. Friday and Saturday are off on a 5-day week,
// Friday alone on a 6-day week. The weekday is read in the date's own location.
func IsWeeklyOff(date time.Time, workDaysPerWeek int) bool {
	switch date.Weekday() {
	case time.Friday:
		return true
	case time.Saturday:
		return workDaysPerWeek == 5
	default:
		return false
	}
}

// StartOfDay normalizes t to midnight of its calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// StartOfMonth returns midnight of the first day of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, loc)
}

// MonthDays returns every calendar day of year/month in loc.
func MonthDays(year int, month time.Month, loc *time.Location) []time.Time {
	var days []time.Time
	for d := time.Date(year, month, 1, 0, 0, 0, 0, loc); d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
