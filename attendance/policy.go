package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the company-wide clock boundaries used for lateness and
// early departure. Boundaries are inclusive: arriving exactly at GraceEnd
// is on time, leaving exactly at HalfDayLeaveBy is a half-day deduction.
type Policy struct {
	OfficialStart     ClockTime
	GraceEnd          ClockTime
	QuarterLateBy     ClockTime
	HalfDayLeaveBy    ClockTime
	QuarterDayLeaveBy ClockTime
	MaxWorkHours      decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		OfficialStart:     ClockTime{Hour: 8, Minute: 30},
		GraceEnd:          ClockTime{Hour: 9, Minute: 15},
		QuarterLateBy:     ClockTime{Hour: 11, Minute: 0},
		HalfDayLeaveBy:    ClockTime{Hour: 16, Minute: 0},
		QuarterDayLeaveBy: ClockTime{Hour: 17, Minute: 15},
		MaxWorkHours:      decimal.NewFromInt(24),
	}
}

// Deduction fractions of a day.
var (
	deductionQuarter = decimal.RequireFromString("0.25")
	deductionHalf    = decimal.RequireFromString("0.5")
	deductionFull    = decimal.NewFromInt(1)
)

// errUnparsable marks a punch that could not be read at all. It is
// recovered by the resolver, not returned.
var errUnparsable = errors.New("unparsable punch")

// ParsePunch reads a raw punch for the calendar day date in loc. It accepts
// "15:04", "15:04:05" and RFC3339. A blank punch yields (nil, nil). An
// RFC3339 punch that falls on another day is a ValidationError.
func ParsePunch(raw string, date time.Time, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day := date.In(loc)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			p := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
			return &p, nil
		}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errUnparsable
	}
	p := t.In(loc)
	if p.Year() != day.Year() || p.YearDay() != day.YearDay() {
		return nil, &ValidationError{Field: "punch", Reason: fmt.Sprintf("%s is not on %s", raw, day.Format("2006-01-02"))}
	}
	return &p, nil
}
