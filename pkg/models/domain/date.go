package domain

import (
	"fmt"
	"time"
)

// JST is the operator's civil timezone. The console reports by Japanese business day.
var JST = time.FixedZone("JST", 9*60*60)

// TargetDate is the single civil date reports are requested for.
type TargetDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewTargetDate returns the civil date of t in loc. A nil loc means JST.
func NewTargetDate(t time.Time, loc *time.Location) TargetDate {
	if loc == nil {
		loc = JST
	}
	y, m, d := t.In(loc).Date()
	return TargetDate{Year: y, Month: m, Day: d}
}

// ParseTargetDate parses a YYYY-MM-DD date.
func ParseTargetDate(s string) (TargetDate, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, JST)
	if err != nil {
		return TargetDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return NewTargetDate(t, JST), nil
}

// Format renders the date as YYYYMMDD, the form used in report file names.
func (d TargetDate) Format() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

func (d TargetDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d TargetDate) IsZero() bool {
	return d == TargetDate{}
}

// SameMonth reports whether the date falls in the given month.
func (d TargetDate) SameMonth(year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// MonthsUntil returns how many months the given month is away from d's month.
// It is positive when d is later, i.e. the number of "next month" steps needed.
func (d TargetDate) MonthsUntil(year int, month time.Month) int {
	return (d.Year-year)*12 + int(d.Month) - int(month)
}

// After reports whether d is a later day than o.
func (d TargetDate) After(o TargetDate) bool {
	return d.Format() > o.Format()
}
