package dataprocessing

import "time"

// DateCorrection adjusts a parsed start date before it is compared to the window.
type DateCorrection interface {
	Apply(t time.Time) time.Time
}

// NoCorrection leaves dates unchanged.
type NoCorrection struct{}

// Apply returns t.
func (NoCorrection) Apply(t time.Time) time.Time { return t }

// YearShift moves every start date by a fixed number of calendar years. The
// class feed records years that lag the calendar the report targets.
type YearShift struct {
	Years int
}

// DefaultYearShift is the skew observed between the feed and the target calendar.
const DefaultYearShift = 2

// Apply shifts t by Years. Feb 29 landing in a non-leap year becomes Feb 28
// instead of rolling into March.
func (c YearShift) Apply(t time.Time) time.Time {
	if c.Years == 0 {
		return t
	}
	y, m, d := t.Date()
	target := y + c.Years
	if last := daysIn(m, target); d > last {
		d = last
	}
	return time.Date(target, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NewCorrection returns the correction for a year offset.
func NewCorrection(years int) DateCorrection {
	if years == 0 {
		return NoCorrection{}
	}
	return YearShift{Years: years}
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
