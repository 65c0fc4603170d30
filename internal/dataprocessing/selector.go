package dataprocessing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"classwatch/pkg/contracts/domain"
)

// Layouts accepted for start_date, tried in order. Slash dates are month-first.
var startDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-1-2",
	"2006-1-2 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"Jan 2, 2006",
	"2 January 2006",
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Today returns the reference date: midnight of now in its own location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// ParseStartDate parses a start_date cell in loc. Unparsable input is reported
// as missing rather than as an error.
func ParseStartDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range startDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			if layout == time.RFC3339 {
				t = t.In(loc)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseStudentCount parses total_student as an integer in the int32 range.
// Integral decimals ("10.0") are accepted; anything else is not a count.
func ParseStudentCount(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int(v), true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Selector computes the classes that start within the lookahead window and
// are under the enrollment threshold.
type Selector struct {
	correction DateCorrection
	logger     *slog.Logger
}

// NewSelector creates a selector applying correction to every parsed start date.
// A nil correction leaves dates unchanged.
func NewSelector(correction DateCorrection, logger *slog.Logger) *Selector {
	if correction == nil {
		correction = NoCorrection{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{correction: correction, logger: logger}
}

// Select returns the matching records in input order. The input is not modified;
// selected records carry the corrected start_date in both Values and StartDate.
func (s *Selector) Select(ds *domain.Dataset, today time.Time, params domain.RunConfig) *domain.Dataset {
	today = Today(today)
	cutoff := today.AddDate(0, 0, params.DaysAhead)

	out := &domain.Dataset{
		Columns: append([]string(nil), ds.Columns...),
		Records: []domain.ClassRecord{},
	}

	dateCol := ds.ColumnIndex(domain.ColumnStartDate)
	countCol := ds.ColumnIndex(domain.ColumnTotalStudent)
	if dateCol < 0 || countCol < 0 {
		s.logger.Warn("Class feed lacks selection columns",
			slog.Bool("has_start_date", dateCol >= 0),
			slog.Bool("has_total_student", countCol >= 0))
		return out
	}

	var unparsedDates, unparsedCounts int
	for i, rec := range ds.Records {
		start, ok := ParseStartDate(ds.Value(i, dateCol), today.Location())
		if !ok {
			unparsedDates++
			continue
		}
		start = s.correction.Apply(start)

		count, ok := ParseStudentCount(ds.Value(i, countCol))
		if !ok {
			unparsedCounts++
			continue
		}

		if start.Before(today) || start.After(cutoff) || count >= params.MinStudents {
			continue
		}

		values := append([]string(nil), rec.Values...)
		values[dateCol] = FormatStartDate(start)
		out.Records = append(out.Records, domain.ClassRecord{Values: values, StartDate: start})
	}

	s.logger.Debug("Selection complete",
		slog.Time("today", today),
		slog.Time("cutoff", cutoff),
		slog.Int("input", ds.Len()),
		slog.Int("selected", out.Len()),
		slog.Int("unparsed_dates", unparsedDates),
		slog.Int("unparsed_counts", unparsedCounts))

	return out
}

// FormatStartDate renders a corrected start date, keeping the time of day when present.
func FormatStartDate(t time.Time) string {
	if HasTimeOfDay(t) {
		return t.Format(dateTimeLayout)
	}
	return t.Format(dateLayout)
}

// HasTimeOfDay reports whether t is not at midnight.
func HasTimeOfDay(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
}
