// Package dataprocessing selects the classes a report is about.
//
// # Selection
//
// A class is selected when its corrected start date lies in the inclusive window
// [today, today+days_ahead] and its total_student count is strictly below
// min_students:
//
//	selector := dataprocessing.NewSelector(dataprocessing.YearShift{Years: 2}, logger)
//	subset := selector.Select(dataset, time.Now(), runConfig)
//
// # Date Correction
//
// The feed records start dates in a year that lags the calendar the report
// targets. The shift is a DateCorrection passed to the selector so it can be
// changed or removed without touching the predicate.
//
// # Malformed Rows
//
// Unparsable start dates and non-numeric counts exclude the row. They are never
// errors: one bad row must not abort an otherwise valid report.
package dataprocessing
