package domain

import (
	"time"
)

// Source columns the selection depends on. Every other column is passed through.
const (
	ColumnStartDate    = "start_date"
	ColumnTotalStudent = "total_student"
)

// ClassRecord is one row of the class feed. Values are aligned with Dataset.Columns.
type ClassRecord struct {
	Values []string `json:"values"`
	// StartDate holds the corrected start date once the record has been selected.
	StartDate time.Time `json:"start_date,omitempty"`
}

// Dataset is an ordered collection of class records sharing one column set.
type Dataset struct {
	Columns []string      `json:"columns"`
	Records []ClassRecord `json:"records"`
}

// ColumnIndex returns the position of the named column or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Value returns the cell at the given column for record i, or "" when the row is short.
func (d *Dataset) Value(i, col int) string {
	if col < 0 || col >= len(d.Records[i].Values) {
		return ""
	}
	return d.Records[i].Values[col]
}

// RunConfig holds the selection parameters resolved once per run.
type RunConfig struct {
	DaysAhead   int `json:"days_ahead" validate:"gt=0"`
	MinStudents int `json:"min_students" validate:"gt=0"`
}

// Defaults used when no source supplies a usable value.
const (
	DefaultDaysAhead   = 14
	DefaultMinStudents = 15
)

// DefaultRunConfig returns the fallback selection parameters.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		DaysAhead:   DefaultDaysAhead,
		MinStudents: DefaultMinStudents,
	}
}

// ReportResult is the selected subset together with the run's reference date.
type ReportResult struct {
	Classes       *Dataset  `json:"classes"`
	ReferenceDate time.Time `json:"reference_date"`
	Params        RunConfig `json:"params"`
}

// Empty reports whether no class matched.
func (r *ReportResult) Empty() bool {
	return r.Classes.Len() == 0
}

// Attachment is a rendered file carried by the report email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
