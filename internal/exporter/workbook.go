package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"classwatch/internal/dataprocessing"
	apperrors "classwatch/internal/errors"
	"classwatch/pkg/contracts/domain"
)

const (
	// SheetName matches the single sheet of a fresh workbook.
	SheetName = "Sheet1"
	// AttachmentContentType is the generic binary type the workbook is declared with.
	AttachmentContentType = "application/octet-stream"

	dateNumFmt     = "yyyy-mm-dd"
	dateTimeNumFmt = "yyyy-mm-dd hh:mm:ss"
)

// ReportFilename names the artifact after the reference date.
func ReportFilename(ref time.Time) string {
	return fmt.Sprintf("report_%s.xlsx", ref.Format("2006-01-02"))
}

// RenderWorkbook builds the .xlsx artifact in memory. It returns nil when no
// class was selected.
func RenderWorkbook(result *domain.ReportResult) (*domain.Attachment, error) {
	if result.Empty() {
		return nil, nil
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return nil, apperrors.NewRenderError("failed to create workbook styles", err)
	}

	ds := result.Classes
	header := make([]interface{}, len(ds.Columns))
	for i, name := range ds.Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, apperrors.NewRenderError("failed to write header row", err)
	}
	if len(ds.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(ds.Columns), 1)
		if err := f.SetCellStyle(SheetName, "A1", last, styles.header); err != nil {
			return nil, apperrors.NewRenderError("failed to style header row", err)
		}
	}

	dateCol := ds.ColumnIndex(domain.ColumnStartDate)
	countCol := ds.ColumnIndex(domain.ColumnTotalStudent)

	for i, rec := range ds.Records {
		rowNum := i + 2
		row := make([]interface{}, len(ds.Columns))
		for col := range ds.Columns {
			row[col] = ds.Value(i, col)
		}
		if countCol >= 0 {
			if n, ok := dataprocessing.ParseStudentCount(ds.Value(i, countCol)); ok {
				row[countCol] = n
			}
		}
		if dateCol >= 0 && !rec.StartDate.IsZero() {
			row[dateCol] = wallClockUTC(rec.StartDate)
		}

		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, apperrors.NewRenderError(fmt.Sprintf("failed to write row %d", rowNum), err)
		}

		if dateCol >= 0 && !rec.StartDate.IsZero() {
			dateCell, _ := excelize.CoordinatesToCellName(dateCol+1, rowNum)
			style := styles.date
			if dataprocessing.HasTimeOfDay(rec.StartDate) {
				style = styles.dateTime
			}
			if err := f.SetCellStyle(SheetName, dateCell, dateCell, style); err != nil {
				return nil, apperrors.NewRenderError("failed to style date cell", err)
			}
		}
	}

	if dateCol >= 0 {
		colName, _ := excelize.ColumnNumberToName(dateCol + 1)
		_ = f.SetColWidth(SheetName, colName, colName, 20)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewRenderError("failed to serialize workbook", err)
	}

	return &domain.Attachment{
		Filename:    ReportFilename(result.ReferenceDate),
		ContentType: AttachmentContentType,
		Data:        buf.Bytes(),
	}, nil
}

type workbookStyles struct {
	header   int
	date     int
	dateTime int
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	dateFmt := dateNumFmt
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return s, err
	}
	dateTimeFmt := dateTimeNumFmt
	if s.dateTime, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateTimeFmt}); err != nil {
		return s, err
	}
	return s, nil
}

// wallClockUTC keeps the local wall-clock reading; spreadsheet dates have no zone.
func wallClockUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
