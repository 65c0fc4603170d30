package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "classwatch/internal/errors"
	"classwatch/pkg/contracts/domain"
)

// CSVWriter provides CSV export functionality rooted at a directory
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options. The file is
// written under a temporary name and renamed so readers never see a partial file.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	return writeAtomic(fullPath, func(file *os.File) error {
		if options.BOMPrefix {
			if _, err := file.Write(utf8BOM); err != nil {
				return fmt.Errorf("failed to write BOM: %w", err)
			}
		}

		writer := csv.NewWriter(file)
		if len(options.Headers) > 0 {
			if err := writer.Write(options.Headers); err != nil {
				return fmt.Errorf("failed to write headers: %w", err)
			}
		}
		for i, record := range options.Records {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

// WriteFile writes raw bytes with the same atomic rename as WriteCSV.
func (w *CSVWriter) WriteFile(filePath string, data []byte) error {
	fullPath := w.resolvePath(filePath)
	return writeAtomic(fullPath, func(file *os.File) error {
		_, err := file.Write(data)
		return err
	})
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func writeAtomic(fullPath string, write func(*os.File) error) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// resolvePath resolves a path relative to the writer's directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(w.dir, filePath)
}

// Archiver keeps a dated copy of each non-empty report for audit.
type Archiver struct {
	writer *CSVWriter
}

// NewArchiver creates an archiver writing into dir.
func NewArchiver(dir string) *Archiver {
	return &Archiver{writer: NewCSVWriter(dir)}
}

// Archive stores the workbook and a CSV copy of the selected classes.
// Empty reports have no attachment and are not archived.
func (a *Archiver) Archive(result *domain.ReportResult, attachment *domain.Attachment) ([]string, error) {
	if attachment == nil {
		return nil, nil
	}

	xlsxPath := attachment.Filename
	if err := a.writer.WriteFile(xlsxPath, attachment.Data); err != nil {
		return nil, apperrors.NewStorageError("failed to archive workbook", err).WithContext("file", xlsxPath)
	}

	records := make([][]string, 0, result.Classes.Len())
	for i := range result.Classes.Records {
		row := make([]string, len(result.Classes.Columns))
		for col := range row {
			row[col] = result.Classes.Value(i, col)
		}
		records = append(records, row)
	}

	csvPath := strings.TrimSuffix(attachment.Filename, filepath.Ext(attachment.Filename)) + ".csv"
	err := a.writer.WriteCSV(csvPath, WriteOptions{
		Headers:   result.Classes.Columns,
		Records:   records,
		BOMPrefix: true,
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to archive CSV", err).WithContext("file", csvPath)
	}

	return []string{a.writer.resolvePath(xlsxPath), a.writer.resolvePath(csvPath)}, nil
}
