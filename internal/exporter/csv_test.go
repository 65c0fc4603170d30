package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwatch/pkg/contracts/domain"
)

func TestNewCSVWriter(t *testing.T) {
	writer := NewCSVWriter("/tmp/reports")

	assert.NotNil(t, writer)
	assert.Equal(t, "/tmp/reports", writer.dir)
	assert.Equal(t, "/tmp/reports/a.csv", writer.resolvePath("a.csv"))
	assert.Equal(t, "/abs/b.csv", writer.resolvePath("/abs/b.csv"))
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name      string
		options   WriteOptions
		wantBOM   bool
		wantLines [][]string
	}{
		{
			name: "headers and records",
			options: WriteOptions{
				Headers: []string{"name", "start_date"},
				Records: [][]string{{"A1", "2025-06-01"}, {"B, comma", "2025-06-02"}},
			},
			wantLines: [][]string{{"name", "start_date"}, {"A1", "2025-06-01"}, {"B, comma", "2025-06-02"}},
		},
		{
			name: "with BOM",
			options: WriteOptions{
				Headers:   []string{"name"},
				Records:   [][]string{{"Lớp A"}},
				BOMPrefix: true,
			},
			wantBOM:   true,
			wantLines: [][]string{{"name"}, {"Lớp A"}},
		},
		{
			name:      "records only",
			options:   WriteOptions{Records: [][]string{{"x", "y"}}},
			wantLines: [][]string{{"x", "y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writer := NewCSVWriter(dir)

			require.NoError(t, writer.WriteCSV("nested/out.csv", tt.options))

			data, err := os.ReadFile(filepath.Join(dir, "nested", "out.csv"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, utf8BOM))

			rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, rows)

			// no temp files left behind
			entries, err := os.ReadDir(filepath.Join(dir, "nested"))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestCSVWriter_Overwrites(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	require.NoError(t, writer.WriteFile("a.bin", []byte("first")))
	require.NoError(t, writer.WriteFile("a.bin", []byte("second")))

	data, err := os.ReadFile(filepath.Join(dir, "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestArchiver_Archive(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult(domain.ClassRecord{
		Values:    []string{"A1", "2025-06-01", "10"},
		StartDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local),
	})
	attachment, err := RenderWorkbook(result)
	require.NoError(t, err)

	paths, err := NewArchiver(dir).Archive(result, attachment)
	require.NoError(t, err)

	require.Equal(t, []string{
		filepath.Join(dir, "report_2025-06-01.xlsx"),
		filepath.Join(dir, "report_2025-06-01.csv"),
	}, paths)

	xlsx, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, attachment.Data, xlsx)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "start_date", "total_student"}, {"A1", "2025-06-01", "10"}}, rows)
}

func TestArchiver_SkipsEmpty(t *testing.T) {
	dir := t.TempDir()

	paths, err := NewArchiver(dir).Archive(sampleResult(), nil)
	require.NoError(t, err)
	assert.Empty(t, paths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
