package exporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwatch/pkg/contracts/domain"
)

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "01/06/2025", DisplayDate(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWriteSummary_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteSummary(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Today is 01/06/2025")
	assert.Contains(t, out, "No classes need attention in the next 14 days (0 matches).")
}

func TestWriteSummary_WithClasses(t *testing.T) {
	var buf bytes.Buffer
	result := sampleResult(
		domain.ClassRecord{Values: []string{"A1", "2025-06-01", "10"}},
		domain.ClassRecord{Values: []string{"Long name\twith tab", "2025-06-02", "3"}},
	)

	require.NoError(t, WriteSummary(&buf, result))

	out := buf.String()
	assert.Contains(t, out, "Today is 01/06/2025")
	assert.Contains(t, out, "Classes starting within 14 days with fewer than 15 students: 2")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	table := lines[len(lines)-3:]
	assert.True(t, strings.HasPrefix(table[0], "name"))
	assert.Contains(t, table[1], "A1")
	assert.Contains(t, table[2], "Long name with tab")

	// columns are aligned
	assert.Equal(t, strings.Index(table[0], "start_date"), strings.Index(table[1], "2025-06-01"))
}
