package infrastructure

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics(t *testing.T) {
	m := NewRunMetrics()

	m.ObserveStage("load", 1500*time.Millisecond)
	m.RecordError("DATA_FETCH")
	m.RecordError("DATA_FETCH")
	m.SetRowsLoaded(42)
	m.SetClassesSelected(3)
	m.EmailSent()

	start := time.Unix(1_700_000_000, 0)
	m.Finish(start, start.Add(2*time.Second), true)

	assert.Equal(t, 1.5, testutil.ToFloat64(m.StageDuration.WithLabelValues("load")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Errors.WithLabelValues("DATA_FETCH")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ClassesSelected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastSuccess))
	assert.Equal(t, float64(1_700_000_002), testutil.ToFloat64(m.LastRun))

	m.Finish(start, start, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess))
}

func TestRunMetrics_WriteTextfile(t *testing.T) {
	m := NewRunMetrics()
	m.ClassesSelected.Set(5)

	path := filepath.Join(t.TempDir(), "classwatch.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "classwatch_classes_selected 5"))
}

func TestRunMetrics_NilSafe(t *testing.T) {
	var m *RunMetrics
	assert.NotPanics(t, func() {
		m.ObserveStage("load", time.Second)
		m.RecordError("X")
		m.SetRowsLoaded(1)
		m.SetClassesSelected(1)
		m.EmailSent()
		m.Finish(time.Now(), time.Now(), true)
	})
}
