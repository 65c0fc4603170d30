package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "classwatch"

// RunMetrics records the outcome of one report run. The registry is private so
// a textfile holds only run metrics.
type RunMetrics struct {
	Registry *prometheus.Registry

	StageDuration   *prometheus.GaugeVec
	Errors          *prometheus.CounterVec
	RowsLoaded      prometheus.Gauge
	ClassesSelected prometheus.Gauge
	EmailsSent      prometheus.Counter
	RunDuration     prometheus.Gauge
	LastRun         prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// NewRunMetrics creates and registers the run metrics.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		Registry: prometheus.NewRegistry(),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in the last run.",
		}, []string{"stage"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Run failures by error type.",
		}, []string{"type"}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded",
			Help:      "Class rows read from the feed.",
		}),
		ClassesSelected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "classes_selected",
			Help:      "Classes needing attention in the last run.",
		}),
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "emails_sent_total",
			Help:      "Report emails accepted by the transport.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed, 0 otherwise.",
		}),
	}

	m.Registry.MustRegister(
		m.StageDuration,
		m.Errors,
		m.RowsLoaded,
		m.ClassesSelected,
		m.EmailsSent,
		m.RunDuration,
		m.LastRun,
		m.LastSuccess,
	)
	return m
}

// ObserveStage records how long a stage took.
func (m *RunMetrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// RecordError counts a failure by its type.
func (m *RunMetrics) RecordError(errType string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(errType).Inc()
}

// SetRowsLoaded records the size of the feed.
func (m *RunMetrics) SetRowsLoaded(n int) {
	if m == nil {
		return
	}
	m.RowsLoaded.Set(float64(n))
}

// SetClassesSelected records how many classes matched.
func (m *RunMetrics) SetClassesSelected(n int) {
	if m == nil {
		return
	}
	m.ClassesSelected.Set(float64(n))
}

// EmailSent counts an accepted report email.
func (m *RunMetrics) EmailSent() {
	if m == nil {
		return
	}
	m.EmailsSent.Inc()
}

// Finish stamps the run outcome.
func (m *RunMetrics) Finish(start, end time.Time, success bool) {
	if m == nil {
		return
	}
	m.RunDuration.Set(end.Sub(start).Seconds())
	m.LastRun.Set(float64(end.Unix()))
	if success {
		m.LastSuccess.Set(1)
	} else {
		m.LastSuccess.Set(0)
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// The write is atomic.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
