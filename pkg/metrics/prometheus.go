// Package metrics provides Prometheus metrics for the puzzle preparation pipelines.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline label values.
const (
	PipelineSample    = "sample"
	PipelineBucketize = "bucketize"
	PipelineGenerate  = "generate"
	PipelineReport    = "report"
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Manager owns the collectors for one registry. Pipelines are one-shot, so
// the registry is exported to a node-exporter textfile instead of scraped.
type Manager struct {
	namespace       string
	subsystem       string
	durationBuckets []float64
	constLabels     map[string]string
	registry        *prometheus.Registry

	rowsRead    *prometheus.CounterVec
	rowsWritten *prometheus.CounterVec
	runs        *prometheus.CounterVec
	errors      *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec

	bandAvailable *prometheus.GaugeVec
	bandTarget    *prometheus.GaugeVec
	bandSelected  *prometheus.GaugeVec
	backfill      prometheus.Gauge
	buckets       prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics for the CLI

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry a fresh
// registry is used so Go runtime collectors stay out of the export.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "puzzleprep",
		subsystem:       "pipeline",
		durationBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		constLabels:     map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsRead = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_read_total",
		Help:        "Records read from pipeline inputs",
		ConstLabels: m.constLabels,
	}, []string{"pipeline"})

	m.rowsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_written_total",
		Help:        "Records written to pipeline outputs",
		ConstLabels: m.constLabels,
	}, []string{"pipeline"})

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Pipeline runs by outcome",
		ConstLabels: m.constLabels,
	}, []string{"pipeline", "status"})

	m.errors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Pipeline failures by error kind",
		ConstLabels: m.constLabels,
	}, []string{"pipeline", "kind"})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall-clock duration of pipeline runs",
		Buckets:     m.durationBuckets,
		ConstLabels: m.constLabels,
	}, []string{"pipeline"})

	m.lastSuccess = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last successful run",
		ConstLabels: m.constLabels,
	}, []string{"pipeline"})

	m.bandAvailable = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "sampler",
		Name:        "band_available_rows",
		Help:        "Input rows falling inside each rating band",
		ConstLabels: m.constLabels,
	}, []string{"band"})

	m.bandTarget = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "sampler",
		Name:        "band_target_rows",
		Help:        "Target row count for each rating band",
		ConstLabels: m.constLabels,
	}, []string{"band"})

	m.bandSelected = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "sampler",
		Name:        "band_selected_rows",
		Help:        "Rows drawn from each rating band before backfill",
		ConstLabels: m.constLabels,
	}, []string{"band"})

	m.backfill = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "sampler",
		Name:        "backfill_rows",
		Help:        "Rows drawn from leftovers to reach the sample size",
		ConstLabels: m.constLabels,
	})

	m.buckets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "bucketizer",
		Name:        "buckets",
		Help:        "Rating buckets emitted by the last bucketize run",
		ConstLabels: m.constLabels,
	})
}

// RecordRowsRead adds n to the rows read counter.
func (m *Manager) RecordRowsRead(pipeline string, n int) {
	m.rowsRead.WithLabelValues(pipeline).Add(float64(n))
}

// RecordRowsWritten adds n to the rows written counter.
func (m *Manager) RecordRowsWritten(pipeline string, n int) {
	m.rowsWritten.WithLabelValues(pipeline).Add(float64(n))
}

// RecordRun records the outcome and duration of a run.
func (m *Manager) RecordRun(pipeline, status string, d time.Duration) {
	m.runs.WithLabelValues(pipeline, status).Inc()
	m.runDuration.WithLabelValues(pipeline).Observe(d.Seconds())
	if status == StatusSuccess {
		m.lastSuccess.WithLabelValues(pipeline).SetToCurrentTime()
	}
}

// RecordError counts a failure of the given kind.
func (m *Manager) RecordError(pipeline, kind string) {
	m.errors.WithLabelValues(pipeline, kind).Inc()
}

// RecordBand sets the per-band sampling gauges.
func (m *Manager) RecordBand(band string, available, target, selected int) {
	m.bandAvailable.WithLabelValues(band).Set(float64(available))
	m.bandTarget.WithLabelValues(band).Set(float64(target))
	m.bandSelected.WithLabelValues(band).Set(float64(selected))
}

// RecordBackfill sets the number of backfilled rows.
func (m *Manager) RecordBackfill(n int) {
	m.backfill.Set(float64(n))
}

// RecordBuckets sets the number of emitted buckets.
func (m *Manager) RecordBuckets(n int) {
	m.buckets.Set(float64(n))
}

// Registry returns the registry the manager's collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry in text exposition format to path, for
// pickup by the node exporter textfile collector. The write is atomic.
func (m *Manager) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrExportFailed, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// Default returns the process-wide manager.
func Default() *Manager {
	return globalManager
}
