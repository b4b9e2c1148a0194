// Package metrics exposes benchmark results as Prometheus metrics.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Run statuses used as the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics represents the collection of benchmark metrics on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	MsPerIteration *prometheus.GaugeVec
	PayloadBytes   *prometheus.GaugeVec
	Throughput     *prometheus.GaugeVec
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers all benchmark metrics.
func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.MsPerIteration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "j2kbench_ms_per_iteration",
			Help: "Mean wall time of one codec call in milliseconds",
		},
		[]string{"binding", "operation", "fixture"},
	)

	m.PayloadBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "j2kbench_payload_bytes",
			Help: "Size of the codestream or frame produced by the last run",
		},
		[]string{"binding", "operation", "fixture"},
	)

	m.Throughput = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "j2kbench_throughput_megapixels_per_second",
			Help: "Pixels processed per second by the last run, in megapixels",
		},
		[]string{"binding", "operation", "fixture"},
	)

	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "j2kbench_runs_total",
			Help: "Total number of timed runs",
		},
		[]string{"binding", "operation", "status"},
	)

	m.RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "j2kbench_iteration_duration_seconds",
			Help:    "Distribution of per-iteration codec call durations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"binding", "operation"},
	)

	m.Registry.MustRegister(
		m.MsPerIteration,
		m.PayloadBytes,
		m.Throughput,
		m.RunsTotal,
		m.RunDuration,
	)

	return m
}

// Run is one observation handed to the recorder.
type Run struct {
	Binding        string
	Operation      string
	Fixture        string
	MsPerIteration float64
	PayloadBytes   int
	Pixels         uint64
}

// ObserveRun records a successful run.
func (m *Metrics) ObserveRun(r Run) {
	m.MsPerIteration.WithLabelValues(r.Binding, r.Operation, r.Fixture).Set(r.MsPerIteration)
	m.PayloadBytes.WithLabelValues(r.Binding, r.Operation, r.Fixture).Set(float64(r.PayloadBytes))
	if r.MsPerIteration > 0 && r.Pixels > 0 {
		mps := float64(r.Pixels) / 1e6 / (r.MsPerIteration / 1000)
		m.Throughput.WithLabelValues(r.Binding, r.Operation, r.Fixture).Set(mps)
	}
	m.RunDuration.WithLabelValues(r.Binding, r.Operation).Observe(r.MsPerIteration / 1000)
	m.RunsTotal.WithLabelValues(r.Binding, r.Operation, StatusOK).Inc()
}

// ObserveFailure records a failed run.
func (m *Metrics) ObserveFailure(binding, operation string) {
	m.RunsTotal.WithLabelValues(binding, operation, StatusError).Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, m.Registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", filename)
	}
	return nil
}
