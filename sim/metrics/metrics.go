// Package metrics collects Prometheus metrics for simulation batches and
// writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "etas"

// Recorder holds the metrics of one process. It owns its registry so several
// recorders can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	events        *prometheus.CounterVec
	generations   prometheus.Histogram
	rowsWritten   prometheus.Counter
	flushes       prometheus.Counter
	branchingRate prometheus.Gauge
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	r.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulations_total",
		Help:      "Completed simulation runs by outcome",
	}, []string{"status"})
	r.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_duration_seconds",
		Help:      "Wall-clock time of one simulation run",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulated_events_total",
		Help:      "Events generated before filtering, by kind",
	}, []string{"kind"})
	r.generations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cascade_generations",
		Help:      "Deepest aftershock generation reached per run",
		Buckets:   prometheus.LinearBuckets(0, 2, 12),
	})
	r.rowsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_written_total",
		Help:      "Catalog rows persisted after filtering",
	})
	r.flushes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flushes_total",
		Help:      "Batches written to the sink",
	})
	r.branchingRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "branching_ratio",
		Help:      "Branching ratio of the parameter set in use",
	})
	r.registry.MustRegister(
		r.runs, r.runDuration, r.events, r.generations,
		r.rowsWritten, r.flushes, r.branchingRate,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RunSucceeded records a finished run.
func (r *Recorder) RunSucceeded(d time.Duration, background, aftershocks, generations int) {
	r.runs.WithLabelValues("ok").Inc()
	r.runDuration.Observe(d.Seconds())
	r.events.WithLabelValues("background").Add(float64(background))
	r.events.WithLabelValues("aftershock").Add(float64(aftershocks))
	r.generations.Observe(float64(generations))
}

// RunFailed records a run that returned an error.
func (r *Recorder) RunFailed(d time.Duration) {
	r.runs.WithLabelValues("error").Inc()
	r.runDuration.Observe(d.Seconds())
}

// Flushed records one sink write of n rows.
func (r *Recorder) Flushed(n int) {
	r.flushes.Inc()
	r.rowsWritten.Add(float64(n))
}

// SetBranchingRatio publishes the parameter set's branching ratio.
func (r *Recorder) SetBranchingRatio(br float64) {
	r.branchingRate.Set(br)
}

// WriteTextfile atomically writes the current values to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
