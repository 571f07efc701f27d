// Package metrics records use case counters and latencies on a Prometheus registry.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeRetry    = "transient"
	OutcomeCorrupt  = "inconsistent"
	OutcomeError    = "error"
)

// Recorder holds the use case metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vardb_use_case_total",
			Help: "Use case invocations by outcome.",
		}, []string{"use_case", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vardb_use_case_duration_seconds",
			Help:    "Use case latency including retries.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"use_case"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vardb_use_case_retries_total",
			Help: "Transient store failures retried.",
		}, []string{"use_case"}),
	}
}

// Observe records one completed use case.
func (r *Recorder) Observe(useCase, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.total.WithLabelValues(useCase, outcome).Inc()
	r.duration.WithLabelValues(useCase).Observe(elapsed.Seconds())
}

// Retried counts one retry of a transient failure.
func (r *Recorder) Retried(useCase string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(useCase).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the registry in node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
