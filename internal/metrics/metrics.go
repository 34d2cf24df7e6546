// Package metrics exports commit gate counters in the Prometheus text
// format. Hooks are short-lived processes, so instead of serving /metrics
// the registry is written to a textfile after each evaluation for a node
// exporter textfile collector to pick up.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the gate metrics on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	evaluations   *prometheus.CounterVec
	checkRuns     *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	restaged      prometheus.Counter
}

// New returns a Recorder with all gate metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commit_gate_evaluations_total",
				Help: "Total number of commit attempts evaluated, by decision",
			},
			[]string{"decision"},
		),
		checkRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commit_gate_check_runs_total",
				Help: "Total number of check runs, by check and outcome",
			},
			[]string{"check", "status"},
		),
		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commit_gate_check_duration_seconds",
				Help:    "Wall time spent in each check",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"check"},
		),
		restaged: factory.NewCounter(prometheus.CounterOpts{
			Name: "commit_gate_restaged_files_total",
			Help: "Total number of files re-added to the index after auto-fix",
		}),
	}
}

// ObserveEvaluation counts one decision ("allow" or "block").
func (r *Recorder) ObserveEvaluation(decision string) {
	r.evaluations.WithLabelValues(decision).Inc()
}

// ObserveCheck records one check outcome and its duration. Skipped checks
// are counted but not timed.
func (r *Recorder) ObserveCheck(check, status string, d time.Duration) {
	r.checkRuns.WithLabelValues(check, status).Inc()
	if status != "skipped" {
		r.checkDuration.WithLabelValues(check).Observe(d.Seconds())
	}
}

// ObserveRestaged adds n re-added files.
func (r *Recorder) ObserveRestaged(n int) {
	r.restaged.Add(float64(n))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// WriteTextfile atomically writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
