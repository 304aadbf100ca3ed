// Package metrics exports benchmark and accuracy results as Prometheus
// metrics.
//
// The harness is a batch job, not a server, so metrics are written to a
// file in the text exposition format for the node_exporter textfile
// collector instead of being scraped.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trapbench/trapbench/internal/accuracy"
	"github.com/trapbench/trapbench/internal/benchmark"
)

// Namespace for all metrics
const metricsNamespace = "trapbench"

// Exporter holds the metrics of one harness run on a private registry.
//
// Exporter implements benchmark.RowSink and benchmark.FailureRecorder.
type Exporter struct {
	registry *prometheus.Registry

	// TimeSeconds is the wall-clock time per invocation.
	// Labels: program, workers, stat (min, median, mean)
	TimeSeconds *prometheus.GaugeVec

	// KernelSeconds is the compute time the backend reported itself.
	// Labels: program, workers
	KernelSeconds *prometheus.GaugeVec

	// Result is the numerical answer of an invocation.
	// Labels: program, workers
	Result *prometheus.GaugeVec

	// FailuresTotal counts invocations that produced no row.
	// Labels: program
	FailuresTotal *prometheus.CounterVec

	// AccuracyAbsError is |actual - expected| per scenario.
	// Labels: scenario
	AccuracyAbsError *prometheus.GaugeVec

	// AccuracyStatus is 1 for the scenario's current status, 0 otherwise.
	// Labels: scenario, status (passed, failed, skipped)
	AccuracyStatus *prometheus.GaugeVec

	// LastRun is the Unix time the exporter was last written.
	LastRun prometheus.Gauge
}

// NewExporter creates an exporter with all metrics registered.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,

		TimeSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "time_seconds",
				Help:      "Wall-clock time per invocation by statistic",
			},
			[]string{"program", "workers", "stat"},
		),

		KernelSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "kernel_time_seconds",
				Help:      "Compute time reported by the backend",
			},
			[]string{"program", "workers"},
		),

		Result: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "result",
				Help:      "Integral value computed by the backend",
			},
			[]string{"program", "workers"},
		),

		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "invocation_failures_total",
				Help:      "Invocations that failed to start, exited non-zero or timed out",
			},
			[]string{"program"},
		),

		AccuracyAbsError: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "accuracy",
				Name:      "abs_error",
				Help:      "Absolute error of the reference backend per scenario",
			},
			[]string{"scenario"},
		),

		AccuracyStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "accuracy",
				Name:      "status",
				Help:      "1 for the current status of each scenario",
			},
			[]string{"scenario", "status"},
		),

		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last harness run",
			},
		),
	}
}

// Registry returns the registry holding the exporter's metrics.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// WriteRow implements benchmark.RowSink.
func (e *Exporter) WriteRow(row benchmark.Row) error {
	workers := strconv.Itoa(row.Workers)

	e.TimeSeconds.WithLabelValues(row.Program, workers, "min").Set(row.TimeMin)
	e.TimeSeconds.WithLabelValues(row.Program, workers, "median").Set(row.TimeMedian)
	e.TimeSeconds.WithLabelValues(row.Program, workers, "mean").Set(row.TimeMean)

	if row.Result != nil {
		e.Result.WithLabelValues(row.Program, workers).Set(*row.Result)
	}
	if row.KernelTime != nil {
		e.KernelSeconds.WithLabelValues(row.Program, workers).Set(*row.KernelTime)
	}
	return nil
}

// RecordFailure implements benchmark.FailureRecorder.
func (e *Exporter) RecordFailure(f benchmark.Failure) {
	e.FailuresTotal.WithLabelValues(f.Program).Inc()
}

// ObserveReport records the outcome of an accuracy verification.
func (e *Exporter) ObserveReport(r accuracy.Report) {
	statuses := []accuracy.Status{accuracy.StatusPassed, accuracy.StatusFailed, accuracy.StatusSkipped}

	for _, o := range r.Outcomes {
		for _, s := range statuses {
			v := 0.0
			if o.Status == s {
				v = 1
			}
			e.AccuracyStatus.WithLabelValues(o.Scenario.Name, s.String()).Set(v)
		}
		if o.Actual != nil {
			diff := *o.Actual - o.Scenario.Expected
			if diff < 0 {
				diff = -diff
			}
			e.AccuracyAbsError.WithLabelValues(o.Scenario.Name).Set(diff)
		}
	}
}

// WriteTextfile stamps LastRun and atomically writes all metrics to path.
func (e *Exporter) WriteTextfile(path string, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	e.LastRun.Set(float64(now.Unix()))
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
