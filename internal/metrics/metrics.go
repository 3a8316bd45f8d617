// Package metrics exposes run, stage, probe and health-check metrics on a
// private Prometheus registry. Runs are short-lived, so metrics are exported
// with WriteTextfile for the node_exporter textfile collector rather than
// served over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/netfabric/internal/provisioning"
)

const namespace = "netfabric"

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Recorder holds the collectors of one process. A nil *Recorder records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageOps      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	probesTotal   *prometheus.CounterVec
	probeAttempts *prometheus.HistogramVec

	healthTotal    *prometheus.CounterVec
	healthAttempts *prometheus.HistogramVec

	runSuccess  *prometheus.GaugeVec
	runDuration *prometheus.GaugeVec
	runLastTime *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		stageOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "operations_total",
				Help:      "Backend operations on stages by phase and result",
			},
			[]string{"stage", "phase", "result"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "operation_duration_seconds",
				Help:      "Duration of backend operations on stages in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
			[]string{"stage", "phase"},
		),

		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "checks_total",
				Help:      "Reachability checks by source, target and result",
			},
			[]string{"source", "target", "result"},
		),
		probeAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "attempts",
				Help:      "Attempts needed per reachability check",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"result"},
		),

		healthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Monitor health checks by monitor and result",
			},
			[]string{"monitor", "result"},
		),
		healthAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "attempts",
				Help:      "Attempts needed per monitor health check",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"result"},
		),

		runSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "success",
				Help:      "Whether the last run succeeded (1) or not (0)",
			},
			[]string{"run"},
		),
		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Duration of the last run in seconds",
			},
			[]string{"run"},
		),
		runLastTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "last_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
			[]string{"run"},
		),
	}

	r.registry.MustRegister(
		r.stageOps,
		r.stageDuration,
		r.probesTotal,
		r.probeAttempts,
		r.healthTotal,
		r.healthAttempts,
		r.runSuccess,
		r.runDuration,
		r.runLastTime,
	)
	return r
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records a backend operation on a stage.
func (r *Recorder) ObserveStage(stage string, phase provisioning.Phase, err error, duration time.Duration) {
	if r == nil {
		return
	}
	r.stageOps.WithLabelValues(stage, string(phase), result(err == nil)).Inc()
	r.stageDuration.WithLabelValues(stage, string(phase)).Observe(duration.Seconds())
}

// ObserveProbe records a finished reachability check.
func (r *Recorder) ObserveProbe(source, target string, success bool, attempts int, _ time.Duration) {
	if r == nil {
		return
	}
	r.probesTotal.WithLabelValues(source, target, result(success)).Inc()
	r.probeAttempts.WithLabelValues(result(success)).Observe(float64(attempts))
}

// ObserveHealthCheck records a finished monitor health check.
func (r *Recorder) ObserveHealthCheck(monitor string, healthy bool, attempts int, _ time.Duration) {
	if r == nil {
		return
	}
	r.healthTotal.WithLabelValues(monitor, result(healthy)).Inc()
	r.healthAttempts.WithLabelValues(result(healthy)).Observe(float64(attempts))
}

// ObserveRun records the result of a whole run.
func (r *Recorder) ObserveRun(name string, success bool, duration time.Duration, finished time.Time) {
	if r == nil {
		return
	}
	r.runSuccess.WithLabelValues(name).Set(boolToFloat(success))
	r.runDuration.WithLabelValues(name).Set(duration.Seconds())
	r.runLastTime.WithLabelValues(name).Set(float64(finished.Unix()))
}

// WriteTextfile writes the current metrics to path in the Prometheus text
// format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

func result(ok bool) string {
	if ok {
		return resultSuccess
	}
	return resultFailure
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
