package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for StepForge validation runs.
type Metrics struct {
	config MetricsConfig

	// Validation run metrics
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Per-step metrics
	stepsValidated *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec

	// Violation and advisory metrics
	violationsByKind     *prometheus.CounterVec
	advisoriesBySeverity *prometheus.CounterVec

	// Watch mode metrics
	watchReloads prometheus.Counter

	// Deployment state metrics
	deploymentsRecorded *prometheus.CounterVec

	// System metrics
	stepsDiscovered prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op instance: every record method checks for nil collectors.
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_runs_started_total",
				Help:      "Total number of validation runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_runs_completed_total",
				Help:      "Total number of validation runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_run_duration_seconds",
				Help:      "Duration of validation runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		stepsValidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_validated_total",
				Help:      "Total number of steps validated",
			},
			[]string{"kind", "result"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_validation_duration_seconds",
				Help:      "Duration of per-step validation in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),

		violationsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Total number of infrastructure violations by kind",
			},
			[]string{"kind"},
		),
		advisoriesBySeverity: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_advisories_total",
				Help:      "Total number of policy advisories by policy and severity",
			},
			[]string{"policy", "severity"},
		),

		watchReloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_reloads_total",
				Help:      "Total number of revalidations triggered by file changes",
			},
		),

		deploymentsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deployments_recorded_total",
				Help:      "Total number of deployment records written",
			},
			[]string{"status"},
		),

		stepsDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "steps_discovered",
				Help:      "Number of step files found in the last discovery pass",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.stepsValidated,
		m.stepDuration,
		m.violationsByKind,
		m.advisoriesBySeverity,
		m.watchReloads,
		m.deploymentsRecorded,
		m.stepsDiscovered,
	)

	return m, nil
}

// RecordRunStarted increments the counter for started validation runs.
func (m *Metrics) RecordRunStarted() {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.Inc()
}

// RecordRunCompleted records a completed validation run.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStepValidated records the validation of a single step.
func (m *Metrics) RecordStepValidated(kind, result string, duration time.Duration) {
	if m.stepsValidated == nil {
		return
	}
	m.stepsValidated.WithLabelValues(kind, result).Inc()
	m.stepDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordViolation records an infrastructure violation by kind.
func (m *Metrics) RecordViolation(kind string) {
	if m.violationsByKind == nil {
		return
	}
	m.violationsByKind.WithLabelValues(kind).Inc()
}

// RecordAdvisory records a policy advisory.
func (m *Metrics) RecordAdvisory(policy, severity string) {
	if m.advisoriesBySeverity == nil {
		return
	}
	m.advisoriesBySeverity.WithLabelValues(policy, severity).Inc()
}

// RecordWatchReload records a revalidation triggered by a file change.
func (m *Metrics) RecordWatchReload() {
	if m.watchReloads == nil {
		return
	}
	m.watchReloads.Inc()
}

// RecordDeployment records a deployment record write.
func (m *Metrics) RecordDeployment(status string) {
	if m.deploymentsRecorded == nil {
		return
	}
	m.deploymentsRecorded.WithLabelValues(status).Inc()
}

// SetStepsDiscovered sets the number of step files found by discovery.
func (m *Metrics) SetStepsDiscovered(count float64) {
	if m.stepsDiscovered == nil {
		return
	}
	m.stepsDiscovered.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
