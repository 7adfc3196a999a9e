package telemetry

import (
	"context"
)

// Telemetry bundles the logger, tracer, and metrics behind one handle.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// WithContext attaches the telemetry handle to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = t.Logger.WithContext(ctx)
	return context.WithValue(ctx, telemetryContextKey{}, t)
}

// FromTelemetryContext retrieves the telemetry handle from the context, or
// nil when none is attached.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown flushes and stops all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.Tracer != nil {
		return t.Tracer.Shutdown(ctx)
	}
	return nil
}

// Flush forces pending telemetry to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	if t.Tracer != nil {
		return t.Tracer.ForceFlush(ctx)
	}
	return nil
}

// StartMetricsServer starts the metrics HTTP endpoint if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	if t.Metrics != nil {
		return t.Metrics.StartMetricsServer()
	}
	return nil
}
