// Package telemetry provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for StepForge.
//
// Logging is zerolog with a console writer for interactive use and JSON for
// production. Metrics cover validation runs, per-step outcomes, violation
// and advisory counts, and watch-mode reloads under the "stepforge"
// namespace. Tracing wraps validation runs in spans and exports over OTLP
// or stdout.
//
// NewTelemetry builds all three from one Config; each can also be
// constructed on its own. Disabled components degrade to no-ops rather than
// nil checks at every call site.
package telemetry
