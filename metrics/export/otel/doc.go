// Package otel provides OpenTelemetry metric bindings for identity
// counters.
//
// [NewExporter] registers an Int64ObservableCounter per counter and a
// single callback that reads a metrics snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate service state.
package otel
