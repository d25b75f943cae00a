// Package prometheus renders identity counters in Prometheus text
// exposition format. The exporter hand-writes the format rather than
// depending on a client library since only plain counters are exposed.
//
// # What this package must NOT do
//
//   - Own an HTTP server. Callers mount [Exporter.Handler] themselves.
//   - Mutate service state.
package prometheus
