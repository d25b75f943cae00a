// Package internaldefs holds the shared counter definition table used by
// the Prometheus and OpenTelemetry exporters. It exists so both backends
// agree on metric names without either importing the other.
package internaldefs
