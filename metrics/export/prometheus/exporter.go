package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	identity "github.com/opencourse/identity"
	"github.com/opencourse/identity/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() identity.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders counters in Prometheus text exposition format.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an exporter reading from the given source, usually
// an [identity.Service].
func NewExporter(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves the current counters.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render writes the current counters in Prometheus text exposition format.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()

	var b strings.Builder
	for _, def := range internaldefs.CounterDefs {
		b.WriteString("# HELP ")
		b.WriteString(def.Name)
		b.WriteString(" ")
		b.WriteString(def.Help)
		b.WriteString("\n# TYPE ")
		b.WriteString(def.Name)
		b.WriteString(" counter\n")
		b.WriteString(def.Name)
		b.WriteString(" ")
		b.WriteString(strconv.FormatUint(snapshot.Counters[def.ID], 10))
		b.WriteString("\n")
	}

	b.WriteString("# HELP identity_audit_dropped_total Audit events dropped by dispatcher backpressure.\n")
	b.WriteString("# TYPE identity_audit_dropped_total counter\n")
	b.WriteString("identity_audit_dropped_total ")
	b.WriteString(strconv.FormatUint(e.source.AuditDropped(), 10))
	b.WriteString("\n")

	return b.String()
}
