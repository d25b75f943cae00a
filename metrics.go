package identity

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterConflict counts registrations rejected for a duplicate email.
	MetricRegisterConflict
	// MetricLoginSuccess counts successful authentications.
	MetricLoginSuccess
	// MetricLoginFailure counts failed authentications.
	MetricLoginFailure
	// MetricRefreshSuccess counts successful token rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected rotations other than reuse.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts reuse events. Nonzero values are a
	// security signal, not routine churn.
	MetricRefreshReuseDetected
	// MetricLogout counts logouts.
	MetricLogout
	// MetricVerificationIssued counts verification tokens issued.
	MetricVerificationIssued
	// MetricVerificationSuccess counts successful email verifications.
	MetricVerificationSuccess
	// MetricVerificationFailure counts rejected verification redemptions.
	MetricVerificationFailure
	// MetricResetRequested counts reset requests that actually issued a token.
	MetricResetRequested
	// MetricResetSuccess counts completed password resets.
	MetricResetSuccess
	// MetricResetFailure counts rejected reset redemptions.
	MetricResetFailure
	// MetricTeacherVerified counts admin teacher verifications.
	MetricTeacherVerified
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free atomic counters, one per [MetricID]. A nil or
// disabled Metrics is safe to use; every operation is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false, all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recording.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a consistent-enough copy of all counters for export.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
