package authcore

import "sync/atomic"

// MetricID identifies a single counter. IDs are stable across process
// restarts and are the exporters' join key.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed logins (uniform across causes).
	MetricLoginFailure
	// MetricLoginRateLimited counts throttled login attempts.
	MetricLoginRateLimited
	// MetricTokenIssued counts issued session tokens.
	MetricTokenIssued
	// MetricVerifySuccess counts session checks that yielded a principal.
	MetricVerifySuccess
	// MetricVerifyFailure counts session checks rejected (expired, tampered,
	// malformed, revoked).
	MetricVerifyFailure
	// MetricGateDenied counts requests rejected by RequireAuthenticated,
	// RequireRole, or the route-protection layer.
	MetricGateDenied
	// MetricAccountCreated counts created accounts.
	MetricAccountCreated
	// MetricAccountDuplicate counts creations rejected as duplicates.
	MetricAccountDuplicate
	// MetricAccountDeactivated counts active→inactive transitions.
	MetricAccountDeactivated
	// MetricSessionsRevoked counts token-version bumps.
	MetricSessionsRevoked

	metricIDCount
)

// padded cache-line separation keeps concurrent increments of adjacent
// counters from false sharing.
type paddedCounter struct {
	value uint64
	_     [56]byte
}

// Metrics is a fixed-size, allocation-free counter set. All methods are
// safe for concurrent use; a nil *Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns a Metrics set honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the given counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current value of a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters. Safe to call concurrently with increments;
// the snapshot is not atomic across counters.
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
