package auth

import "sync/atomic"

// MetricID identifies a counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential checks.
	MetricLoginFailure
	// MetricRefreshSuccess counts refresh calls that issued a new access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh calls.
	MetricRefreshFailure
	// MetricAuthRejected counts requests that failed authentication.
	MetricAuthRejected
	// MetricSessionEvicted counts logins that overwrote a live pair
	// (a second device being kicked out).
	MetricSessionEvicted
	// MetricLogout counts logouts.
	MetricLogout
	// MetricAccountCreated counts successful registrations.
	MetricAccountCreated
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters. When disabled, all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters [metricIDCount]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Snapshot returns a consistent-enough copy of all counters. Counters are
// read individually, so a snapshot taken under load may mix adjacent
// instants; totals are still monotone.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var snap MetricsSnapshot
	if m == nil || !m.enabled {
		return snap
	}
	for i := MetricID(0); i < metricIDCount; i++ {
		snap.Counters[i] = atomic.LoadUint64(&m.counters[i].value)
	}
	return snap
}

// MetricDef describes one counter for exporters.
type MetricDef struct {
	ID   MetricID
	Name string
	Help string
}

// MetricDefs lists every counter in exposition order.
var MetricDefs = []MetricDef{
	{MetricLoginSuccess, "auth_login_success_total", "Successful logins."},
	{MetricLoginFailure, "auth_login_failure_total", "Rejected credential checks."},
	{MetricRefreshSuccess, "auth_refresh_success_total", "Refresh calls that issued a new access token."},
	{MetricRefreshFailure, "auth_refresh_failure_total", "Rejected refresh calls."},
	{MetricAuthRejected, "auth_request_rejected_total", "Requests that failed authentication."},
	{MetricSessionEvicted, "auth_session_evicted_total", "Logins that overwrote a live session pair."},
	{MetricLogout, "auth_logout_total", "Logouts."},
	{MetricAccountCreated, "auth_account_created_total", "Successful registrations."},
}
