package tokengate

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricPairIssued counts token pairs issued at login/registration.
	MetricPairIssued MetricID = iota
	// MetricVerifySuccess counts access tokens that verified.
	MetricVerifySuccess
	// MetricVerifyExpired counts access tokens rejected as expired. That
	// rejection is the signal that drives client refreshes.
	MetricVerifyExpired
	// MetricVerifyFailure counts every other access verification rejection.
	MetricVerifyFailure
	// MetricRefreshSuccess counts successful refresh exchanges.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh exchanges rejected for any reason
	// other than revocation.
	MetricRefreshFailure
	// MetricRefreshRevoked counts refresh exchanges rejected because the
	// token was no longer in the session record.
	MetricRefreshRevoked
	// MetricLogout counts single-device logouts.
	MetricLogout
	// MetricLogoutAll counts logout-all operations.
	MetricLogoutAll
	// MetricSweepRemoved counts session records removed by expiry sweeps.
	MetricSweepRemoved
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds cache-line padded atomic counters. When constructed disabled,
// every operation is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments one counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot returns a deep copy of the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
