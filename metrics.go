package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID names one engine counter. The latency histogram shares the ID
// space so exporters can iterate a single range.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginIgnored
	MetricSessionCreated
	MetricSessionRenewed
	MetricSessionRenewFailed
	MetricSessionInvalid
	MetricSessionDestroyed
	MetricStoreError
	MetricTokenCollision
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	MetricAuditDropped
	MetricAuthenticateLatency
	metricIDCount
)

// LatencyBounds are the inclusive upper bounds of the latency buckets. One
// more bucket past the last bound catches everything slower.
var LatencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// LatencyBucketCount is len(LatencyBounds) plus the overflow bucket.
const LatencyBucketCount = len(LatencyBounds) + 1

const cacheLineSize = 64

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

// latencyHistogram keeps per-bucket counts and the running sum in
// nanoseconds. Count is the bucket total.
type latencyHistogram struct {
	buckets  [LatencyBucketCount]atomic.Uint64
	sumNanos atomic.Uint64
}

func (h *latencyHistogram) observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	h.buckets[latencyBucket(d)].Add(1)
	h.sumNanos.Add(uint64(d))
}

func (h *latencyHistogram) snapshot() HistogramSnapshot {
	s := HistogramSnapshot{Buckets: make([]uint64, LatencyBucketCount)}
	for i := range h.buckets {
		s.Buckets[i] = h.buckets[i].Load()
	}
	s.Sum = time.Duration(h.sumNanos.Load())
	return s
}

// latencyBucket returns the first bucket whose bound is >= d.
func latencyBucket(d time.Duration) int {
	for i, bound := range LatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBounds)
}

// Metrics holds lock-free counters, one cache line each, plus the
// Authenticate latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       latencyHistogram
}

// HistogramSnapshot is a copy of one histogram. Buckets are per bucket, not
// cumulative, and follow LatencyBounds.
type HistogramSnapshot struct {
	Buckets []uint64
	Sum     time.Duration
}

// Count is the number of observations.
func (h HistogramSnapshot) Count() uint64 {
	var n uint64
	for _, v := range h.Buckets {
		n += v
	}
	return n
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID]HistogramSnapshot
}

func emptySnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID]HistogramSnapshot{},
	}
}

// NewMetrics returns a Metrics honouring cfg. A disabled Metrics ignores
// every Inc and Observe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id. Safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Observe records d in the Authenticate latency histogram. Other ids are
// ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricAuthenticateLatency {
		return
	}
	m.latency.observe(d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if !m.Enabled() {
		return emptySnapshot()
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID]HistogramSnapshot, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = m.counters[id].value.Load()
	}
	if m.enableLatency {
		s.Histograms[MetricAuthenticateLatency] = m.latency.snapshot()
	}
	return s
}
