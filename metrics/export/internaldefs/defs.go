package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins, any cause."},
	{ID: goSession.MetricLoginIgnored, Name: "gosession_login_ignored_total", Help: "Logins ignored because the caller already held a live session."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions written to the store."},
	{ID: goSession.MetricSessionRenewed, Name: "gosession_session_renewed_total", Help: "Sliding-expiry renewals."},
	{ID: goSession.MetricSessionRenewFailed, Name: "gosession_session_renew_failed_total", Help: "Renewals that failed after a successful read."},
	{ID: goSession.MetricSessionInvalid, Name: "gosession_session_invalid_total", Help: "Presented tokens that did not resolve."},
	{ID: goSession.MetricSessionDestroyed, Name: "gosession_session_destroyed_total", Help: "Sessions destroyed by logout."},
	{ID: goSession.MetricStoreError, Name: "gosession_store_error_total", Help: "Session store commands that failed."},
	{ID: goSession.MetricTokenCollision, Name: "gosession_token_collision_total", Help: "Drawn tokens rejected by the existence check."},
	{ID: goSession.MetricAuthenticateSuccess, Name: "gosession_authenticate_success_total", Help: "Requests that resolved to a session."},
	{ID: goSession.MetricAuthenticateFailure, Name: "gosession_authenticate_failure_total", Help: "Requests that did not resolve to a session."},
	{ID: goSession.MetricAuditDropped, Name: "gosession_audit_dropped_total", Help: "Audit events lost to a full buffer or a cancelled request."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricAuthenticateLatency, Name: "gosession_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramUpperBounds are goSession.LatencyBounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = upperBounds()

func upperBounds() []float64 {
	out := make([]float64, len(goSession.LatencyBounds))
	for i, d := range goSession.LatencyBounds {
		out[i] = d.Seconds()
	}
	return out
}

// HistogramBoundSuffix turns each bucket bound into an instrument name
// suffix, +Inf included.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [goSession.LatencyBucketCount]uint64 {
	var out [goSession.LatencyBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [goSession.LatencyBucketCount]uint64) [goSession.LatencyBucketCount]uint64 {
	var out [goSession.LatencyBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
