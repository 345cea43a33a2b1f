// Package prometheus publishes engine counters and the Authenticate latency
// histogram through client_golang.
//
// [NewPrometheusExporter] registers a [Collector] on a private registry and
// serves it with promhttp. Counters are named gosession_*_total; the
// histogram is gosession_authenticate_latency_seconds. Nothing is registered
// on the global default registry.
package prometheus
