// Package otel binds engine counters and the Authenticate latency histogram
// to an OpenTelemetry meter.
//
// Each counter becomes an Int64ObservableCounter. The histogram is published
// as one Int64ObservableGauge per cumulative bucket plus a count gauge. A
// single callback reads the engine snapshot on every collection.
package otel
