// Package metrics defines the interfaces used to record dispatch
// outcomes. Sinks like PromSink and InfluxSink record committed trips,
// whole dispatch runs and driver notification latency, and can be
// combined with NewMultiSink in infra/metrics.
package metrics
