// Package metrics defines the events recorded for each prediction submission
// cycle and the sink interfaces that consume them. Implementations such as
// PromSink and InfluxSink live in infra/metrics and can be combined with
// NewMultiSink.
package metrics
