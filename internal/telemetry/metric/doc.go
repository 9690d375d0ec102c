// Package metric provides Prometheus metrics for herdsman.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, configuration metrics and HTTP handler
//   - collector.go: build information collector
//
// Metrics include:
//
//   - Reload and commit counters by trigger and result
//   - Reload duration histogram
//   - Configured settings gauge and last successful reload timestamp
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
