// Package metric provides Prometheus metrics for kiss.
//
//   - prometheus.go: registry, metric definitions and the HTTP handler
//   - collector.go: scrape-time collector for content cache gauges
//
// Metrics are exposed at /metrics on the admin listener.
package metric
