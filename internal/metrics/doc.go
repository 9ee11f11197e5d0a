// Package metrics exposes Prometheus counters for configuration
// operations on the process-default registry. cmd/agent serves them on
// the diagnostics endpoint via promhttp.
package metrics
