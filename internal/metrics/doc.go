// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Consumer channel state, sends, drops and reconnects
//   - Discovery poll outcomes, latency and query fallbacks
//   - Provider breaker state and transitions
//   - In-play sessions, frames and anomaly trips
//   - Journal insert throughput and failures
package metrics
