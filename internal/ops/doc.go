// Package ops serves the bridge's operational HTTP surface: a health
// summary, read-only debug views of tracked markets and in-play sessions,
// and the Prometheus scrape endpoint.
package ops
