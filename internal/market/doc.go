// Package market implements the Market Lifecycle Tracker.
//
// The tracker:
//   - Remembers every series ever announced (known set, never shrinks)
//   - Holds the markets returned by the latest successful discovery (active set)
//   - Follows circuit_breaker events to keep each market's status
//   - Caches the latest game state per market for ops inspection
package market
