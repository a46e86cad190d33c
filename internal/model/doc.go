// Package model defines shared data types used across the esports bridge.
//
// Conventions:
//   - Series IDs are the provider's opaque string identifiers
//   - Market IDs are derived from series IDs (see MarketID)
//   - Times are time.Time in UTC; wire formatting happens in package event
package model
