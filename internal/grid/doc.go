// Package grid provides the telemetry provider client (GRID central-data GraphQL).
//
// Endpoint:
//   - https://api-op.grid.gg/central-data/graphql
//
// The provider's schema rejects optional fields inconsistently, so discovery
// asks for the rich field set first and falls back to a minimal query
// (series id + scheduled start) before reporting a ProviderError.
package grid
