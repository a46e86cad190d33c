// Package inplay implements the In-Play Provider.
//
// For each started series the provider runs one session that turns a feed
// into series_state events. Two feeds exist:
//
//   - replay walks a named scenario, one frame per tick.
//   - grid polls the provider for the series' newest round and emits a
//     frame only when a later round appears. Bomb state is unknown and
//     reported as false.
//
// Frames whose score differential is implausible for the round
// (|T-CT| >= 12 before round 10) also emit a circuit_breaker suspend for
// that series' market in the same tick.
//
// Session lifecycle:
//
//	NotStarted -> Running -> Finished
//
// A finished series is remembered so later discovery polls do not restart it.
package inplay
