// Package event defines the normalized wire schema pushed to the consumer.
//
// Every message is an envelope {"type": ..., "payload": ...}. Four types are
// emitted:
//   - market_created: first sighting of a series
//   - series_state: one in-play frame for a series
//   - circuit_breaker: suspend/resume of one market
//   - game_event: discovery summary of a poll
package event
