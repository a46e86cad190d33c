// Package journal persists every outbound event to PostgreSQL.
//
// The journal sits beside the consumer channel in the emitter fanout. Emit
// only enqueues; a single background goroutine batches rows into the
// bridge_events table. A slow or unavailable database never blocks
// emission: when the buffer reaches its ceiling new events are dropped and
// counted.
//
// Rows are append-only and keyed by a random event id.
package journal
