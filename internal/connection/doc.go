// Package connection implements the Consumer Channel Manager.
//
// The Consumer Channel Manager:
//   - Holds one outbound WebSocket to the consumer (matching engine)
//   - Reconnects after a fixed delay whenever the link drops, forever
//   - Runs a one-shot hook the first time the link opens
//   - Sends events best-effort: while disconnected, events are dropped
package connection
