// Package bridge assembles the running system.
//
// One Bridge owns:
//   - the consumer channel (connection.Manager)
//   - the market tracker
//   - the provider circuit breaker
//   - the in-play session provider
//   - the discovery loop and its GRID client
//   - the optional event journal
//
// Every producer emits into a single fanout of consumer, tracker and
// journal. Discovery starts the first time the consumer link opens and is
// never restarted by later reconnects.
package bridge
