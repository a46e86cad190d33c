package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8080/ws)
	HandshakeTimeout time.Duration // Dial handshake timeout
	PingInterval     time.Duration // Interval between keepalive pings
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends and control frames
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultClientConfig.
func (c ClientConfig) withDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

// DefaultReconnectDelay is the fixed wait between reconnection attempts.
const DefaultReconnectDelay = 3 * time.Second

// DefaultURL is the consumer address used when none is configured.
const DefaultURL = "ws://localhost:8080/ws"

// ManagerConfig configures the Consumer Channel Manager.
type ManagerConfig struct {
	URL            string        // Consumer WebSocket URL
	ReconnectDelay time.Duration // Fixed wait before each reconnection attempt (no backoff)
	Client         ClientConfig  // Per-connection settings; URL is taken from the manager
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		URL:            DefaultURL,
		ReconnectDelay: DefaultReconnectDelay,
		Client:         DefaultClientConfig(),
	}
}

// ManagerStats provides statistics about the consumer channel.
type ManagerStats struct {
	URL        string `json:"url"`
	Connected  bool   `json:"connected"`
	Connects   int64  `json:"connects"`
	Reconnects int64  `json:"reconnect_attempts"`
	Sent       int64  `json:"events_sent"`
	Dropped    int64  `json:"events_dropped"`
}
