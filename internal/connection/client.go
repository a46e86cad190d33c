package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/esports-bridge/internal/version"
)

// Client is one outbound WebSocket link to the consumer. The link carries
// events in one direction only; inbound frames are read solely so that
// ping, pong and close frames get handled.
type Client interface {
	// Connect dials the consumer.
	Connect(ctx context.Context) error

	// Send writes one text frame.
	Send(data []byte) error

	// Failed delivers the error that ended the link, at most once.
	Failed() <-chan error

	// IsConnected reports whether the link is usable for Send.
	IsConnected() bool

	// Close sends a close frame and tears the link down.
	Close() error
}

// wsClient implements Client over gorilla/websocket.
type wsClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	failed   chan error
	failOnce sync.Once
	done     chan struct{}

	mu        sync.Mutex
	connected bool
	closed    bool
	lastSeen  time.Time // last ping or pong from the consumer
}

// NewClient creates an unconnected client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &wsClient{
		cfg:    cfg.withDefaults(),
		logger: logger,
		failed: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrAlreadyClosed
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	conn.SetPingHandler(func(data string) error {
		c.seen()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		c.seen()
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastSeen = time.Now()
	c.mu.Unlock()

	go c.discardInbound()
	go c.keepalive()

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

func (c *wsClient) Send(data []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.fail(fmt.Errorf("write: %w", err))
		return err
	}
	return nil
}

func (c *wsClient) Failed() <-chan error {
	return c.failed
}

func (c *wsClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *wsClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn == nil {
		return nil
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)

	return conn.Close()
}

// fail marks the link down and reports err once. Failures after Close are
// not reported.
func (c *wsClient) fail(err error) {
	select {
	case <-c.done:
		return
	default:
	}

	c.failOnce.Do(func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.failed <- err
	})
}

func (c *wsClient) seen() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// discardInbound advances through inbound frames until the link breaks.
// Advancing runs the control frame handlers; data frames are skipped unread.
func (c *wsClient) discardInbound() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			c.fail(err)
			return
		}
	}
}

// keepalive pings the consumer and fails the link when neither a ping nor
// a pong has been seen within PingTimeout.
func (c *wsClient) keepalive() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			c.logger.Debug("failed to send ping", "error", err)
		}

		c.mu.Lock()
		idle := time.Since(c.lastSeen)
		c.mu.Unlock()

		if idle > c.cfg.PingTimeout {
			c.logger.Warn("consumer silent, connection stale",
				"idle", idle,
				"timeout", c.cfg.PingTimeout,
			)
			c.fail(ErrStaleConnection)
			c.conn.Close()
			return
		}
	}
}
