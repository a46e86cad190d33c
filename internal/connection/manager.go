package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/metrics"
)

// Manager owns the consumer link and implements event.Emitter.
type Manager struct {
	cfg    ManagerConfig
	clock  clockwork.Clock
	logger *slog.Logger

	onFirstOpen func()
	firstOpen   sync.Once

	mu     sync.RWMutex
	client Client // nil while disconnected

	connects   atomic.Int64
	reconnects atomic.Int64
	sent       atomic.Int64
	dropped    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new Consumer Channel Manager.
func NewManager(cfg ManagerConfig, clock clockwork.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	cfg.Client.URL = cfg.URL

	return &Manager{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// OnFirstOpen registers a hook run once, the first time the link opens.
// It must be called before Start and the hook must not block.
func (m *Manager) OnFirstOpen(fn func()) {
	m.onFirstOpen = fn
}

// Start begins connecting in the background. It never fails on an
// unreachable consumer; the manager keeps retrying.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("consumer channel manager started",
		"url", m.cfg.URL,
		"reconnect_delay", m.cfg.ReconnectDelay,
	)

	return nil
}

// Stop closes the link and waits for the connection goroutine.
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping consumer channel manager")

	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	if m.client != nil {
		m.client.Close()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("consumer channel manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
		return ctx.Err()
	}
}

// Emit encodes and sends an event. While the link is down the event is
// dropped; there is no buffering or replay.
func (m *Manager) Emit(ev event.Event) {
	typ := string(ev.Type)

	data, err := json.Marshal(ev)
	if err != nil {
		m.logger.Error("failed to encode event", "type", typ, "error", err)
		m.drop(typ)
		return
	}

	m.mu.RLock()
	c := m.client
	m.mu.RUnlock()

	if c == nil || !c.IsConnected() {
		m.logger.Debug("consumer not connected, dropping event", "type", typ)
		m.drop(typ)
		return
	}

	if err := c.Send(data); err != nil {
		m.logger.Debug("send failed, dropping event", "type", typ, "error", err)
		m.drop(typ)
		return
	}

	m.sent.Add(1)
	metrics.EventsSent.WithLabelValues(typ).Inc()
}

// IsConnected reports whether the link is currently open.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil && m.client.IsConnected()
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		URL:        m.cfg.URL,
		Connected:  m.IsConnected(),
		Connects:   m.connects.Load(),
		Reconnects: m.reconnects.Load(),
		Sent:       m.sent.Load(),
		Dropped:    m.dropped.Load(),
	}
}

func (m *Manager) drop(typ string) {
	m.dropped.Add(1)
	metrics.EventsDropped.WithLabelValues(typ).Inc()
}

// run connects, serves the link until it fails, and reconnects after a
// fixed delay until the manager is stopped.
func (m *Manager) run() {
	defer m.wg.Done()

	for {
		c := NewClient(m.cfg.Client, m.logger.With("url", m.cfg.URL))

		if err := c.Connect(m.ctx); err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.logger.Warn("consumer connect failed", "error", err)
		} else {
			m.opened(c)
			m.serve(c)
			m.closed(c)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-m.clock.After(m.cfg.ReconnectDelay):
		}

		m.reconnects.Add(1)
		metrics.Reconnects.Inc()
		m.logger.Info("attempting reconnection", "url", m.cfg.URL)
	}
}

func (m *Manager) opened(c Client) {
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()

	m.connects.Add(1)
	metrics.ChannelConnected.Inc()
	m.logger.Info("consumer channel open", "url", m.cfg.URL)

	m.firstOpen.Do(func() {
		if m.onFirstOpen != nil {
			m.onFirstOpen()
		}
	})
}

func (m *Manager) closed(c Client) {
	m.mu.Lock()
	if m.client == c {
		m.client = nil
	}
	m.mu.Unlock()

	c.Close()
	metrics.ChannelConnected.Dec()
}

// serve blocks until the link fails or the manager stops.
func (m *Manager) serve(c Client) {
	select {
	case <-m.ctx.Done():
	case err := <-c.Failed():
		m.logger.Warn("consumer channel closed", "error", err)
	}
}
