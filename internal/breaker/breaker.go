package breaker

import (
	"log/slog"
	"sync"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/metrics"
	"github.com/rickgao/esports-bridge/internal/model"
)

// Reason codes owned by the provider breaker.
const (
	ReasonHeartbeatMissed event.Reason = "provider_heartbeat_missed"
	ReasonRecovered       event.Reason = "provider_recovered"
)

// DefaultFailureThreshold is the number of consecutive failed discoveries
// after which all active markets are suspended.
const DefaultFailureThreshold = 3

// MarketSource lists the market IDs a transition applies to.
type MarketSource interface {
	ActiveMarkets() []string
}

// Config holds breaker configuration.
type Config struct {
	FailureThreshold int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
	}
}

// Stats is a point-in-time view of provider health.
type Stats struct {
	ConsecutiveFailures int  `json:"consecutive_failures"`
	FeedsSuspended      bool `json:"feeds_suspended"`
}

// Provider is the provider circuit breaker. It is safe for concurrent use.
type Provider struct {
	cfg     Config
	markets MarketSource
	emitter event.Emitter
	logger  *slog.Logger

	mu                  sync.Mutex
	consecutiveFailures int
	suspended           bool
}

// New creates a breaker in the resumed state.
func New(cfg Config, markets MarketSource, emitter event.Emitter, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = event.Discard
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}

	return &Provider{
		cfg:     cfg,
		markets: markets,
		emitter: emitter,
		logger:  logger,
	}
}

// SetSuspension requests a transition. It returns true when the state flipped
// and events were emitted, false when the breaker was already in that state.
func (p *Provider) SetSuspension(suspend bool, reason event.Reason) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.setSuspensionLocked(suspend, reason)
}

// RecordSuccess resets the failure counter and requests a resume.
func (p *Provider) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.consecutiveFailures > 0 {
		p.logger.Info("provider recovered", "after_failures", p.consecutiveFailures)
	}
	metrics.ConsecutiveFailures.Sub(float64(p.consecutiveFailures))
	p.consecutiveFailures = 0

	p.setSuspensionLocked(false, ReasonRecovered)
}

// RecordFailure counts a failed discovery and requests a suspend once the
// threshold is reached. It returns the new consecutive failure count.
func (p *Provider) RecordFailure() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFailures++
	metrics.ConsecutiveFailures.Inc()

	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.setSuspensionLocked(true, ReasonHeartbeatMissed)
	}
	return p.consecutiveFailures
}

// Stats returns the current provider health.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		ConsecutiveFailures: p.consecutiveFailures,
		FeedsSuspended:      p.suspended,
	}
}

// setSuspensionLocked flips the state and emits per-market events (caller must hold mu).
// Events are emitted under the lock so concurrent transitions cannot interleave.
func (p *Provider) setSuspensionLocked(suspend bool, reason event.Reason) bool {
	if p.suspended == suspend {
		return false
	}
	p.suspended = suspend
	if suspend {
		metrics.FeedsSuspended.Inc()
	} else {
		metrics.FeedsSuspended.Dec()
	}

	action := event.ActionResume
	if suspend {
		action = event.ActionSuspend
	}
	metrics.BreakerTransitions.WithLabelValues(string(action), string(reason)).Inc()

	var marketIDs []string
	if p.markets != nil {
		marketIDs = p.markets.ActiveMarkets()
	}

	p.logger.Warn("provider breaker transition",
		"action", action,
		"reason", reason,
		"markets", len(marketIDs),
	)

	for _, marketID := range marketIDs {
		seriesID, ok := model.SeriesIDFromMarket(marketID)
		if !ok {
			p.logger.Warn("skipping market with unrecognized id", "market_id", marketID)
			continue
		}
		p.emitter.Emit(event.CircuitBreaker(seriesID, action, reason))
	}

	return true
}
