package market

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/model"
)

// Config holds tracker configuration.
type Config struct {
	// StateTTL is how long a market's last game state is kept without a new frame.
	StateTTL time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StateTTL: 10 * time.Minute,
	}
}

// Tracker is the market lifecycle tracker. It is safe for concurrent use.
type Tracker struct {
	cfg    Config
	logger *slog.Logger
	clock  clockwork.Clock

	state  *trackerState
	states *cache.Cache // market ID -> event.GameState
}

// NewTracker creates a tracker.
func NewTracker(cfg Config, clock clockwork.Clock, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultConfig().StateTTL
	}

	return &Tracker{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		state:  newState(),
		states: cache.New(cfg.StateTTL, cfg.StateTTL*10),
	}
}

// Observe records a successful discovery result. The active set is replaced
// with the given series; the returned series are those never seen before,
// in input order, each of which needs a market_created announcement.
func (t *Tracker) Observe(series []model.SeriesSummary) []model.SeriesSummary {
	fresh := t.state.observe(series, t.clock.Now())

	for _, s := range fresh {
		t.logger.Info("market discovered",
			"series_id", s.ID,
			"market_id", model.MarketID(s.ID),
			"tournament", s.Tournament,
		)
	}
	return fresh
}

// ActiveMarkets returns the market IDs from the latest successful discovery.
func (t *Tracker) ActiveMarkets() []string {
	return t.state.activeMarkets()
}

// IsKnown reports whether a series was ever announced.
func (t *Tracker) IsKnown(seriesID string) bool {
	return t.state.isKnown(seriesID)
}

// Market returns a tracked market by series ID.
func (t *Tracker) Market(seriesID string) (Market, bool) {
	m, ok := t.state.getMarket(seriesID)
	if !ok {
		return Market{}, false
	}
	m.LastState = t.lastState(m.ID)
	return m, true
}

// Snapshot returns all tracked markets.
func (t *Tracker) Snapshot() []Market {
	markets := t.state.snapshot()
	for i := range markets {
		markets[i].LastState = t.lastState(markets[i].ID)
	}
	return markets
}

// Emit observes outgoing events, so the tracker can sit in an event.Fanout
// next to the consumer channel.
func (t *Tracker) Emit(ev event.Event) {
	switch p := ev.Payload.(type) {
	case event.CircuitBreakerPayload:
		status := StatusActive
		if p.Action == event.ActionSuspend {
			status = StatusSuspended
		}
		old, ok := t.state.setStatus(p.SeriesID, status, string(p.Reason))
		if ok && old != status {
			t.logger.Debug("market status changed",
				"market_id", p.MarketID,
				"from", old,
				"to", status,
				"reason", p.Reason,
			)
		}

	case event.SeriesStatePayload:
		t.states.SetDefault(model.MarketID(p.SeriesID), p.GameState)
	}
}

func (t *Tracker) lastState(marketID string) *event.GameState {
	cached, ok := t.states.Get(marketID)
	if !ok {
		return nil
	}
	gs := cached.(event.GameState)
	return &gs
}
