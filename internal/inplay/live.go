package inplay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/metrics"
	"github.com/rickgao/esports-bridge/internal/model"
)

// Live polling defaults.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 5 * time.Second
	DefaultIdleTimeout  = time.Hour

	// LiveMap is reported for live sessions; the round feed carries no map.
	LiveMap = "unknown"

	// PhaseMapFinished marks the final round of a map.
	PhaseMapFinished = "map_finished"
)

// RoundSource reports the newest round of a series.
type RoundSource interface {
	LatestRound(ctx context.Context, seriesID string) (model.RoundSnapshot, bool, error)
}

// LiveConfig holds settings for sessions fed by live telemetry.
type LiveConfig struct {
	PollInterval time.Duration // Time between round queries
	PollTimeout  time.Duration // Per-query timeout
	IdleTimeout  time.Duration // Session finishes after this long without a new round
}

// DefaultLiveConfig returns sensible defaults.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
}

// NewLive creates a provider whose sessions poll source and emit a frame
// each time a later round appears. Bomb state is not reported by the round
// feed and is always false.
func NewLive(cfg LiveConfig, source RoundSource, emitter event.Emitter, clock clockwork.Clock, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	factory := func(series model.SeriesSummary) (feed, error) {
		if source == nil {
			return nil, errors.New("no live round source")
		}
		return &liveFeed{
			cfg:        cfg,
			source:     source,
			seriesID:   series.ID,
			clock:      clock,
			logger:     logger,
			lastChange: clock.Now(),
		}, nil
	}
	return newProvider(cfg.PollInterval, factory, emitter, clock, logger)
}

// liveFeed turns polled round snapshots into frames, one per new round.
type liveFeed struct {
	cfg      LiveConfig
	source   RoundSource
	seriesID string
	clock    clockwork.Clock
	logger   *slog.Logger

	mu         sync.Mutex
	last       model.RoundSnapshot
	rounds     int
	lastChange time.Time
}

func (f *liveFeed) next(ctx context.Context) (model.Frame, bool, bool) {
	pollCtx, cancel := context.WithTimeout(ctx, f.cfg.PollTimeout)
	snap, ok, err := f.source.LatestRound(pollCtx, f.seriesID)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	idle := now.Sub(f.lastChange) >= f.cfg.IdleTimeout

	if err != nil {
		if ctx.Err() == nil {
			metrics.LivePollErrors.Inc()
			f.logger.Warn("live round poll failed", "series_id", f.seriesID, "error", err)
		}
		return model.Frame{}, false, idle
	}
	if !ok || !snap.After(f.last) {
		if idle {
			f.logger.Info("no new rounds, ending live session",
				"series_id", f.seriesID,
				"idle", now.Sub(f.lastChange),
			)
		}
		return model.Frame{}, false, idle
	}

	f.last = snap
	f.rounds++
	f.lastChange = now

	frame := model.Frame{
		Round:          snap.Round,
		TerroristScore: snap.Team1Score,
		CTScore:        snap.Team2Score,
	}
	if snap.MapFinished {
		frame.Phase = PhaseMapFinished
	}
	return frame, true, false
}

func (f *liveFeed) progress() feedProgress {
	f.mu.Lock()
	defer f.mu.Unlock()

	return feedProgress{
		source:  SourceGrid,
		mapName: LiveMap,
		cursor:  f.last.Round,
		frames:  f.rounds,
	}
}
