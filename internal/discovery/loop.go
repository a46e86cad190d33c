package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/auth"
	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/metrics"
	"github.com/rickgao/esports-bridge/internal/model"
)

// ErrMissingCredential is returned by an iteration that has no provider credential.
var ErrMissingCredential = errors.New("missing provider credential")

// SeriesSource lists series from the provider.
type SeriesSource interface {
	DiscoverSeries(ctx context.Context) ([]model.SeriesSummary, error)
}

// MarketTracker records discovery results and reports first-seen series.
type MarketTracker interface {
	Observe(series []model.SeriesSummary) []model.SeriesSummary
}

// HealthRecorder receives the outcome of every iteration.
type HealthRecorder interface {
	RecordSuccess()
	RecordFailure() int
}

// SessionStarter starts in-play replay for a series.
type SessionStarter interface {
	Start(series model.SeriesSummary) bool
}

// Config holds loop configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 30s)
	Timeout  time.Duration // Per-call provider timeout (default: 20s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  20 * time.Second,
	}
}

// Deps are the collaborators of a Loop.
type Deps struct {
	Credentials auth.Source
	Source      SeriesSource
	Tracker     MarketTracker
	Health      HealthRecorder
	Sessions    SessionStarter
	Emitter     event.Emitter
	Clock       clockwork.Clock
}

// Status is a point-in-time view of the loop for ops.
type Status struct {
	Running       bool      `json:"running"`
	Iterations    int64     `json:"iterations"`
	LastPollAt    time.Time `json:"last_poll_at"`
	LastSuccessAt time.Time `json:"last_success_at"`
	LastError     string    `json:"last_error,omitempty"`
	LastSeries    int       `json:"last_series"`
}

// Loop is the Discovery Loop.
type Loop struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	mu     sync.Mutex
	status Status

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a discovery loop.
func New(cfg Config, deps Deps, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Emitter == nil {
		deps.Emitter = event.Discard
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Loop{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Start runs the loop in the background until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.Run(l.ctx)
	}()

	l.logger.Info("discovery loop started",
		"interval", l.cfg.Interval,
		"timeout", l.cfg.Timeout,
	)

	return nil
}

// Stop gracefully shuts down the loop.
func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("discovery loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls immediately and then once per interval after each iteration
// completes, until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	l.setRunning(true)
	defer l.setRunning(false)

	for {
		// Outcome is already logged and recorded.
		_ = l.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-l.deps.Clock.After(l.cfg.Interval):
		}
	}
}

// RunOnce performs a single discovery iteration and returns its outcome.
func (l *Loop) RunOnce(ctx context.Context) error {
	start := l.deps.Clock.Now()

	series, err := l.discover(ctx)
	if err != nil {
		failures := l.deps.Health.RecordFailure()
		metrics.DiscoveryPolls.WithLabelValues("failure").Inc()
		l.logger.Warn("discovery failed",
			"error", err,
			"consecutive_failures", failures,
		)
		l.record(start, 0, err)
		return err
	}

	l.deps.Health.RecordSuccess()
	metrics.DiscoveryPolls.WithLabelValues("success").Inc()
	metrics.DiscoveredSeries.Set(float64(len(series)))

	if len(series) > 0 {
		l.deps.Emitter.Emit(event.Discovery(series))
	}

	for _, s := range l.deps.Tracker.Observe(series) {
		l.deps.Emitter.Emit(event.MarketCreated(s))
	}

	now := l.deps.Clock.Now()
	var started int
	for _, s := range series {
		if s.Started(now) && l.deps.Sessions.Start(s) {
			started++
		}
	}

	l.logger.Debug("discovery complete",
		"series", len(series),
		"sessions_started", started,
		"duration", l.deps.Clock.Since(start),
	)
	l.record(start, len(series), nil)
	return nil
}

// Status returns the loop's last outcome.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// discover resolves the credential and calls the provider with a timeout.
func (l *Loop) discover(ctx context.Context) ([]model.SeriesSummary, error) {
	if l.deps.Credentials == nil {
		return nil, ErrMissingCredential
	}
	if _, err := l.deps.Credentials.Credential(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCredential, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	start := l.deps.Clock.Now()
	series, err := l.deps.Source.DiscoverSeries(callCtx)
	metrics.DiscoveryDuration.Observe(l.deps.Clock.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("discover series: %w", err)
	}
	return series, nil
}

func (l *Loop) record(at time.Time, series int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.status.Iterations++
	l.status.LastPollAt = at
	if err != nil {
		l.status.LastError = err.Error()
		return
	}
	l.status.LastError = ""
	l.status.LastSuccessAt = at
	l.status.LastSeries = series
}

func (l *Loop) setRunning(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Running = v
}
