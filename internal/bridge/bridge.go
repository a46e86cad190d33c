package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/auth"
	"github.com/rickgao/esports-bridge/internal/breaker"
	"github.com/rickgao/esports-bridge/internal/config"
	"github.com/rickgao/esports-bridge/internal/connection"
	"github.com/rickgao/esports-bridge/internal/discovery"
	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/grid"
	"github.com/rickgao/esports-bridge/internal/inplay"
	"github.com/rickgao/esports-bridge/internal/journal"
	"github.com/rickgao/esports-bridge/internal/market"
	"github.com/rickgao/esports-bridge/internal/model"
	"github.com/rickgao/esports-bridge/internal/ops"
)

// gridRetryBackoff is the base delay between GRID retries.
const gridRetryBackoff = 500 * time.Millisecond

// Options configures a Bridge.
type Options struct {
	Config *config.BridgeConfig

	// Scenarios are merged over the built-in catalog.
	Scenarios map[string]model.Scenario

	// DB receives journal batches. Required when the journal is enabled.
	DB journal.BatchSender

	// Clock drives every timer in the bridge. Defaults to the real clock.
	Clock clockwork.Clock

	// HTTPClient overrides the client used for GRID requests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Bridge wires the components together.
type Bridge struct {
	cfg    *config.BridgeConfig
	logger *slog.Logger

	Consumer  *connection.Manager
	Tracker   *market.Tracker
	Breaker   *breaker.Provider
	InPlay    *inplay.Provider
	Grid      *grid.Client
	Discovery *discovery.Loop
	Journal   *journal.Writer // nil when disabled

	mu               sync.Mutex
	ctx              context.Context
	discoveryStarted bool
}

// New builds a Bridge. Nothing runs until Start.
func New(opts Options) (*Bridge, error) {
	if opts.Config == nil {
		return nil, errors.New("bridge: config is required")
	}
	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	b := &Bridge{cfg: cfg, logger: logger}

	b.Consumer = connection.NewManager(connection.ManagerConfig{
		URL: cfg.Consumer.URL,
		Client: connection.ClientConfig{
			PingInterval: cfg.Consumer.PingInterval,
			WriteTimeout: cfg.Consumer.WriteTimeout,
		},
	}, clock, logger.With("component", "consumer"))

	b.Tracker = market.NewTracker(market.DefaultConfig(), clock, logger.With("component", "tracker"))

	fanout := event.Fanout{b.Consumer, b.Tracker}
	if cfg.Journal.Enabled {
		if opts.DB == nil {
			return nil, errors.New("bridge: journal enabled without a database")
		}
		b.Journal = journal.New(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, opts.DB, clock, logger.With("component", "journal"))
		fanout = append(fanout, b.Journal)
	}

	b.Breaker = breaker.New(breaker.DefaultConfig(), b.Tracker, fanout, logger.With("component", "breaker"))

	credentials := auth.NewSource(cfg.Grid.APIKey, cfg.Grid.APIKeyFile)

	gridOpts := []grid.ClientOption{
		grid.WithTimeout(cfg.Grid.Timeout),
		grid.WithRetries(cfg.Grid.MaxRetries, gridRetryBackoff),
		grid.WithLogger(logger.With("component", "grid")),
		grid.WithClock(clock),
		grid.WithWindow(cfg.Grid.Lookback, cfg.Grid.Lookahead),
		grid.WithPaging(cfg.Grid.PageSize, cfg.Grid.MaxPages),
	}
	if opts.HTTPClient != nil {
		gridOpts = append(gridOpts, grid.WithHTTPClient(opts.HTTPClient))
	}
	b.Grid = grid.NewClient(cfg.Grid.Endpoint, credentials, gridOpts...)

	inplayLogger := logger.With("component", "inplay")
	switch cfg.InPlay.Source {
	case inplay.SourceGrid:
		b.InPlay = inplay.NewLive(inplay.LiveConfig{
			PollInterval: cfg.InPlay.PollInterval,
			IdleTimeout:  cfg.InPlay.IdleTimeout,
		}, b.Grid, fanout, clock, inplayLogger)
	default:
		b.InPlay = inplay.New(inplay.Config{
			ScenarioID: cfg.InPlay.ScenarioID,
		}, inplay.Catalog(opts.Scenarios), fanout, clock, inplayLogger)
	}

	b.Discovery = discovery.New(discovery.Config{
		Interval: cfg.Discovery.Interval,
		Timeout:  cfg.Discovery.Timeout,
	}, discovery.Deps{
		Credentials: credentials,
		Source:      b.Grid,
		Tracker:     b.Tracker,
		Health:      b.Breaker,
		Sessions:    b.InPlay,
		Emitter:     fanout,
		Clock:       clock,
	}, logger.With("component", "discovery"))

	b.Consumer.OnFirstOpen(b.startDiscovery)

	return b, nil
}

// Start launches the journal and the consumer channel. Discovery follows
// once the consumer link first opens.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if b.Journal != nil {
		if err := b.Journal.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
	}

	if err := b.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer channel: %w", err)
	}

	b.logger.Info("bridge started",
		"instance_id", b.cfg.Instance.ID,
		"consumer_url", b.cfg.Consumer.URL,
		"grid_endpoint", b.cfg.Grid.Endpoint,
		"inplay_source", b.cfg.InPlay.Source,
		"scenario_id", b.cfg.InPlay.ScenarioID,
		"journal", b.Journal != nil,
	)
	return nil
}

// Run starts the bridge, blocks until ctx is done, then stops it.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return b.Stop(shutdownCtx)
}

// Stop shuts components down producers first so the journal sees every
// event that was emitted.
func (b *Bridge) Stop(ctx context.Context) error {
	b.logger.Info("stopping bridge")

	var errs []error

	b.mu.Lock()
	started := b.discoveryStarted
	b.mu.Unlock()
	if started {
		if err := b.Discovery.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop discovery: %w", err))
		}
	}

	b.InPlay.Close()

	if err := b.Consumer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop consumer channel: %w", err))
	}

	if b.Journal != nil {
		if err := b.Journal.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop journal: %w", err))
		}
	}

	b.logger.Info("bridge stopped")
	return errors.Join(errs...)
}

// Sources exposes the components to the ops server.
func (b *Bridge) Sources() ops.Sources {
	src := ops.Sources{
		Consumer:  b.Consumer,
		Breaker:   b.Breaker,
		Discovery: b.Discovery,
		Markets:   b.Tracker,
		Sessions:  b.InPlay,
	}
	if b.Journal != nil {
		src.Journal = b.Journal
	}
	return src
}

// startDiscovery runs on the consumer's first open.
func (b *Bridge) startDiscovery() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.discoveryStarted || b.ctx == nil {
		return
	}
	b.discoveryStarted = true
	if err := b.Discovery.Start(b.ctx); err != nil {
		b.logger.Error("failed to start discovery", "error", err)
	}
}
