package inplay

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/metrics"
	"github.com/rickgao/esports-bridge/internal/model"
)

// ReasonEarlyRoundScoreAnomaly is the reason code of the anomaly breaker.
const ReasonEarlyRoundScoreAnomaly event.Reason = "early_round_score_anomaly"

// Anomaly rule: a score differential of at least AnomalyScoreDiff before
// round AnomalyRoundLimit.
const (
	AnomalyScoreDiff  = 12
	AnomalyRoundLimit = 10
)

// DefaultTickInterval is the fixed replay cadence.
const DefaultTickInterval = 10 * time.Second

// State is the lifecycle state of a series' replay.
type State int

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Session sources.
const (
	SourceReplay = "replay"
	SourceGrid   = "grid"
)

// Config holds provider configuration.
type Config struct {
	ScenarioID   string
	TickInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ScenarioID:   DefaultScenarioID,
		TickInterval: DefaultTickInterval,
	}
}

// SessionInfo is a read-only view of a running session.
type SessionInfo struct {
	SeriesID   string    `json:"series_id"`
	Source     string    `json:"source"`
	ScenarioID string    `json:"scenario_id,omitempty"`
	Map        string    `json:"map"`
	Cursor     int       `json:"cursor"`
	Frames     int       `json:"frames"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
}

// feed produces the frames of one session. next is only called from the
// session's goroutine; progress may be called concurrently.
type feed interface {
	// next returns the frame for this tick, whether there is one to emit,
	// and whether the session ends after it.
	next(ctx context.Context) (frame model.Frame, emit, done bool)
	progress() feedProgress
}

type feedProgress struct {
	source     string
	scenarioID string
	mapName    string
	cursor     int
	frames     int
}

// feedFactory builds the feed for a newly started series.
type feedFactory func(series model.SeriesSummary) (feed, error)

type session struct {
	seriesID  string
	feed      feed
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Provider runs one in-play session per started series. It is safe for
// concurrent use.
type Provider struct {
	interval time.Duration
	newFeed  feedFactory
	emitter  event.Emitter
	clock    clockwork.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	finished map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a provider that replays scenarios. A nil catalog means the
// built-in scenarios.
func New(cfg Config, catalog map[string]model.Scenario, emitter event.Emitter, clock clockwork.Clock, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = BuiltinScenarios()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	return newProvider(cfg.TickInterval, replayFactory(cfg.ScenarioID, catalog, logger), emitter, clock, logger)
}

func newProvider(interval time.Duration, factory feedFactory, emitter event.Emitter, clock clockwork.Clock, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if emitter == nil {
		emitter = event.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Provider{
		interval: interval,
		newFeed:  factory,
		emitter:  emitter,
		clock:    clock,
		logger:   logger,
		sessions: make(map[string]*session),
		finished: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins a session for the series. It returns false without side
// effects when a session is already running, the series has finished, or
// no feed can be built for it.
func (p *Provider) Start(series model.SeriesSummary) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx.Err() != nil {
		return false
	}
	if _, ok := p.sessions[series.ID]; ok {
		return false
	}
	if _, ok := p.finished[series.ID]; ok {
		return false
	}

	f, err := p.newFeed(series)
	if err != nil {
		p.logger.Warn("in-play session not started", "series_id", series.ID, "error", err)
		return false
	}

	ctx, cancel := context.WithCancel(p.ctx)
	sess := &session{
		seriesID:  series.ID,
		feed:      f,
		startedAt: p.clock.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	p.sessions[series.ID] = sess
	metrics.ActiveSessions.Inc()

	info := f.progress()
	p.logger.Info("in-play session started",
		"series_id", series.ID,
		"source", info.source,
		"scenario_id", info.scenarioID,
		"frames", info.frames,
	)

	p.wg.Add(1)
	go p.run(sess)

	return true
}

// Stop cancels a series' session. It is a no-op when no session exists.
func (p *Provider) Stop(seriesID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[seriesID]
	if !ok {
		return
	}
	sess.cancel()
	delete(p.sessions, seriesID)
	metrics.ActiveSessions.Dec()

	p.logger.Info("in-play session stopped", "series_id", seriesID, "cursor", sess.feed.progress().cursor)
}

// Close stops every session and waits for their goroutines to exit.
func (p *Provider) Close() {
	p.mu.Lock()
	p.cancel()
	metrics.ActiveSessions.Sub(float64(len(p.sessions)))
	for id, sess := range p.sessions {
		sess.cancel()
		delete(p.sessions, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// State returns the lifecycle state of a series' session.
func (p *Provider) State(seriesID string) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[seriesID]; ok {
		return Running
	}
	if _, ok := p.finished[seriesID]; ok {
		return Finished
	}
	return NotStarted
}

// Sessions returns the running sessions sorted by series ID.
func (p *Provider) Sessions() []SessionInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]SessionInfo, 0, len(p.sessions))
	for _, sess := range p.sessions {
		info := sess.feed.progress()
		out = append(out, SessionInfo{
			SeriesID:   sess.seriesID,
			Source:     info.source,
			ScenarioID: info.scenarioID,
			Map:        info.mapName,
			Cursor:     info.cursor,
			Frames:     info.frames,
			State:      Running.String(),
			StartedAt:  sess.startedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeriesID < out[j].SeriesID })
	return out
}

// run ticks one session until it finishes or is cancelled.
func (p *Provider) run(sess *session) {
	defer p.wg.Done()

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.Chan():
			if done := p.tick(sess); done {
				return
			}
		}
	}
}

// current reports whether sess is still the series' running session.
func (p *Provider) current(sess *session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[sess.seriesID] == sess
}

// tick asks the session's feed for a frame and emits it. It returns true
// when the session has ended, either by finishing or by being replaced.
func (p *Provider) tick(sess *session) bool {
	if !p.current(sess) {
		return true
	}

	// The feed may block on the network, so it runs outside the lock.
	frame, emit, done := sess.feed.next(sess.ctx)

	p.mu.Lock()
	if p.sessions[sess.seriesID] != sess {
		p.mu.Unlock()
		return true
	}
	if done {
		sess.cancel()
		delete(p.sessions, sess.seriesID)
		p.finished[sess.seriesID] = struct{}{}
		metrics.ActiveSessions.Dec()
	}
	p.mu.Unlock()

	info := sess.feed.progress()

	// Emission happens outside the lock so a slow consumer write does not
	// hold up other sessions.
	if emit {
		p.emitter.Emit(event.SeriesState(sess.seriesID, p.clock.Now(), gameState(info.mapName, frame)))
		metrics.FramesEmitted.Inc()

		if isAnomaly(frame) {
			metrics.Anomalies.Inc()
			p.logger.Warn("early round score anomaly",
				"series_id", sess.seriesID,
				"round", frame.Round,
				"terrorist_score", frame.TerroristScore,
				"ct_score", frame.CTScore,
			)
			p.emitter.Emit(event.CircuitBreaker(sess.seriesID, event.ActionSuspend, ReasonEarlyRoundScoreAnomaly))
		}
	}

	if done {
		p.logger.Info("in-play session finished", "series_id", sess.seriesID, "source", info.source, "frames", info.frames)
	}
	return done
}

// isAnomaly reports whether a frame trips the early-round score rule.
func isAnomaly(f model.Frame) bool {
	return f.ScoreDiff() >= AnomalyScoreDiff && f.Round < AnomalyRoundLimit
}

func gameState(mapName string, f model.Frame) event.GameState {
	return event.GameState{
		Map:            mapName,
		Round:          f.Round,
		TerroristScore: f.TerroristScore,
		CTScore:        f.CTScore,
		BombPlanted:    f.BombPlanted,
		Phase:          f.Phase,
		LastAction:     f.LastAction,
	}
}
