package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/esports-bridge/internal/config"
	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/inplay"
	"github.com/rickgao/esports-bridge/internal/market"
)

const seriesResponse = `{"data":{"allSeries":{
	"pageInfo":{"hasNextPage":false,"endCursor":""},
	"edges":[{"node":{
		"id":"2843071",
		"title":{"nameShortened":"cs2"},
		"tournament":{"nameShortened":"IEM Cologne"},
		"format":{"nameShortened":"bo3"},
		"teams":[{"baseInfo":{"name":"Team Liquid"}},{"baseInfo":{"name":"NAVI"}}]
	}}]
}}}`

// gridServer answers every discovery query with one in-progress series.
type gridServer struct {
	*httptest.Server
	requests atomic.Int32
}

func newGridServer(t *testing.T) *gridServer {
	t.Helper()
	gs := &gridServer{}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gs.requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesResponse))
	}))
	t.Cleanup(gs.Close)
	return gs
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// engine is a fake consumer that records every event it receives.
type engine struct {
	*httptest.Server
	mu     sync.Mutex
	conn   *websocket.Conn
	conns  atomic.Int32
	events chan envelope
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	e := &engine{events: make(chan envelope, 100)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		e.mu.Lock()
		e.conn = conn
		e.mu.Unlock()
		e.conns.Add(1)

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			if json.Unmarshal(msg, &env) == nil {
				e.events <- env
			}
		}
	}))
	t.Cleanup(e.Close)
	return e
}

func (e *engine) url() string {
	return "ws" + strings.TrimPrefix(e.URL, "http")
}

func (e *engine) drop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		e.conn.Close()
	}
}

func (e *engine) next(t *testing.T) envelope {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return envelope{}
	}
}

func testConfig(gridURL, engineURL string) *config.BridgeConfig {
	return &config.BridgeConfig{
		Instance: config.InstanceConfig{ID: "bridge-test"},
		Grid: config.GridConfig{
			Endpoint:   gridURL,
			APIKey:     "test-key",
			Timeout:    2 * time.Second,
			MaxRetries: 0,
			Lookback:   6 * time.Hour,
			Lookahead:  24 * time.Hour,
			PageSize:   50,
			MaxPages:   5,
		},
		Consumer: config.ConsumerConfig{
			URL:          engineURL,
			PingInterval: 30 * time.Second,
			WriteTimeout: 2 * time.Second,
		},
		Discovery: config.DiscoveryConfig{Interval: 30 * time.Second, Timeout: 2 * time.Second},
		InPlay:    config.InPlayConfig{ScenarioID: inplay.DefaultScenarioID},
	}
}

func stopBridge(t *testing.T, b *Bridge) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.NoError(t, b.Stop(ctx))
}

func TestBridge_DiscoveryToInPlay(t *testing.T) {
	gs := newGridServer(t)
	eng := newEngine(t)
	clock := clockwork.NewFakeClock()

	b, err := New(Options{Config: testConfig(gs.URL, eng.url()), Clock: clock})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer stopBridge(t, b)

	// First open triggers an immediate discovery iteration.
	ev := eng.next(t)
	assert.Equal(t, string(event.TypeGameEvent), ev.Type)

	ev = eng.next(t)
	require.Equal(t, string(event.TypeMarketCreated), ev.Type)
	var created event.MarketCreatedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &created))
	assert.Equal(t, "2843071", created.SeriesID)
	assert.Equal(t, "series_2843071_winner", created.MarketID)
	assert.Equal(t, []string{"Team Liquid", "NAVI"}, created.Teams)

	require.Eventually(t, func() bool {
		return b.InPlay.State("2843071") == inplay.Running
	}, 2*time.Second, 10*time.Millisecond)

	// Discovery wait and the session ticker.
	clock.BlockUntil(2)
	clock.Advance(inplay.DefaultTickInterval)

	ev = eng.next(t)
	require.Equal(t, string(event.TypeSeriesState), ev.Type)
	var state event.SeriesStatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &state))
	assert.Equal(t, "2843071", state.SeriesID)
	assert.Equal(t, 1, state.GameState.Round)
	assert.Equal(t, inplay.DefaultMap, state.GameState.Map)

	require.Eventually(t, func() bool {
		m, ok := b.Tracker.Market("2843071")
		return ok && m.LastState != nil && m.LastState.Round == 1
	}, 2*time.Second, 10*time.Millisecond)

	m, _ := b.Tracker.Market("2843071")
	assert.Equal(t, market.StatusActive, m.Status)
	assert.Equal(t, int32(1), gs.requests.Load())
}

const seriesStateResponse = `{"data":{"series":{"games":[
	{"segments":[{"number":7,"team1Score":4,"team2Score":3,"isMapFinished":false}]}
]}}}`

func TestBridge_GridInPlaySource(t *testing.T) {
	var statePolls atomic.Int32
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Query, "segments") {
			statePolls.Add(1)
			w.Write([]byte(seriesStateResponse))
			return
		}
		w.Write([]byte(seriesResponse))
	}))
	defer gql.Close()

	eng := newEngine(t)
	clock := clockwork.NewFakeClock()

	cfg := testConfig(gql.URL, eng.url())
	cfg.InPlay.Source = inplay.SourceGrid
	cfg.InPlay.PollInterval = 2 * time.Second
	cfg.InPlay.IdleTimeout = time.Hour

	b, err := New(Options{Config: cfg, Clock: clock})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer stopBridge(t, b)

	eng.next(t) // discovery summary
	eng.next(t) // market_created

	require.Eventually(t, func() bool {
		return b.InPlay.State("2843071") == inplay.Running
	}, 2*time.Second, 10*time.Millisecond)

	// Discovery wait and the poll ticker.
	clock.BlockUntil(2)
	clock.Advance(2 * time.Second)

	ev := eng.next(t)
	require.Equal(t, string(event.TypeSeriesState), ev.Type)
	var state event.SeriesStatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &state))
	assert.Equal(t, "2843071", state.SeriesID)
	assert.Equal(t, 7, state.GameState.Round)
	assert.Equal(t, 4, state.GameState.TerroristScore)
	assert.Equal(t, 3, state.GameState.CTScore)
	assert.Equal(t, inplay.LiveMap, state.GameState.Map)
	assert.False(t, state.GameState.BombPlanted)

	sessions := b.InPlay.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, inplay.SourceGrid, sessions[0].Source)
	assert.GreaterOrEqual(t, statePolls.Load(), int32(1))
}

func TestBridge_ReconnectDoesNotRestartDiscovery(t *testing.T) {
	gs := newGridServer(t)
	eng := newEngine(t)
	clock := clockwork.NewFakeClock()

	b, err := New(Options{Config: testConfig(gs.URL, eng.url()), Clock: clock})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer stopBridge(t, b)

	eng.next(t) // discovery summary
	eng.next(t) // market_created

	eng.drop()
	require.Eventually(t, func() bool { return !b.Consumer.IsConnected() }, 2*time.Second, 10*time.Millisecond)

	// Discovery wait, session ticker and the reconnect delay.
	clock.BlockUntil(3)
	clock.Advance(3 * time.Second)

	require.Eventually(t, func() bool { return eng.conns.Load() == 2 && b.Consumer.IsConnected() }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), gs.requests.Load())
	assert.Equal(t, int64(1), b.Discovery.Status().Iterations)
}

func TestBridge_ProviderOutageSuspendsMarkets(t *testing.T) {
	var failing atomic.Bool
	var requests atomic.Int32
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if failing.Load() {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesResponse))
	}))
	defer gql.Close()

	eng := newEngine(t)
	clock := clockwork.NewFakeClock()

	b, err := New(Options{Config: testConfig(gql.URL, eng.url()), Clock: clock})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer stopBridge(t, b)

	eng.next(t) // discovery summary
	eng.next(t) // market_created

	failing.Store(true)
	for i := 1; i <= 3; i++ {
		clock.BlockUntil(2)
		clock.Advance(30 * time.Second)
		want := i
		require.Eventually(t, func() bool {
			return b.Breaker.Stats().ConsecutiveFailures == want
		}, 2*time.Second, 10*time.Millisecond)
	}

	// Frames from the session may interleave with the breaker event.
	var cb event.CircuitBreakerPayload
	require.Eventually(t, func() bool {
		select {
		case ev := <-eng.events:
			if ev.Type != string(event.TypeCircuitBreaker) {
				return false
			}
			return json.Unmarshal(ev.Payload, &cb) == nil
		default:
			return false
		}
	}, 3*time.Second, 5*time.Millisecond)

	assert.Equal(t, event.ActionSuspend, cb.Action)
	assert.Equal(t, "series_2843071_winner", cb.MarketID)
	assert.True(t, b.Breaker.Stats().FeedsSuspended)

	m, ok := b.Tracker.Market("2843071")
	require.True(t, ok)
	assert.Equal(t, market.StatusSuspended, m.Status)
}

func TestNew_JournalRequiresDatabase(t *testing.T) {
	cfg := testConfig("http://localhost:1", "ws://localhost:1/ws")
	cfg.Journal.Enabled = true

	_, err := New(Options{Config: cfg})
	assert.Error(t, err)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
