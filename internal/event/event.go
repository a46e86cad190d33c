package event

import (
	"time"

	"github.com/rickgao/esports-bridge/internal/model"
)

// Type identifies the kind of event on the wire.
type Type string

const (
	TypeMarketCreated  Type = "market_created"
	TypeSeriesState    Type = "series_state"
	TypeCircuitBreaker Type = "circuit_breaker"
	TypeGameEvent      Type = "game_event"
)

// Action is the circuit breaker direction.
type Action string

const (
	ActionSuspend Action = "suspend"
	ActionResume  Action = "resume"
)

// Reason is a circuit breaker reason code. Each breaker owns its own set.
type Reason string

// DefaultPhase is reported when a frame does not specify a phase.
const DefaultPhase = "live"

// Event is the envelope sent to the consumer.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// MarketCreatedPayload announces a newly discovered series' market.
type MarketCreatedPayload struct {
	SeriesID   string   `json:"series_id"`
	MarketID   string   `json:"market_id"`
	Title      string   `json:"title"`
	Tournament string   `json:"tournament"`
	Teams      []string `json:"teams"`
	StartTime  string   `json:"start_time,omitempty"` // RFC 3339
}

// SeriesStatePayload carries one in-play frame.
type SeriesStatePayload struct {
	SeriesID  string    `json:"series_id"`
	Timestamp string    `json:"timestamp"` // RFC 3339
	GameState GameState `json:"game_state"`
}

// GameState is the normalized round-level state of a map.
type GameState struct {
	Map            string `json:"map"`
	Round          int    `json:"round"`
	TerroristScore int    `json:"terrorist_score"`
	CTScore        int    `json:"ct_score"`
	BombPlanted    bool   `json:"bomb_planted"`
	Phase          string `json:"phase"`
	LastAction     string `json:"last_action"`
}

// CircuitBreakerPayload suspends or resumes a single market.
type CircuitBreakerPayload struct {
	SeriesID string `json:"series_id"`
	MarketID string `json:"market_id"`
	Reason   Reason `json:"reason"`
	Action   Action `json:"action"`
}

// GameEventPayload is the discovery summary of one poll.
type GameEventPayload struct {
	Discovery []DiscoveredSeries `json:"discovery"`
}

// DiscoveredSeries is one entry of a discovery summary.
type DiscoveredSeries struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Tournament string   `json:"tournament"`
	Teams      []string `json:"teams"`
}

// MarketCreated builds the market_created event for a series.
func MarketCreated(s model.SeriesSummary) Event {
	p := MarketCreatedPayload{
		SeriesID:   s.ID,
		MarketID:   model.MarketID(s.ID),
		Title:      s.Title,
		Tournament: s.Tournament,
		Teams:      teams(s.Teams),
	}
	if s.ScheduledStart != nil {
		p.StartTime = FormatTime(*s.ScheduledStart)
	}
	return Event{Type: TypeMarketCreated, Payload: p}
}

// SeriesState builds a series_state event. An empty phase becomes DefaultPhase.
func SeriesState(seriesID string, at time.Time, gs GameState) Event {
	if gs.Phase == "" {
		gs.Phase = DefaultPhase
	}
	return Event{Type: TypeSeriesState, Payload: SeriesStatePayload{
		SeriesID:  seriesID,
		Timestamp: FormatTime(at),
		GameState: gs,
	}}
}

// CircuitBreaker builds a circuit_breaker event scoped to one series' market.
func CircuitBreaker(seriesID string, action Action, reason Reason) Event {
	return Event{Type: TypeCircuitBreaker, Payload: CircuitBreakerPayload{
		SeriesID: seriesID,
		MarketID: model.MarketID(seriesID),
		Reason:   reason,
		Action:   action,
	}}
}

// Discovery builds the game_event discovery summary.
func Discovery(series []model.SeriesSummary) Event {
	list := make([]DiscoveredSeries, 0, len(series))
	for _, s := range series {
		list = append(list, DiscoveredSeries{
			ID:         s.ID,
			Title:      s.Title,
			Tournament: s.Tournament,
			Teams:      teams(s.Teams),
		})
	}
	return Event{Type: TypeGameEvent, Payload: GameEventPayload{Discovery: list}}
}

// Keys returns the series and market the event is scoped to. Discovery
// summaries are not scoped and return empty strings.
func (e Event) Keys() (seriesID, marketID string) {
	switch p := e.Payload.(type) {
	case MarketCreatedPayload:
		return p.SeriesID, p.MarketID
	case SeriesStatePayload:
		return p.SeriesID, model.MarketID(p.SeriesID)
	case CircuitBreakerPayload:
		return p.SeriesID, p.MarketID
	}
	return "", ""
}

// FormatTime renders a wire timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// teams never returns nil so the wire shape is always an array.
func teams(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
