package market

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/esports-bridge/internal/event"
	"github.com/rickgao/esports-bridge/internal/model"
)

// Status is the trading status of a market as last announced to the consumer.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Market is a tracked series market.
type Market struct {
	ID         string     `json:"market_id"`
	SeriesID   string     `json:"series_id"`
	Title      string     `json:"title"`
	Tournament string     `json:"tournament"`
	Teams      []string   `json:"teams"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason,omitempty"` // Reason of the last breaker transition
	Active     bool       `json:"active"`           // Present in the latest discovery
	CreatedAt  time.Time  `json:"created_at"`

	LastState *event.GameState `json:"last_state,omitempty"`
}

// trackerState holds the thread-safe market sets.
type trackerState struct {
	mu sync.RWMutex

	// All series ever announced, indexed by series ID.
	known map[string]*Market

	// Market IDs from the latest successful discovery.
	activeSet map[string]struct{}
}

func newState() *trackerState {
	return &trackerState{
		known:     make(map[string]*Market),
		activeSet: make(map[string]struct{}),
	}
}

// observe replaces the active set and returns first-seen series (write-locked).
func (s *trackerState) observe(series []model.SeriesSummary, now time.Time) []model.SeriesSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []model.SeriesSummary
	active := make(map[string]struct{}, len(series))

	for _, ser := range series {
		if ser.ID == "" {
			continue
		}
		marketID := model.MarketID(ser.ID)
		active[marketID] = struct{}{}

		if m, ok := s.known[ser.ID]; ok {
			// Refresh descriptive fields; identity and status are kept.
			m.Title = ser.Title
			m.Tournament = ser.Tournament
			m.Teams = append([]string(nil), ser.Teams...)
			m.StartTime = ser.ScheduledStart
			continue
		}

		s.known[ser.ID] = &Market{
			ID:         marketID,
			SeriesID:   ser.ID,
			Title:      ser.Title,
			Tournament: ser.Tournament,
			Teams:      append([]string(nil), ser.Teams...),
			StartTime:  ser.ScheduledStart,
			Status:     StatusActive,
			CreatedAt:  now,
		}
		fresh = append(fresh, ser)
	}

	s.activeSet = active
	return fresh
}

// activeMarkets returns the sorted active market IDs (read-locked).
func (s *trackerState) activeMarkets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.activeSet))
	for id := range s.activeSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// isKnown reports whether a series was ever announced (read-locked).
func (s *trackerState) isKnown(seriesID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.known[seriesID]
	return ok
}

// setStatus records a breaker transition (write-locked).
func (s *trackerState) setStatus(seriesID string, status Status, reason string) (old Status, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.known[seriesID]
	if !ok {
		return "", false
	}
	old = m.Status
	m.Status = status
	m.Reason = reason
	return old, true
}

// getMarket returns a copy of a market (read-locked).
func (s *trackerState) getMarket(seriesID string) (Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.known[seriesID]
	if !ok {
		return Market{}, false
	}
	out := *m
	_, out.Active = s.activeSet[m.ID]
	return out, true
}

// snapshot returns copies of all known markets sorted by market ID (read-locked).
func (s *trackerState) snapshot() []Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Market, 0, len(s.known))
	for _, m := range s.known {
		c := *m
		_, c.Active = s.activeSet[m.ID]
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
