package model

import (
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Discovery Types
// -----------------------------------------------------------------------------

// SeriesSummary is a scheduled match as reported by the telemetry provider.
// Identity is ID; other fields may be refreshed by later discovery polls.
type SeriesSummary struct {
	ID             string     // Provider series ID
	Title          string     // Game title (e.g., "CS2")
	Tournament     string     // Tournament short name
	Format         string     // Series format (e.g., "Bo3"), empty from the minimal query
	Teams          []string   // Team names, usually two
	ScheduledStart *time.Time // Nil when the provider did not report a start time
	InvalidStart   string     // Raw start time the provider sent but could not be parsed
}

// Started reports whether the series' scheduled start is at or before now.
// A series without a scheduled start counts as started; one whose start time
// could not be parsed does not.
func (s SeriesSummary) Started(now time.Time) bool {
	if s.InvalidStart != "" {
		return false
	}
	if s.ScheduledStart == nil {
		return true
	}
	return !s.ScheduledStart.After(now)
}

// -----------------------------------------------------------------------------
// Market Identity
// -----------------------------------------------------------------------------

const (
	marketPrefix = "series_"
	marketSuffix = "_winner"
)

// MarketID derives the market identity for a series ("series_<id>_winner").
func MarketID(seriesID string) string {
	return marketPrefix + seriesID + marketSuffix
}

// SeriesIDFromMarket inverts MarketID. Returns false for IDs that were not
// produced by MarketID.
func SeriesIDFromMarket(marketID string) (string, bool) {
	if !strings.HasPrefix(marketID, marketPrefix) || !strings.HasSuffix(marketID, marketSuffix) {
		return "", false
	}
	id := marketID[len(marketPrefix) : len(marketID)-len(marketSuffix)]
	if id == "" {
		return "", false
	}
	return id, true
}

// -----------------------------------------------------------------------------
// Replay Types
// -----------------------------------------------------------------------------

// Frame is one immutable step of a scenario: the state at the end of a round.
type Frame struct {
	Round          int    `yaml:"round"`
	TerroristScore int    `yaml:"terrorist_score"`
	CTScore        int    `yaml:"ct_score"`
	BombPlanted    bool   `yaml:"bomb_planted"`
	LastAction     string `yaml:"last_action"`
	Phase          string `yaml:"phase"` // Empty means "live"
}

// ScoreDiff returns the absolute score differential.
func (f Frame) ScoreDiff() int {
	d := f.TerroristScore - f.CTScore
	if d < 0 {
		return -d
	}
	return d
}

// Scenario is a named, ordered sequence of frames replayed for a series.
type Scenario struct {
	ID     string  `yaml:"id"`
	Map    string  `yaml:"map"`
	Frames []Frame `yaml:"frames"`
}

// -----------------------------------------------------------------------------
// Live Types
// -----------------------------------------------------------------------------

// RoundSnapshot is the newest round reported by the live telemetry feed.
type RoundSnapshot struct {
	Game        int // 1-based map number within the series
	Round       int // Round number within the map
	Team1Score  int
	Team2Score  int
	MapFinished bool
}

// After reports whether r is a later round than prev.
func (r RoundSnapshot) After(prev RoundSnapshot) bool {
	if r.Game != prev.Game {
		return r.Game > prev.Game
	}
	return r.Round > prev.Round
}
