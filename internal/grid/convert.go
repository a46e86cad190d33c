package grid

import (
	"time"

	"github.com/rickgao/esports-bridge/internal/model"
)

// ParseTimestamp parses a provider timestamp. Returns nil for empty or invalid input.
func ParseTimestamp(iso string) *time.Time {
	if iso == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return nil
		}
	}

	t = t.UTC()
	return &t
}

// toSummary converts a series node to the shared model. A start time that
// is present but unparseable is kept in InvalidStart.
func (n seriesNode) toSummary() model.SeriesSummary {
	s := model.SeriesSummary{
		ID:             n.ID,
		ScheduledStart: ParseTimestamp(n.StartTimeScheduled),
	}
	if s.ScheduledStart == nil && n.StartTimeScheduled != "" {
		s.InvalidStart = n.StartTimeScheduled
	}
	if n.Title != nil {
		s.Title = n.Title.NameShortened
	}
	if n.Tournament != nil {
		s.Tournament = n.Tournament.NameShortened
	}
	if n.Format != nil {
		s.Format = n.Format.NameShortened
	}
	for _, team := range n.Teams {
		if team.BaseInfo != nil && team.BaseInfo.Name != "" {
			s.Teams = append(s.Teams, team.BaseInfo.Name)
		}
	}
	return s
}
