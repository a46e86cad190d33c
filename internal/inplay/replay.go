package inplay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/esports-bridge/internal/model"
)

// replayFeed walks a scenario one frame per tick.
type replayFeed struct {
	scenario model.Scenario

	mu     sync.Mutex
	cursor int
}

func replayFactory(scenarioID string, catalog map[string]model.Scenario, logger *slog.Logger) feedFactory {
	return func(model.SeriesSummary) (feed, error) {
		scenario, fellBack, err := selectScenario(catalog, scenarioID)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenarioID, err)
		}
		if fellBack {
			logger.Warn("scenario unknown or empty, using default", "scenario_id", scenarioID)
		}
		return &replayFeed{scenario: scenario}, nil
	}
}

func (f *replayFeed) next(context.Context) (model.Frame, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	last := len(f.scenario.Frames) - 1
	frame := f.scenario.Frames[min(f.cursor, last)]
	f.cursor++
	return frame, true, f.cursor > last
}

func (f *replayFeed) progress() feedProgress {
	f.mu.Lock()
	defer f.mu.Unlock()

	return feedProgress{
		source:     SourceReplay,
		scenarioID: f.scenario.ID,
		mapName:    mapName(f.scenario),
		cursor:     f.cursor,
		frames:     len(f.scenario.Frames),
	}
}

func mapName(s model.Scenario) string {
	if s.Map == "" {
		return DefaultMap
	}
	return s.Map
}
