package inplay

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rickgao/esports-bridge/internal/model"
)

const (
	// DefaultScenarioID is the fallback scenario.
	DefaultScenarioID = "default"

	// DefaultMap is reported when a scenario does not name a map.
	DefaultMap = "de_mirage"
)

// ErrEmptyScenario is returned when neither the configured nor the default
// scenario has frames.
var ErrEmptyScenario = errors.New("scenario has no frames")

// BuiltinScenarios returns the scenarios compiled into the binary.
func BuiltinScenarios() map[string]model.Scenario {
	return map[string]model.Scenario{
		DefaultScenarioID: {
			ID:  DefaultScenarioID,
			Map: DefaultMap,
			Frames: []model.Frame{
				{Round: 1, TerroristScore: 0, CTScore: 1, LastAction: "ct_win_defuse"},
				{Round: 2, TerroristScore: 1, CTScore: 1, BombPlanted: true, LastAction: "t_win_bomb"},
				{Round: 3, TerroristScore: 2, CTScore: 1, LastAction: "t_win_elimination"},
				{Round: 4, TerroristScore: 2, CTScore: 2, LastAction: "ct_win_elimination"},
				{Round: 5, TerroristScore: 3, CTScore: 2, BombPlanted: true, LastAction: "t_win_bomb"},
				{Round: 6, TerroristScore: 3, CTScore: 3, LastAction: "ct_win_time"},
				{Round: 7, TerroristScore: 4, CTScore: 3, LastAction: "t_win_elimination"},
				{Round: 8, TerroristScore: 4, CTScore: 4, BombPlanted: true, LastAction: "ct_win_defuse"},
				{Round: 9, TerroristScore: 5, CTScore: 4, LastAction: "t_win_elimination"},
				{Round: 10, TerroristScore: 5, CTScore: 5, LastAction: "ct_win_elimination"},
				{Round: 11, TerroristScore: 6, CTScore: 5, BombPlanted: true, LastAction: "t_win_bomb"},
				{Round: 12, TerroristScore: 6, CTScore: 6, LastAction: "ct_win_elimination", Phase: "halftime"},
			},
		},
		"comeback": {
			ID:  "comeback",
			Map: "de_inferno",
			Frames: []model.Frame{
				{Round: 1, TerroristScore: 1, CTScore: 0, LastAction: "t_win_elimination"},
				{Round: 4, TerroristScore: 4, CTScore: 0, BombPlanted: true, LastAction: "t_win_bomb"},
				{Round: 8, TerroristScore: 7, CTScore: 1, LastAction: "t_win_elimination"},
				{Round: 12, TerroristScore: 10, CTScore: 2, LastAction: "t_win_elimination", Phase: "halftime"},
				{Round: 16, TerroristScore: 10, CTScore: 6, LastAction: "ct_win_defuse"},
				{Round: 20, TerroristScore: 11, CTScore: 9, BombPlanted: true, LastAction: "ct_win_defuse"},
				{Round: 23, TerroristScore: 11, CTScore: 12, LastAction: "ct_win_elimination"},
				{Round: 24, TerroristScore: 11, CTScore: 13, LastAction: "ct_win_time", Phase: "finished"},
			},
		},
		"early_blowout": {
			ID:  "early_blowout",
			Map: "de_nuke",
			Frames: []model.Frame{
				{Round: 1, TerroristScore: 1, CTScore: 0, LastAction: "t_win_elimination"},
				{Round: 2, TerroristScore: 2, CTScore: 0, LastAction: "t_win_elimination"},
				{Round: 3, TerroristScore: 3, CTScore: 0, BombPlanted: true, LastAction: "t_win_bomb"},
				// Feed glitch: a score no real match can reach by round 4.
				{Round: 4, TerroristScore: 13, CTScore: 0, LastAction: "score_correction"},
				{Round: 5, TerroristScore: 4, CTScore: 0, LastAction: "t_win_elimination"},
			},
		},
		"overtime": {
			ID:  "overtime",
			Map: "de_ancient",
			Frames: []model.Frame{
				{Round: 22, TerroristScore: 11, CTScore: 10, LastAction: "t_win_elimination"},
				{Round: 23, TerroristScore: 11, CTScore: 11, LastAction: "ct_win_defuse"},
				{Round: 24, TerroristScore: 12, CTScore: 11, BombPlanted: true, LastAction: "t_win_bomb"},
				{Round: 25, TerroristScore: 12, CTScore: 12, LastAction: "ct_win_time"},
				{Round: 26, TerroristScore: 13, CTScore: 12, LastAction: "t_win_elimination", Phase: "overtime"},
				{Round: 27, TerroristScore: 14, CTScore: 12, BombPlanted: true, LastAction: "t_win_bomb", Phase: "overtime"},
				{Round: 28, TerroristScore: 14, CTScore: 13, LastAction: "ct_win_defuse", Phase: "overtime"},
				{Round: 29, TerroristScore: 15, CTScore: 13, LastAction: "t_win_elimination", Phase: "overtime"},
				{Round: 30, TerroristScore: 16, CTScore: 13, LastAction: "t_win_elimination", Phase: "finished"},
			},
		},
	}
}

// scenarioFile is the on-disk scenario catalog.
type scenarioFile struct {
	Scenarios []model.Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a YAML scenario catalog.
func LoadScenarios(path string) (map[string]model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}

	out := make(map[string]model.Scenario, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %d: id is required", i)
		}
		if _, dup := out[s.ID]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate id", s.ID)
		}
		out[s.ID] = s
	}
	return out, nil
}

// Catalog returns the built-in scenarios overlaid with extra ones.
func Catalog(extra map[string]model.Scenario) map[string]model.Scenario {
	out := BuiltinScenarios()
	for id, s := range extra {
		out[id] = s
	}
	return out
}

// selectScenario resolves the configured scenario, falling back to the default.
func selectScenario(catalog map[string]model.Scenario, id string) (model.Scenario, bool, error) {
	if s, ok := catalog[id]; ok && len(s.Frames) > 0 {
		return s, false, nil
	}
	if s, ok := catalog[DefaultScenarioID]; ok && len(s.Frames) > 0 {
		return s, id != DefaultScenarioID, nil
	}
	return model.Scenario{}, false, ErrEmptyScenario
}
