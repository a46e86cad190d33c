package grid

import (
	"context"
	"errors"

	"github.com/rickgao/esports-bridge/internal/model"
)

// ErrSeriesNotFound is returned when the provider has no series for an ID.
var ErrSeriesNotFound = errors.New("series not found")

// LatestRound returns the newest round of a series: the last segment of the
// last game that has any. The second result is false while no round has
// been reported yet.
func (c *Client) LatestRound(ctx context.Context, seriesID string) (model.RoundSnapshot, bool, error) {
	key, err := c.credentials.Credential()
	if err != nil {
		return model.RoundSnapshot{}, false, &ProviderError{Op: "series state", Err: err}
	}

	var data seriesStateData
	if err := c.query(ctx, key, seriesStateQuery, map[string]any{"id": seriesID}, &data); err != nil {
		return model.RoundSnapshot{}, false, &ProviderError{Op: "series state", Err: err}
	}
	if data.Series == nil {
		return model.RoundSnapshot{}, false, &ProviderError{Op: "series state", Err: ErrSeriesNotFound}
	}

	games := data.Series.Games
	for i := len(games) - 1; i >= 0; i-- {
		segs := games[i].Segments
		if len(segs) == 0 {
			continue
		}
		last := segs[len(segs)-1]
		return model.RoundSnapshot{
			Game:        i + 1,
			Round:       last.Number,
			Team1Score:  last.Team1Score,
			Team2Score:  last.Team2Score,
			MapFinished: last.IsMapFinished,
		}, true, nil
	}
	return model.RoundSnapshot{}, false, nil
}
