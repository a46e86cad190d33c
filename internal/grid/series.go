package grid

import (
	"context"
	"fmt"

	"github.com/rickgao/esports-bridge/internal/metrics"
	"github.com/rickgao/esports-bridge/internal/model"
)

// DiscoverSeries lists series scheduled inside the discovery window.
//
// The rich query is tried first; any failure other than cancellation is
// retried once with the minimal query. Failure of both is a *ProviderError.
func (c *Client) DiscoverSeries(ctx context.Context) ([]model.SeriesSummary, error) {
	key, err := c.credentials.Credential()
	if err != nil {
		return nil, &ProviderError{Op: "discover series", Err: err}
	}

	series, err := c.listSeries(ctx, key, richSeriesQuery)
	if err == nil {
		return series, nil
	}
	if ctx.Err() != nil {
		return nil, &ProviderError{Op: "discover series", Err: err}
	}

	c.logger.Warn("rich series query failed, retrying with minimal query", "error", err)
	metrics.QueryFallbacks.Inc()

	series, err = c.listSeries(ctx, key, minimalSeriesQuery)
	if err != nil {
		return nil, &ProviderError{Op: "discover series (minimal)", Err: err}
	}
	return series, nil
}

// listSeries pages through allSeries with one query shape.
func (c *Client) listSeries(ctx context.Context, key, q string) ([]model.SeriesSummary, error) {
	now := c.clock.Now().UTC()
	vars := map[string]any{
		"start": now.Add(-c.lookback).Format("2006-01-02T15:04:05Z07:00"),
		"end":   now.Add(c.lookahead).Format("2006-01-02T15:04:05Z07:00"),
		"first": c.pageSize,
	}

	var all []model.SeriesSummary
	seen := make(map[string]struct{})

	for page := 0; page < c.maxPages; page++ {
		var data allSeriesData
		if err := c.query(ctx, key, q, vars, &data); err != nil {
			return nil, fmt.Errorf("list series page %d: %w", page+1, err)
		}

		for _, edge := range data.AllSeries.Edges {
			if edge.Node.ID == "" {
				continue
			}
			if _, dup := seen[edge.Node.ID]; dup {
				continue
			}
			seen[edge.Node.ID] = struct{}{}

			summary := edge.Node.toSummary()
			if summary.InvalidStart != "" {
				c.logger.Warn("unparseable scheduled start, series will not start",
					"series_id", summary.ID,
					"start_time_scheduled", summary.InvalidStart,
				)
			}
			all = append(all, summary)
		}

		info := data.AllSeries.PageInfo
		if !info.HasNextPage || info.EndCursor == "" {
			return all, nil
		}
		vars["after"] = info.EndCursor
	}

	c.logger.Debug("series paging stopped at page limit", "max_pages", c.maxPages, "series", len(all))
	return all, nil
}
