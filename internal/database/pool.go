package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rickgao/esports-bridge/internal/config"
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Execer is the subset of a pool needed to apply the schema.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the journal table and its lookup indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS bridge_events (
    event_id    UUID PRIMARY KEY,
    event_type  TEXT NOT NULL,
    series_id   TEXT,
    market_id   TEXT,
    payload     JSONB NOT NULL,
    emitted_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bridge_events_market_idx ON bridge_events (market_id, emitted_at);
CREATE INDEX IF NOT EXISTS bridge_events_type_idx ON bridge_events (event_type, emitted_at);
`

// EnsureSchema applies Schema. It is idempotent.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return nil
}
