package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "bridge-1"
	DefaultGridEndpoint      = "https://api-op.grid.gg/central-data/graphql"
	DefaultGridTimeout       = 15 * time.Second
	DefaultGridMaxRetries    = 2
	DefaultGridLookback      = 6 * time.Hour
	DefaultGridLookahead     = 24 * time.Hour
	DefaultGridPageSize      = 50
	DefaultGridMaxPages      = 5
	DefaultConsumerURL       = "ws://localhost:8080/ws"
	DefaultPingInterval      = 30 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultDiscoveryInterval = 30 * time.Second
	DefaultDiscoveryTimeout  = 20 * time.Second
	DefaultScenarioID        = "default"
	DefaultInPlaySource      = "replay"
	DefaultPollInterval      = 2 * time.Second
	DefaultIdleTimeout       = time.Hour
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultBufferSize        = 1000
	DefaultOpsPort           = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *BridgeConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Grid defaults
	if c.Grid.Endpoint == "" {
		c.Grid.Endpoint = DefaultGridEndpoint
	}
	if c.Grid.Timeout == 0 {
		c.Grid.Timeout = DefaultGridTimeout
	}
	if c.Grid.MaxRetries == 0 {
		c.Grid.MaxRetries = DefaultGridMaxRetries
	}
	if c.Grid.Lookback == 0 {
		c.Grid.Lookback = DefaultGridLookback
	}
	if c.Grid.Lookahead == 0 {
		c.Grid.Lookahead = DefaultGridLookahead
	}
	if c.Grid.PageSize == 0 {
		c.Grid.PageSize = DefaultGridPageSize
	}
	if c.Grid.MaxPages == 0 {
		c.Grid.MaxPages = DefaultGridMaxPages
	}

	// Consumer defaults
	if c.Consumer.URL == "" {
		c.Consumer.URL = DefaultConsumerURL
	}
	if c.Consumer.PingInterval == 0 {
		c.Consumer.PingInterval = DefaultPingInterval
	}
	if c.Consumer.WriteTimeout == 0 {
		c.Consumer.WriteTimeout = DefaultWriteTimeout
	}

	// Discovery defaults
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = DefaultDiscoveryInterval
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = DefaultDiscoveryTimeout
	}

	// In-play defaults
	if c.InPlay.Source == "" {
		c.InPlay.Source = DefaultInPlaySource
	}
	if c.InPlay.ScenarioID == "" {
		c.InPlay.ScenarioID = DefaultScenarioID
	}
	if c.InPlay.PollInterval == 0 {
		c.InPlay.PollInterval = DefaultPollInterval
	}
	if c.InPlay.IdleTimeout == 0 {
		c.InPlay.IdleTimeout = DefaultIdleTimeout
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	// Ops defaults
	if c.Ops.Port == 0 {
		c.Ops.Port = DefaultOpsPort
	}
	if c.Ops.MetricsPath == "" {
		c.Ops.MetricsPath = DefaultMetricsPath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
