package config

import "time"

// BridgeConfig is the root configuration for a bridge instance.
type BridgeConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Grid      GridConfig      `yaml:"grid"`
	Consumer  ConsumerConfig  `yaml:"consumer"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	InPlay    InPlayConfig    `yaml:"inplay"`
	Journal   JournalConfig   `yaml:"journal"`
	Ops       OpsConfig       `yaml:"ops"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this bridge.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// GridConfig holds telemetry provider settings.
type GridConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // Takes precedence over api_key; re-read every poll
	Timeout    time.Duration `yaml:"timeout"`      // HTTP client timeout
	MaxRetries int           `yaml:"max_retries"`  // Transport retries on 429/5xx
	Lookback   time.Duration `yaml:"lookback"`     // Scheduled-start window before now
	Lookahead  time.Duration `yaml:"lookahead"`    // Scheduled-start window after now
	PageSize   int           `yaml:"page_size"`
	MaxPages   int           `yaml:"max_pages"`
}

// ConsumerConfig holds the consumer channel settings. The reconnect delay
// is fixed and not configurable.
type ConsumerConfig struct {
	URL          string        `yaml:"url"`
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DiscoveryConfig holds Discovery Loop settings.
type DiscoveryConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"` // Per-call provider timeout
}

// InPlayConfig holds In-Play Provider settings. The replay tick interval is fixed.
type InPlayConfig struct {
	Source       string        `yaml:"source"` // replay or grid
	ScenarioID   string        `yaml:"scenario_id"`
	ScenarioFile string        `yaml:"scenario_file"` // Optional YAML catalog merged over the built-ins
	PollInterval time.Duration `yaml:"poll_interval"` // grid only
	IdleTimeout  time.Duration `yaml:"idle_timeout"`  // grid only: session ends after this long without a new round
}

// JournalConfig holds the optional event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// OpsConfig holds the ops HTTP server settings (health, debug, metrics).
type OpsConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
