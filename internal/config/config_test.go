package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets the overlay variables for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GRID_API_KEY", "GRID_API_KEY_FILE", "GRID_CENTRAL_DATA_URL", "ENGINE_URL", "DISCOVERY_INTERVAL", "SCENARIO_ID", "INPLAY_SOURCE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-bridge
grid:
  endpoint: https://grid.example.com/graphql
  api_key: abc123
consumer:
  url: ws://engine:8080/ws
discovery:
  interval: 45s
inplay:
  source: grid
  scenario_id: comeback
  poll_interval: 5s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-bridge" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-bridge")
	}
	if cfg.Grid.Endpoint != "https://grid.example.com/graphql" {
		t.Errorf("Grid.Endpoint = %q", cfg.Grid.Endpoint)
	}
	if cfg.Grid.APIKey != "abc123" {
		t.Errorf("Grid.APIKey = %q, want %q", cfg.Grid.APIKey, "abc123")
	}
	if cfg.Consumer.URL != "ws://engine:8080/ws" {
		t.Errorf("Consumer.URL = %q", cfg.Consumer.URL)
	}
	if cfg.Discovery.Interval != 45*time.Second {
		t.Errorf("Discovery.Interval = %v, want 45s", cfg.Discovery.Interval)
	}
	if cfg.InPlay.ScenarioID != "comeback" {
		t.Errorf("InPlay.ScenarioID = %q", cfg.InPlay.ScenarioID)
	}
	if cfg.InPlay.Source != "grid" {
		t.Errorf("InPlay.Source = %q, want grid", cfg.InPlay.Source)
	}
	if cfg.InPlay.PollInterval != 5*time.Second {
		t.Errorf("InPlay.PollInterval = %v, want 5s", cfg.InPlay.PollInterval)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
journal:
  enabled: true
  database:
    host: localhost
    name: bridge
    user: bridge
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Journal.Database.Password != "secret123" {
		t.Errorf("Journal.Database.Password = %q, want %q", cfg.Journal.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)

	path := writeTempFile(t, "instance:\n  id: test-bridge\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Grid.Endpoint != DefaultGridEndpoint {
		t.Errorf("Grid.Endpoint = %q, want %q", cfg.Grid.Endpoint, DefaultGridEndpoint)
	}
	if cfg.Grid.Lookback != 6*time.Hour || cfg.Grid.Lookahead != 24*time.Hour {
		t.Errorf("Grid window = (%v, %v)", cfg.Grid.Lookback, cfg.Grid.Lookahead)
	}
	if cfg.Consumer.URL != DefaultConsumerURL {
		t.Errorf("Consumer.URL = %q, want %q", cfg.Consumer.URL, DefaultConsumerURL)
	}
	if cfg.Discovery.Interval != 30*time.Second {
		t.Errorf("Discovery.Interval = %v, want 30s", cfg.Discovery.Interval)
	}
	if cfg.Discovery.Timeout != 20*time.Second {
		t.Errorf("Discovery.Timeout = %v, want 20s", cfg.Discovery.Timeout)
	}
	if cfg.InPlay.ScenarioID != "default" {
		t.Errorf("InPlay.ScenarioID = %q, want default", cfg.InPlay.ScenarioID)
	}
	if cfg.InPlay.Source != "replay" {
		t.Errorf("InPlay.Source = %q, want replay", cfg.InPlay.Source)
	}
	if cfg.InPlay.PollInterval != 2*time.Second || cfg.InPlay.IdleTimeout != time.Hour {
		t.Errorf("InPlay polling = (%v, %v), want (2s, 1h)", cfg.InPlay.PollInterval, cfg.InPlay.IdleTimeout)
	}
	if cfg.Journal.Database.Port != DefaultDBPort {
		t.Errorf("Journal.Database.Port = %d, want %d", cfg.Journal.Database.Port, DefaultDBPort)
	}
	if cfg.Ops.Port != DefaultOpsPort {
		t.Errorf("Ops.Port = %d, want %d", cfg.Ops.Port, DefaultOpsPort)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}

func TestLoadWithDefaults_NoFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRID_API_KEY", "from-env")

	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Instance.ID != DefaultInstanceID {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, DefaultInstanceID)
	}
	if cfg.Grid.APIKey != "from-env" {
		t.Errorf("Grid.APIKey = %q, want from-env", cfg.Grid.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRID_API_KEY", "env-key")
	t.Setenv("GRID_API_KEY_FILE", "/run/secrets/grid")
	t.Setenv("GRID_CENTRAL_DATA_URL", "https://other.example.com/graphql")
	t.Setenv("ENGINE_URL", "ws://engine:9000/ws")
	t.Setenv("DISCOVERY_INTERVAL", "1m")
	t.Setenv("SCENARIO_ID", "overtime")
	t.Setenv("INPLAY_SOURCE", "grid")

	cfg := &BridgeConfig{
		Grid:      GridConfig{APIKey: "file-key"},
		Consumer:  ConsumerConfig{URL: "ws://localhost:8080/ws"},
		Discovery: DiscoveryConfig{Interval: 30 * time.Second},
	}
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Grid.APIKey != "env-key" {
		t.Errorf("Grid.APIKey = %q, want env-key", cfg.Grid.APIKey)
	}
	if cfg.Grid.APIKeyFile != "/run/secrets/grid" {
		t.Errorf("Grid.APIKeyFile = %q", cfg.Grid.APIKeyFile)
	}
	if cfg.Grid.Endpoint != "https://other.example.com/graphql" {
		t.Errorf("Grid.Endpoint = %q", cfg.Grid.Endpoint)
	}
	if cfg.Consumer.URL != "ws://engine:9000/ws" {
		t.Errorf("Consumer.URL = %q", cfg.Consumer.URL)
	}
	if cfg.Discovery.Interval != time.Minute {
		t.Errorf("Discovery.Interval = %v, want 1m", cfg.Discovery.Interval)
	}
	if cfg.InPlay.ScenarioID != "overtime" {
		t.Errorf("InPlay.ScenarioID = %q", cfg.InPlay.ScenarioID)
	}
	if cfg.InPlay.Source != "grid" {
		t.Errorf("InPlay.Source = %q, want grid", cfg.InPlay.Source)
	}
}

func TestApplyEnv_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCOVERY_INTERVAL", "soon")

	cfg := &BridgeConfig{}
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for invalid DISCOVERY_INTERVAL")
	}
}

func TestApplyEnv_UnsetKeepsFileValues(t *testing.T) {
	clearEnv(t)

	cfg := &BridgeConfig{Grid: GridConfig{APIKey: "file-key"}}
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Grid.APIKey != "file-key" {
		t.Errorf("Grid.APIKey = %q, want file-key", cfg.Grid.APIKey)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SCENARIO_ID=comeback\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SCENARIO_ID") })

	if got := os.Getenv("SCENARIO_ID"); got != "comeback" {
		t.Errorf("SCENARIO_ID = %q, want comeback", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() BridgeConfig {
		cfg := BridgeConfig{Instance: InstanceConfig{ID: "test"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*BridgeConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *BridgeConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad grid endpoint scheme",
			mutate:  func(c *BridgeConfig) { c.Grid.Endpoint = "ftp://grid.example.com" },
			wantErr: "grid.endpoint must be a [http https] URL",
		},
		{
			name:    "consumer url must be websocket",
			mutate:  func(c *BridgeConfig) { c.Consumer.URL = "http://localhost:8080/ws" },
			wantErr: "consumer.url must be a [ws wss] URL",
		},
		{
			name:    "zero discovery interval",
			mutate:  func(c *BridgeConfig) { c.Discovery.Interval = 0 },
			wantErr: "discovery.interval must be > 0",
		},
		{
			name:    "unknown in-play source",
			mutate:  func(c *BridgeConfig) { c.InPlay.Source = "hltv" },
			wantErr: `inplay.source must be replay or grid, got "hltv"`,
		},
		{
			name: "grid source needs a poll interval",
			mutate: func(c *BridgeConfig) {
				c.InPlay.Source = "grid"
				c.InPlay.PollInterval = -time.Second
			},
			wantErr: "inplay.poll_interval must be > 0",
		},
		{
			name:    "grid source",
			mutate:  func(c *BridgeConfig) { c.InPlay.Source = "grid" },
			wantErr: "",
		},
		{
			name:    "journal enabled without database",
			mutate:  func(c *BridgeConfig) { c.Journal.Enabled = true },
			wantErr: "journal.database.host is required",
		},
		{
			name: "journal min_conns exceeds max_conns",
			mutate: func(c *BridgeConfig) {
				c.Journal.Enabled = true
				c.Journal.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "journal.database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad log format",
			mutate:  func(c *BridgeConfig) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name:    "ops port out of range",
			mutate:  func(c *BridgeConfig) { c.Ops.Port = 70000 },
			wantErr: "ops.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "valid config",
			mutate:  func(c *BridgeConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if !strings.HasPrefix(err.Error(), tt.wantErr) {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
