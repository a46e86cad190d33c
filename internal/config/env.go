package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envOverlay lists the environment variables that override file settings.
type envOverlay struct {
	GridAPIKey        string        `envconfig:"GRID_API_KEY"`
	GridAPIKeyFile    string        `envconfig:"GRID_API_KEY_FILE"`
	GridEndpoint      string        `envconfig:"GRID_CENTRAL_DATA_URL"`
	EngineURL         string        `envconfig:"ENGINE_URL"`
	DiscoveryInterval time.Duration `envconfig:"DISCOVERY_INTERVAL"`
	ScenarioID        string        `envconfig:"SCENARIO_ID"`
	InPlaySource      string        `envconfig:"INPLAY_SOURCE"`
}

// ApplyEnv overrides settings with any of the supported environment variables that are set.
func (c *BridgeConfig) ApplyEnv() error {
	var env envOverlay
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	if env.GridAPIKey != "" {
		c.Grid.APIKey = env.GridAPIKey
	}
	if env.GridAPIKeyFile != "" {
		c.Grid.APIKeyFile = env.GridAPIKeyFile
	}
	if env.GridEndpoint != "" {
		c.Grid.Endpoint = env.GridEndpoint
	}
	if env.EngineURL != "" {
		c.Consumer.URL = env.EngineURL
	}
	if env.DiscoveryInterval > 0 {
		c.Discovery.Interval = env.DiscoveryInterval
	}
	if env.ScenarioID != "" {
		c.InPlay.ScenarioID = env.ScenarioID
	}
	if env.InPlaySource != "" {
		c.InPlay.Source = env.InPlaySource
	}
	return nil
}
