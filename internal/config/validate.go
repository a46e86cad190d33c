package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
// A missing provider credential is not a validation error: the bridge still
// runs and reports failed discoveries until a key appears.
func (c *BridgeConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := validateURL("grid.endpoint", c.Grid.Endpoint, "http", "https"); err != nil {
		return err
	}
	if c.Grid.MaxRetries < 0 {
		return errors.New("grid.max_retries must be >= 0")
	}
	if c.Grid.PageSize < 1 {
		return errors.New("grid.page_size must be >= 1")
	}
	if c.Grid.MaxPages < 1 {
		return errors.New("grid.max_pages must be >= 1")
	}

	if err := validateURL("consumer.url", c.Consumer.URL, "ws", "wss"); err != nil {
		return err
	}

	if c.Discovery.Interval <= 0 {
		return errors.New("discovery.interval must be > 0")
	}
	if c.Discovery.Timeout <= 0 {
		return errors.New("discovery.timeout must be > 0")
	}

	switch c.InPlay.Source {
	case "replay", "grid":
	default:
		return fmt.Errorf("inplay.source must be replay or grid, got %q", c.InPlay.Source)
	}
	if c.InPlay.Source == "grid" {
		if c.InPlay.PollInterval <= 0 {
			return errors.New("inplay.poll_interval must be > 0")
		}
		if c.InPlay.IdleTimeout <= 0 {
			return errors.New("inplay.idle_timeout must be > 0")
		}
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Ops.Port < 1 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port must be between 1 and 65535, got %d", c.Ops.Port)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %v URL, got %q", field, schemes, raw)
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
