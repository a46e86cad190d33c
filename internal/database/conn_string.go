package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/esports-bridge/internal/config"
)

// ApplicationName is reported to the server so journal sessions are
// recognisable in pg_stat_activity.
const ApplicationName = "esports-bridge"

// BuildConnString builds a PostgreSQL connection URL from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns the connection URL with the password masked, for logs.
func Redacted(cfg config.DBConfig) string {
	masked := cfg
	if masked.Password != "" {
		masked.Password = "xxxxx"
	}
	return BuildConnString(masked)
}
