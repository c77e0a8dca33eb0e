package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `envconfig:"URL"`
	MaxConns        int32         `envconfig:"MAX_CONNS" default:"25"`
	MinConns        int32         `envconfig:"MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"30m"`
}

// Validate requires a connection URL and refuses plaintext auth in
// production.
func (c *DatabaseConfig) Validate(environment string) error {
	if c.URL == "" {
		return fmt.Errorf("database URL is required for the postgres backend")
	}
	if environment == EnvironmentProduction && strings.Contains(c.URL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}
	return nil
}
