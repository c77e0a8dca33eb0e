package config

import (
	"fmt"
	"time"
)

// Storage backend identifiers.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// StorageConfig selects the adapter the server runs on.
type StorageConfig struct {
	Backend string `envconfig:"BACKEND" default:"memory" validate:"oneof=memory redis postgres badger"`
}

// Validate rejects unknown backends. The oneof tag already covers the
// loaded path; this guards programmatic construction.
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendBadger:
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}

// BadgerConfig holds the embedded database settings.
type BadgerConfig struct {
	Path     string `envconfig:"PATH" default:"/var/lib/flipper/badger"`
	InMemory bool   `envconfig:"IN_MEMORY" default:"false"`
}

// Validate requires a path unless running in memory.
func (c *BadgerConfig) Validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("badger path is required unless in-memory mode is enabled")
	}
	return nil
}

// CacheConfig controls the optional read-through cache layered over the
// storage backend.
type CacheConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"false"`
	Capacity int           `envconfig:"CAPACITY" default:"10000" validate:"min=1"`
	TTL      time.Duration `envconfig:"TTL" default:"10s"`
}
