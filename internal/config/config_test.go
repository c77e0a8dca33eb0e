package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larouxn/flipper/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "flipper", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "0.0.0.0:9090", cfg.Observability.Address())
	assert.True(t, cfg.Observability.Enabled)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FLIPPER_APP_ENV", "staging")
	t.Setenv("FLIPPER_APP_LOG_FORMAT", "json")
	t.Setenv("FLIPPER_SERVER_PORT", "9999")
	t.Setenv("FLIPPER_STORAGE_BACKEND", "redis")
	t.Setenv("FLIPPER_REDIS_HOST", "cache.internal")
	t.Setenv("FLIPPER_CACHE_ENABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "json", cfg.App.LogFormat)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Address())
	assert.Equal(t, config.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Address())
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown environment", "FLIPPER_APP_ENV", "chaos"},
		{"unknown log level", "FLIPPER_APP_LOG_LEVEL", "loud"},
		{"unknown backend", "FLIPPER_STORAGE_BACKEND", "floppy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresBackendRequiresURL(t *testing.T) {
	t.Setenv("FLIPPER_STORAGE_BACKEND", "postgres")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

func TestProductionRefusesPlaintextPostgres(t *testing.T) {
	t.Setenv("FLIPPER_APP_ENV", "production")
	t.Setenv("FLIPPER_STORAGE_BACKEND", "postgres")
	t.Setenv("FLIPPER_DB_URL", "postgres://u:p@db:5432/flipper?sslmode=disable")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode=disable")
}

func TestBadgerBackendRequiresPath(t *testing.T) {
	t.Setenv("FLIPPER_STORAGE_BACKEND", "badger")
	t.Setenv("FLIPPER_BADGER_PATH", "")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("FLIPPER_BADGER_IN_MEMORY", "true")
	_, err = config.Load()
	assert.NoError(t, err, "in-memory mode needs no path")
}
