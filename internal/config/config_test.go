package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "./data/cases.db", cfg.Store.Path)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 512, cfg.Cache.MaxEntries)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, float64(20), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidateDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	assert.NoError(t, manager.Validate())
}

func TestValidateInvalidPort(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	manager.GetConfig().Server.Port = 0
	assert.Error(t, manager.Validate())

	manager.GetConfig().Server.Port = 70000
	assert.Error(t, manager.Validate())
}

func TestValidateStoreBackend(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)
	cfg := manager.GetConfig()

	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = ""
	assert.Error(t, manager.Validate(), "sqlite backend needs a path")

	cfg.Store.Backend = "postgres"
	assert.NoError(t, manager.Validate(), "postgres defaults are complete")

	cfg.Database.Username = ""
	assert.Error(t, manager.Validate())

	cfg.Store.Backend = "redis"
	assert.Error(t, manager.Validate(), "unknown backend is rejected")
}

func TestValidateRateLimit(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)
	cfg := manager.GetConfig()

	cfg.RateLimit.RequestsPerSecond = 0
	assert.Error(t, manager.Validate())

	// A disabled limiter need not be well formed.
	cfg.RateLimit.Enabled = false
	assert.NoError(t, manager.Validate())
}

func TestValidateLogLevel(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	manager.GetConfig().Logging.Level = "verbose"
	assert.Error(t, manager.Validate())

	manager.GetConfig().Logging.Level = "WARN"
	assert.NoError(t, manager.Validate(), "level comparison is case insensitive")
}

func TestDatabaseConnectionString(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	conn := manager.GetDatabaseConnectionString()
	assert.Contains(t, conn, "host=localhost")
	assert.Contains(t, conn, "port=5432")
	assert.Contains(t, conn, "dbname=thyroid_dss")
	assert.Contains(t, conn, "sslmode=disable")
}

func TestGetStoreConfig(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	store := manager.GetStoreConfig()
	require.NotNil(t, store)
	assert.Equal(t, "sqlite", store.Backend)
}
