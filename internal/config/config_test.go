package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodySize)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "pacientes", cfg.Database.Table)
	assert.Equal(t, "patients.events", cfg.Redis.Channel)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.ClientTTL)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9090
store:
  driver: memory
database:
  table: patients_test
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("PATIENTS_SERVER_PORT", "9191")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "patients_test", cfg.Database.Table)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("PATIENTS_STORE_DRIVER", "sqlite")

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
