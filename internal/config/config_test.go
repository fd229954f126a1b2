package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "memberhub", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.ReminderLead())
	assert.False(t, cfg.MQTT.Enabled)
	assert.False(t, cfg.Jobs.Enabled)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL_HOURS", "12")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("JOBS_ENABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL())
	assert.True(t, cfg.MQTT.Enabled)
	assert.True(t, cfg.Jobs.Enabled)
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("DB_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.DBEnabled)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	path := filepath.Join(dir, "memberhub.yaml")
	yml := `
http:
  addr: ":7000"
database:
  host: yaml-host
  database: community
webhook:
  url: https://hooks.example.com/memberhub
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("MEMBERHUB_CONFIG", path)
	t.Setenv("DB_HOST", "env-host")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "community", cfg.Database.Database)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "https://hooks.example.com/memberhub", cfg.Webhook.URL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	os.Clearenv()
	t.Setenv("MEMBERHUB_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_SeedAdminPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Seed.AdminEmail = "admin@example.com"
	cfg.Seed.AdminPassword = "short"
	assert.Error(t, cfg.Validate())

	cfg.Seed.AdminPassword = "long-enough"
	assert.NoError(t, cfg.Validate())
}

func TestGetDSN(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=memberhub sslmode=disable", cfg.Database.GetDSN())
}
