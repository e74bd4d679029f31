package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 300, cfg.Dispatcher.TickSeconds)
	assert.Equal(t, 50, cfg.Dispatcher.BatchSize)
	assert.Equal(t, 2, cfg.Jobs.InactivityThresholdDays)
	assert.Equal(t, "0 8 * * *", cfg.Jobs.MicroLessonsCron)
	assert.Equal(t, "30 8 * * *", cfg.Jobs.InactivitySweepCron)
	assert.Equal(t, 86400, cfg.Push.TTLSeconds)
	assert.Equal(t, "https://api.twilio.com", cfg.Telephony.BaseURL)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
dispatcher:
  tick_seconds: 60
  batch_size: 10
telephony:
  account_sid: AC123
  from_number: "+15550100"
jobs:
  inactivity_threshold_days: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Dispatcher.TickSeconds)
	assert.Equal(t, 10, cfg.Dispatcher.BatchSize)
	assert.Equal(t, "AC123", cfg.Telephony.AccountSID)
	assert.Equal(t, 5, cfg.Jobs.InactivityThresholdDays)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	t.Setenv("DATABASE_URL", "postgres://env-host/engage")
	t.Setenv("TELEPHONY_ACCOUNT_SID", "AC999")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-host/engage", cfg.Database.URL)
	assert.Equal(t, "AC999", cfg.Telephony.AccountSID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// A missing config file is fine for LoadFromEnv: defaults plus env vars
// carry a dev setup.
func TestLoadFromEnvMissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/engage")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-host/engage", cfg.Database.URL)
	assert.Equal(t, 300, cfg.Dispatcher.TickSeconds)
}
