package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const sample = `
telegram:
  token: "123:abc"
storage:
  driver: SQLite
  sqlite_path: /tmp/fan.db
relay:
  admin_ids: [111, 222]
  payment_contact: "@pay"
  relay_contact: "@artist"
  broadcast_rate: 20
reminders:
  schedule: "0 9 * * *"
  timezone: UTC
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/fan.db", cfg.Storage.SQLitePath)
	assert.Equal(t, []int64{111, 222}, cfg.Relay.AdminIDs)
	assert.Equal(t, 30, cfg.Relay.TermDays)
	assert.Equal(t, 3, cfg.Relay.RemindWithinDays)
	assert.Equal(t, 5*time.Minute, cfg.Reminders.Timeout())
	assert.Equal(t, time.UTC, cfg.Reminders.Location())
	assert.Empty(t, cfg.Warnings())
	assert.Same(t, &cfg.Config, cfg.CoreConfig())

	rc := cfg.RelayEngineConfig()
	assert.Equal(t, "@pay", rc.PaymentContact)
	assert.InDelta(t, 20.0, rc.BroadcastRate, 0)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_ADMIN_IDS", "7,8,9")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("RELAY_TERM_DAYS", "14")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, cfg.Relay.AdminIDs)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 14, cfg.Relay.TermDays)
}

func TestLoadDefaultsToPostgres(t *testing.T) {
	cfg, err := Load(writeConfig(t, "telegram:\n  token: x\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Len(t, cfg.Warnings(), 3)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"missing token":  "relay:\n  term_days: 30\n",
		"bad driver":     "telegram:\n  token: x\nstorage:\n  driver: redis\n",
		"negative term":  "telegram:\n  token: x\nrelay:\n  term_days: -1\n",
		"bad cron":       "telegram:\n  token: x\nreminders:\n  schedule: every day\n",
		"bad timezone":   "telegram:\n  token: x\nreminders:\n  timezone: Mars/Olympus\n",
		"negative rate":  "telegram:\n  token: x\nrelay:\n  broadcast_rate: -2\n",
		"bad run mode":   "telegram:\n  token: x\n  run_mode: carrier-pigeon\n",
		"webhook no url": "telegram:\n  token: x\n  run_mode: webhook\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
