package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/fanrelay/core/config"
	"github.com/m3rciful/fanrelay/internal/config"
	"github.com/m3rciful/fanrelay/internal/relay"
)

func noLogger(*coreconfig.Config) error { return nil }

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Storage.Driver = "memory"
	cfg.Relay.AdminIDs = []int64{1}
	cfg.Reminders.Schedule = "@daily"
	require.NoError(t, cfg.Normalize())
	return cfg
}

func TestNewWiresMemoryApp(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t), WithLoggerInit(noLogger))
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Len(t, opts.Routes, len(a.Engine().Commands().Names())+2)
	assert.NotEmpty(t, opts.Middlewares)
	assert.NotNil(t, opts.OnStart)
	assert.Same(t, a.cfg.CoreConfig(), opts.Config)
	assert.NotNil(t, a.scheduler)
}

func TestEngineRunsOfflineAgainstMemoryStore(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t), WithLoggerInit(noLogger))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Engine().Broadcast(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, relay.BatchReport{ID: report.ID}, report)
}

func TestOpenStore(t *testing.T) {
	s, err := OpenStore(config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "db", "fan.db")}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenStore(config.StorageConfig{Driver: "postgres"}, nil)
	assert.Error(t, err)

	_, err = OpenStore(config.StorageConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreign{})
	assert.Error(t, err)
}

type foreign struct{}

func (foreign) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
