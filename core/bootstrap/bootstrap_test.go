package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/fanrelay/core/config"
	coredatabase "github.com/m3rciful/fanrelay/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	res, err := Run(context.Background(), Options{Config: &coreconfig.Config{}, LoggerInit: noLogger})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
}

func TestRunMigratesBeforeConnecting(t *testing.T) {
	var steps []string
	db := &sqlx.DB{}
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Name: "fans"},
		Migrations: fstest.MapFS{"000001_init.up.sql": {}},
		LoggerInit: noLogger,
		Migrate: func(_ context.Context, cfg coredatabase.Config, _ fs.FS) error {
			steps = append(steps, "migrate:"+cfg.Name)
			return nil
		},
		Connect: func(_ context.Context, cfg coredatabase.Config) (*sqlx.DB, error) {
			steps = append(steps, "connect:"+cfg.Name)
			return db, nil
		},
	})
	require.NoError(t, err)
	assert.Same(t, db, res.DB)
	assert.Equal(t, []string{"migrate:fans", "connect:fans"}, steps)
}

func TestRunWrapsFailures(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{},
		Migrations: fstest.MapFS{},
		LoggerInit: noLogger,
		Migrate: func(context.Context, coredatabase.Config, fs.FS) error {
			return boom
		},
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bootstrap: migrations failed")

	_, err = Run(context.Background(), Options{})
	assert.EqualError(t, err, "bootstrap: nil config provided")
}
