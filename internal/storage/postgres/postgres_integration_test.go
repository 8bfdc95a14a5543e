//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/m3rciful/fanrelay/core/database"
	"github.com/m3rciful/fanrelay/internal/storage"
	"github.com/m3rciful/fanrelay/internal/storage/storagetest"
	"github.com/m3rciful/fanrelay/migrations"
)

func setupTestDatabase(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "fanrelay",
				"POSTGRES_USER":     "fanrelay",
				"POSTGRES_PASSWORD": "fanrelay",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(3 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "fanrelay",
		Password: "fanrelay",
		Name:     "fanrelay",
	}
	require.NoError(t, database.RunMigrations(ctx, cfg, migrations.FS))
	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestContract(t *testing.T) {
	db := setupTestDatabase(t)
	storagetest.Run(t, func(t *testing.T) storage.Store {
		_, err := db.Exec(`TRUNCATE interactions, subscriptions, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return New(db)
	})
}
