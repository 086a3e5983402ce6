// Package dbtest starts a disposable PostgreSQL container with the schema
// applied, for integration tests.
package dbtest

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/camrobjones/papernet/internal/config"
	"github.com/camrobjones/papernet/internal/database"
	"github.com/camrobjones/papernet/migrations"
)

// Image is the PostgreSQL image used by Start.
const Image = "postgres:16-alpine"

// Start runs a PostgreSQL container, applies the embedded migrations and
// returns a connected pool. The container is removed when the test ends.
func Start(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, Image,
		postgres.WithDatabase("papernet"),
		postgres.WithUsername("papernet"),
		postgres.WithPassword("papernet"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := configFromDSN(t, dsn)
	db, err := database.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrator, err := database.NewMigrator(db, migrations.FS, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	return db
}

func configFromDSN(t *testing.T, dsn string) *config.DatabaseConfig {
	t.Helper()
	u, err := url.Parse(dsn)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	password, _ := u.User.Password()

	return &config.DatabaseConfig{
		Host:              u.Hostname(),
		Port:              port,
		User:              u.User.Username(),
		Password:          password,
		Name:              u.Path[1:],
		SSLMode:           config.SSLModeDisable,
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}
}
