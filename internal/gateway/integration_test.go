//go:build integration

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"lifedrop.org/internal/migrate"
)

func TestRedisGatewayIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	g, err := OpenRedis(ctx, url, "it:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	require.NoError(t, g.Health(ctx))

	exerciseGateway(t, g)
}

func TestPostgresGatewayIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lifedrop"),
		tcpostgres.WithUsername("lifedrop"),
		tcpostgres.WithPassword("lifedrop"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	g, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	_, err = migrate.NewManager(g.DB(), nil).Up(ctx)
	require.NoError(t, err)

	exerciseGateway(t, g)
}
