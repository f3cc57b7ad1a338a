//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/storetest"
)

func startPostgres(t *testing.T) PostgresConfig {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dsess_gorm"),
		tcpostgres.WithUsername("dsess_gorm"),
		tcpostgres.WithPassword("dsess_gorm"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "dsess_gorm",
		User:     "dsess_gorm",
		Password: "dsess_gorm",
	}
}

func TestConformancePostgres(t *testing.T) {
	pg := startPostgres(t)

	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		s, err := New(t.Context(), Config{Dialect: DialectPostgres, Postgres: pg})
		require.NoError(t, err)
		require.NoError(t, s.DB().Exec("DELETE FROM session_kv").Error)
		return s
	})
}
