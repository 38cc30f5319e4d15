//go:build integration

package persistence

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/customersvc/backend/internal/domain/customer"
	"github.com/customersvc/backend/internal/domain/shared"
	"github.com/customersvc/backend/internal/infrastructure/config"
	"github.com/customersvc/backend/internal/infrastructure/migration"
	"github.com/customersvc/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// newPostgresDatabase starts a PostgreSQL container, applies the embedded
// migrations and connects through NewDatabase.
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("customers_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            host,
		Port:            portNum,
		User:            "postgres",
		Password:        "postgres",
		DBName:          "customers_test",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
	}

	m, err := migration.Open(cfg.DSN(), "", migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to open migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	db, err := NewDatabase(ctx, cfg)
	require.NoError(t, err, "Failed to connect")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGormCustomerRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := newPostgresDatabase(t)
	repo := NewGormCustomerRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))

	t.Run("absent id", func(t *testing.T) {
		got, found, err := repo.FindByID(ctx, 9999)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("save then find returns equal record", func(t *testing.T) {
		in := &customer.Customer{ID: 1234, FirstName: "Test", LastName: "First"}
		saved, err := repo.Save(ctx, in, true)
		require.NoError(t, err)
		assert.Equal(t, in, saved)

		got, found, err := repo.FindByID(ctx, 1234)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, in, got)
	})

	t.Run("duplicate insert is translated", func(t *testing.T) {
		_, err := repo.Save(ctx, &customer.Customer{ID: 1234, FirstName: "Other", LastName: "Name"}, true)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("upsert replaces names", func(t *testing.T) {
		_, err := repo.Save(ctx, &customer.Customer{ID: 1234, FirstName: "Test", LastName: "Second"}, false)
		require.NoError(t, err)

		got, found, err := repo.FindByID(ctx, 1234)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Second", got.LastName)
	})

	t.Run("store assigns id when zero", func(t *testing.T) {
		saved, err := repo.Save(ctx, &customer.Customer{FirstName: "Ada", LastName: "Lovelace"}, true)
		require.NoError(t, err)
		assert.Positive(t, saved.ID)
	})

	t.Run("find all streams every record", func(t *testing.T) {
		var names []string
		for c, err := range repo.FindAll(ctx) {
			require.NoError(t, err)
			names = append(names, c.FirstName)
		}
		assert.ElementsMatch(t, []string{"Test", "Ada"}, names)
	})
}
