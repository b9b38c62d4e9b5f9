//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPostgres starts a throwaway PostgreSQL and applies the embedded migrations
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("marmoleria_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migration.Source{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

func TestPostgres_MigrationsMatchRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	t.Run("stock store", func(t *testing.T) {
		store := NewGormStockStore(db)
		eta := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.SaveContainer(ctx, stock.ContainerRecord{
			ID: "MSKU7654321", Carrier: "CMA CGM", ETA: eta, Status: stock.ContainerStatusInPort,
		}))
		require.NoError(t, store.Apply(ctx, []stock.Movement{
			{Source: stock.WarehouseKey, Reference: "MAR-BLANCO-60", Delta: decimal.NewFromInt(30), Balance: decimal.NewFromInt(30)},
			{Source: stock.ContainerKey("MSKU7654321"), Reference: "MAR-BLANCO-60", Delta: decimal.RequireFromString("12.5"), Balance: decimal.RequireFromString("12.5")},
		}))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, state.Containers, 1)
		assert.Equal(t, stock.ContainerStatusInPort, state.Containers[0].Status)
		require.Len(t, state.Holdings, 2)
	})

	t.Run("sales upsert", func(t *testing.T) {
		repo := NewGormSalesRepository(db)
		require.NoError(t, repo.Add(ctx, record("Laura", "2026-05", 400000, valueobject.COP)))
		require.NoError(t, repo.Add(ctx, record("LAURA", "2026-05", 100000, valueobject.COP)))

		found, err := repo.Find(ctx, "laura", mustPeriod(t, "2026-05"))
		require.NoError(t, err)
		assert.True(t, found.Amount.Equal(decimal.NewFromInt(500000)))

		err = repo.Add(ctx, record("Laura", "2026-05", 1, valueobject.USD))
		assert.True(t, shared.HasCode(err, shared.CodeCurrencyMismatch))
	})

	t.Run("quote sequence seed", func(t *testing.T) {
		max, err := NewGormQuoteRepository(db).MaxSequence(ctx, 2026)
		require.NoError(t, err)
		assert.Zero(t, max)
	})
}
