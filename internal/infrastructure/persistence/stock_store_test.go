package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockStore(t *testing.T) {
	store := NewGormStockStore(setupTestDB(t))
	ctx := context.Background()
	eta := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveContainer(ctx, stock.ContainerRecord{
		ID: "MSKU1234567", Carrier: "Maersk", ETA: eta, Status: stock.ContainerStatusInTransit,
	}))
	require.NoError(t, store.SaveContainer(ctx, stock.ContainerRecord{
		ID: "MSKU1234567", Carrier: "Maersk", ETA: eta, Status: stock.ContainerStatusArrived,
	}))

	require.NoError(t, store.Apply(ctx, []stock.Movement{
		{Source: stock.WarehouseKey, Reference: "MAR-BLANCO-60", Delta: decimal.NewFromInt(20), Balance: decimal.NewFromInt(20)},
		{Source: stock.ContainerKey("MSKU1234567"), Reference: "MAR-BLANCO-60", Delta: decimal.NewFromInt(40), Balance: decimal.NewFromInt(40)},
	}))
	// A later movement overwrites the balance rather than adding to it.
	require.NoError(t, store.Apply(ctx, []stock.Movement{
		{Source: stock.WarehouseKey, Reference: "MAR-BLANCO-60", Delta: decimal.NewFromInt(-5), Balance: decimal.NewFromInt(15)},
	}))
	require.NoError(t, store.Apply(ctx, nil))

	state, err := store.Load(ctx)
	require.NoError(t, err)

	require.Len(t, state.Containers, 1)
	assert.Equal(t, stock.ContainerStatusArrived, state.Containers[0].Status)
	assert.True(t, state.Containers[0].ETA.Equal(eta))

	require.Len(t, state.Holdings, 2)
	balances := map[stock.SourceKey]decimal.Decimal{}
	for _, h := range state.Holdings {
		balances[h.Source] = h.Quantity
	}
	assert.True(t, balances[stock.WarehouseKey].Equal(decimal.NewFromInt(15)))
	assert.True(t, balances[stock.ContainerKey("MSKU1234567")].Equal(decimal.NewFromInt(40)))
}
