package memory

import (
	"context"
	"testing"

	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAggregate(t *testing.T, productID, sku string) *domstock.Aggregate {
	t.Helper()
	agg, err := domstock.NewAggregate(productID, sku)
	require.NoError(t, err)
	return agg
}

func TestStockRepositoryCreateGet(t *testing.T) {
	repo := NewStockRepository()
	ctx := context.Background()

	agg := mustAggregate(t, "prod-1", "SKU-1")
	require.NoError(t, repo.Create(ctx, agg))

	got, err := repo.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", got.SKU)

	// Get returns a copy; mutating it must not leak into the store.
	got.AvailableQuantity = 99
	again, err := repo.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.AvailableQuantity)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domstock.ErrNotFound)
}

func TestStockRepositoryCreateDuplicates(t *testing.T) {
	repo := NewStockRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, mustAggregate(t, "prod-1", "SKU-1")))

	err := repo.Create(ctx, mustAggregate(t, "prod-1", "SKU-2"))
	require.ErrorIs(t, err, domstock.ErrAlreadyExists)

	err = repo.Create(ctx, mustAggregate(t, "prod-2", "SKU-1"))
	require.ErrorIs(t, err, domstock.ErrAlreadyExists)
}

func TestStockRepositoryUpdateCAS(t *testing.T) {
	repo := NewStockRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, mustAggregate(t, "prod-1", "SKU-1")))

	first, err := repo.Get(ctx, "prod-1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "prod-1")
	require.NoError(t, err)

	require.NoError(t, first.SetAvailable(10))
	first.Commit(5)
	require.NoError(t, repo.Update(ctx, first, 1))

	// The second reader still holds version 1 and must lose the race.
	require.NoError(t, second.SetAvailable(20))
	second.Commit(5)
	err = repo.Update(ctx, second, 1)
	require.ErrorIs(t, err, domstock.ErrVersionConflict)

	stored, err := repo.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.AvailableQuantity)
	assert.Equal(t, int64(2), stored.Version)
}

func TestStockRepositoryUpdateMissing(t *testing.T) {
	repo := NewStockRepository()

	err := repo.Update(context.Background(), mustAggregate(t, "prod-1", "SKU-1"), 1)
	require.ErrorIs(t, err, domstock.ErrNotFound)
}

func TestStockRepositoryListBelow(t *testing.T) {
	repo := NewStockRepository()
	ctx := context.Background()

	quantities := map[string]int{"prod-1": 0, "prod-2": 5, "prod-3": 6}
	for id, qty := range quantities {
		agg := mustAggregate(t, id, "SKU-"+id)
		require.NoError(t, agg.SetAvailable(qty))
		agg.Commit(5)
		require.NoError(t, repo.Create(ctx, agg))
	}

	low, err := repo.ListBelow(ctx, 5)
	require.NoError(t, err)

	ids := make([]string, 0, len(low))
	for _, agg := range low {
		ids = append(ids, agg.ProductID)
	}
	assert.ElementsMatch(t, []string{"prod-1", "prod-2"}, ids)
}
