package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregate(t *testing.T) *Aggregate {
	t.Helper()
	agg, err := NewAggregate("prod-1", "SKU-1")
	require.NoError(t, err)
	return agg
}

func TestNewAggregate(t *testing.T) {
	agg := newTestAggregate(t)

	assert.Equal(t, 0, agg.AvailableQuantity)
	assert.Equal(t, 0, agg.ReservedQuantity)
	assert.Equal(t, StatusOutOfStock, agg.Status)
	assert.False(t, agg.InStock)
	assert.Equal(t, int64(1), agg.Version)
	assert.False(t, agg.CreatedAt.IsZero())
}

func TestNewAggregateRequiresIdentity(t *testing.T) {
	_, err := NewAggregate("", "SKU-1")
	require.Error(t, err)

	_, err = NewAggregate("prod-1", "")
	require.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusOutOfStock, StatusFor(0, 5))
	assert.Equal(t, StatusLowStock, StatusFor(1, 5))
	assert.Equal(t, StatusLowStock, StatusFor(5, 5))
	assert.Equal(t, StatusInStock, StatusFor(6, 5))
	assert.Equal(t, StatusInStock, StatusFor(50, 5))
}

func TestCommitDerivesStatusAndAdvancesVersion(t *testing.T) {
	agg := newTestAggregate(t)

	require.NoError(t, agg.SetAvailable(3))
	agg.Commit(5)
	assert.Equal(t, StatusLowStock, agg.Status)
	assert.True(t, agg.InStock)
	assert.Equal(t, int64(2), agg.Version)

	require.NoError(t, agg.SetAvailable(0))
	agg.Commit(5)
	assert.Equal(t, StatusOutOfStock, agg.Status)
	assert.False(t, agg.InStock)
	assert.Equal(t, int64(3), agg.Version)

	require.NoError(t, agg.SetAvailable(50))
	agg.Commit(5)
	assert.Equal(t, StatusInStock, agg.Status)
	assert.True(t, agg.InStock)
	assert.Equal(t, int64(4), agg.Version)
}

func TestSetAvailableRejectsNegative(t *testing.T) {
	agg := newTestAggregate(t)
	require.ErrorIs(t, agg.SetAvailable(-1), ErrNegativeQuantity)
}

func TestIncrementRejectsNonPositive(t *testing.T) {
	agg := newTestAggregate(t)
	require.ErrorIs(t, agg.Increment(0), ErrInvalidQuantity)
	require.ErrorIs(t, agg.Increment(-3), ErrInvalidQuantity)
}

func TestDecrementInsufficientStockLeavesStateUnchanged(t *testing.T) {
	agg := newTestAggregate(t)
	require.NoError(t, agg.SetAvailable(3))

	require.ErrorIs(t, agg.Decrement(5), ErrInsufficientStock)
	assert.Equal(t, 3, agg.AvailableQuantity)
	assert.Equal(t, 0, agg.ReservedQuantity)
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	agg := newTestAggregate(t)
	require.NoError(t, agg.SetAvailable(10))

	require.NoError(t, agg.Reserve(4))
	assert.Equal(t, 6, agg.AvailableQuantity)
	assert.Equal(t, 4, agg.ReservedQuantity)

	require.NoError(t, agg.Release(4))
	assert.Equal(t, 10, agg.AvailableQuantity)
	assert.Equal(t, 0, agg.ReservedQuantity)
}

func TestReserveInsufficientStock(t *testing.T) {
	agg := newTestAggregate(t)
	require.NoError(t, agg.SetAvailable(2))

	require.ErrorIs(t, agg.Reserve(3), ErrInsufficientStock)
	assert.Equal(t, 2, agg.AvailableQuantity)
}

func TestReleaseInsufficientReserved(t *testing.T) {
	agg := newTestAggregate(t)
	require.NoError(t, agg.SetAvailable(10))
	require.NoError(t, agg.Reserve(2))

	require.ErrorIs(t, agg.Release(3), ErrInsufficientReserved)
	assert.Equal(t, 8, agg.AvailableQuantity)
	assert.Equal(t, 2, agg.ReservedQuantity)
}

func TestQuantitiesNeverGoNegative(t *testing.T) {
	agg := newTestAggregate(t)
	require.NoError(t, agg.SetAvailable(5))

	ops := []func() error{
		func() error { return agg.Reserve(3) },
		func() error { return agg.Decrement(2) },
		func() error { return agg.Release(3) },
		func() error { return agg.Decrement(10) },
		func() error { return agg.Release(1) },
		func() error { return agg.Increment(7) },
	}
	for _, op := range ops {
		_ = op()
		assert.GreaterOrEqual(t, agg.AvailableQuantity, 0)
		assert.GreaterOrEqual(t, agg.ReservedQuantity, 0)
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusInStock, ParseStatus("IN_STOCK"))
	assert.Equal(t, StatusLowStock, ParseStatus("LOW_STOCK"))
	assert.Equal(t, StatusOutOfStock, ParseStatus("OUT_OF_STOCK"))
	assert.Equal(t, StatusOutOfStock, ParseStatus("bogus"))
}

func TestNewStockChangedEventSnapshotsAggregate(t *testing.T) {
	agg := newTestAggregate(t)
	require.NoError(t, agg.SetAvailable(7))
	agg.Commit(5)

	e := NewStockChangedEvent(agg)
	assert.Equal(t, "stock.changed", e.EventName())
	assert.Equal(t, agg.ProductID, e.ProductID)
	assert.Equal(t, 7, e.AvailableQuantity)
	assert.Equal(t, StatusInStock, e.Status)
	assert.True(t, e.InStock)
	assert.Equal(t, agg.Version, e.Version)
	assert.Equal(t, agg.UpdatedAt, e.OccurredAt)
}
