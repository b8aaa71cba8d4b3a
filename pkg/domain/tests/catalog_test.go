package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"orderservice/pkg/domain/model"
)

func TestReserve(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	productID := f.products.add("Keyboard", "49.90", 5)

	t.Run("Success captures price and name", func(t *testing.T) {
		reservation, err := f.catalog.Reserve(ctx, productID, 2)

		require.NoError(t, err)
		assert.Equal(t, "Keyboard", reservation.Name)
		assert.Equal(t, "49.9", reservation.UnitPrice.String())
		assert.Equal(t, 3, f.products.stock(productID))
		assert.Equal(t, 2, f.products.soldCount(productID))
		assert.Empty(t, f.dispatcher.ofType("StockReserved"))
	})

	t.Run("Fail on insufficient stock", func(t *testing.T) {
		_, err := f.catalog.Reserve(ctx, productID, 4)
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
		assert.Equal(t, 3, f.products.stock(productID))
	})

	t.Run("Fail on missing product", func(t *testing.T) {
		_, err := f.catalog.Reserve(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})

	t.Run("Fail on inactive product", func(t *testing.T) {
		inactive := f.products.add("Retired", "10.00", 10)
		f.products.products[inactive].Active = false

		_, err := f.catalog.Reserve(ctx, inactive, 1)
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})

	t.Run("Fail on non-positive quantity", func(t *testing.T) {
		_, err := f.catalog.Reserve(ctx, productID, 0)
		assert.ErrorIs(t, err, model.ErrValidationFailed)
	})
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	productID := f.products.add("Mouse", "15.00", 7)

	for _, quantity := range []int{1, 3, 7} {
		_, err := f.catalog.Reserve(ctx, productID, quantity)
		require.NoError(t, err)
		require.NoError(t, f.catalog.Release(ctx, productID, quantity))

		assert.Equal(t, 7, f.products.stock(productID))
		assert.Equal(t, 0, f.products.soldCount(productID))
	}
}

func TestReleaseMissingProductIsTolerated(t *testing.T) {
	f := setup(t)

	err := f.catalog.Release(context.Background(), uuid.New(), 2)

	assert.NoError(t, err)
	assert.Empty(t, f.dispatcher.ofType("StockReleased"))
}

func TestConcurrentReserveOfLastUnit(t *testing.T) {
	f := setup(t)
	productID := f.products.add("Last one", "99.00", 1)

	var succeeded, outOfStock atomic.Int32
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := f.catalog.Reserve(context.Background(), productID, 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, model.ErrInsufficientStock):
				outOfStock.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(49), outOfStock.Load())
	assert.Equal(t, 0, f.products.stock(productID))
}
