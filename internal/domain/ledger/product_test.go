package ledger

import (
	"testing"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, onHand int64) *Product {
	t.Helper()
	p, err := NewProduct("SKU-1", "Test Product", decimal.NewFromInt(2))
	require.NoError(t, err)
	p.OnHand = decimal.NewFromInt(onHand)
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("creates product with zero stock", func(t *testing.T) {
		p, err := NewProduct(" SKU-9 ", "Cola 330ml", decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.Equal(t, "SKU-9", p.SKU)
		assert.True(t, p.OnHand.IsZero())
		assert.Equal(t, 1, p.Version)
	})

	t.Run("rejects empty sku", func(t *testing.T) {
		_, err := NewProduct("", "x", decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects negative reorder level", func(t *testing.T) {
		_, err := NewProduct("A", "x", decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestProduct_Apply(t *testing.T) {
	t.Run("debit reduces on hand and stamps balance", func(t *testing.T) {
		p := newTestProduct(t, 10)
		entry, err := NewEntry(p.ID, KindSale, decimal.NewFromInt(4), Reference{})
		require.NoError(t, err)

		require.NoError(t, p.Apply(entry, false))
		assert.True(t, p.OnHand.Equal(decimal.NewFromInt(6)))
		assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(6)))
		assert.Equal(t, 1, p.Version, "the repository owns the version")
	})

	t.Run("debit past zero is insufficient stock", func(t *testing.T) {
		p := newTestProduct(t, 3)
		entry, err := NewEntry(p.ID, KindSale, decimal.NewFromInt(4), Reference{})
		require.NoError(t, err)

		err = p.Apply(entry, false)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "SKU-1")
		assert.True(t, p.OnHand.Equal(decimal.NewFromInt(3)), "on hand must be untouched")
		assert.Equal(t, 1, p.Version)
	})

	t.Run("negative allowed when configured", func(t *testing.T) {
		p := newTestProduct(t, 1)
		entry, err := NewEntry(p.ID, KindAdjustment, decimal.NewFromInt(-3), Reference{})
		require.NoError(t, err)

		require.NoError(t, p.Apply(entry, true))
		assert.True(t, p.OnHand.Equal(decimal.NewFromInt(-2)))
	})

	t.Run("credit never fails", func(t *testing.T) {
		p := newTestProduct(t, 0)
		entry, err := NewEntry(p.ID, KindStockIn, decimal.NewFromInt(4), Reference{})
		require.NoError(t, err)

		require.NoError(t, p.Apply(entry, false))
		assert.True(t, p.OnHand.Equal(decimal.NewFromInt(4)))
	})

	t.Run("entry for another product is rejected", func(t *testing.T) {
		p := newTestProduct(t, 5)
		other := newTestProduct(t, 5)
		entry, err := NewEntry(other.ID, KindStockIn, decimal.NewFromInt(1), Reference{})
		require.NoError(t, err)

		assert.ErrorIs(t, p.Apply(entry, false), shared.ErrInvalidInput)
	})
}

func TestProduct_IsBelowReorder(t *testing.T) {
	p := newTestProduct(t, 3)
	assert.False(t, p.IsBelowReorder())

	p.OnHand = decimal.NewFromInt(2)
	assert.True(t, p.IsBelowReorder())

	p.ReorderLevel = decimal.Zero
	p.OnHand = decimal.Zero
	assert.False(t, p.IsBelowReorder(), "no threshold configured")
}

func TestDrift(t *testing.T) {
	d := Drift{Cached: decimal.NewFromInt(7), Ledger: decimal.NewFromInt(5)}
	assert.False(t, d.InSync())
	assert.True(t, d.Difference().Equal(decimal.NewFromInt(2)))

	p := newTestProduct(t, 7)
	p.ResetOnHand(decimal.NewFromInt(5))
	assert.True(t, p.OnHand.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 1, p.Version)
}
