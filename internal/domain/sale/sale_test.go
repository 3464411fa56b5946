package sale

import (
	"errors"
	"testing"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func newTestSale(t *testing.T) *Sale {
	t.Helper()
	s, err := NewSale("S-0001", uuid.New())
	require.NoError(t, err)
	return s
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusVoided, true},
		{StatusOpen, StatusRefunded, true},
		{StatusOpen, StatusOpen, false},
		{StatusVoided, StatusRefunded, false},
		{StatusRefunded, StatusVoided, false},
		{StatusVoided, StatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewSale(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := newTestSale(t)
		assert.Equal(t, StatusOpen, s.Status)
		assert.True(t, s.Total.IsZero())
		assert.Equal(t, 1, s.Version)
	})

	t.Run("empty number", func(t *testing.T) {
		_, err := NewSale(" ", uuid.New())
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("nil cashier", func(t *testing.T) {
		_, err := NewSale("S-1", uuid.Nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestSale_AddItem_Totals(t *testing.T) {
	s := newTestSale(t)

	_, err := s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("2"), UnitPrice: dec("10")})
	require.NoError(t, err)
	_, err = s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("3"), UnitPrice: dec("5"), DiscountPercent: dec("10")})
	require.NoError(t, err)
	_, err = s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("1"), UnitPrice: dec("4"), DiscountAmount: dec("9")})
	require.NoError(t, err)

	// 20 + 15 + 4 gross; 0 + 1.5 + 4 (capped) discount
	assert.True(t, dec("39").Equal(s.Subtotal), s.Subtotal.String())
	assert.True(t, dec("5.5").Equal(s.TotalDiscount), s.TotalDiscount.String())
	assert.True(t, dec("33.5").Equal(s.Total), s.Total.String())
	assert.True(t, s.Tax.IsZero())
	assert.True(t, s.Items[2].LineTotal.IsZero())
}

func TestSale_AddItem_Validation(t *testing.T) {
	productID := uuid.New()
	tests := []struct {
		name string
		in   ItemInput
	}{
		{"zero quantity", ItemInput{ProductID: productID, Quantity: dec("0"), UnitPrice: dec("1")}},
		{"negative price", ItemInput{ProductID: productID, Quantity: dec("1"), UnitPrice: dec("-1")}},
		{"discount over 100", ItemInput{ProductID: productID, Quantity: dec("1"), UnitPrice: dec("1"), DiscountPercent: dec("101")}},
		{"nil product", ItemInput{Quantity: dec("1"), UnitPrice: dec("1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSale(t)
			_, err := s.AddItem(tt.in)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
			assert.Empty(t, s.Items)
		})
	}

	t.Run("duplicate product", func(t *testing.T) {
		s := newTestSale(t)
		_, err := s.AddItem(ItemInput{ProductID: productID, Quantity: dec("1"), UnitPrice: dec("1")})
		require.NoError(t, err)
		_, err = s.AddItem(ItemInput{ProductID: productID, Quantity: dec("1"), UnitPrice: dec("1")})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Len(t, s.Items, 1)
	})
}

func TestSale_UpdateItem(t *testing.T) {
	s := newTestSale(t)
	item, err := s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("5"), UnitPrice: dec("2")})
	require.NoError(t, err)
	itemID := item.ID

	delta, err := s.UpdateItem(itemID, ItemUpdate{Quantity: ptr(dec("8"))})
	require.NoError(t, err)
	assert.True(t, dec("3").Equal(delta))
	assert.True(t, dec("16").Equal(s.Total))

	delta, err = s.UpdateItem(itemID, ItemUpdate{Quantity: ptr(dec("2"))})
	require.NoError(t, err)
	assert.True(t, dec("-6").Equal(delta))
	assert.True(t, dec("4").Equal(s.Total))

	t.Run("failed update leaves line untouched", func(t *testing.T) {
		_, err := s.UpdateItem(itemID, ItemUpdate{Quantity: ptr(dec("-1"))})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.True(t, dec("2").Equal(s.GetItem(itemID).Quantity))
	})

	t.Run("below returned quantity", func(t *testing.T) {
		_, err := s.RecordReturn(s.GetItem(itemID).ProductID, dec("2"))
		require.NoError(t, err)
		_, err = s.UpdateItem(itemID, ItemUpdate{Quantity: ptr(dec("1"))})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := s.UpdateItem(uuid.New(), ItemUpdate{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestSale_UpdateItem_Discounts(t *testing.T) {
	newLine := func(t *testing.T) (*Sale, uuid.UUID) {
		s := newTestSale(t)
		item, err := s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("2"), UnitPrice: dec("50"), DiscountPercent: dec("10")})
		require.NoError(t, err)
		require.True(t, dec("90").Equal(s.Total))
		return s, item.ID
	}

	t.Run("clearing the percent clears its amount", func(t *testing.T) {
		s, itemID := newLine(t)
		delta, err := s.UpdateItem(itemID, ItemUpdate{DiscountPercent: ptr(decimal.Zero)})
		require.NoError(t, err)
		assert.True(t, delta.IsZero())

		item := s.GetItem(itemID)
		assert.True(t, item.DiscountAmount.IsZero(), item.DiscountAmount.String())
		assert.True(t, s.TotalDiscount.IsZero(), s.TotalDiscount.String())
		assert.True(t, dec("100").Equal(s.Total), s.Total.String())
	})

	t.Run("new percent is recomputed", func(t *testing.T) {
		s, itemID := newLine(t)
		_, err := s.UpdateItem(itemID, ItemUpdate{DiscountPercent: ptr(dec("25"))})
		require.NoError(t, err)
		assert.True(t, dec("25").Equal(s.TotalDiscount), s.TotalDiscount.String())
		assert.True(t, dec("75").Equal(s.Total), s.Total.String())
	})

	t.Run("fixed amount replaces the percent", func(t *testing.T) {
		s, itemID := newLine(t)
		_, err := s.UpdateItem(itemID, ItemUpdate{DiscountAmount: ptr(dec("4"))})
		require.NoError(t, err)
		item := s.GetItem(itemID)
		assert.True(t, item.DiscountPercent.IsZero())
		assert.True(t, dec("96").Equal(s.Total), s.Total.String())
	})

	t.Run("quantity change keeps the percent", func(t *testing.T) {
		s, itemID := newLine(t)
		_, err := s.UpdateItem(itemID, ItemUpdate{Quantity: ptr(dec("4"))})
		require.NoError(t, err)
		assert.True(t, dec("20").Equal(s.TotalDiscount), s.TotalDiscount.String())
		assert.True(t, dec("180").Equal(s.Total), s.Total.String())
	})
}

func TestSale_RemoveItem(t *testing.T) {
	s := newTestSale(t)
	a, err := s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("1"), UnitPrice: dec("3")})
	require.NoError(t, err)
	aID := a.ID
	b, err := s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("2"), UnitPrice: dec("1")})
	require.NoError(t, err)
	bID, bProduct := b.ID, b.ProductID

	removed, err := s.RemoveItem(aID)
	require.NoError(t, err)
	assert.Equal(t, aID, removed.ID)
	assert.Len(t, s.Items, 1)
	assert.True(t, dec("2").Equal(s.Total))

	_, err = s.RecordReturn(bProduct, dec("1"))
	require.NoError(t, err)
	_, err = s.RemoveItem(bID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSale_Void(t *testing.T) {
	s := newTestSale(t)
	p1, p2 := uuid.New(), uuid.New()
	_, err := s.AddItem(ItemInput{ProductID: p1, Quantity: dec("4"), UnitPrice: dec("1")})
	require.NoError(t, err)
	_, err = s.AddItem(ItemInput{ProductID: p2, Quantity: dec("1"), UnitPrice: dec("1")})
	require.NoError(t, err)
	_, err = s.RecordReturn(p1, dec("1"))
	require.NoError(t, err)
	_, err = s.RecordReturn(p2, dec("1"))
	require.NoError(t, err)

	_, err = s.Void("", uuid.New())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, StatusOpen, s.Status)

	actor := uuid.New()
	rec, err := s.Void("customer changed mind", actor)
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, s.Status)
	assert.Equal(t, actor, *s.VoidedBy)
	require.Len(t, rec.Reversals, 1, "fully returned lines have nothing left to reverse")
	assert.Equal(t, p1, rec.Reversals[0].ProductID)
	assert.True(t, dec("3").Equal(rec.Reversals[0].Quantity))

	_, err = s.Void("again", actor)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = s.AddItem(ItemInput{ProductID: uuid.New(), Quantity: dec("1"), UnitPrice: dec("1")})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSale_Refund(t *testing.T) {
	s := newTestSale(t)
	p := uuid.New()
	_, err := s.AddItem(ItemInput{ProductID: p, Quantity: dec("3"), UnitPrice: dec("10")})
	require.NoError(t, err)
	_, err = s.RecordReturn(p, dec("1"))
	require.NoError(t, err)

	reversals, err := s.Refund(uuid.New(), "CASH")
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, s.Status)
	require.Len(t, reversals, 1)
	assert.True(t, dec("2").Equal(reversals[0].Quantity))
	require.True(t, s.RefundAmount.Valid)
	assert.True(t, dec("20").Equal(s.RefundAmount.Decimal))

	_, err = s.Refund(uuid.New(), "CASH")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSale_RecordReturn(t *testing.T) {
	s := newTestSale(t)
	p := uuid.New()
	item, err := s.AddItem(ItemInput{ProductID: p, Quantity: dec("2"), UnitPrice: dec("1")})
	require.NoError(t, err)
	itemID := item.ID

	_, err = s.RecordReturn(p, dec("2"))
	require.NoError(t, err)

	_, err = s.RecordReturn(p, dec("0.5"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrOverReturn))

	_, err = s.RecordReturn(uuid.New(), dec("1"))
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.UndoReturn(itemID, dec("3"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	got, err := s.UndoReturn(itemID, dec("1.5"))
	require.NoError(t, err)
	assert.True(t, dec("0.5").Equal(got.ReturnedQuantity))
}
