package receiving_test

import (
	"context"
	"testing"

	appledger "github.com/erp/posledger/internal/application/ledger"
	appreceiving "github.com/erp/posledger/internal/application/receiving"
	appsale "github.com/erp/posledger/internal/application/sale"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/erp/posledger/internal/infrastructure/persistence"
	"github.com/erp/posledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	ledger    *appledger.LedgerService
	receiving *appreceiving.Service
	sales     *appsale.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	scope := persistence.NewGormTransactionScope(db)
	poster := appledger.NewPoster(zap.NewNop())
	return &fixture{
		ledger: appledger.NewLedgerService(scope,
			persistence.NewGormProductRepository(db),
			persistence.NewGormLedgerEntryRepository(db),
			poster, zap.NewNop()),
		receiving: appreceiving.NewService(scope,
			persistence.NewGormPurchaseOrderRepository(db),
			persistence.NewGormReceiptRepository(db),
			poster, zap.NewNop()),
		sales: appsale.NewService(scope, persistence.NewGormSaleRepository(db), poster, zap.NewNop()),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) product(t *testing.T, sku string, opening int64) uuid.UUID {
	t.Helper()
	p, err := f.ledger.RegisterProduct(context.Background(), appledger.RegisterProductRequest{
		SKU:          sku,
		Name:         "Product " + sku,
		OpeningStock: decimal.NewFromInt(opening),
	})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) order(t *testing.T, number string, lines ...appreceiving.OrderLineRequest) *appreceiving.PurchaseOrderResponse {
	t.Helper()
	po, err := f.receiving.CreatePurchaseOrder(context.Background(), appreceiving.CreatePurchaseOrderRequest{
		OrderNumber:  number,
		SupplierName: "Acme Supply",
		Items:        lines,
	})
	require.NoError(t, err)
	return po
}

func (f *fixture) onHand(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	qty, err := f.ledger.OnHand(context.Background(), productID)
	require.NoError(t, err)
	return qty
}

func (f *fixture) assertLedgerConsistent(t *testing.T) {
	t.Helper()
	drifts, err := f.ledger.Reconcile(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestService_RecordReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "P-1", 0)
	po := f.order(t, "PO-1", appreceiving.OrderLineRequest{ProductID: p, Quantity: dec("100"), UnitCost: dec("1.25")})
	itemID := po.Items[0].ID
	actor := uuid.New()

	first, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{
		PurchaseOrderItemID: itemID,
		Quantity:            dec("60"),
		ActorID:             &actor,
	})
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_RECEIVED", first.PurchaseOrder.Status)
	assert.Equal(t, "PROCESSED", first.Receipt.Status)
	assert.Equal(t, &first.Entry.ID, first.Receipt.LedgerEntryID)
	assert.Equal(t, "STOCK_IN", first.Entry.Kind)
	require.NotNil(t, first.Entry.UnitCost)
	assert.True(t, first.Entry.UnitCost.Equal(dec("1.25")))
	assert.True(t, f.onHand(t, p).Equal(dec("60")))

	t.Run("over-receive without override", func(t *testing.T) {
		_, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{
			PurchaseOrderItemID: itemID,
			Quantity:            dec("50"),
		})
		assert.ErrorIs(t, err, shared.ErrOverReceive)
		assert.True(t, f.onHand(t, p).Equal(dec("60")))
	})

	t.Run("over-receive with override", func(t *testing.T) {
		rec, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{
			PurchaseOrderItemID: itemID,
			Quantity:            dec("50"),
			AllowOverReceive:    true,
		})
		require.NoError(t, err)
		assert.True(t, rec.PurchaseOrder.Items[0].QuantityReceived.Equal(dec("110")))
		assert.Equal(t, "RECEIVED", rec.PurchaseOrder.Status)
		assert.True(t, f.onHand(t, p).Equal(dec("110")))
	})

	t.Run("unknown order line", func(t *testing.T) {
		_, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{
			PurchaseOrderItemID: uuid.New(),
			Quantity:            dec("1"),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	loaded, err := f.receiving.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Receipts, 2)
	f.assertLedgerConsistent(t)
}

func TestService_StatusFollowsEveryLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 0)
	b := f.product(t, "B", 0)
	po := f.order(t, "PO-2",
		appreceiving.OrderLineRequest{ProductID: a, Quantity: dec("5")},
		appreceiving.OrderLineRequest{ProductID: b, Quantity: dec("5")},
	)

	rec, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{PurchaseOrderItemID: po.Items[0].ID, Quantity: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_RECEIVED", rec.PurchaseOrder.Status)

	rec, err = f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{PurchaseOrderItemID: po.Items[1].ID, Quantity: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", rec.PurchaseOrder.Status)
	assert.NotNil(t, rec.PurchaseOrder.ReceivedAt)
}

func TestService_CreatePurchaseOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.receiving.CreatePurchaseOrder(context.Background(), appreceiving.CreatePurchaseOrderRequest{
		OrderNumber: "PO-X",
		Items:       []appreceiving.OrderLineRequest{{ProductID: uuid.New(), Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_PostPendingReceipts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 0)
	b := f.product(t, "B", 0)
	po := f.order(t, "PO-3",
		appreceiving.OrderLineRequest{ProductID: a, Quantity: dec("10")},
		appreceiving.OrderLineRequest{ProductID: b, Quantity: dec("4")},
	)

	for _, q := range []appreceiving.QueueReceiptRequest{
		{PurchaseOrderItemID: po.Items[0].ID, Quantity: dec("6")},
		{PurchaseOrderItemID: po.Items[1].ID, Quantity: dec("4")},
	} {
		queued, err := f.receiving.QueueReceipt(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", queued.Status)
	}
	assert.True(t, f.onHand(t, a).IsZero(), "queued receipts must not touch stock")

	actor := uuid.New()
	result, err := f.receiving.PostPendingReceiptsToInventory(ctx, po.ID, appreceiving.PostPendingRequest{ActorID: &actor})
	require.NoError(t, err)
	require.Len(t, result.Processed, 2)
	for _, r := range result.Processed {
		assert.Equal(t, "PROCESSED", r.Status)
		assert.NotNil(t, r.LedgerEntryID)
		assert.Equal(t, &actor, r.ProcessedBy)
	}
	assert.Equal(t, "PARTIALLY_RECEIVED", result.PurchaseOrder.Status)
	assert.True(t, f.onHand(t, a).Equal(dec("6")))
	assert.True(t, f.onHand(t, b).Equal(dec("4")))

	t.Run("nothing pending is an empty batch", func(t *testing.T) {
		again, err := f.receiving.PostPendingReceiptsToInventory(ctx, po.ID, appreceiving.PostPendingRequest{})
		require.NoError(t, err)
		assert.Empty(t, again.Processed)
		assert.True(t, f.onHand(t, a).Equal(dec("6")))
	})

	t.Run("over-receive is re-checked at posting time", func(t *testing.T) {
		_, err := f.receiving.QueueReceipt(ctx, appreceiving.QueueReceiptRequest{PurchaseOrderItemID: po.Items[0].ID, Quantity: dec("3")})
		require.NoError(t, err)
		_, err = f.receiving.QueueReceipt(ctx, appreceiving.QueueReceiptRequest{PurchaseOrderItemID: po.Items[0].ID, Quantity: dec("3")})
		require.NoError(t, err)

		_, err = f.receiving.PostPendingReceiptsToInventory(ctx, po.ID, appreceiving.PostPendingRequest{})
		assert.ErrorIs(t, err, shared.ErrOverReceive)
		assert.True(t, f.onHand(t, a).Equal(dec("6")), "a rejected batch posts nothing")

		result, err := f.receiving.PostPendingReceiptsToInventory(ctx, po.ID, appreceiving.PostPendingRequest{AllowOverReceive: true})
		require.NoError(t, err)
		assert.Len(t, result.Processed, 2)
		assert.Equal(t, "RECEIVED", result.PurchaseOrder.Status)
		assert.True(t, f.onHand(t, a).Equal(dec("12")))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.receiving.PostPendingReceiptsToInventory(ctx, uuid.New(), appreceiving.PostPendingRequest{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	f.assertLedgerConsistent(t)
}

func TestService_RemoveReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "P-1", 0)
	po := f.order(t, "PO-4", appreceiving.OrderLineRequest{ProductID: p, Quantity: dec("10")})
	itemID := po.Items[0].ID
	actor := uuid.New()

	rec, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{PurchaseOrderItemID: itemID, Quantity: dec("10")})
	require.NoError(t, err)
	require.Equal(t, "RECEIVED", rec.PurchaseOrder.Status)

	removed, err := f.receiving.RemoveReceipt(ctx, rec.Receipt.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, "REMOVED", removed.Receipt.Status)
	require.NotNil(t, removed.Reversal)
	assert.Equal(t, "ADJUSTMENT", removed.Reversal.Kind)
	assert.True(t, removed.Reversal.Quantity.Equal(dec("-10")))
	assert.Equal(t, &removed.Reversal.ID, removed.Receipt.ReversalEntryID)
	assert.Equal(t, "ORDERED", removed.PurchaseOrder.Status)
	assert.Nil(t, removed.PurchaseOrder.ReceivedAt)
	assert.True(t, f.onHand(t, p).IsZero())

	history, err := f.ledger.History(ctx, p, appledger.HistoryQuery{ReferenceType: "RECEIPT"})
	require.NoError(t, err)
	assert.Len(t, history, 2, "the original receipt entry stays in the ledger")

	t.Run("removing twice fails", func(t *testing.T) {
		_, err := f.receiving.RemoveReceipt(ctx, rec.Receipt.ID, &actor)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("pending receipt is only marked removed", func(t *testing.T) {
		queued, err := f.receiving.QueueReceipt(ctx, appreceiving.QueueReceiptRequest{PurchaseOrderItemID: itemID, Quantity: dec("2")})
		require.NoError(t, err)
		removed, err := f.receiving.RemoveReceipt(ctx, queued.ID, &actor)
		require.NoError(t, err)
		assert.Nil(t, removed.Reversal)
		assert.Equal(t, "REMOVED", removed.Receipt.Status)

		batch, err := f.receiving.PostPendingReceiptsToInventory(ctx, po.ID, appreceiving.PostPendingRequest{})
		require.NoError(t, err)
		assert.Empty(t, batch.Processed)
	})

	t.Run("reversal needs the stock to still be there", func(t *testing.T) {
		rec, err := f.receiving.RecordReceipt(ctx, appreceiving.RecordReceiptRequest{PurchaseOrderItemID: itemID, Quantity: dec("5")})
		require.NoError(t, err)
		_, err = f.sales.CreateSale(ctx, appsale.CreateSaleRequest{
			CashierID: testutil.TestCashierID(),
			Items:     []appsale.SaleItemRequest{{ProductID: p, Quantity: dec("4"), UnitPrice: dec("1")}},
		})
		require.NoError(t, err)

		_, err = f.receiving.RemoveReceipt(ctx, rec.Receipt.ID, &actor)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, f.onHand(t, p).Equal(dec("1")))
	})

	t.Run("unknown receipt", func(t *testing.T) {
		_, err := f.receiving.RemoveReceipt(ctx, uuid.New(), &actor)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	f.assertLedgerConsistent(t)
}
