package receiving

import (
	"strings"
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the receiving status of a purchase order
type OrderStatus string

const (
	OrderStatusOrdered           OrderStatus = "ORDERED"
	OrderStatusPartiallyReceived OrderStatus = "PARTIALLY_RECEIVED"
	OrderStatusReceived          OrderStatus = "RECEIVED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOrdered, OrderStatusPartiallyReceived, OrderStatusReceived:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// PurchaseOrder is a supplier order whose lines are received into stock
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber  string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierName string              `gorm:"type:varchar(200)"`
	Status       OrderStatus         `gorm:"type:varchar(30);not null;default:'ORDERED';index"`
	Items        []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;references:ID"`
	ReceivedAt   *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItem is one ordered product line
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Unit             string          `gorm:"type:varchar(20);not null;default:'pcs'"`
	QuantityOrdered  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityReceived decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// OrderLineInput is the data needed to add an order line
type OrderLineInput struct {
	ProductID uuid.UUID
	Unit      string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// NewPurchaseOrder creates an order with its lines
func NewPurchaseOrder(orderNumber, supplierName string, lines []OrderLineInput) (*PurchaseOrder, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.InvalidInput("order number cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.InvalidInput("purchase order must have at least one line")
	}
	po := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		SupplierName:      supplierName,
		Status:            OrderStatusOrdered,
		Items:             make([]PurchaseOrderItem, 0, len(lines)),
	}
	now := time.Now()
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, shared.InvalidInput("product ID cannot be empty")
		}
		if !line.Quantity.IsPositive() {
			return nil, shared.InvalidInput("ordered quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return nil, shared.InvalidInput("unit cost cannot be negative")
		}
		unit := line.Unit
		if unit == "" {
			unit = "pcs"
		}
		po.Items = append(po.Items, PurchaseOrderItem{
			ID:               uuid.New(),
			PurchaseOrderID:  po.ID,
			ProductID:        line.ProductID,
			Unit:             unit,
			QuantityOrdered:  line.Quantity,
			QuantityReceived: decimal.Zero,
			UnitCost:         line.UnitCost,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return po, nil
}

// RemainingQuantity returns ordered minus received, never below zero
func (i *PurchaseOrderItem) RemainingQuantity() decimal.Decimal {
	remaining := i.QuantityOrdered.Sub(i.QuantityReceived)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyReceived returns true if received reached ordered
func (i *PurchaseOrderItem) IsFullyReceived() bool {
	return i.QuantityReceived.GreaterThanOrEqual(i.QuantityOrdered)
}

// GetItem returns the order line with the given ID
func (po *PurchaseOrder) GetItem(itemID uuid.UUID) *PurchaseOrderItem {
	for i := range po.Items {
		if po.Items[i].ID == itemID {
			return &po.Items[i]
		}
	}
	return nil
}

// Receive adds qty to a line's received quantity. Receiving more than the
// remaining quantity fails with OVER_RECEIVE unless allowOver is set.
func (po *PurchaseOrder) Receive(itemID uuid.UUID, qty decimal.Decimal, allowOver bool) (*PurchaseOrderItem, error) {
	if !qty.IsPositive() {
		return nil, shared.InvalidInput("received quantity must be positive")
	}
	item := po.GetItem(itemID)
	if item == nil {
		return nil, shared.NotFound("purchase order item", itemID)
	}
	remaining := item.RemainingQuantity()
	if qty.GreaterThan(remaining) && !allowOver {
		return nil, shared.NewDomainErrorf(shared.CodeOverReceive,
			"cannot receive %s of product %s on order %s: only %s remaining",
			qty, item.ProductID, po.OrderNumber, remaining)
	}
	item.QuantityReceived = item.QuantityReceived.Add(qty)
	item.UpdatedAt = time.Now()
	po.refreshStatus()
	return item, nil
}

// Unreceive takes qty off a line's received quantity, reopening the order
func (po *PurchaseOrder) Unreceive(itemID uuid.UUID, qty decimal.Decimal) (*PurchaseOrderItem, error) {
	if !qty.IsPositive() {
		return nil, shared.InvalidInput("quantity must be positive")
	}
	item := po.GetItem(itemID)
	if item == nil {
		return nil, shared.NotFound("purchase order item", itemID)
	}
	if qty.GreaterThan(item.QuantityReceived) {
		return nil, shared.InvalidInput("cannot remove %s from line %s: only %s received",
			qty, itemID, item.QuantityReceived)
	}
	item.QuantityReceived = item.QuantityReceived.Sub(qty)
	item.UpdatedAt = time.Now()
	po.refreshStatus()
	return item, nil
}

// refreshStatus derives the status from the lines
func (po *PurchaseOrder) refreshStatus() {
	allReceived := true
	anyReceived := false
	for i := range po.Items {
		if po.Items[i].QuantityReceived.IsPositive() {
			anyReceived = true
		}
		if !po.Items[i].IsFullyReceived() {
			allReceived = false
		}
	}
	switch {
	case allReceived:
		if po.Status != OrderStatusReceived {
			now := time.Now()
			po.ReceivedAt = &now
		}
		po.Status = OrderStatusReceived
	case anyReceived:
		po.Status = OrderStatusPartiallyReceived
		po.ReceivedAt = nil
	default:
		po.Status = OrderStatusOrdered
		po.ReceivedAt = nil
	}
	po.Touch()
}
