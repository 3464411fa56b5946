package receiving

import (
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptStatus represents the posting status of a receipt row
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "PENDING"
	ReceiptStatusProcessed ReceiptStatus = "PROCESSED"
	ReceiptStatusRemoved   ReceiptStatus = "REMOVED"
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusProcessed, ReceiptStatusRemoved:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// Receipt records a quantity of one order line arriving at the store.
// A PROCESSED receipt points at the StockIn entry that posted it.
type Receipt struct {
	shared.BaseAggregateRoot
	PurchaseOrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PurchaseOrderItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status              ReceiptStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ProcessedAt         *time.Time
	ProcessedBy         *uuid.UUID `gorm:"type:uuid"`
	LedgerEntryID       *uuid.UUID `gorm:"type:uuid"`
	RemovedAt           *time.Time
	RemovedBy           *uuid.UUID `gorm:"type:uuid"`
	ReversalEntryID     *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Receipt) TableName() string {
	return "receipts"
}

// NewReceipt creates a pending receipt for an order line
func NewReceipt(po *PurchaseOrder, itemID uuid.UUID, qty decimal.Decimal) (*Receipt, error) {
	if !qty.IsPositive() {
		return nil, shared.InvalidInput("received quantity must be positive")
	}
	item := po.GetItem(itemID)
	if item == nil {
		return nil, shared.NotFound("purchase order item", itemID)
	}
	return &Receipt{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		PurchaseOrderID:     po.ID,
		PurchaseOrderItemID: item.ID,
		ProductID:           item.ProductID,
		Quantity:            qty,
		Status:              ReceiptStatusPending,
	}, nil
}

// IsPending returns true if the receipt has not been posted yet
func (r *Receipt) IsPending() bool {
	return r.Status == ReceiptStatusPending
}

// MarkProcessed records that the receipt was posted to stock by entryID
func (r *Receipt) MarkProcessed(actor *uuid.UUID, entryID uuid.UUID) error {
	if r.Status != ReceiptStatusPending {
		return shared.InvalidState("cannot process receipt %s in %s status", r.ID, r.Status)
	}
	now := time.Now()
	r.Status = ReceiptStatusProcessed
	r.ProcessedAt = &now
	r.ProcessedBy = actor
	r.LedgerEntryID = &entryID
	r.Touch()
	return nil
}

// MarkRemoved records the removal. reversalEntryID is nil for a pending
// receipt, which never touched stock.
func (r *Receipt) MarkRemoved(actor *uuid.UUID, reversalEntryID *uuid.UUID) error {
	if r.Status == ReceiptStatusRemoved {
		return shared.InvalidState("receipt %s is already removed", r.ID)
	}
	now := time.Now()
	r.Status = ReceiptStatusRemoved
	r.RemovedAt = &now
	r.RemovedBy = actor
	r.ReversalEntryID = reversalEntryID
	r.Touch()
	return nil
}
