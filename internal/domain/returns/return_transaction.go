package returns

import (
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of a return transaction
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusApproved || target == StatusRejected || target == StatusCompleted
	case StatusApproved:
		return target == StatusCompleted
	}
	return false
}

// ParseStatus converts a string to a Status
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", shared.InvalidInput("unknown return status %q", s)
	}
	return st, nil
}

// ReturnTransaction groups the items a customer brings back from one sale
type ReturnTransaction struct {
	shared.BaseAggregateRoot
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedBy       uuid.UUID       `gorm:"type:uuid;not null"`
	Items           []ReturnedItem  `gorm:"foreignKey:ReturnID;references:ID"`
	TotalRefund     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status          Status          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	StatusChangedBy *uuid.UUID      `gorm:"type:uuid"`
	StatusChangedAt *time.Time
}

// TableName returns the table name for GORM
func (ReturnTransaction) TableName() string {
	return "return_transactions"
}

// ReturnedItem is one product quantity brought back. LedgerEntryID points at
// the Return credit that put the stock back.
type ReturnedItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID    uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LedgerEntryID *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnedItem) TableName() string {
	return "returned_items"
}

// NewReturnTransaction creates an empty pending return for a sale
func NewReturnTransaction(saleID, actor uuid.UUID) (*ReturnTransaction, error) {
	if saleID == uuid.Nil {
		return nil, shared.InvalidInput("sale ID cannot be empty")
	}
	if actor == uuid.Nil {
		return nil, shared.InvalidInput("actor ID cannot be empty")
	}
	return &ReturnTransaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SaleID:            saleID,
		CreatedBy:         actor,
		Items:             make([]ReturnedItem, 0),
		TotalRefund:       decimal.Zero,
		Status:            StatusPending,
	}, nil
}

// IsPending returns true if items may still be added or removed
func (r *ReturnTransaction) IsPending() bool {
	return r.Status == StatusPending
}

// AddItem appends a returned item. Adding is allowed while PENDING or
// APPROVED; stock checks against the sale happen before this call.
func (r *ReturnTransaction) AddItem(saleItemID, productID uuid.UUID, qty, unitPrice decimal.Decimal) (*ReturnedItem, error) {
	if r.Status != StatusPending && r.Status != StatusApproved {
		return nil, shared.InvalidState("cannot add items to return %s in %s status", r.ID, r.Status)
	}
	if !qty.IsPositive() {
		return nil, shared.InvalidInput("returned quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.InvalidInput("unit price cannot be negative")
	}
	item := ReturnedItem{
		ID:         uuid.New(),
		ReturnID:   r.ID,
		SaleItemID: saleItemID,
		ProductID:  productID,
		Quantity:   qty,
		UnitPrice:  unitPrice,
		LineTotal:  unitPrice.Mul(qty),
		CreatedAt:  time.Now(),
	}
	r.Items = append(r.Items, item)
	r.recalculateTotal()
	return &r.Items[len(r.Items)-1], nil
}

// RemoveItem drops a returned item. Only a PENDING return can lose items.
func (r *ReturnTransaction) RemoveItem(itemID uuid.UUID) (*ReturnedItem, error) {
	if !r.IsPending() {
		return nil, shared.InvalidState("cannot remove items from return %s in %s status", r.ID, r.Status)
	}
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			removed := r.Items[i]
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			r.recalculateTotal()
			return &removed, nil
		}
	}
	return nil, shared.NotFound("returned item", itemID)
}

// ChangeStatus moves the return to a new status, recording who did it
func (r *ReturnTransaction) ChangeStatus(target Status, actor uuid.UUID) error {
	if !target.IsValid() {
		return shared.InvalidInput("unknown return status %q", target)
	}
	if !r.Status.CanTransitionTo(target) {
		return shared.InvalidState("cannot change return %s from %s to %s", r.ID, r.Status, target)
	}
	now := time.Now()
	r.Status = target
	r.StatusChangedBy = &actor
	r.StatusChangedAt = &now
	r.Touch()
	return nil
}

// GetItem returns the returned item with the given ID
func (r *ReturnTransaction) GetItem(itemID uuid.UUID) *ReturnedItem {
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			return &r.Items[i]
		}
	}
	return nil
}

func (r *ReturnTransaction) recalculateTotal() {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineTotal)
	}
	r.TotalRefund = total
	r.Touch()
}
