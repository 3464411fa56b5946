package sale

import (
	"strings"
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of a sale
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusVoided   Status = "VOIDED"
	StatusRefunded Status = "REFUNDED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusVoided, StatusRefunded:
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
	case StatusOpen:
		return target == StatusVoided || target == StatusRefunded
	case StatusVoided, StatusRefunded:
		return false // Terminal states
	}
	return false
}

// moneyPlaces is the scale amounts are rounded to
const moneyPlaces = 2

// Sale is a point-of-sale transaction with its line items. Subtotal,
// TotalDiscount and Total are derived and recomputed from the items after
// every mutation.
type Sale struct {
	shared.BaseAggregateRoot
	SaleNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	CashierID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Items         []Item          `gorm:"foreignKey:SaleID;references:ID"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Tax           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status        Status          `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	VoidedBy      *uuid.UUID      `gorm:"type:uuid"`
	VoidedAt      *time.Time
	VoidReason    string              `gorm:"type:varchar(255)"`
	RefundedBy    *uuid.UUID          `gorm:"type:uuid"`
	RefundedAt    *time.Time
	RefundMethod  string              `gorm:"type:varchar(30)"`
	RefundAmount  decimal.NullDecimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates an empty open sale
func NewSale(saleNumber string, cashierID uuid.UUID) (*Sale, error) {
	if strings.TrimSpace(saleNumber) == "" {
		return nil, shared.InvalidInput("sale number cannot be empty")
	}
	if cashierID == uuid.Nil {
		return nil, shared.InvalidInput("cashier ID cannot be empty")
	}
	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SaleNumber:        saleNumber,
		CashierID:         cashierID,
		Items:             make([]Item, 0),
		Subtotal:          decimal.Zero,
		TotalDiscount:     decimal.Zero,
		Tax:               decimal.Zero,
		Total:             decimal.Zero,
		Status:            StatusOpen,
	}, nil
}

// IsOpen returns true if items may still be changed
func (s *Sale) IsOpen() bool {
	return s.Status == StatusOpen
}

func (s *Sale) requireOpen(action string) error {
	if !s.IsOpen() {
		return shared.InvalidState("cannot %s sale %s in %s status", action, s.SaleNumber, s.Status)
	}
	return nil
}

// AddItem adds a new line. A product may appear on only one line per sale;
// change the existing line's quantity instead.
func (s *Sale) AddItem(in ItemInput) (*Item, error) {
	if err := s.requireOpen("add items to"); err != nil {
		return nil, err
	}
	if s.GetItemByProduct(in.ProductID) != nil {
		return nil, shared.InvalidInput("product %s is already on sale %s", in.ProductID, s.SaleNumber)
	}
	item, err := newItem(s.ID, in)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, *item)
	s.recalculateTotals()
	return &s.Items[len(s.Items)-1], nil
}

// UpdateItem applies the update to a line and returns the quantity delta
// (positive when more stock leaves, negative when stock comes back)
func (s *Sale) UpdateItem(itemID uuid.UUID, upd ItemUpdate) (decimal.Decimal, error) {
	if err := s.requireOpen("update items on"); err != nil {
		return decimal.Zero, err
	}
	item := s.GetItem(itemID)
	if item == nil {
		return decimal.Zero, shared.NotFound("sale item", itemID)
	}
	before := item.Quantity
	if err := item.apply(upd); err != nil {
		return decimal.Zero, err
	}
	s.recalculateTotals()
	return item.Quantity.Sub(before), nil
}

// RemoveItem removes a line and returns it. Lines with returned quantity
// cannot be removed because their stock has already been credited back.
func (s *Sale) RemoveItem(itemID uuid.UUID) (*Item, error) {
	if err := s.requireOpen("remove items from"); err != nil {
		return nil, err
	}
	for i := range s.Items {
		if s.Items[i].ID != itemID {
			continue
		}
		if s.Items[i].ReturnedQuantity.IsPositive() {
			return nil, shared.InvalidState("sale item %s has returned quantity %s and cannot be removed",
				itemID, s.Items[i].ReturnedQuantity)
		}
		removed := s.Items[i]
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		s.recalculateTotals()
		return &removed, nil
	}
	return nil, shared.NotFound("sale item", itemID)
}

// Void moves the sale to VOIDED and returns the lines whose stock must be reversed
func (s *Sale) Void(reason string, actor uuid.UUID) (*VoidRecord, error) {
	if !s.Status.CanTransitionTo(StatusVoided) {
		return nil, shared.InvalidState("cannot void sale %s in %s status", s.SaleNumber, s.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.InvalidInput("void reason is required")
	}
	now := time.Now()
	s.Status = StatusVoided
	s.VoidedBy = &actor
	s.VoidedAt = &now
	s.VoidReason = reason
	s.Touch()

	return &VoidRecord{
		SaleID:    s.ID,
		Reason:    reason,
		VoidedBy:  actor,
		VoidedAt:  now,
		Reversals: s.Reversals(),
	}, nil
}

// Refund moves the sale to REFUNDED, records refund metadata and returns the
// lines whose stock must be reversed
func (s *Sale) Refund(actor uuid.UUID, method string) ([]Reversal, error) {
	if !s.Status.CanTransitionTo(StatusRefunded) {
		return nil, shared.InvalidState("cannot refund sale %s in %s status", s.SaleNumber, s.Status)
	}
	if strings.TrimSpace(method) == "" {
		return nil, shared.InvalidInput("refund method is required")
	}
	reversals := s.Reversals()
	now := time.Now()
	s.Status = StatusRefunded
	s.RefundedBy = &actor
	s.RefundedAt = &now
	s.RefundMethod = method
	s.RefundAmount = decimal.NewNullDecimal(s.OutstandingAmount())
	s.Touch()
	return reversals, nil
}

// Reversals lists, per line, the quantity still out of stock because of this
// sale: sold quantity minus what customer returns already credited back
func (s *Sale) Reversals() []Reversal {
	out := make([]Reversal, 0, len(s.Items))
	for _, item := range s.Items {
		qty := item.OutstandingQuantity()
		if !qty.IsPositive() {
			continue
		}
		out = append(out, Reversal{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  qty,
			CostPrice: item.CostPrice,
		})
	}
	return out
}

// OutstandingAmount is the part of Total not yet refunded through returns
func (s *Sale) OutstandingAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		if item.Quantity.IsZero() {
			continue
		}
		share := item.LineTotal.Mul(item.OutstandingQuantity()).Div(item.Quantity)
		total = total.Add(share)
	}
	return total.Round(moneyPlaces)
}

// RecordReturn adds qty to the returned quantity of the line selling productID
func (s *Sale) RecordReturn(productID uuid.UUID, qty decimal.Decimal) (*Item, error) {
	if err := s.requireOpen("return items of"); err != nil {
		return nil, err
	}
	item := s.GetItemByProduct(productID)
	if item == nil {
		return nil, shared.NotFound("sale item for product", productID)
	}
	if err := item.addReturned(qty); err != nil {
		return nil, err
	}
	s.Touch()
	return item, nil
}

// UndoReturn takes qty back off the returned quantity of a line
func (s *Sale) UndoReturn(itemID uuid.UUID, qty decimal.Decimal) (*Item, error) {
	if err := s.requireOpen("change returns of"); err != nil {
		return nil, err
	}
	item := s.GetItem(itemID)
	if item == nil {
		return nil, shared.NotFound("sale item", itemID)
	}
	if err := item.subtractReturned(qty); err != nil {
		return nil, err
	}
	s.Touch()
	return item, nil
}

// recalculateTotals re-sums every line from scratch
func (s *Sale) recalculateTotals() {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.GrossAmount())
		discount = discount.Add(item.DiscountAmount)
	}
	s.Subtotal = subtotal
	s.TotalDiscount = discount
	s.Tax = decimal.Zero
	s.Total = subtotal.Sub(discount)
	s.Touch()
}

// GetItem returns the line with the given ID
func (s *Sale) GetItem(itemID uuid.UUID) *Item {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return &s.Items[i]
		}
	}
	return nil
}

// GetItemByProduct returns the line selling the given product
func (s *Sale) GetItemByProduct(productID uuid.UUID) *Item {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return &s.Items[i]
		}
	}
	return nil
}

// ItemCount returns the number of lines
func (s *Sale) ItemCount() int {
	return len(s.Items)
}

// Reversal is the stock one sale line gives back on void or refund
type Reversal struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostPrice decimal.Decimal `json:"cost_price"`
	EntryID   uuid.UUID       `json:"entry_id"`
}

// VoidRecord describes a completed void
type VoidRecord struct {
	SaleID    uuid.UUID  `json:"sale_id"`
	Reason    string     `json:"reason"`
	VoidedBy  uuid.UUID  `json:"voided_by"`
	VoidedAt  time.Time  `json:"voided_at"`
	Reversals []Reversal `json:"reversals"`
}
