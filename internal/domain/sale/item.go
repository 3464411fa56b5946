package sale

import (
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Item is one product line on a sale
type Item struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReturnedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "sale_items"
}

// ItemInput is the data needed to add a line
type ItemInput struct {
	ProductID       uuid.UUID
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	CostPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
}

// ItemUpdate changes a line; nil fields are left alone
type ItemUpdate struct {
	Quantity        *decimal.Decimal
	UnitPrice       *decimal.Decimal
	DiscountPercent *decimal.Decimal
	DiscountAmount  *decimal.Decimal
}

func newItem(saleID uuid.UUID, in ItemInput) (*Item, error) {
	if in.ProductID == uuid.Nil {
		return nil, shared.InvalidInput("product ID cannot be empty")
	}
	now := time.Now()
	item := &Item{
		ID:               uuid.New(),
		SaleID:           saleID,
		ProductID:        in.ProductID,
		Quantity:         in.Quantity,
		UnitPrice:        in.UnitPrice,
		CostPrice:        in.CostPrice,
		DiscountPercent:  in.DiscountPercent,
		DiscountAmount:   in.DiscountAmount,
		ReturnedQuantity: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := item.validate(); err != nil {
		return nil, err
	}
	item.calculate()
	return item, nil
}

func (i *Item) validate() error {
	if !i.Quantity.IsPositive() {
		return shared.InvalidInput("quantity must be positive")
	}
	if i.UnitPrice.IsNegative() {
		return shared.InvalidInput("unit price cannot be negative")
	}
	if i.CostPrice.IsNegative() {
		return shared.InvalidInput("cost price cannot be negative")
	}
	if i.DiscountPercent.IsNegative() || i.DiscountPercent.GreaterThan(hundred) {
		return shared.InvalidInput("discount percent must be between 0 and 100")
	}
	if i.DiscountAmount.IsNegative() {
		return shared.InvalidInput("discount amount cannot be negative")
	}
	return nil
}

// calculate derives DiscountAmount and LineTotal. A percentage discount wins
// over a fixed amount; a fixed amount is capped at the gross.
func (i *Item) calculate() {
	gross := i.GrossAmount()
	if i.DiscountPercent.IsPositive() {
		i.DiscountAmount = gross.Mul(i.DiscountPercent).Div(hundred).Round(moneyPlaces)
	} else if i.DiscountAmount.GreaterThan(gross) {
		i.DiscountAmount = gross
	}
	i.LineTotal = gross.Sub(i.DiscountAmount)
}

func (i *Item) apply(upd ItemUpdate) error {
	next := *i
	if upd.Quantity != nil {
		next.Quantity = *upd.Quantity
	}
	if upd.UnitPrice != nil {
		next.UnitPrice = *upd.UnitPrice
	}
	if upd.DiscountPercent != nil {
		next.DiscountPercent = *upd.DiscountPercent
		if upd.DiscountAmount == nil {
			// the old amount was derived from the old percent
			next.DiscountAmount = decimal.Zero
		}
	}
	if upd.DiscountAmount != nil {
		next.DiscountAmount = *upd.DiscountAmount
		if upd.DiscountPercent == nil {
			next.DiscountPercent = decimal.Zero
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	if next.Quantity.LessThan(next.ReturnedQuantity) {
		return shared.InvalidInput("quantity %s cannot be below returned quantity %s",
			next.Quantity, next.ReturnedQuantity)
	}
	next.calculate()
	next.UpdatedAt = time.Now()
	*i = next
	return nil
}

// GrossAmount is unit price times quantity before discount
func (i *Item) GrossAmount() decimal.Decimal {
	return i.UnitPrice.Mul(i.Quantity)
}

// OutstandingQuantity is the sold quantity not yet returned
func (i *Item) OutstandingQuantity() decimal.Decimal {
	return i.Quantity.Sub(i.ReturnedQuantity)
}

func (i *Item) addReturned(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.InvalidInput("returned quantity must be positive")
	}
	if i.ReturnedQuantity.Add(qty).GreaterThan(i.Quantity) {
		return shared.NewDomainErrorf(shared.CodeOverReturn,
			"cannot return %s of product %s: sold %s, already returned %s",
			qty, i.ProductID, i.Quantity, i.ReturnedQuantity)
	}
	i.ReturnedQuantity = i.ReturnedQuantity.Add(qty)
	i.UpdatedAt = time.Now()
	return nil
}

func (i *Item) subtractReturned(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.InvalidInput("quantity must be positive")
	}
	if qty.GreaterThan(i.ReturnedQuantity) {
		return shared.InvalidInput("cannot undo %s returned units of product %s: only %s returned",
			qty, i.ProductID, i.ReturnedQuantity)
	}
	i.ReturnedQuantity = i.ReturnedQuantity.Sub(qty)
	i.UpdatedAt = time.Now()
	return nil
}
