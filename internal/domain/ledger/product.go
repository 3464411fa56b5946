package ledger

import (
	"strings"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the stock aggregate: a catalog identity plus the cached on-hand
// quantity. OnHand always equals the sum of the product's ledger entries and
// only changes through Apply.
type Product struct {
	shared.BaseAggregateRoot
	SKU          string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(200);not null"`
	OnHand       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product with zero stock
func NewProduct(sku, name string, reorderLevel decimal.Decimal) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.InvalidInput("SKU cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.InvalidInput("product name cannot be empty")
	}
	if reorderLevel.IsNegative() {
		return nil, shared.InvalidInput("reorder level cannot be negative")
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		OnHand:            decimal.Zero,
		ReorderLevel:      reorderLevel,
	}, nil
}

// CanSupply returns true if qty can be taken out without going negative
func (p *Product) CanSupply(qty decimal.Decimal) bool {
	return p.OnHand.GreaterThanOrEqual(qty)
}

// Apply adds the entry's signed quantity to OnHand and stamps the entry with
// the resulting balance. Outbound entries that would leave OnHand negative
// fail with INSUFFICIENT_STOCK unless allowNegative is set.
func (p *Product) Apply(entry *Entry, allowNegative bool) error {
	if entry.ProductID != p.ID {
		return shared.InvalidInput("ledger entry for product %s applied to product %s", entry.ProductID, p.ID)
	}
	if entry.IsOutbound() && !allowNegative && !p.CanSupply(entry.Quantity.Abs()) {
		return InsufficientStock(p, entry.Quantity.Abs())
	}
	next := p.OnHand.Add(entry.Quantity)
	p.OnHand = next
	entry.BalanceAfter = next
	p.Touch()
	return nil
}

// ResetOnHand overwrites the cache with a value recomputed from the ledger.
// It is the repair path for a drifted cache and never touches the ledger.
func (p *Product) ResetOnHand(ledgerSum decimal.Decimal) {
	p.OnHand = ledgerSum
	p.Touch()
}

// IsBelowReorder returns true if OnHand is at or under the reorder threshold
func (p *Product) IsBelowReorder() bool {
	return p.ReorderLevel.IsPositive() && p.OnHand.LessThanOrEqual(p.ReorderLevel)
}

// InsufficientStock builds an INSUFFICIENT_STOCK error naming the product
func InsufficientStock(p *Product, requested decimal.Decimal) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeInsufficientStock,
		"insufficient stock for product %s (%s): on hand %s, requested %s",
		p.SKU, p.ID, p.OnHand.String(), requested.String())
}

// Drift describes the gap between a product's cached OnHand and its ledger sum
type Drift struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Cached    decimal.Decimal `json:"cached"`
	Ledger    decimal.Decimal `json:"ledger"`
	Repaired  bool            `json:"repaired"`
}

// Difference returns cached minus ledger
func (d Drift) Difference() decimal.Decimal {
	return d.Cached.Sub(d.Ledger)
}

// InSync returns true if the cache matches the ledger
func (d Drift) InSync() bool {
	return d.Cached.Equal(d.Ledger)
}
