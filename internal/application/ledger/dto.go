package ledger

import (
	"time"

	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductResponse represents a product and its stock in API responses
type ProductResponse struct {
	ID             uuid.UUID       `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	OnHand         decimal.Decimal `json:"on_hand"`
	ReorderLevel   decimal.Decimal `json:"reorder_level"`
	IsBelowReorder bool            `json:"is_below_reorder"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID            uuid.UUID        `json:"id"`
	Seq           int64            `json:"seq"`
	ProductID     uuid.UUID        `json:"product_id"`
	Kind          string           `json:"kind"`
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	BalanceAfter  decimal.Decimal  `json:"balance_after"`
	Reference     string           `json:"reference,omitempty"`
	Remarks       string           `json:"remarks,omitempty"`
	ReferenceType string           `json:"reference_type,omitempty"`
	ReferenceID   string           `json:"reference_id,omitempty"`
	ActorID       *uuid.UUID       `json:"actor_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// RegisterProductRequest creates a product, optionally with opening stock
type RegisterProductRequest struct {
	SKU          string          `json:"sku" binding:"required,max=64"`
	Name         string          `json:"name" binding:"required,max=200"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	ActorID      *uuid.UUID      `json:"-"`
}

// AppendRequest is a raw ledger append
type AppendRequest struct {
	ProductID     uuid.UUID        `json:"product_id" binding:"required"`
	Kind          string           `json:"kind" binding:"required"`
	Quantity      decimal.Decimal  `json:"quantity" binding:"required"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
	Reference     string           `json:"reference" binding:"max=100"`
	Remarks       string           `json:"remarks" binding:"max=255"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   string           `json:"reference_id" binding:"max=50"`
	ActorID       *uuid.UUID       `json:"-"`
}

// AdjustRequest is a manual correction; a negative quantity removes stock
type AdjustRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Reason    string          `json:"reason" binding:"required,max=255"`
	Reference string          `json:"reference" binding:"max=100"`
	ActorID   *uuid.UUID      `json:"-"`
}

// WriteOffRequest removes damaged or expired stock
type WriteOffRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	Reason    string          `json:"reason" binding:"required,max=255"`
	Reference string          `json:"reference" binding:"max=100"`
	ActorID   *uuid.UUID      `json:"-"`
}

// HistoryQuery represents filter options for ledger history
type HistoryQuery struct {
	Kinds         []string   `form:"kind"`
	ReferenceType string     `form:"reference_type"`
	ReferenceID   string     `form:"reference_id"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int        `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset        int        `form:"offset" binding:"omitempty,min=0"`
}

// ReferenceQuery selects the entries of one workflow record
type ReferenceQuery struct {
	ReferenceType string `form:"reference_type" binding:"required"`
	ReferenceID   string `form:"reference_id" binding:"required,max=100"`
}

// DriftResponse reports a product whose cache disagreed with its ledger
type DriftResponse struct {
	ProductID  uuid.UUID       `json:"product_id"`
	SKU        string          `json:"sku"`
	Cached     decimal.Decimal `json:"cached"`
	Ledger     decimal.Decimal `json:"ledger"`
	Difference decimal.Decimal `json:"difference"`
	Repaired   bool            `json:"repaired"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *ledger.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		OnHand:         p.OnHand,
		ReorderLevel:   p.ReorderLevel,
		IsBelowReorder: p.IsBelowReorder(),
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []ledger.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}

// ToEntryResponse converts a ledger entry to a response
func ToEntryResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:            e.ID,
		Seq:           e.Seq,
		ProductID:     e.ProductID,
		Kind:          e.Kind.String(),
		Quantity:      e.Quantity,
		BalanceAfter:  e.BalanceAfter,
		Reference:     e.Reference,
		Remarks:       e.Remarks,
		ReferenceType: string(e.ReferenceType),
		ReferenceID:   e.ReferenceID,
		ActorID:       e.ActorID,
		CreatedAt:     e.CreatedAt,
	}
	if e.UnitCost.Valid {
		cost := e.UnitCost.Decimal
		resp.UnitCost = &cost
	}
	return resp
}

// ToEntryResponses converts a slice of entries
func ToEntryResponses(entries []ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i := range entries {
		out[i] = ToEntryResponse(&entries[i])
	}
	return out
}

// ToDriftResponse converts a drift report
func ToDriftResponse(d ledger.Drift) DriftResponse {
	return DriftResponse{
		ProductID:  d.ProductID,
		SKU:        d.SKU,
		Cached:     d.Cached,
		Ledger:     d.Ledger,
		Difference: d.Difference(),
		Repaired:   d.Repaired,
	}
}
