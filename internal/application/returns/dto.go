package returns

import (
	"time"

	"github.com/erp/posledger/internal/domain/returns"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateReturnRequest opens a return against a sale
type CreateReturnRequest struct {
	SaleID  uuid.UUID `json:"sale_id" binding:"required"`
	ActorID uuid.UUID `json:"-"`
}

// AddReturnedItemRequest brings back a quantity of one sold product.
// UnitPrice defaults to the price on the sale line.
type AddReturnedItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required,decimal_gt0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	ActorID   *uuid.UUID       `json:"-"`
}

// ChangeStatusRequest moves a return through its workflow
type ChangeStatusRequest struct {
	Status  string    `json:"status" binding:"required,oneof=APPROVED REJECTED COMPLETED"`
	ActorID uuid.UUID `json:"-"`
}

// ReturnedItemResponse represents a returned item in API responses
type ReturnedItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	SaleItemID    uuid.UUID       `json:"sale_item_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	LedgerEntryID *uuid.UUID      `json:"ledger_entry_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReturnResponse represents a return transaction in API responses
type ReturnResponse struct {
	ID              uuid.UUID              `json:"id"`
	SaleID          uuid.UUID              `json:"sale_id"`
	CreatedBy       uuid.UUID              `json:"created_by"`
	Status          string                 `json:"status"`
	Items           []ReturnedItemResponse `json:"items"`
	TotalRefund     decimal.Decimal        `json:"total_refund"`
	StatusChangedBy *uuid.UUID             `json:"status_changed_by,omitempty"`
	StatusChangedAt *time.Time             `json:"status_changed_at,omitempty"`
	Version         int                    `json:"version"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// ToReturnResponse converts a domain return to a response
func ToReturnResponse(rt *returns.ReturnTransaction) ReturnResponse {
	items := make([]ReturnedItemResponse, len(rt.Items))
	for i, item := range rt.Items {
		items[i] = ReturnedItemResponse{
			ID:            item.ID,
			SaleItemID:    item.SaleItemID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal,
			LedgerEntryID: item.LedgerEntryID,
			CreatedAt:     item.CreatedAt,
		}
	}
	return ReturnResponse{
		ID:              rt.ID,
		SaleID:          rt.SaleID,
		CreatedBy:       rt.CreatedBy,
		Status:          rt.Status.String(),
		Items:           items,
		TotalRefund:     rt.TotalRefund,
		StatusChangedBy: rt.StatusChangedBy,
		StatusChangedAt: rt.StatusChangedAt,
		Version:         rt.Version,
		CreatedAt:       rt.CreatedAt,
		UpdatedAt:       rt.UpdatedAt,
	}
}

// ToReturnResponses converts a slice of returns
func ToReturnResponses(list []returns.ReturnTransaction) []ReturnResponse {
	out := make([]ReturnResponse, len(list))
	for i := range list {
		out[i] = ToReturnResponse(&list[i])
	}
	return out
}
