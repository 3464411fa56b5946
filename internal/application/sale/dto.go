package sale

import (
	"time"

	"github.com/erp/posledger/internal/domain/sale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateSaleRequest checks out a basket of items
type CreateSaleRequest struct {
	CashierID  uuid.UUID         `json:"cashier_id" binding:"required"`
	SaleNumber string            `json:"sale_number" binding:"max=50"`
	Items      []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SaleItemRequest is one line of a checkout or an added line
type SaleItemRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
}

// UpdateItemRequest changes a line; omitted fields are left alone
type UpdateItemRequest struct {
	Quantity        *decimal.Decimal `json:"quantity" binding:"omitempty,decimal_gt0"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount"`
}

// VoidRequest voids an open sale
type VoidRequest struct {
	Reason  string    `json:"reason" binding:"required,max=255"`
	ActorID uuid.UUID `json:"-"`
}

// RefundRequest fully refunds an open sale
type RefundRequest struct {
	Method  string    `json:"method" binding:"required,max=30"`
	ActorID uuid.UUID `json:"-"`
}

// ListSalesQuery filters the sale listing
type ListSalesQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=OPEN VOIDED REFUNDED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SaleItemResponse represents a sale line in API responses
type SaleItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	LineTotal        decimal.Decimal `json:"line_total"`
	ReturnedQuantity decimal.Decimal `json:"returned_quantity"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID            uuid.UUID          `json:"id"`
	SaleNumber    string             `json:"sale_number"`
	CashierID     uuid.UUID          `json:"cashier_id"`
	Status        string             `json:"status"`
	Items         []SaleItemResponse `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TotalDiscount decimal.Decimal    `json:"total_discount"`
	Tax           decimal.Decimal    `json:"tax"`
	Total         decimal.Decimal    `json:"total"`
	VoidedBy      *uuid.UUID         `json:"voided_by,omitempty"`
	VoidedAt      *time.Time         `json:"voided_at,omitempty"`
	VoidReason    string             `json:"void_reason,omitempty"`
	RefundedBy    *uuid.UUID         `json:"refunded_by,omitempty"`
	RefundedAt    *time.Time         `json:"refunded_at,omitempty"`
	RefundMethod  string             `json:"refund_method,omitempty"`
	RefundAmount  *decimal.Decimal   `json:"refund_amount,omitempty"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// VoidResponse is the sale after a void plus the reversal record
type VoidResponse struct {
	Sale   SaleResponse    `json:"sale"`
	Record sale.VoidRecord `json:"record"`
}

// ToSaleResponse converts a domain sale to a response
func ToSaleResponse(s *sale.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItemResponse{
			ID:               item.ID,
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			CostPrice:        item.CostPrice,
			DiscountPercent:  item.DiscountPercent,
			DiscountAmount:   item.DiscountAmount,
			LineTotal:        item.LineTotal,
			ReturnedQuantity: item.ReturnedQuantity,
		}
	}
	resp := SaleResponse{
		ID:            s.ID,
		SaleNumber:    s.SaleNumber,
		CashierID:     s.CashierID,
		Status:        s.Status.String(),
		Items:         items,
		Subtotal:      s.Subtotal,
		TotalDiscount: s.TotalDiscount,
		Tax:           s.Tax,
		Total:         s.Total,
		VoidedBy:      s.VoidedBy,
		VoidedAt:      s.VoidedAt,
		VoidReason:    s.VoidReason,
		RefundedBy:    s.RefundedBy,
		RefundedAt:    s.RefundedAt,
		RefundMethod:  s.RefundMethod,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.RefundAmount.Valid {
		amount := s.RefundAmount.Decimal
		resp.RefundAmount = &amount
	}
	return resp
}

// ToSaleResponses converts a slice of sales
func ToSaleResponses(sales []sale.Sale) []SaleResponse {
	out := make([]SaleResponse, len(sales))
	for i := range sales {
		out[i] = ToSaleResponse(&sales[i])
	}
	return out
}
