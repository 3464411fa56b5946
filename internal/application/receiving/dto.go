package receiving

import (
	"time"

	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/receiving"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderRequest opens a purchase order
type CreatePurchaseOrderRequest struct {
	OrderNumber  string             `json:"order_number" binding:"required,max=50"`
	SupplierName string             `json:"supplier_name" binding:"max=200"`
	Items        []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderLineRequest is one ordered product
type OrderLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Unit      string          `json:"unit" binding:"max=20"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// RecordReceiptRequest receives goods against an order line and posts them
type RecordReceiptRequest struct {
	PurchaseOrderItemID uuid.UUID       `json:"purchase_order_item_id" binding:"required"`
	Quantity            decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	AllowOverReceive    bool            `json:"allow_over_receive"`
	ActorID             *uuid.UUID      `json:"-"`
}

// QueueReceiptRequest stores a pending receipt without touching stock
type QueueReceiptRequest struct {
	PurchaseOrderItemID uuid.UUID       `json:"purchase_order_item_id" binding:"required"`
	Quantity            decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
}

// PostPendingRequest posts every pending receipt of an order
type PostPendingRequest struct {
	AllowOverReceive bool       `json:"allow_over_receive"`
	ActorID          *uuid.UUID `json:"-"`
}

// PurchaseOrderItemResponse represents an order line in API responses
type PurchaseOrderItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	Unit              string          `json:"unit"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	OrderNumber  string                      `json:"order_number"`
	SupplierName string                      `json:"supplier_name,omitempty"`
	Status       string                      `json:"status"`
	Items        []PurchaseOrderItemResponse `json:"items"`
	Receipts     []ReceiptResponse           `json:"receipts,omitempty"`
	ReceivedAt   *time.Time                  `json:"received_at,omitempty"`
	Version      int                         `json:"version"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// ReceiptResponse represents a receipt row in API responses
type ReceiptResponse struct {
	ID                  uuid.UUID       `json:"id"`
	PurchaseOrderID     uuid.UUID       `json:"purchase_order_id"`
	PurchaseOrderItemID uuid.UUID       `json:"purchase_order_item_id"`
	ProductID           uuid.UUID       `json:"product_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	Status              string          `json:"status"`
	ProcessedAt         *time.Time      `json:"processed_at,omitempty"`
	ProcessedBy         *uuid.UUID      `json:"processed_by,omitempty"`
	LedgerEntryID       *uuid.UUID      `json:"ledger_entry_id,omitempty"`
	RemovedAt           *time.Time      `json:"removed_at,omitempty"`
	RemovedBy           *uuid.UUID      `json:"removed_by,omitempty"`
	ReversalEntryID     *uuid.UUID      `json:"reversal_entry_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ReceiptRecord is the outcome of a posted receipt
type ReceiptRecord struct {
	Receipt       ReceiptResponse         `json:"receipt"`
	Entry         appledger.EntryResponse `json:"entry"`
	PurchaseOrder PurchaseOrderResponse   `json:"purchase_order"`
}

// BatchResult is the outcome of posting an order's pending receipts
type BatchResult struct {
	PurchaseOrder PurchaseOrderResponse `json:"purchase_order"`
	Processed     []ReceiptResponse     `json:"processed"`
}

// RemovalResult is the outcome of removing a receipt
type RemovalResult struct {
	Receipt       ReceiptResponse          `json:"receipt"`
	Reversal      *appledger.EntryResponse `json:"reversal,omitempty"`
	PurchaseOrder PurchaseOrderResponse    `json:"purchase_order"`
}

// ToPurchaseOrderResponse converts a domain order to a response
func ToPurchaseOrderResponse(po *receiving.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(po.Items))
	for i := range po.Items {
		item := &po.Items[i]
		items[i] = PurchaseOrderItemResponse{
			ID:                item.ID,
			ProductID:         item.ProductID,
			Unit:              item.Unit,
			QuantityOrdered:   item.QuantityOrdered,
			QuantityReceived:  item.QuantityReceived,
			RemainingQuantity: item.RemainingQuantity(),
			UnitCost:          item.UnitCost,
		}
	}
	return PurchaseOrderResponse{
		ID:           po.ID,
		OrderNumber:  po.OrderNumber,
		SupplierName: po.SupplierName,
		Status:       po.Status.String(),
		Items:        items,
		ReceivedAt:   po.ReceivedAt,
		Version:      po.Version,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}

// ToReceiptResponse converts a receipt row to a response
func ToReceiptResponse(r *receiving.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:                  r.ID,
		PurchaseOrderID:     r.PurchaseOrderID,
		PurchaseOrderItemID: r.PurchaseOrderItemID,
		ProductID:           r.ProductID,
		Quantity:            r.Quantity,
		Status:              r.Status.String(),
		ProcessedAt:         r.ProcessedAt,
		ProcessedBy:         r.ProcessedBy,
		LedgerEntryID:       r.LedgerEntryID,
		RemovedAt:           r.RemovedAt,
		RemovedBy:           r.RemovedBy,
		ReversalEntryID:     r.ReversalEntryID,
		CreatedAt:           r.CreatedAt,
	}
}

// ToReceiptResponses converts a slice of receipts
func ToReceiptResponses(receipts []receiving.Receipt) []ReceiptResponse {
	out := make([]ReceiptResponse, len(receipts))
	for i := range receipts {
		out[i] = ToReceiptResponse(&receipts[i])
	}
	return out
}
