package handler

import (
	receivingapp "github.com/erp/posledger/internal/application/receiving"
	"github.com/gin-gonic/gin"
)

// ReceivingHandler handles purchase orders and goods receipts
type ReceivingHandler struct {
	BaseHandler
	receivingService *receivingapp.Service
}

// NewReceivingHandler creates a new ReceivingHandler
func NewReceivingHandler(receivingService *receivingapp.Service) *ReceivingHandler {
	return &ReceivingHandler{receivingService: receivingService}
}

// CreateOrder handles POST /purchase-orders
func (h *ReceivingHandler) CreateOrder(c *gin.Context) {
	var req receivingapp.CreatePurchaseOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.receivingService.CreatePurchaseOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, po)
}

// GetOrder handles GET /purchase-orders/:id
func (h *ReceivingHandler) GetOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	po, err := h.receivingService.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, po)
}

// RecordReceipt handles POST /receipts
func (h *ReceivingHandler) RecordReceipt(c *gin.Context) {
	var req receivingapp.RecordReceiptRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	record, err := h.receivingService.RecordReceipt(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// QueueReceipt handles POST /receipts/pending
func (h *ReceivingHandler) QueueReceipt(c *gin.Context) {
	var req receivingapp.QueueReceiptRequest
	if !bindJSON(c, &req) {
		return
	}
	receipt, err := h.receivingService.QueueReceipt(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// PostPending handles POST /purchase-orders/:id/post-pending
func (h *ReceivingHandler) PostPending(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req receivingapp.PostPendingRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	result, err := h.receivingService.PostPendingReceiptsToInventory(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RemoveReceipt handles DELETE /receipts/:id
func (h *ReceivingHandler) RemoveReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.receivingService.RemoveReceipt(c.Request.Context(), id, optionalActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
