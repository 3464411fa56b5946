package handler

import (
	saleapp "github.com/erp/posledger/internal/application/sale"
	"github.com/gin-gonic/gin"
)

// SaleHandler handles checkout, sale edits, voids and refunds
type SaleHandler struct {
	BaseHandler
	saleService *saleapp.Service
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService *saleapp.Service) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req saleapp.CreateSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	sl, err := h.saleService.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sl)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q saleapp.ListSalesQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.saleService.ListSales(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	sl, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sl)
}

// AddItem handles POST /sales/:id/items
func (h *SaleHandler) AddItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req saleapp.SaleItemRequest
	if !bindJSON(c, &req) {
		return
	}
	sl, err := h.saleService.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sl)
}

// UpdateItem handles PUT /sales/:id/items/:item_id
func (h *SaleHandler) UpdateItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "item_id")
	if !ok {
		return
	}
	var req saleapp.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	sl, err := h.saleService.UpdateItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sl)
}

// RemoveItem handles DELETE /sales/:id/items/:item_id
func (h *SaleHandler) RemoveItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "item_id")
	if !ok {
		return
	}
	sl, err := h.saleService.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sl)
}

// Void handles POST /sales/:id/void
func (h *SaleHandler) Void(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req saleapp.VoidRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = actor

	result, err := h.saleService.Void(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Refund handles POST /sales/:id/refund
func (h *SaleHandler) Refund(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req saleapp.RefundRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = actor

	sl, err := h.saleService.FullRefund(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sl)
}
