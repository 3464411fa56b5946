package handler

import (
	returnsapp "github.com/erp/posledger/internal/application/returns"
	"github.com/gin-gonic/gin"
)

// ReturnHandler handles return transactions against sales
type ReturnHandler struct {
	BaseHandler
	returnService *returnsapp.Service
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(returnService *returnsapp.Service) *ReturnHandler {
	return &ReturnHandler{returnService: returnService}
}

// Create handles POST /returns
func (h *ReturnHandler) Create(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req returnsapp.CreateReturnRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = actor

	rt, err := h.returnService.CreateReturn(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rt)
}

// Get handles GET /returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	rt, err := h.returnService.GetReturn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rt)
}

// ListBySale handles GET /sales/:id/returns
func (h *ReturnHandler) ListBySale(c *gin.Context) {
	saleID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.returnService.ListBySale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// AddItem handles POST /returns/:id/items
func (h *ReturnHandler) AddItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req returnsapp.AddReturnedItemRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	rt, err := h.returnService.AddReturnedItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rt)
}

// RemoveItem handles DELETE /returns/:id/items/:item_id
func (h *ReturnHandler) RemoveItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "item_id")
	if !ok {
		return
	}
	rt, err := h.returnService.RemoveReturnedItem(c.Request.Context(), id, itemID, optionalActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rt)
}

// ChangeStatus handles POST /returns/:id/status
func (h *ReturnHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req returnsapp.ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = actor

	rt, err := h.returnService.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rt)
}
