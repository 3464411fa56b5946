package handler

import (
	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler exposes products and their stock ledger
type LedgerHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *appledger.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// ListQuery is the common page/sort/search query of list endpoints
type ListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"max=50"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"max=100"`
}

// Filter converts the query to a repository filter, filling defaults
func (q ListQuery) Filter() shared.Filter {
	f := shared.DefaultFilter()
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		f.OrderDir = q.OrderDir
	}
	f.Search = q.Search
	return f
}

// OnHandResponse is the current stock of one product
type OnHandResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
}

// RegisterProduct handles POST /products
func (h *LedgerHandler) RegisterProduct(c *gin.Context) {
	var req appledger.RegisterProductRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	product, err := h.ledgerService.RegisterProduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// ListProducts handles GET /products
func (h *LedgerHandler) ListProducts(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	products, err := h.ledgerService.ListProducts(c.Request.Context(), q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// ListBelowReorder handles GET /products/below-reorder
func (h *LedgerHandler) ListBelowReorder(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	products, err := h.ledgerService.ListBelowReorder(c.Request.Context(), q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// GetProduct handles GET /products/:id
func (h *LedgerHandler) GetProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.ledgerService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// OnHand handles GET /products/:id/on-hand
func (h *LedgerHandler) OnHand(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	qty, err := h.ledgerService.OnHand(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OnHandResponse{ProductID: id, OnHand: qty})
}

// History handles GET /products/:id/history
func (h *LedgerHandler) History(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q appledger.HistoryQuery
	if !bindQuery(c, &q) {
		return
	}
	entries, err := h.ledgerService.History(c.Request.Context(), id, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// EntriesByReference handles GET /ledger/entries
func (h *LedgerHandler) EntriesByReference(c *gin.Context) {
	var q appledger.ReferenceQuery
	if !bindQuery(c, &q) {
		return
	}
	entries, err := h.ledgerService.EntriesByReference(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Recompute handles POST /products/:id/recompute
func (h *LedgerHandler) Recompute(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	drift, err := h.ledgerService.Recompute(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, drift)
}

// Append handles POST /ledger/entries
func (h *LedgerHandler) Append(c *gin.Context) {
	var req appledger.AppendRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	entry, err := h.ledgerService.Append(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// Adjust handles POST /ledger/adjustments
func (h *LedgerHandler) Adjust(c *gin.Context) {
	var req appledger.AdjustRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	entry, err := h.ledgerService.Adjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// WriteOff handles POST /ledger/write-offs
func (h *LedgerHandler) WriteOff(c *gin.Context) {
	var req appledger.WriteOffRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ActorID = optionalActor(c)

	entry, err := h.ledgerService.WriteOffBadOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// ReconcileQuery selects report-only or repair mode
type ReconcileQuery struct {
	Repair bool `form:"repair"`
}

// Reconcile handles POST /ledger/reconcile. Only drifted products are returned.
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	var q ReconcileQuery
	if !bindQuery(c, &q) {
		return
	}
	drifts, err := h.ledgerService.Reconcile(c.Request.Context(), q.Repair)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, drifts)
}
