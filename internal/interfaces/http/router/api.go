package router

import (
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/erp/posledger/internal/infrastructure/config"
	"github.com/erp/posledger/internal/infrastructure/logger"
	"github.com/erp/posledger/internal/interfaces/http/handler"
	"github.com/erp/posledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler the API mounts
type Handlers struct {
	Ledger    *handler.LedgerHandler
	Sale      *handler.SaleHandler
	Receiving *handler.ReceivingHandler
	Return    *handler.ReturnHandler
	System    *handler.SystemHandler
}

// EngineConfig carries what NewEngine needs besides the logger
type EngineConfig struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
}

// NewEngine creates a gin engine with the request middleware chain:
// tracing, request ID, panic recovery, access log, security headers, CORS,
// body limit and actor extraction.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	if cfg.Tracing {
		engine.Use(otelgin.Middleware(cfg.ServiceName))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Actor())
	return engine, nil
}

// Mount registers the health check and every API route on engine.
// Writes under /api/v1 are deduplicated through store when it is non-nil.
func Mount(engine *gin.Engine, h Handlers, store shared.IdempotencyStore, idempotencyTTL time.Duration, log *zap.Logger) *Router {
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	if store != nil {
		r.Use(middleware.Idempotency(store, idempotencyTTL, log))
	}

	r.Register(productRoutes(h.Ledger)).
		Register(ledgerRoutes(h.Ledger)).
		Register(saleRoutes(h.Sale, h.Return)).
		Register(receivingRoutes(h.Receiving)).
		Register(returnRoutes(h.Return)).
		Register(systemRoutes(h.System))
	r.Setup()
	return r
}

func productRoutes(h *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("products", "/products")
	g.POST("", h.RegisterProduct)
	g.GET("", h.ListProducts)
	g.GET("/below-reorder", h.ListBelowReorder)
	g.GET("/:id", h.GetProduct)
	g.GET("/:id/on-hand", h.OnHand)
	g.GET("/:id/history", h.History)
	g.POST("/:id/recompute", h.Recompute)
	return g
}

func ledgerRoutes(h *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("ledger", "/ledger")
	g.POST("/entries", h.Append)
	g.GET("/entries", h.EntriesByReference)
	g.POST("/adjustments", h.Adjust)
	g.POST("/write-offs", h.WriteOff)
	g.POST("/reconcile", h.Reconcile)
	return g
}

func saleRoutes(h *handler.SaleHandler, rh *handler.ReturnHandler) *DomainGroup {
	g := NewDomainGroup("sales", "/sales")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/items", h.AddItem)
	g.PUT("/:id/items/:item_id", h.UpdateItem)
	g.DELETE("/:id/items/:item_id", h.RemoveItem)
	g.POST("/:id/void", h.Void)
	g.POST("/:id/refund", h.Refund)
	g.GET("/:id/returns", rh.ListBySale)
	return g
}

func receivingRoutes(h *handler.ReceivingHandler) *DomainGroup {
	g := NewDomainGroup("receiving", "")
	orders := g.Group("purchase-orders", "/purchase-orders")
	orders.POST("", h.CreateOrder)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/post-pending", h.PostPending)

	receipts := g.Group("receipts", "/receipts")
	receipts.POST("", h.RecordReceipt)
	receipts.POST("/pending", h.QueueReceipt)
	receipts.DELETE("/:id", h.RemoveReceipt)
	return g
}

func returnRoutes(h *handler.ReturnHandler) *DomainGroup {
	g := NewDomainGroup("returns", "/returns")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/items", h.AddItem)
	g.DELETE("/:id/items/:item_id", h.RemoveItem)
	g.POST("/:id/status", h.ChangeStatus)
	return g
}

func systemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.Info)
	g.GET("/ping", h.Ping)
	return g
}
