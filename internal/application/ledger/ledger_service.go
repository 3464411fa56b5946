package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// reconcilePageSize is how many products Reconcile reads per page
const reconcilePageSize = 500

// LedgerService exposes the stock ledger: appends, reads and cache repair
type LedgerService struct {
	scope       TransactionScope
	productRepo ledger.ProductRepository
	entryRepo   ledger.EntryRepository
	poster      *Poster
	logger      *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	productRepo ledger.ProductRepository,
	entryRepo ledger.EntryRepository,
	poster *Poster,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:       scope,
		productRepo: productRepo,
		entryRepo:   entryRepo,
		poster:      poster,
		logger:      logger,
	}
}

// RegisterProduct creates a product. Opening stock, if any, is posted as a
// StockIn entry so OnHand stays equal to the ledger sum from the start.
func (s *LedgerService) RegisterProduct(ctx context.Context, req RegisterProductRequest) (*ProductResponse, error) {
	product, err := ledger.NewProduct(req.SKU, req.Name, req.ReorderLevel)
	if err != nil {
		return nil, err
	}
	if req.OpeningStock.IsNegative() {
		return nil, shared.InvalidInput("opening stock cannot be negative")
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProductRepo().FindBySKU(ctx, product.SKU); err == nil {
			return shared.InvalidInput("product with SKU %s already exists", product.SKU)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if err := repos.ProductRepo().Create(ctx, product); err != nil {
			return fmt.Errorf("create product %s: %w", product.SKU, err)
		}
		if !req.OpeningStock.IsPositive() {
			return nil
		}
		ref := ledger.Reference{
			Type:    ledger.ReferenceOpening,
			ID:      product.ID.String(),
			Remarks: "opening stock",
			ActorID: req.ActorID,
		}
		if req.UnitCost.IsPositive() {
			ref.UnitCost = decimal.NewNullDecimal(req.UnitCost)
		}
		if _, err := s.poster.Post(ctx, repos, Posting{
			ProductID: product.ID,
			Kind:      ledger.KindStockIn,
			Quantity:  req.OpeningStock,
			Reference: ref,
		}); err != nil {
			return err
		}
		// Post worked on its own locked copy; reload the committed state
		reloaded, err := repos.ProductRepo().FindByID(ctx, product.ID)
		if err != nil {
			return err
		}
		product = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product registered",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
		zap.String("opening_stock", req.OpeningStock.String()),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProduct returns a product with its cached on-hand quantity
func (s *LedgerService) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListProducts lists products
func (s *LedgerService) ListProducts(ctx context.Context, filter shared.Filter) ([]ProductResponse, error) {
	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// Append posts a single entry of any kind
func (s *LedgerService) Append(ctx context.Context, req AppendRequest) (*EntryResponse, error) {
	kind, err := ledger.ParseEntryKind(req.Kind)
	if err != nil {
		return nil, err
	}
	ref := ledger.Reference{
		Type:    ledger.ReferenceType(req.ReferenceType),
		ID:      req.ReferenceID,
		Text:    req.Reference,
		Remarks: req.Remarks,
		ActorID: req.ActorID,
	}
	if req.UnitCost != nil {
		ref.UnitCost = decimal.NewNullDecimal(*req.UnitCost)
	}
	return s.postOne(ctx, Posting{
		ProductID: req.ProductID,
		Kind:      kind,
		Quantity:  req.Quantity,
		Reference: ref,
	})
}

// Adjust posts a manual Adjustment. The sign of the quantity is the direction.
func (s *LedgerService) Adjust(ctx context.Context, req AdjustRequest) (*EntryResponse, error) {
	return s.postOne(ctx, Posting{
		ProductID: req.ProductID,
		Kind:      ledger.KindAdjustment,
		Quantity:  req.Quantity,
		Reference: ledger.Reference{
			Type:    ledger.ReferenceManual,
			Text:    req.Reference,
			Remarks: req.Reason,
			ActorID: req.ActorID,
		},
	})
}

// WriteOffBadOrder posts a BadOrder debit for damaged or expired stock
func (s *LedgerService) WriteOffBadOrder(ctx context.Context, req WriteOffRequest) (*EntryResponse, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.InvalidInput("write-off quantity must be positive")
	}
	return s.postOne(ctx, Posting{
		ProductID: req.ProductID,
		Kind:      ledger.KindBadOrder,
		Quantity:  req.Quantity,
		Reference: ledger.Reference{
			Type:    ledger.ReferenceManual,
			Text:    req.Reference,
			Remarks: req.Reason,
			ActorID: req.ActorID,
		},
	})
}

func (s *LedgerService) postOne(ctx context.Context, posting Posting) (*EntryResponse, error) {
	var entry *ledger.Entry
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entries, err := s.poster.Post(ctx, repos, posting)
		if err != nil {
			return err
		}
		entry = entries[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToEntryResponse(entry)
	return &resp, nil
}

// OnHand returns the cached on-hand quantity of a product
func (s *LedgerService) OnHand(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.OnHand, nil
}

// History returns a product's entries, most recent first
func (s *LedgerService) History(ctx context.Context, productID uuid.UUID, query HistoryQuery) ([]EntryResponse, error) {
	if _, err := s.findProduct(ctx, productID); err != nil {
		return nil, err
	}
	filter := ledger.HistoryFilter{
		ReferenceType: ledger.ReferenceType(query.ReferenceType),
		ReferenceID:   query.ReferenceID,
		From:          query.From,
		To:            query.To,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	for _, k := range query.Kinds {
		kind, err := ledger.ParseEntryKind(k)
		if err != nil {
			return nil, err
		}
		filter.Kinds = append(filter.Kinds, kind)
	}
	entries, err := s.entryRepo.FindByProduct(ctx, productID, filter)
	if err != nil {
		return nil, err
	}
	return ToEntryResponses(entries), nil
}

// EntriesByReference returns every entry posted for one workflow record
// (a sale, receipt, return, ...), oldest first, across all products
func (s *LedgerService) EntriesByReference(ctx context.Context, query ReferenceQuery) ([]EntryResponse, error) {
	refType, err := ledger.ParseReferenceType(query.ReferenceType)
	if err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.FindByReference(ctx, refType, query.ReferenceID)
	if err != nil {
		return nil, err
	}
	return ToEntryResponses(entries), nil
}

// ListBelowReorder lists products at or under their reorder level
func (s *LedgerService) ListBelowReorder(ctx context.Context, filter shared.Filter) ([]ProductResponse, error) {
	products, err := s.productRepo.FindBelowReorder(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// Recompute compares one product's cached OnHand with its ledger sum, read
// together under the product lock
func (s *LedgerService) Recompute(ctx context.Context, productID uuid.UUID) (*DriftResponse, error) {
	drift, err := s.confirmDrift(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	resp := ToDriftResponse(drift)
	return &resp, nil
}

// Reconcile checks every product against its ledger sum and returns the ones
// that drifted. The bulk sums only nominate candidates; each one is confirmed
// under its row lock before it is reported. With repair set, a confirmed
// drift is fixed by overwriting the cache with the ledger sum. The ledger
// itself is never modified.
func (s *LedgerService) Reconcile(ctx context.Context, repair bool) ([]DriftResponse, error) {
	sums, err := s.entryRepo.SumAll(ctx)
	if err != nil {
		return nil, err
	}

	drifts := make([]DriftResponse, 0)
	filter := shared.Filter{Page: 1, PageSize: reconcilePageSize, OrderBy: "id", OrderDir: "asc"}
	for {
		products, err := s.productRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		for i := range products {
			candidate := ledger.Drift{
				ProductID: products[i].ID,
				Cached:    products[i].OnHand,
				Ledger:    sums[products[i].ID],
			}
			if candidate.InSync() {
				continue
			}
			drift, err := s.confirmDrift(ctx, products[i].ID, repair)
			if err != nil {
				return nil, err
			}
			if drift.InSync() {
				s.logger.Debug("Drift candidate settled under lock",
					zap.String("product_id", drift.ProductID.String()))
				continue
			}
			s.logger.Warn("Stock cache drifted from ledger",
				zap.String("product_id", drift.ProductID.String()),
				zap.String("sku", drift.SKU),
				zap.String("cached", drift.Cached.String()),
				zap.String("ledger", drift.Ledger.String()),
				zap.Bool("repaired", drift.Repaired),
			)
			drifts = append(drifts, ToDriftResponse(drift))
		}
		if len(products) < filter.PageSize {
			break
		}
		filter.Page++
	}
	return drifts, nil
}

// confirmDrift re-reads the product and its ledger sum under the row lock so
// a concurrent append cannot slip between the two reads. A repaired drift
// keeps the values seen before the write.
func (s *LedgerService) confirmDrift(ctx context.Context, productID uuid.UUID, repair bool) (ledger.Drift, error) {
	var drift ledger.Drift
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		sum, err := repos.EntryRepo().SumByProduct(ctx, productID)
		if err != nil {
			return err
		}
		drift = ledger.Drift{ProductID: product.ID, SKU: product.SKU, Cached: product.OnHand, Ledger: sum}
		if drift.InSync() || !repair {
			return nil
		}
		product.ResetOnHand(sum)
		if err := repos.ProductRepo().SaveWithLock(ctx, product); err != nil {
			return err
		}
		drift.Repaired = true
		return nil
	})
	return drift, err
}
