package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/sale"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service manages point-of-sale transactions. Every stock effect of a sale
// is posted through the ledger in the same transaction as the sale write.
type Service struct {
	scope    appledger.TransactionScope
	saleRepo sale.Repository
	poster   *appledger.Poster
	logger   *zap.Logger
	clock    func() time.Time
}

// NewService creates a new sale Service
func NewService(
	scope appledger.TransactionScope,
	saleRepo sale.Repository,
	poster *appledger.Poster,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:    scope,
		saleRepo: saleRepo,
		poster:   poster,
		logger:   logger,
		clock:    time.Now,
	}
}

// CreateSale checks out a basket. Each line is priced, the sale is stored
// and a Sale debit is posted per line. If any product lacks stock the whole
// sale is rejected.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.InvalidInput("a sale needs at least one item")
	}
	number := strings.TrimSpace(req.SaleNumber)
	if number == "" {
		number = s.nextSaleNumber()
	}
	newSale, err := sale.NewSale(number, req.CashierID)
	if err != nil {
		return nil, err
	}
	for _, in := range req.Items {
		if _, err := newSale.AddItem(toItemInput(in)); err != nil {
			return nil, err
		}
	}

	err = s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		if _, err := repos.SaleRepo().FindBySaleNumber(ctx, number); err == nil {
			return shared.InvalidInput("sale number %s already exists", number)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if err := repos.SaleRepo().Create(ctx, newSale); err != nil {
			return fmt.Errorf("create sale %s: %w", number, err)
		}
		postings := make([]appledger.Posting, len(newSale.Items))
		for i, item := range newSale.Items {
			postings[i] = appledger.Posting{
				ProductID: item.ProductID,
				Kind:      ledger.KindSale,
				Quantity:  item.Quantity,
				Reference: saleReference(newSale, &req.CashierID, item.CostPrice, ""),
			}
		}
		_, err := s.poster.Post(ctx, repos, postings...)
		return err
	})
	if err != nil {
		s.rejected("create", uuid.Nil, err)
		return nil, err
	}

	s.logger.Info("Sale created",
		zap.String("sale_id", newSale.ID.String()),
		zap.String("sale_number", newSale.SaleNumber),
		zap.Int("items", newSale.ItemCount()),
		zap.String("total", newSale.Total.String()),
	)
	resp := ToSaleResponse(newSale)
	return &resp, nil
}

// AddItem adds a line to an open sale and debits its stock
func (s *Service) AddItem(ctx context.Context, saleID uuid.UUID, req SaleItemRequest) (*SaleResponse, error) {
	return s.mutate(ctx, "add_item", saleID, func(repos appledger.TransactionalRepositories, sl *sale.Sale) error {
		item, err := sl.AddItem(toItemInput(req))
		if err != nil {
			return err
		}
		_, err = s.poster.Post(ctx, repos, appledger.Posting{
			ProductID: item.ProductID,
			Kind:      ledger.KindSale,
			Quantity:  item.Quantity,
			Reference: saleReference(sl, &sl.CashierID, item.CostPrice, "item added"),
		})
		return err
	})
}

// UpdateItem changes a line of an open sale. A quantity increase is debited
// (and needs stock); a decrease is credited back as VoidedSale.
func (s *Service) UpdateItem(ctx context.Context, saleID, itemID uuid.UUID, req UpdateItemRequest) (*SaleResponse, error) {
	return s.mutate(ctx, "update_item", saleID, func(repos appledger.TransactionalRepositories, sl *sale.Sale) error {
		delta, err := sl.UpdateItem(itemID, sale.ItemUpdate{
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
			DiscountAmount:  req.DiscountAmount,
		})
		if err != nil {
			return err
		}
		if delta.IsZero() {
			return nil
		}
		item := sl.GetItem(itemID)
		posting := appledger.Posting{
			ProductID: item.ProductID,
			Kind:      ledger.KindSale,
			Quantity:  delta,
			Reference: saleReference(sl, &sl.CashierID, item.CostPrice, "quantity changed"),
		}
		if delta.IsNegative() {
			posting.Kind = ledger.KindVoidedSale
			posting.Quantity = delta.Abs()
		}
		_, err = s.poster.Post(ctx, repos, posting)
		return err
	})
}

// RemoveItem removes a line from an open sale and credits its stock back
func (s *Service) RemoveItem(ctx context.Context, saleID, itemID uuid.UUID) (*SaleResponse, error) {
	return s.mutate(ctx, "remove_item", saleID, func(repos appledger.TransactionalRepositories, sl *sale.Sale) error {
		removed, err := sl.RemoveItem(itemID)
		if err != nil {
			return err
		}
		_, err = s.poster.Post(ctx, repos, appledger.Posting{
			ProductID: removed.ProductID,
			Kind:      ledger.KindVoidedSale,
			Quantity:  removed.Quantity,
			Reference: saleReference(sl, &sl.CashierID, removed.CostPrice, "item removed"),
		})
		return err
	})
}

// Void cancels an open sale and posts a StockIn reversal for every line
func (s *Service) Void(ctx context.Context, saleID uuid.UUID, req VoidRequest) (*VoidResponse, error) {
	if req.ActorID == uuid.Nil {
		return nil, shared.InvalidInput("voiding actor is required")
	}
	var record *sale.VoidRecord
	resp, err := s.mutate(ctx, "void", saleID, func(repos appledger.TransactionalRepositories, sl *sale.Sale) error {
		rec, err := sl.Void(req.Reason, req.ActorID)
		if err != nil {
			return err
		}
		entries, err := s.poster.Post(ctx, repos, reversalPostings(sl, rec.Reversals, &req.ActorID, "void: "+req.Reason)...)
		if err != nil {
			return err
		}
		for i := range entries {
			rec.Reversals[i].EntryID = entries[i].ID
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &VoidResponse{Sale: *resp, Record: *record}, nil
}

// FullRefund refunds an open sale once. Stock is reversed net of what
// customer returns already credited back.
func (s *Service) FullRefund(ctx context.Context, saleID uuid.UUID, req RefundRequest) (*SaleResponse, error) {
	if req.ActorID == uuid.Nil {
		return nil, shared.InvalidInput("refunding actor is required")
	}
	return s.mutate(ctx, "refund", saleID, func(repos appledger.TransactionalRepositories, sl *sale.Sale) error {
		reversals, err := sl.Refund(req.ActorID, req.Method)
		if err != nil {
			return err
		}
		_, err = s.poster.Post(ctx, repos, reversalPostings(sl, reversals, &req.ActorID, "refund: "+req.Method)...)
		return err
	})
}

// GetSale returns a sale with its items
func (s *Service) GetSale(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	sl, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("sale", saleID)
		}
		return nil, err
	}
	resp := ToSaleResponse(sl)
	return &resp, nil
}

// ListSales lists sales, newest first unless the query says otherwise
func (s *Service) ListSales(ctx context.Context, query ListSalesQuery) (*shared.Paginated[SaleResponse], error) {
	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	if query.OrderBy != "" {
		filter.OrderBy = query.OrderBy
	}
	if query.OrderDir != "" {
		filter.OrderDir = query.OrderDir
	}
	status := sale.Status(query.Status)
	if status != "" && !status.IsValid() {
		return nil, shared.InvalidInput("unknown sale status %q", query.Status)
	}

	sales, total, err := s.saleRepo.FindAll(ctx, filter, status)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToSaleResponses(sales), total, filter.Page, filter.PageSize)
	return &page, nil
}

// mutate locks the sale header, applies fn and writes the sale back, all in
// one unit of work. Products are locked after the header by the poster.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	saleID uuid.UUID,
	fn func(repos appledger.TransactionalRepositories, sl *sale.Sale) error,
) (*SaleResponse, error) {
	var updated *sale.Sale
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		sl, err := repos.SaleRepo().FindByIDForUpdate(ctx, saleID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NotFound("sale", saleID)
			}
			return err
		}
		if err := fn(repos, sl); err != nil {
			return err
		}
		if err := repos.SaleRepo().SaveWithLock(ctx, sl); err != nil {
			return err
		}
		updated = sl
		return nil
	})
	if err != nil {
		s.rejected(op, saleID, err)
		return nil, err
	}

	s.logger.Info("Sale updated",
		zap.String("operation", op),
		zap.String("sale_id", updated.ID.String()),
		zap.String("status", updated.Status.String()),
		zap.String("total", updated.Total.String()),
	)
	resp := ToSaleResponse(updated)
	return &resp, nil
}

func (s *Service) rejected(op string, saleID uuid.UUID, err error) {
	if !shared.IsDomainError(err) {
		return
	}
	s.logger.Warn("Sale operation rejected",
		zap.String("operation", op),
		zap.String("sale_id", saleID.String()),
		zap.Error(err),
	)
}

// nextSaleNumber returns S-YYYYMMDD-XXXXXXXX
func (s *Service) nextSaleNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("S-%s-%s", s.clock().Format("20060102"), suffix)
}

func toItemInput(req SaleItemRequest) sale.ItemInput {
	return sale.ItemInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		CostPrice:       req.CostPrice,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
	}
}

func saleReference(sl *sale.Sale, actor *uuid.UUID, cost decimal.Decimal, remarks string) ledger.Reference {
	ref := ledger.Reference{
		Type:    ledger.ReferenceSale,
		ID:      sl.ID.String(),
		Text:    sl.SaleNumber,
		Remarks: remarks,
		ActorID: actor,
	}
	if cost.IsPositive() {
		ref.UnitCost = decimal.NewNullDecimal(cost)
	}
	return ref
}

func reversalPostings(sl *sale.Sale, reversals []sale.Reversal, actor *uuid.UUID, remarks string) []appledger.Posting {
	postings := make([]appledger.Posting, len(reversals))
	for i, r := range reversals {
		postings[i] = appledger.Posting{
			ProductID: r.ProductID,
			Kind:      ledger.KindStockIn,
			Quantity:  r.Quantity,
			Reference: saleReference(sl, actor, r.CostPrice, remarks),
		}
	}
	return postings
}
