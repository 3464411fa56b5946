package returns

import (
	"context"
	"errors"
	"fmt"

	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/returns"
	"github.com/erp/posledger/internal/domain/sale"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service records customer returns against open sales. Returned stock is
// credited through the ledger and the sale line's returned quantity is
// updated in the same transaction.
type Service struct {
	scope      appledger.TransactionScope
	returnRepo returns.Repository
	poster     *appledger.Poster
	logger     *zap.Logger
}

// NewService creates a new returns Service
func NewService(
	scope appledger.TransactionScope,
	returnRepo returns.Repository,
	poster *appledger.Poster,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:      scope,
		returnRepo: returnRepo,
		poster:     poster,
		logger:     logger,
	}
}

// CreateReturn opens an empty PENDING return. Only OPEN sales accept
// returns: a voided or refunded sale already had all of its stock reversed.
func (s *Service) CreateReturn(ctx context.Context, req CreateReturnRequest) (*ReturnResponse, error) {
	rt, err := returns.NewReturnTransaction(req.SaleID, req.ActorID)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		sl, err := findSale(ctx, repos, req.SaleID, false)
		if err != nil {
			return err
		}
		if !sl.IsOpen() {
			return shared.InvalidState("sale %s is %s and cannot take returns", sl.SaleNumber, sl.Status)
		}
		if err := repos.ReturnRepo().Create(ctx, rt); err != nil {
			return fmt.Errorf("create return for sale %s: %w", sl.SaleNumber, err)
		}
		return nil
	})
	if err != nil {
		s.rejected("create", req.SaleID, err)
		return nil, err
	}

	s.logger.Info("Return created",
		zap.String("return_id", rt.ID.String()),
		zap.String("sale_id", rt.SaleID.String()),
	)
	resp := ToReturnResponse(rt)
	return &resp, nil
}

// AddReturnedItem brings back qty of a sold product. It fails with
// OVER_RETURN when the sale line's returned quantity would exceed the sold
// quantity, and posts a Return credit otherwise.
func (s *Service) AddReturnedItem(ctx context.Context, returnID uuid.UUID, req AddReturnedItemRequest) (*ReturnResponse, error) {
	return s.mutate(ctx, "add_item", returnID, func(repos appledger.TransactionalRepositories, rt *returns.ReturnTransaction, sl *sale.Sale) error {
		saleItem, err := sl.RecordReturn(req.ProductID, req.Quantity)
		if err != nil {
			return err
		}
		unitPrice := saleItem.UnitPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		item, err := rt.AddItem(saleItem.ID, req.ProductID, req.Quantity, unitPrice)
		if err != nil {
			return err
		}
		entries, err := s.poster.Post(ctx, repos, appledger.Posting{
			ProductID: req.ProductID,
			Kind:      ledger.KindReturn,
			Quantity:  req.Quantity,
			Reference: ledger.Reference{
				Type:    ledger.ReferenceReturn,
				ID:      rt.ID.String(),
				Text:    sl.SaleNumber,
				ActorID: req.ActorID,
			},
		})
		if err != nil {
			return err
		}
		item.LedgerEntryID = &entries[0].ID
		return nil
	})
}

// RemoveReturnedItem takes an item off a PENDING return. The sale line's
// returned quantity goes back down and the stock is debited again with a
// compensating Adjustment.
func (s *Service) RemoveReturnedItem(ctx context.Context, returnID, itemID uuid.UUID, actor *uuid.UUID) (*ReturnResponse, error) {
	return s.mutate(ctx, "remove_item", returnID, func(repos appledger.TransactionalRepositories, rt *returns.ReturnTransaction, sl *sale.Sale) error {
		removed, err := rt.RemoveItem(itemID)
		if err != nil {
			return err
		}
		if _, err := sl.UndoReturn(removed.SaleItemID, removed.Quantity); err != nil {
			return err
		}
		_, err = s.poster.Post(ctx, repos, appledger.Posting{
			ProductID: removed.ProductID,
			Kind:      ledger.KindAdjustment,
			Quantity:  removed.Quantity.Neg(),
			Reference: ledger.Reference{
				Type:    ledger.ReferenceReturn,
				ID:      rt.ID.String(),
				Text:    sl.SaleNumber,
				Remarks: "returned item removed",
				ActorID: actor,
			},
		})
		return err
	})
}

// ChangeStatus moves a return to APPROVED, REJECTED or COMPLETED. It only
// records the decision; stock was posted when items were added.
func (s *Service) ChangeStatus(ctx context.Context, returnID uuid.UUID, req ChangeStatusRequest) (*ReturnResponse, error) {
	target, err := returns.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if req.ActorID == uuid.Nil {
		return nil, shared.InvalidInput("actor is required to change a return's status")
	}

	var updated *returns.ReturnTransaction
	err = s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		rt, err := findReturn(ctx, repos, returnID)
		if err != nil {
			return err
		}
		if err := rt.ChangeStatus(target, req.ActorID); err != nil {
			return err
		}
		if err := repos.ReturnRepo().SaveWithLock(ctx, rt); err != nil {
			return err
		}
		updated = rt
		return nil
	})
	if err != nil {
		s.rejected("change_status", returnID, err)
		return nil, err
	}

	s.logger.Info("Return status changed",
		zap.String("return_id", returnID.String()),
		zap.String("status", updated.Status.String()),
	)
	resp := ToReturnResponse(updated)
	return &resp, nil
}

// GetReturn returns a return with its items
func (s *Service) GetReturn(ctx context.Context, returnID uuid.UUID) (*ReturnResponse, error) {
	rt, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("return", returnID)
		}
		return nil, err
	}
	resp := ToReturnResponse(rt)
	return &resp, nil
}

// ListBySale lists the returns recorded against a sale
func (s *Service) ListBySale(ctx context.Context, saleID uuid.UUID) ([]ReturnResponse, error) {
	list, err := s.returnRepo.FindBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return ToReturnResponses(list), nil
}

// mutate locks the return, then its sale, applies fn and saves both
func (s *Service) mutate(
	ctx context.Context,
	op string,
	returnID uuid.UUID,
	fn func(repos appledger.TransactionalRepositories, rt *returns.ReturnTransaction, sl *sale.Sale) error,
) (*ReturnResponse, error) {
	var updated *returns.ReturnTransaction
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		rt, err := findReturn(ctx, repos, returnID)
		if err != nil {
			return err
		}
		sl, err := findSale(ctx, repos, rt.SaleID, true)
		if err != nil {
			return err
		}
		if err := fn(repos, rt, sl); err != nil {
			return err
		}
		if err := repos.SaleRepo().SaveWithLock(ctx, sl); err != nil {
			return err
		}
		if err := repos.ReturnRepo().SaveWithLock(ctx, rt); err != nil {
			return err
		}
		updated = rt
		return nil
	})
	if err != nil {
		s.rejected(op, returnID, err)
		return nil, err
	}

	s.logger.Info("Return updated",
		zap.String("operation", op),
		zap.String("return_id", updated.ID.String()),
		zap.Int("items", len(updated.Items)),
		zap.String("total_refund", updated.TotalRefund.String()),
	)
	resp := ToReturnResponse(updated)
	return &resp, nil
}

func (s *Service) rejected(op string, id uuid.UUID, err error) {
	if !shared.IsDomainError(err) {
		return
	}
	s.logger.Warn("Return operation rejected",
		zap.String("operation", op),
		zap.String("id", id.String()),
		zap.Error(err),
	)
}

func findReturn(ctx context.Context, repos appledger.TransactionalRepositories, id uuid.UUID) (*returns.ReturnTransaction, error) {
	rt, err := repos.ReturnRepo().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("return", id)
		}
		return nil, err
	}
	return rt, nil
}

func findSale(ctx context.Context, repos appledger.TransactionalRepositories, id uuid.UUID, lock bool) (*sale.Sale, error) {
	find := repos.SaleRepo().FindByID
	if lock {
		find = repos.SaleRepo().FindByIDForUpdate
	}
	sl, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("sale", id)
		}
		return nil, err
	}
	return sl, nil
}
