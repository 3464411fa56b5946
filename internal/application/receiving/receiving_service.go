package receiving

import (
	"context"
	"errors"
	"fmt"

	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/receiving"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service reconciles purchase order receiving with the stock ledger
type Service struct {
	scope       appledger.TransactionScope
	orderRepo   receiving.PurchaseOrderRepository
	receiptRepo receiving.ReceiptRepository
	poster      *appledger.Poster
	logger      *zap.Logger
}

// NewService creates a new receiving Service
func NewService(
	scope appledger.TransactionScope,
	orderRepo receiving.PurchaseOrderRepository,
	receiptRepo receiving.ReceiptRepository,
	poster *appledger.Poster,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:       scope,
		orderRepo:   orderRepo,
		receiptRepo: receiptRepo,
		poster:      poster,
		logger:      logger,
	}
}

// CreatePurchaseOrder opens an order. Every line must name an existing product.
func (s *Service) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	lines := make([]receiving.OrderLineInput, len(req.Items))
	for i, item := range req.Items {
		lines[i] = receiving.OrderLineInput{
			ProductID: item.ProductID,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
		}
	}
	po, err := receiving.NewPurchaseOrder(req.OrderNumber, req.SupplierName, lines)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		for _, item := range po.Items {
			if _, err := repos.ProductRepo().FindByID(ctx, item.ProductID); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NotFound("product", item.ProductID)
				}
				return err
			}
		}
		if err := repos.PurchaseOrderRepo().Create(ctx, po); err != nil {
			return fmt.Errorf("create purchase order %s: %w", po.OrderNumber, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase order created",
		zap.String("purchase_order_id", po.ID.String()),
		zap.String("order_number", po.OrderNumber),
		zap.Int("lines", len(po.Items)),
	)
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// GetPurchaseOrder returns an order with its lines and receipt rows
func (s *Service) GetPurchaseOrder(ctx context.Context, poID uuid.UUID) (*PurchaseOrderResponse, error) {
	po, err := s.orderRepo.FindByID(ctx, poID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("purchase order", poID)
		}
		return nil, err
	}
	receipts, err := s.receiptRepo.FindByOrder(ctx, poID, "")
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(po)
	resp.Receipts = ToReceiptResponses(receipts)
	return &resp, nil
}

// RecordReceipt receives goods against an order line and posts a StockIn
// credit. Receiving past the remaining quantity fails with OVER_RECEIVE
// unless AllowOverReceive is set.
func (s *Service) RecordReceipt(ctx context.Context, req RecordReceiptRequest) (*ReceiptRecord, error) {
	var record ReceiptRecord
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		po, err := s.lockOrderOfItem(ctx, repos, req.PurchaseOrderItemID)
		if err != nil {
			return err
		}
		item, err := po.Receive(req.PurchaseOrderItemID, req.Quantity, req.AllowOverReceive)
		if err != nil {
			return err
		}
		receipt, err := receiving.NewReceipt(po, item.ID, req.Quantity)
		if err != nil {
			return err
		}
		entries, err := s.poster.Post(ctx, repos, receiptPosting(po, item, receipt, req.ActorID))
		if err != nil {
			return err
		}
		if err := receipt.MarkProcessed(req.ActorID, entries[0].ID); err != nil {
			return err
		}
		if err := repos.ReceiptRepo().Create(ctx, receipt); err != nil {
			return fmt.Errorf("create receipt for order %s: %w", po.OrderNumber, err)
		}
		if err := repos.PurchaseOrderRepo().SaveWithLock(ctx, po); err != nil {
			return err
		}
		record = ReceiptRecord{
			Receipt:       ToReceiptResponse(receipt),
			Entry:         appledger.ToEntryResponse(entries[0]),
			PurchaseOrder: ToPurchaseOrderResponse(po),
		}
		return nil
	})
	if err != nil {
		s.rejected("record_receipt", req.PurchaseOrderItemID, err)
		return nil, err
	}

	s.logger.Info("Receipt recorded",
		zap.String("receipt_id", record.Receipt.ID.String()),
		zap.String("purchase_order_id", record.PurchaseOrder.ID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("order_status", record.PurchaseOrder.Status),
	)
	return &record, nil
}

// QueueReceipt stores a pending receipt row. Stock and the order's received
// quantities are untouched until the order's pending receipts are posted.
func (s *Service) QueueReceipt(ctx context.Context, req QueueReceiptRequest) (*ReceiptResponse, error) {
	var resp ReceiptResponse
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		po, err := s.lockOrderOfItem(ctx, repos, req.PurchaseOrderItemID)
		if err != nil {
			return err
		}
		receipt, err := receiving.NewReceipt(po, req.PurchaseOrderItemID, req.Quantity)
		if err != nil {
			return err
		}
		if err := repos.ReceiptRepo().Create(ctx, receipt); err != nil {
			return fmt.Errorf("queue receipt for order %s: %w", po.OrderNumber, err)
		}
		resp = ToReceiptResponse(receipt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Receipt queued",
		zap.String("receipt_id", resp.ID.String()),
		zap.String("purchase_order_id", resp.PurchaseOrderID.String()),
		zap.String("quantity", resp.Quantity.String()),
	)
	return &resp, nil
}

// PostPendingReceiptsToInventory posts every pending receipt of an order in
// one transaction. Remaining quantities are checked again at posting time,
// so a single over-receipt rejects the whole batch.
func (s *Service) PostPendingReceiptsToInventory(ctx context.Context, poID uuid.UUID, req PostPendingRequest) (*BatchResult, error) {
	var result BatchResult
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		po, err := repos.PurchaseOrderRepo().FindByIDForUpdate(ctx, poID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NotFound("purchase order", poID)
			}
			return err
		}
		pending, err := repos.ReceiptRepo().FindByOrder(ctx, po.ID, receiving.ReceiptStatusPending)
		if err != nil {
			return err
		}
		result.Processed = make([]ReceiptResponse, 0, len(pending))
		if len(pending) == 0 {
			result.PurchaseOrder = ToPurchaseOrderResponse(po)
			return nil
		}

		postings := make([]appledger.Posting, len(pending))
		for i := range pending {
			item, err := po.Receive(pending[i].PurchaseOrderItemID, pending[i].Quantity, req.AllowOverReceive)
			if err != nil {
				return err
			}
			postings[i] = receiptPosting(po, item, &pending[i], req.ActorID)
		}
		entries, err := s.poster.Post(ctx, repos, postings...)
		if err != nil {
			return err
		}
		for i := range pending {
			if err := pending[i].MarkProcessed(req.ActorID, entries[i].ID); err != nil {
				return err
			}
			if err := repos.ReceiptRepo().SaveWithLock(ctx, &pending[i]); err != nil {
				return err
			}
			result.Processed = append(result.Processed, ToReceiptResponse(&pending[i]))
		}
		if err := repos.PurchaseOrderRepo().SaveWithLock(ctx, po); err != nil {
			return err
		}
		result.PurchaseOrder = ToPurchaseOrderResponse(po)
		return nil
	})
	if err != nil {
		s.rejected("post_pending", poID, err)
		return nil, err
	}

	s.logger.Info("Pending receipts posted",
		zap.String("purchase_order_id", poID.String()),
		zap.Int("processed", len(result.Processed)),
		zap.String("order_status", result.PurchaseOrder.Status),
	)
	return &result, nil
}

// RemoveReceipt withdraws a receipt. A processed receipt is reversed with a
// compensating Adjustment debit and its quantity comes off the order line;
// a pending one is only marked removed.
func (s *Service) RemoveReceipt(ctx context.Context, receiptID uuid.UUID, actor *uuid.UUID) (*RemovalResult, error) {
	var result RemovalResult
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		peek, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NotFound("receipt", receiptID)
			}
			return err
		}
		po, err := repos.PurchaseOrderRepo().FindByIDForUpdate(ctx, peek.PurchaseOrderID)
		if err != nil {
			return err
		}
		receipt, err := repos.ReceiptRepo().FindByIDForUpdate(ctx, receiptID)
		if err != nil {
			return err
		}

		if receipt.IsPending() {
			if err := receipt.MarkRemoved(actor, nil); err != nil {
				return err
			}
			if err := repos.ReceiptRepo().SaveWithLock(ctx, receipt); err != nil {
				return err
			}
			result.Receipt = ToReceiptResponse(receipt)
			result.PurchaseOrder = ToPurchaseOrderResponse(po)
			return nil
		}
		if receipt.Status == receiving.ReceiptStatusRemoved {
			return shared.InvalidState("receipt %s is already removed", receipt.ID)
		}

		if _, err := po.Unreceive(receipt.PurchaseOrderItemID, receipt.Quantity); err != nil {
			return err
		}
		entries, err := s.poster.Post(ctx, repos, appledger.Posting{
			ProductID: receipt.ProductID,
			Kind:      ledger.KindAdjustment,
			Quantity:  receipt.Quantity.Neg(),
			Reference: ledger.Reference{
				Type:    ledger.ReferenceReceipt,
				ID:      receipt.ID.String(),
				Text:    po.OrderNumber,
				Remarks: "receipt removed",
				ActorID: actor,
			},
		})
		if err != nil {
			return err
		}
		if err := receipt.MarkRemoved(actor, &entries[0].ID); err != nil {
			return err
		}
		if err := repos.ReceiptRepo().SaveWithLock(ctx, receipt); err != nil {
			return err
		}
		if err := repos.PurchaseOrderRepo().SaveWithLock(ctx, po); err != nil {
			return err
		}
		reversal := appledger.ToEntryResponse(entries[0])
		result.Receipt = ToReceiptResponse(receipt)
		result.Reversal = &reversal
		result.PurchaseOrder = ToPurchaseOrderResponse(po)
		return nil
	})
	if err != nil {
		s.rejected("remove_receipt", receiptID, err)
		return nil, err
	}

	s.logger.Info("Receipt removed",
		zap.String("receipt_id", receiptID.String()),
		zap.Bool("reversed", result.Reversal != nil),
		zap.String("order_status", result.PurchaseOrder.Status),
	)
	return &result, nil
}

// lockOrderOfItem finds the order owning itemID and re-reads it under the row lock
func (s *Service) lockOrderOfItem(ctx context.Context, repos appledger.TransactionalRepositories, itemID uuid.UUID) (*receiving.PurchaseOrder, error) {
	owner, err := repos.PurchaseOrderRepo().FindByItemID(ctx, itemID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("purchase order item", itemID)
		}
		return nil, err
	}
	return repos.PurchaseOrderRepo().FindByIDForUpdate(ctx, owner.ID)
}

func (s *Service) rejected(op string, id uuid.UUID, err error) {
	if !shared.IsDomainError(err) {
		return
	}
	s.logger.Warn("Receiving operation rejected",
		zap.String("operation", op),
		zap.String("id", id.String()),
		zap.Error(err),
	)
}

func receiptPosting(po *receiving.PurchaseOrder, item *receiving.PurchaseOrderItem, receipt *receiving.Receipt, actor *uuid.UUID) appledger.Posting {
	ref := ledger.Reference{
		Type:    ledger.ReferenceReceipt,
		ID:      receipt.ID.String(),
		Text:    po.OrderNumber,
		ActorID: actor,
	}
	if item.UnitCost.IsPositive() {
		ref.UnitCost = decimal.NewNullDecimal(item.UnitCost)
	}
	return appledger.Posting{
		ProductID: item.ProductID,
		Kind:      ledger.KindStockIn,
		Quantity:  receipt.Quantity,
		Reference: ref,
	}
}
