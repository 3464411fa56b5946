package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Posting is one requested stock movement
type Posting struct {
	ProductID uuid.UUID
	Kind      ledger.EntryKind
	Quantity  decimal.Decimal
	Reference ledger.Reference
}

// MetricsRecorder receives ledger posting outcomes
type MetricsRecorder interface {
	EntryPosted(ctx context.Context, kind ledger.EntryKind, qty decimal.Decimal)
	PostingRejected(ctx context.Context, kind ledger.EntryKind, code string)
}

type noopMetrics struct{}

func (noopMetrics) EntryPosted(context.Context, ledger.EntryKind, decimal.Decimal) {}
func (noopMetrics) PostingRejected(context.Context, ledger.EntryKind, string)      {}

// PosterOption configures a Poster
type PosterOption func(*Poster)

// WithAllowNegativeStock lets outbound entries take OnHand below zero
func WithAllowNegativeStock(allow bool) PosterOption {
	return func(p *Poster) {
		p.allowNegative = allow
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) PosterOption {
	return func(p *Poster) {
		if m != nil {
			p.metrics = m
		}
	}
}

// Poster is the single write path for stock. It must run inside a
// TransactionScope: it locks every product it touches, appends the entries
// and writes the new OnHand in the caller's transaction.
type Poster struct {
	allowNegative bool
	metrics       MetricsRecorder
	logger        *zap.Logger
}

// NewPoster creates a Poster
func NewPoster(logger *zap.Logger, opts ...PosterOption) *Poster {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poster{
		metrics: noopMetrics{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Post applies the postings in order and returns the created entries in the
// same order. Products are locked in ascending ID order before anything is
// written, so two operations touching the same products cannot deadlock.
// Any error leaves the caller's transaction to be rolled back.
func (p *Poster) Post(ctx context.Context, repos TransactionalRepositories, postings ...Posting) ([]*ledger.Entry, error) {
	if len(postings) == 0 {
		return nil, nil
	}

	products, err := p.lockProducts(ctx, repos.ProductRepo(), postings)
	if err != nil {
		return nil, err
	}

	entries := make([]*ledger.Entry, 0, len(postings))
	for _, posting := range postings {
		product := products[posting.ProductID]
		entry, err := ledger.NewEntry(posting.ProductID, posting.Kind, posting.Quantity, posting.Reference)
		if err != nil {
			p.reject(ctx, posting.Kind, err)
			return nil, err
		}
		if err := product.Apply(entry, p.allowNegative); err != nil {
			p.reject(ctx, posting.Kind, err)
			return nil, err
		}
		if err := repos.EntryRepo().Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("append ledger entry for product %s: %w", product.ID, err)
		}
		if err := repos.ProductRepo().SaveWithLock(ctx, product); err != nil {
			p.reject(ctx, posting.Kind, err)
			return nil, err
		}
		p.metrics.EntryPosted(ctx, entry.Kind, entry.Quantity)
		if entry.IsOutbound() && product.IsBelowReorder() {
			p.logger.Warn("Product at or below reorder level",
				zap.String("product_id", product.ID.String()),
				zap.String("sku", product.SKU),
				zap.String("on_hand", product.OnHand.String()),
				zap.String("reorder_level", product.ReorderLevel.String()),
			)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// lockProducts reads every distinct product FOR UPDATE in ascending ID order
func (p *Poster) lockProducts(ctx context.Context, repo ledger.ProductRepository, postings []Posting) (map[uuid.UUID]*ledger.Product, error) {
	ids := make([]uuid.UUID, 0, len(postings))
	seen := make(map[uuid.UUID]struct{}, len(postings))
	for _, posting := range postings {
		if _, ok := seen[posting.ProductID]; ok {
			continue
		}
		seen[posting.ProductID] = struct{}{}
		ids = append(ids, posting.ProductID)
	}
	SortIDs(ids)

	products := make(map[uuid.UUID]*ledger.Product, len(ids))
	for _, id := range ids {
		product, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NotFound("product", id)
			}
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

func (p *Poster) reject(ctx context.Context, kind ledger.EntryKind, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		p.metrics.PostingRejected(ctx, kind, de.Code)
	}
}

// SortIDs sorts ids ascending by their byte representation
func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
