package persistence

import (
	"context"

	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository implements ledger.EntryRepository using GORM.
// It is append-only: there is no update or delete.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Create appends an entry. Seq is assigned by the database.
func (r *GormLedgerEntryRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByProduct returns a product's entries ordered by Seq descending
func (r *GormLedgerEntryRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter ledger.HistoryFilter) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	query := r.db.WithContext(ctx).
		Model(&ledger.Entry{}).
		Where("product_id = ?", productID)

	if len(filter.Kinds) > 0 {
		query = query.Where("kind IN ?", filter.Kinds)
	}
	if filter.ReferenceType != ledger.ReferenceNone {
		query = query.Where("reference_type = ?", filter.ReferenceType)
	}
	if filter.ReferenceID != "" {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("seq DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByReference returns the entries posted for a workflow record, oldest first
func (r *GormLedgerEntryRepository) FindByReference(ctx context.Context, refType ledger.ReferenceType, refID string) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByProduct returns the sum of a product's signed quantities
func (r *GormLedgerEntryRepository) SumByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).
		Model(&ledger.Entry{}).
		Select("SUM(quantity) AS total").
		Where("product_id = ?", productID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	if !result.Total.Valid {
		return decimal.Zero, nil
	}
	return result.Total.Decimal, nil
}

// SumAll returns the ledger sum for every product that has entries
func (r *GormLedgerEntryRepository) SumAll(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&ledger.Entry{}).
		Select("product_id, SUM(quantity) AS total").
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	sums := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.ProductID] = row.Total
	}
	return sums, nil
}

// Ensure GormLedgerEntryRepository implements ledger.EntryRepository
var _ ledger.EntryRepository = (*GormLedgerEntryRepository)(nil)
