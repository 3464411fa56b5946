package ledger

import (
	"context"

	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/receiving"
	"github.com/erp/posledger/internal/domain/returns"
	"github.com/erp/posledger/internal/domain/sale"
)

// TransactionScope provides transactional access to the repositories.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
//
// Aggregate boundary notes:
//   - ProductRepo: the stock aggregate. OnHand only changes through Poster.
//   - EntryRepo: append-only ledger, no update or delete.
//   - SaleRepo, PurchaseOrderRepo, ReceiptRepo, ReturnRepo: workflow records whose
//     stock effects are posted through the ledger in the same transaction.
type TransactionalRepositories interface {
	// ProductRepo returns the product repository scoped to the current transaction
	ProductRepo() ledger.ProductRepository
	// EntryRepo returns the ledger entry repository scoped to the current transaction
	EntryRepo() ledger.EntryRepository
	// SaleRepo returns the sale repository scoped to the current transaction
	SaleRepo() sale.Repository
	// PurchaseOrderRepo returns the purchase order repository scoped to the current transaction
	PurchaseOrderRepo() receiving.PurchaseOrderRepository
	// ReceiptRepo returns the receipt repository scoped to the current transaction
	ReceiptRepo() receiving.ReceiptRepository
	// ReturnRepo returns the return repository scoped to the current transaction
	ReturnRepo() returns.Repository
}

// Repositories bundles repository instances for NoOpTransactionScope
type Repositories struct {
	Products       ledger.ProductRepository
	Entries        ledger.EntryRepository
	Sales          sale.Repository
	PurchaseOrders receiving.PurchaseOrderRepository
	Receipts       receiving.ReceiptRepository
	Returns        returns.Repository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with repository doubles.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ProductRepo returns the product repository.
func (s *NoOpTransactionScope) ProductRepo() ledger.ProductRepository {
	return s.repos.Products
}

// EntryRepo returns the ledger entry repository.
func (s *NoOpTransactionScope) EntryRepo() ledger.EntryRepository {
	return s.repos.Entries
}

// SaleRepo returns the sale repository.
func (s *NoOpTransactionScope) SaleRepo() sale.Repository {
	return s.repos.Sales
}

// PurchaseOrderRepo returns the purchase order repository.
func (s *NoOpTransactionScope) PurchaseOrderRepo() receiving.PurchaseOrderRepository {
	return s.repos.PurchaseOrders
}

// ReceiptRepo returns the receipt repository.
func (s *NoOpTransactionScope) ReceiptRepo() receiving.ReceiptRepository {
	return s.repos.Receipts
}

// ReturnRepo returns the return repository.
func (s *NoOpTransactionScope) ReturnRepo() returns.Repository {
	return s.repos.Returns
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
