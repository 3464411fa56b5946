package persistence

import (
	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/receiving"
	"github.com/erp/posledger/internal/domain/returns"
	"github.com/erp/posledger/internal/domain/sale"
	"gorm.io/gorm"
)

// Models lists every persisted type. Production schemas come from the SQL
// migrations; AutoMigrate over this list is for sqlite test databases.
func Models() []any {
	return []any{
		&ledger.Product{},
		&ledger.Entry{},
		&sale.Sale{},
		&sale.Item{},
		&receiving.PurchaseOrder{},
		&receiving.PurchaseOrderItem{},
		&receiving.Receipt{},
		&returns.ReturnTransaction{},
		&returns.ReturnedItem{},
	}
}

// AutoMigrate creates or updates the tables for Models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
