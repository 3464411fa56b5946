package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithGormLogger(t *testing.T) {
	cfg := &gorm.Config{}
	l := logger.Default.LogMode(logger.Info)
	WithGormLogger(l)(cfg)
	assert.Equal(t, l, cfg.Logger)
}

func TestProductRepository_FindByIDForUpdate_LocksRow(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db.DB)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1 ORDER BY "products"."id" LIMIT $2 FOR UPDATE`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version", "sku", "name", "on_hand", "reorder_level"}).
			AddRow(id, now, now, 3, "SKU-1", "Coffee", "12.5000", "2.0000"))

	p, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Version)
	assert.True(t, p.OnHand.Equal(decimal.RequireFromString("12.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindByID_NotFound(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db.DB)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveWithLock(t *testing.T) {
	product := &ledger.Product{SKU: "SKU-1", OnHand: decimal.NewFromInt(7)}
	product.ID = uuid.New()
	product.Version = 4

	t.Run("writes when the stored version matches", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 5, product.ID, 4).
			WillReturnResult(sqlmock.NewResult(0, 1))

		saved := *product
		require.NoError(t, NewGormProductRepository(db.DB).SaveWithLock(context.Background(), &saved))
		assert.Equal(t, 5, saved.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 5, product.ID, 4).
			WillReturnResult(sqlmock.NewResult(0, 0))

		stale := *product
		err := NewGormProductRepository(db.DB).SaveWithLock(context.Background(), &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 4, stale.Version, "a rejected write leaves the version alone")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionScope_LockTimeout(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL lock_timeout = '1500ms'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	scope := NewGormTransactionScope(db.DB, WithLockTimeout(1500*time.Millisecond))
	err := scope.Execute(context.Background(), func(_ appledger.TransactionalRepositories) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
