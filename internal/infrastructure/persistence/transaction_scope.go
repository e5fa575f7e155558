package persistence

import (
	"context"

	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/erp/backoffice/internal/domain/stock"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in one database transaction, rolled back when fn returns
// an error.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appstock.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories binds every repository to the same transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Transfers() stock.TransferRepository {
	return NewGormTransferRepository(r.tx)
}

func (r *gormTransactionalRepositories) Adjustments() stock.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Alerts() stock.StockAlertRepository {
	return NewGormStockAlertRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequences() stock.ReferenceSequenceRepository {
	return NewGormReferenceSequenceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Ledger() stock.InventoryLedger {
	return NewGormInventoryLedger(r.tx)
}

func (r *gormTransactionalRepositories) Poster() stock.StockPoster {
	return NewGormInventoryLedger(r.tx)
}

var (
	_ appstock.TransactionScope          = (*GormTransactionScope)(nil)
	_ appstock.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
