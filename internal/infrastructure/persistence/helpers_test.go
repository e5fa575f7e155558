package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

// newSQLiteDB opens a migrated in-memory database
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, database.DB.AutoMigrate(models.AllModels()...))
	return database.DB
}

// newMockDB returns a postgres-dialect gorm DB backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func newTestTransfer(t *testing.T, code string, source, destination uuid.UUID, quantities ...int64) *stock.Transfer {
	t.Helper()
	items := make([]stock.TransferItemInput, len(quantities))
	for i, q := range quantities {
		items[i] = stock.TransferItemInput{
			ProductID: uuid.New(),
			Quantity:  decimal.NewFromInt(q),
			UnitCost:  decimal.NewFromFloat(2.5),
		}
	}
	tr, err := stock.NewTransfer(code, source, destination, uuid.New(), items, "restock", testNow)
	require.NoError(t, err)
	tr.ClearDomainEvents()
	return tr
}

func seedLevel(t *testing.T, db *gorm.DB, productID, warehouseID uuid.UUID, qty int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.InventoryLevelModel{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    decimal.NewFromInt(qty),
		UpdatedAt:   testNow,
	}).Error)
}

func levelOf(t *testing.T, db *gorm.DB, productID, warehouseID uuid.UUID) decimal.Decimal {
	t.Helper()
	qty, err := NewGormInventoryLedger(db).GetLevel(context.Background(), productID, warehouseID)
	require.NoError(t, err)
	return qty
}
