package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInventoryLedger reads on-hand quantities from inventory_levels and
// posts completed documents back into it, journaling every movement in
// stock_movements.
type GormInventoryLedger struct {
	db *gorm.DB
}

// NewGormInventoryLedger creates a new GormInventoryLedger
func NewGormInventoryLedger(db *gorm.DB) *GormInventoryLedger {
	return &GormInventoryLedger{db: db}
}

// GetLevel returns the on-hand quantity, zero when the pair has no row
func (l *GormInventoryLedger) GetLevel(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	var level models.InventoryLevelModel
	err := l.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Take(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return level.Quantity, nil
}

// ListAll returns every recorded level
func (l *GormInventoryLedger) ListAll(ctx context.Context) ([]stock.InventoryLevel, error) {
	var rows []models.InventoryLevelModel
	if err := l.db.WithContext(ctx).
		Order("product_id ASC, warehouse_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	levels := make([]stock.InventoryLevel, len(rows))
	for i, row := range rows {
		levels[i] = stock.InventoryLevel{
			ProductID:   row.ProductID,
			WarehouseID: row.WarehouseID,
			Quantity:    row.Quantity,
		}
	}
	return levels, nil
}

type ledgerPair struct {
	productID   uuid.UUID
	warehouseID uuid.UUID
}

// Post applies the movements. Deltas are summed per pair and the pairs are
// locked in a fixed order so that two postings touching the same levels
// cannot deadlock. Nothing is written when any level would go negative.
func (l *GormInventoryLedger) Post(ctx context.Context, movements ...stock.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	db := l.db.WithContext(ctx)
	now := time.Now().UTC()

	deltas := make(map[ledgerPair]decimal.Decimal)
	for _, m := range movements {
		p := ledgerPair{m.ProductID, m.WarehouseID}
		deltas[p] = deltas[p].Add(m.Delta)
	}
	pairs := make([]ledgerPair, 0, len(deltas))
	for p := range deltas {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].productID != pairs[j].productID {
			return pairs[i].productID.String() < pairs[j].productID.String()
		}
		return pairs[i].warehouseID.String() < pairs[j].warehouseID.String()
	})

	balances := make(map[ledgerPair]decimal.Decimal, len(pairs))
	for _, p := range pairs {
		before, err := l.applyDelta(db, p, deltas[p], now)
		if err != nil {
			return err
		}
		balances[p] = before
	}

	journal := make([]models.StockMovementModel, 0, len(movements))
	for _, m := range movements {
		p := ledgerPair{m.ProductID, m.WarehouseID}
		balances[p] = balances[p].Add(m.Delta)
		journal = append(journal, models.StockMovementModel{
			ID:            uuid.New(),
			ProductID:     m.ProductID,
			WarehouseID:   m.WarehouseID,
			Delta:         m.Delta,
			BalanceAfter:  balances[p],
			SourceType:    m.SourceType,
			SourceID:      m.SourceID,
			ReferenceCode: m.Reference,
			CreatedAt:     now,
		})
	}
	return db.Create(&journal).Error
}

// applyDelta locks and updates one level, returning the quantity before the change
func (l *GormInventoryLedger) applyDelta(db *gorm.DB, p ledgerPair, delta decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	var level models.InventoryLevelModel
	err := forUpdate(db).
		Where("product_id = ? AND warehouse_id = ?", p.productID, p.warehouseID).
		Take(&level).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if delta.IsNegative() {
			return decimal.Zero, shared.ErrInsufficientStock
		}
		if delta.IsZero() {
			return decimal.Zero, nil
		}
		err = db.Create(&models.InventoryLevelModel{
			ProductID:   p.productID,
			WarehouseID: p.warehouseID,
			Quantity:    delta,
			UpdatedAt:   now,
		}).Error
		return decimal.Zero, translateWriteError(err)
	}
	if err != nil {
		return decimal.Zero, err
	}

	next := level.Quantity.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, shared.ErrInsufficientStock
	}
	if delta.IsZero() {
		return level.Quantity, nil
	}
	err = db.Model(&models.InventoryLevelModel{}).
		Where("product_id = ? AND warehouse_id = ?", p.productID, p.warehouseID).
		Updates(map[string]any{"quantity": next, "updated_at": now}).Error
	return level.Quantity, err
}

var (
	_ stock.InventoryLedger = (*GormInventoryLedger)(nil)
	_ stock.StockPoster     = (*GormInventoryLedger)(nil)
)
