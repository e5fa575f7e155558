package persistence

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errStockAlertNotFound = shared.NewNotFoundError("STOCK_ALERT_NOT_FOUND", "Stock alert not found")

// GormStockAlertRepository implements StockAlertRepository using GORM
type GormStockAlertRepository struct {
	db *gorm.DB
}

// NewGormStockAlertRepository creates a new GormStockAlertRepository
func NewGormStockAlertRepository(db *gorm.DB) *GormStockAlertRepository {
	return &GormStockAlertRepository{db: db}
}

func (r *GormStockAlertRepository) first(db *gorm.DB, conds ...any) (*stock.StockAlert, error) {
	var model models.StockAlertModel
	if err := db.First(&model, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errStockAlertNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an alert by ID
func (r *GormStockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockAlert, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds an alert by ID and locks its row
func (r *GormStockAlertRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.StockAlert, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

// FindByPairForUpdate finds the alert of a product at a warehouse and locks its row
func (r *GormStockAlertRepository) FindByPairForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) (*stock.StockAlert, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "product_id = ? AND warehouse_id = ?", productID, warehouseID)
}

// FindAll returns one page of alerts and the total matching count
func (r *GormStockAlertRepository) FindAll(ctx context.Context, filter stock.StockAlertFilter) ([]stock.StockAlert, int64, error) {
	page := filter.Filter.Normalize()
	where := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Type != "" {
			db = db.Where("type = ?", filter.Type)
		}
		if filter.ProductID != nil {
			db = db.Where("product_id = ?", *filter.ProductID)
		}
		if filter.WarehouseID != nil {
			db = db.Where("warehouse_id = ?", *filter.WarehouseID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.StockAlertModel{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockAlertModel
	if err := r.db.WithContext(ctx).
		Scopes(where).
		Order(orderClause(page.OrderBy, page.OrderDir, StockAlertSortFields)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	alerts := make([]stock.StockAlert, len(rows))
	for i := range rows {
		alerts[i] = *rows[i].ToDomain()
	}
	return alerts, total, nil
}

// Create inserts an alert. A second alert for the same pair violates
// idx_stock_alerts_pair and is reported as shared.ErrDuplicateKey.
func (r *GormStockAlertRepository) Create(ctx context.Context, a *stock.StockAlert) error {
	return translateWriteError(r.db.WithContext(ctx).Create(models.StockAlertModelFromDomain(a)).Error)
}

// Save updates the alert if its version is unchanged
func (r *GormStockAlertRepository) Save(ctx context.Context, a *stock.StockAlert) error {
	model := models.StockAlertModelFromDomain(a)
	result := r.db.WithContext(ctx).
		Model(&models.StockAlertModel{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]any{
			"type":             model.Type,
			"status":           model.Status,
			"threshold":        model.Threshold,
			"max_threshold":    model.MaxThreshold,
			"current_quantity": model.CurrentQuantity,
			"last_checked_at":  model.LastCheckedAt,
			"resolved_at":      model.ResolvedAt,
			"updated_at":       model.UpdatedAt,
			"version":          a.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}
	a.Version++
	return nil
}

var _ stock.StockAlertRepository = (*GormStockAlertRepository)(nil)
