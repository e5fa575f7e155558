package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCatalog answers existence checks against the products and warehouses tables
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog creates a new GormCatalog
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// ProductExists reports whether the product is registered
func (c *GormCatalog) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.exists(ctx, &models.ProductModel{}, id)
}

// WarehouseExists reports whether the warehouse is registered
func (c *GormCatalog) WarehouseExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.exists(ctx, &models.WarehouseModel{}, id)
}

func (c *GormCatalog) exists(ctx context.Context, model any, id uuid.UUID) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

var _ stock.Catalog = (*GormCatalog)(nil)
