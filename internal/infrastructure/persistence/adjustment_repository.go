package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errAdjustmentNotFound     = shared.NewNotFoundError("ADJUSTMENT_NOT_FOUND", "Adjustment not found")
	errAdjustmentItemNotFound = shared.NewNotFoundError("ADJUSTMENT_ITEM_NOT_FOUND", "Adjustment item not found")
)

// GormAdjustmentRepository implements AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

func orderedAdjustmentItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *GormAdjustmentRepository) findOne(db *gorm.DB) (*stock.Adjustment, error) {
	var model models.AdjustmentModel
	if err := db.Preload("Items", orderedAdjustmentItems).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errAdjustmentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an adjustment with its items
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Adjustment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByReferenceCode finds an adjustment by its reference code
func (r *GormAdjustmentRepository) FindByReferenceCode(ctx context.Context, code string) (*stock.Adjustment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("reference_code = ?", code))
}

// FindByIDForUpdate locks the adjustment row, then loads its items
func (r *GormAdjustmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.Adjustment, error) {
	db := r.db.WithContext(ctx)

	var model models.AdjustmentModel
	if err := forUpdate(db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errAdjustmentNotFound
		}
		return nil, err
	}
	if err := db.Where("adjustment_id = ?", id).Order("position ASC").Find(&model.Items).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByItemIDForUpdate resolves the owning adjustment of an item and locks it
func (r *GormAdjustmentRepository) FindByItemIDForUpdate(ctx context.Context, itemID uuid.UUID) (*stock.Adjustment, error) {
	var item models.AdjustmentItemModel
	if err := r.db.WithContext(ctx).
		Select("adjustment_id").
		First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errAdjustmentItemNotFound
		}
		return nil, err
	}
	return r.FindByIDForUpdate(ctx, item.AdjustmentID)
}

// FindAll returns one page of adjustments and the total matching count
func (r *GormAdjustmentRepository) FindAll(ctx context.Context, filter stock.AdjustmentFilter) ([]stock.Adjustment, int64, error) {
	page := filter.Filter.Normalize()
	where := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.WarehouseID != nil {
			db = db.Where("warehouse_id = ?", *filter.WarehouseID)
		}
		if filter.From != nil {
			db = db.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("created_at < ?", *filter.To)
		}
		if page.Search != "" {
			like := "%" + strings.ToLower(page.Search) + "%"
			db = db.Where("LOWER(reference_code) LIKE ? OR LOWER(reason) LIKE ?", like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.AdjustmentModel{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AdjustmentModel
	if err := r.db.WithContext(ctx).
		Scopes(where).
		Preload("Items", orderedAdjustmentItems).
		Order(orderClause(page.OrderBy, page.OrderDir, AdjustmentSortFields)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	adjustments := make([]stock.Adjustment, len(rows))
	for i := range rows {
		adjustments[i] = *rows[i].ToDomain()
	}
	return adjustments, total, nil
}

// Create inserts the adjustment and its items
func (r *GormAdjustmentRepository) Create(ctx context.Context, a *stock.Adjustment) error {
	return translateWriteError(r.db.WithContext(ctx).Create(models.AdjustmentModelFromDomain(a)).Error)
}

// Save updates the adjustment if its version is unchanged, then rewrites its items
func (r *GormAdjustmentRepository) Save(ctx context.Context, a *stock.Adjustment) error {
	db := r.db.WithContext(ctx)
	model := models.AdjustmentModelFromDomain(a)

	result := db.Model(&models.AdjustmentModel{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]any{
			"status":       model.Status,
			"approved_by":  model.ApprovedBy,
			"completed_at": model.CompletedAt,
			"cancelled_at": model.CancelledAt,
			"updated_at":   model.UpdatedAt,
			"version":      a.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}

	for i := range model.Items {
		if err := db.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	a.Version++
	return nil
}

// CountCreatedBetween counts adjustments created in [from, to)
func (r *GormAdjustmentRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AdjustmentModel{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	return count, err
}

var _ stock.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
