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
	errTransferNotFound     = shared.NewNotFoundError("TRANSFER_NOT_FOUND", "Transfer not found")
	errTransferItemNotFound = shared.NewNotFoundError("TRANSFER_ITEM_NOT_FOUND", "Transfer item not found")
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

func orderedTransferItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds a transfer with its items
func (r *GormTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Transfer, error) {
	var model models.TransferModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedTransferItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTransferNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate locks the transfer row, then loads its items
func (r *GormTransferRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.Transfer, error) {
	db := r.db.WithContext(ctx)

	var model models.TransferModel
	if err := forUpdate(db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTransferNotFound
		}
		return nil, err
	}
	if err := db.Where("transfer_id = ?", id).Order("position ASC").Find(&model.Items).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByItemIDForUpdate resolves the owning transfer of an item and locks it
func (r *GormTransferRepository) FindByItemIDForUpdate(ctx context.Context, itemID uuid.UUID) (*stock.Transfer, error) {
	var item models.TransferItemModel
	if err := r.db.WithContext(ctx).
		Select("transfer_id").
		First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTransferItemNotFound
		}
		return nil, err
	}
	return r.FindByIDForUpdate(ctx, item.TransferID)
}

// FindByReferenceCode finds a transfer by its reference code
func (r *GormTransferRepository) FindByReferenceCode(ctx context.Context, code string) (*stock.Transfer, error) {
	var model models.TransferModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedTransferItems).
		Where("reference_code = ?", code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTransferNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of transfers and the total matching count
func (r *GormTransferRepository) FindAll(ctx context.Context, filter stock.TransferFilter) ([]stock.Transfer, int64, error) {
	page := filter.Filter.Normalize()
	where := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.WarehouseID != nil {
			db = db.Where("source_warehouse_id = ? OR destination_warehouse_id = ?", *filter.WarehouseID, *filter.WarehouseID)
		}
		if filter.From != nil {
			db = db.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("created_at < ?", *filter.To)
		}
		if page.Search != "" {
			db = db.Where("LOWER(reference_code) LIKE ?", "%"+strings.ToLower(page.Search)+"%")
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.TransferModel{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TransferModel
	if err := r.db.WithContext(ctx).
		Scopes(where).
		Preload("Items", orderedTransferItems).
		Order(orderClause(page.OrderBy, page.OrderDir, TransferSortFields)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	transfers := make([]stock.Transfer, len(rows))
	for i := range rows {
		transfers[i] = *rows[i].ToDomain()
	}
	return transfers, total, nil
}

// Create inserts the transfer and its items
func (r *GormTransferRepository) Create(ctx context.Context, t *stock.Transfer) error {
	model := models.TransferModelFromDomain(t)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error)
}

// Save updates the transfer if its version is unchanged, then rewrites its items
func (r *GormTransferRepository) Save(ctx context.Context, t *stock.Transfer) error {
	db := r.db.WithContext(ctx)
	model := models.TransferModelFromDomain(t)

	result := db.Model(&models.TransferModel{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(map[string]any{
			"status":       model.Status,
			"completed_by": model.CompletedBy,
			"completed_at": model.CompletedAt,
			"notes":        model.Notes,
			"updated_at":   model.UpdatedAt,
			"version":      t.Version + 1,
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
	t.Version++
	return nil
}

// Delete removes the transfer and its items
func (r *GormTransferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("transfer_id = ?", id).Delete(&models.TransferItemModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.TransferModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errTransferNotFound
	}
	return nil
}

// CountCreatedBetween counts transfers created in [from, to)
func (r *GormTransferRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TransferModel{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	return count, err
}

var _ stock.TransferRepository = (*GormTransferRepository)(nil)
