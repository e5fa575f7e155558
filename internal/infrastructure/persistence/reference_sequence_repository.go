package persistence

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReferenceSequenceRepository keeps the per prefix and month counters
// in reference_sequences
type GormReferenceSequenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceSequenceRepository creates a new GormReferenceSequenceRepository
func NewGormReferenceSequenceRepository(db *gorm.DB) *GormReferenceSequenceRepository {
	return &GormReferenceSequenceRepository{db: db}
}

// Exists reports whether the period's counter row has been created
func (r *GormReferenceSequenceRepository) Exists(ctx context.Context, period stock.ReferencePeriod) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferenceSequenceModel{}).
		Where("prefix = ? AND year = ? AND month = ?", period.Prefix, period.Year, period.Month).
		Count(&count).Error
	return count > 0, err
}

// Increment upserts the counter and reads the new value back. The upsert
// takes the row lock, so concurrent callers in other transactions wait
// until this one ends.
func (r *GormReferenceSequenceRepository) Increment(ctx context.Context, period stock.ReferencePeriod, seed int64) (int64, error) {
	db := r.db.WithContext(ctx)
	now := time.Now().UTC()

	row := models.ReferenceSequenceModel{
		Prefix:    period.Prefix,
		Year:      period.Year,
		Month:     period.Month,
		LastValue: seed + 1,
		UpdatedAt: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "prefix"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_value": gorm.Expr("reference_sequences.last_value + 1"),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}

	var current models.ReferenceSequenceModel
	if err := db.
		Where("prefix = ? AND year = ? AND month = ?", period.Prefix, period.Year, period.Month).
		Take(&current).Error; err != nil {
		return 0, err
	}
	return current.LastValue, nil
}

var _ stock.ReferenceSequenceRepository = (*GormReferenceSequenceRepository)(nil)
