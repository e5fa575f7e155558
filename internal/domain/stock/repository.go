package stock

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferFilter narrows transfer listings
type TransferFilter struct {
	shared.Filter
	Status      TransferStatus
	WarehouseID *uuid.UUID // matches source or destination
	From        *time.Time
	To          *time.Time
}

// TransferRepository persists the Transfer aggregate together with its items.
type TransferRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// FindByIDForUpdate loads the transfer and all its items with the parent
	// row locked until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// FindByItemIDForUpdate loads, with the same locking, the transfer owning the item
	FindByItemIDForUpdate(ctx context.Context, itemID uuid.UUID) (*Transfer, error)

	FindByReferenceCode(ctx context.Context, code string) (*Transfer, error)
	FindAll(ctx context.Context, filter TransferFilter) ([]Transfer, int64, error)

	// Create inserts a new transfer and its items
	Create(ctx context.Context, t *Transfer) error

	// Save writes the transfer and its items if the stored version still
	// matches, then advances the version
	Save(ctx context.Context, t *Transfer) error

	// Delete removes the transfer and cascades to its items
	Delete(ctx context.Context, id uuid.UUID) error

	// CountCreatedBetween counts transfers created in [from, to)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// AdjustmentFilter narrows adjustment listings
type AdjustmentFilter struct {
	shared.Filter
	Status      AdjustmentStatus
	WarehouseID *uuid.UUID
	From        *time.Time
	To          *time.Time
}

// AdjustmentRepository persists the Adjustment aggregate together with its items.
type AdjustmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Adjustment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Adjustment, error)
	FindByItemIDForUpdate(ctx context.Context, itemID uuid.UUID) (*Adjustment, error)
	FindByReferenceCode(ctx context.Context, code string) (*Adjustment, error)
	FindAll(ctx context.Context, filter AdjustmentFilter) ([]Adjustment, int64, error)
	Create(ctx context.Context, a *Adjustment) error
	Save(ctx context.Context, a *Adjustment) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// StockAlertFilter narrows alert listings
type StockAlertFilter struct {
	shared.Filter
	Status      AlertStatus
	Type        AlertType
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
}

// StockAlertRepository persists stock alerts, unique per product and warehouse
type StockAlertRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockAlert, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockAlert, error)

	// FindByPairForUpdate returns the alert of the pair with its row locked,
	// or a NotFound error
	FindByPairForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) (*StockAlert, error)

	FindAll(ctx context.Context, filter StockAlertFilter) ([]StockAlert, int64, error)

	// Create inserts a new alert. A concurrent insert for the same pair
	// surfaces as a concurrency error.
	Create(ctx context.Context, a *StockAlert) error

	Save(ctx context.Context, a *StockAlert) error
}

// ReferenceSequenceRepository holds one monotonic counter per prefix and month
type ReferenceSequenceRepository interface {
	// Exists reports whether the period's counter row has been created
	Exists(ctx context.Context, period ReferencePeriod) (bool, error)

	// Increment atomically advances the period's counter and returns the new
	// value. A missing counter is created at seed+1.
	Increment(ctx context.Context, period ReferencePeriod, seed int64) (int64, error)
}

// InventoryLevel is the on-hand quantity of one product at one warehouse
type InventoryLevel struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
}

// InventoryLedger is the externally owned store of on-hand quantities
type InventoryLedger interface {
	// GetLevel returns the on-hand quantity, zero when the pair has no record
	GetLevel(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error)
	ListAll(ctx context.Context) ([]InventoryLevel, error)
}

// StockMovement is a signed change to one inventory level caused by a document
type StockMovement struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Delta       decimal.Decimal
	SourceType  string
	SourceID    uuid.UUID
	Reference   string
}

// StockPoster applies completion side effects to the inventory ledger.
// Implementations must fail with ErrInsufficientStock rather than let a
// level go negative.
type StockPoster interface {
	Post(ctx context.Context, movements ...StockMovement) error
}

// Catalog answers existence checks for products and warehouses
type Catalog interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
	WarehouseExists(ctx context.Context, id uuid.UUID) (bool, error)
}
