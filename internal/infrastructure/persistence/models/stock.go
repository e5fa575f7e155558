package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferModel is the persistence model for the Transfer aggregate root.
type TransferModel struct {
	AggregateModel
	ReferenceCode          string              `gorm:"type:varchar(32);not null;uniqueIndex"`
	SourceWarehouseID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	DestinationWarehouseID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status                 string              `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	InitiatedBy            uuid.UUID           `gorm:"type:uuid"`
	CompletedBy            *uuid.UUID          `gorm:"type:uuid"`
	InitiatedAt            time.Time           `gorm:"not null"`
	Notes                  string              `gorm:"type:text"`
	Items                  []TransferItemModel `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
	CompletedAt            *time.Time
}

// TableName returns the table name for GORM
func (TransferModel) TableName() string {
	return "stock_transfers"
}

// ToDomain converts the persistence model to a domain Transfer
func (m *TransferModel) ToDomain() *stock.Transfer {
	t := &stock.Transfer{
		BaseAggregateRoot:      m.ToDomainAggregateRoot(),
		ReferenceCode:          m.ReferenceCode,
		SourceWarehouseID:      m.SourceWarehouseID,
		DestinationWarehouseID: m.DestinationWarehouseID,
		Status:                 stock.TransferStatus(m.Status),
		InitiatedBy:            m.InitiatedBy,
		CompletedBy:            m.CompletedBy,
		InitiatedAt:            m.InitiatedAt,
		CompletedAt:            m.CompletedAt,
		Notes:                  m.Notes,
		Items:                  make([]stock.TransferItem, 0, len(m.Items)),
	}
	for i := range m.Items {
		t.Items = append(t.Items, m.Items[i].ToDomain())
	}
	return t
}

// TransferModelFromDomain creates a persistence model from a domain Transfer
func TransferModelFromDomain(t *stock.Transfer) *TransferModel {
	m := &TransferModel{
		ReferenceCode:          t.ReferenceCode,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Status:                 string(t.Status),
		InitiatedBy:            t.InitiatedBy,
		CompletedBy:            t.CompletedBy,
		InitiatedAt:            t.InitiatedAt,
		CompletedAt:            t.CompletedAt,
		Notes:                  t.Notes,
		Items:                  make([]TransferItemModel, 0, len(t.Items)),
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	for i := range t.Items {
		m.Items = append(m.Items, *TransferItemModelFromDomain(&t.Items[i]))
	}
	return m
}

// TransferItemModel is the persistence model for a transfer line.
type TransferItemModel struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	TransferID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID        `gorm:"type:uuid;not null"`
	Position         int              `gorm:"not null"`
	Quantity         decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost         decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQuantity *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Status           string           `gorm:"type:varchar(20);not null;default:'PENDING'"`
	CreatedAt        time.Time        `gorm:"not null"`
	UpdatedAt        time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransferItemModel) TableName() string {
	return "stock_transfer_items"
}

// ToDomain converts the persistence model to a domain TransferItem
func (m *TransferItemModel) ToDomain() stock.TransferItem {
	return stock.TransferItem{
		ID:               m.ID,
		TransferID:       m.TransferID,
		ProductID:        m.ProductID,
		Position:         m.Position,
		Quantity:         m.Quantity,
		UnitCost:         m.UnitCost,
		ReceivedQuantity: m.ReceivedQuantity,
		Status:           stock.TransferItemStatus(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// TransferItemModelFromDomain creates a persistence model from a domain TransferItem
func TransferItemModelFromDomain(it *stock.TransferItem) *TransferItemModel {
	return &TransferItemModel{
		ID:               it.ID,
		TransferID:       it.TransferID,
		ProductID:        it.ProductID,
		Position:         it.Position,
		Quantity:         it.Quantity,
		UnitCost:         it.UnitCost,
		ReceivedQuantity: it.ReceivedQuantity,
		Status:           string(it.Status),
		CreatedAt:        it.CreatedAt,
		UpdatedAt:        it.UpdatedAt,
	}
}

// AdjustmentModel is the persistence model for the Adjustment aggregate root.
type AdjustmentModel struct {
	AggregateModel
	ReferenceCode string                `gorm:"type:varchar(32);not null;uniqueIndex"`
	WarehouseID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	Status        string                `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Reason        string                `gorm:"type:varchar(500);not null"`
	InitiatedBy   uuid.UUID             `gorm:"type:uuid"`
	ApprovedBy    *uuid.UUID            `gorm:"type:uuid"`
	Items         []AdjustmentItemModel `gorm:"foreignKey:AdjustmentID;constraint:OnDelete:CASCADE"`
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (AdjustmentModel) TableName() string {
	return "stock_adjustments"
}

// ToDomain converts the persistence model to a domain Adjustment
func (m *AdjustmentModel) ToDomain() *stock.Adjustment {
	a := &stock.Adjustment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ReferenceCode:     m.ReferenceCode,
		WarehouseID:       m.WarehouseID,
		Status:            stock.AdjustmentStatus(m.Status),
		Reason:            m.Reason,
		InitiatedBy:       m.InitiatedBy,
		ApprovedBy:        m.ApprovedBy,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
		Items:             make([]stock.AdjustmentItem, 0, len(m.Items)),
	}
	for i := range m.Items {
		a.Items = append(a.Items, m.Items[i].ToDomain())
	}
	return a
}

// AdjustmentModelFromDomain creates a persistence model from a domain Adjustment
func AdjustmentModelFromDomain(a *stock.Adjustment) *AdjustmentModel {
	m := &AdjustmentModel{
		ReferenceCode: a.ReferenceCode,
		WarehouseID:   a.WarehouseID,
		Status:        string(a.Status),
		Reason:        a.Reason,
		InitiatedBy:   a.InitiatedBy,
		ApprovedBy:    a.ApprovedBy,
		CompletedAt:   a.CompletedAt,
		CancelledAt:   a.CancelledAt,
		Items:         make([]AdjustmentItemModel, 0, len(a.Items)),
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	for i := range a.Items {
		m.Items = append(m.Items, *AdjustmentItemModelFromDomain(&a.Items[i]))
	}
	return m
}

// AdjustmentItemModel is the persistence model for an adjustment line.
type AdjustmentItemModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	AdjustmentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	Position     int             `gorm:"not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewStock     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reason       string          `gorm:"type:varchar(500)"`
	Status       string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	DecidedBy    *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
	DecidedAt    *time.Time
}

// TableName returns the table name for GORM
func (AdjustmentItemModel) TableName() string {
	return "stock_adjustment_items"
}

// ToDomain converts the persistence model to a domain AdjustmentItem
func (m *AdjustmentItemModel) ToDomain() stock.AdjustmentItem {
	return stock.AdjustmentItem{
		ID:           m.ID,
		AdjustmentID: m.AdjustmentID,
		ProductID:    m.ProductID,
		Position:     m.Position,
		Quantity:     m.Quantity,
		CurrentStock: m.CurrentStock,
		NewStock:     m.NewStock,
		UnitCost:     m.UnitCost,
		Reason:       m.Reason,
		Status:       stock.AdjustmentItemStatus(m.Status),
		DecidedBy:    m.DecidedBy,
		DecidedAt:    m.DecidedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// AdjustmentItemModelFromDomain creates a persistence model from a domain AdjustmentItem
func AdjustmentItemModelFromDomain(it *stock.AdjustmentItem) *AdjustmentItemModel {
	return &AdjustmentItemModel{
		ID:           it.ID,
		AdjustmentID: it.AdjustmentID,
		ProductID:    it.ProductID,
		Position:     it.Position,
		Quantity:     it.Quantity,
		CurrentStock: it.CurrentStock,
		NewStock:     it.NewStock,
		UnitCost:     it.UnitCost,
		Reason:       it.Reason,
		Status:       string(it.Status),
		DecidedBy:    it.DecidedBy,
		DecidedAt:    it.DecidedAt,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

// StockAlertModel is the persistence model for the StockAlert aggregate root.
// There is at most one alert per product and warehouse.
type StockAlertModel struct {
	AggregateModel
	ProductID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_stock_alerts_pair,priority:1"`
	WarehouseID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_stock_alerts_pair,priority:2"`
	Type            string           `gorm:"type:varchar(20);not null"`
	Status          string           `gorm:"type:varchar(20);not null;index"`
	Threshold       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	MaxThreshold    *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CurrentQuantity decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	LastCheckedAt   *time.Time
	ResolvedAt      *time.Time
}

// TableName returns the table name for GORM
func (StockAlertModel) TableName() string {
	return "stock_alerts"
}

// ToDomain converts the persistence model to a domain StockAlert
func (m *StockAlertModel) ToDomain() *stock.StockAlert {
	return &stock.StockAlert{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		Type:              stock.AlertType(m.Type),
		Status:            stock.AlertStatus(m.Status),
		Threshold:         m.Threshold,
		MaxThreshold:      m.MaxThreshold,
		CurrentQuantity:   m.CurrentQuantity,
		LastCheckedAt:     m.LastCheckedAt,
		ResolvedAt:        m.ResolvedAt,
	}
}

// StockAlertModelFromDomain creates a persistence model from a domain StockAlert
func StockAlertModelFromDomain(a *stock.StockAlert) *StockAlertModel {
	m := &StockAlertModel{
		ProductID:       a.ProductID,
		WarehouseID:     a.WarehouseID,
		Type:            string(a.Type),
		Status:          string(a.Status),
		Threshold:       a.Threshold,
		MaxThreshold:    a.MaxThreshold,
		CurrentQuantity: a.CurrentQuantity,
		LastCheckedAt:   a.LastCheckedAt,
		ResolvedAt:      a.ResolvedAt,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// ReferenceSequenceModel is the counter row of one prefix and month
type ReferenceSequenceModel struct {
	Prefix    string    `gorm:"type:varchar(8);primaryKey"`
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	Month     int       `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReferenceSequenceModel) TableName() string {
	return "reference_sequences"
}

// InventoryLevelModel is the on-hand quantity of a product at a warehouse
type InventoryLevelModel struct {
	ProductID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryLevelModel) TableName() string {
	return "inventory_levels"
}

// StockMovementModel journals every change posted to inventory_levels
type StockMovementModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_pair,priority:1"`
	WarehouseID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_pair,priority:2"`
	Delta         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SourceType    string          `gorm:"type:varchar(32);not null"`
	SourceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferenceCode string          `gorm:"type:varchar(32)"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ProductModel is the read side of the product catalog
type ProductModel struct {
	BaseModel
	Code   string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(200);not null"`
	Status string `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// WarehouseModel is the read side of the warehouse registry
type WarehouseModel struct {
	BaseModel
	Code   string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(200);not null"`
	Status string `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// AllModels lists every model, in dependency order, for AutoMigrate
func AllModels() []any {
	return []any{
		&ProductModel{},
		&WarehouseModel{},
		&InventoryLevelModel{},
		&StockMovementModel{},
		&ReferenceSequenceModel{},
		&TransferModel{},
		&TransferItemModel{},
		&AdjustmentModel{},
		&AdjustmentItemModel{},
		&StockAlertModel{},
	}
}
