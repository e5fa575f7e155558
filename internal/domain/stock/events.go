package stock

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeTransfer   = "StockTransfer"
	AggregateTypeAdjustment = "StockAdjustment"
	AggregateTypeStockAlert = "StockAlert"
)

// Event type constants
const (
	EventTypeTransferCreated       = "TransferCreated"
	EventTypeTransferItemReceived  = "TransferItemReceived"
	EventTypeTransferStatusChanged = "TransferStatusChanged"
	EventTypeTransferCompleted     = "TransferCompleted"
	EventTypeTransferCancelled     = "TransferCancelled"
	EventTypeTransferDeleted       = "TransferDeleted"

	EventTypeAdjustmentCreated     = "AdjustmentCreated"
	EventTypeAdjustmentItemDecided = "AdjustmentItemDecided"
	EventTypeAdjustmentCompleted   = "AdjustmentCompleted"
	EventTypeAdjustmentCancelled   = "AdjustmentCancelled"
	EventTypeStockAlertRaised      = "StockAlertRaised"
	EventTypeStockAlertResolved    = "StockAlertResolved"
	EventTypeStockLevelsReconciled = "StockLevelsReconciled"
)

// TransferCreatedEvent is raised when a transfer is created
type TransferCreatedEvent struct {
	shared.BaseDomainEvent
	TransferID             uuid.UUID       `json:"transfer_id"`
	ReferenceCode          string          `json:"reference_code"`
	SourceWarehouseID      uuid.UUID       `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID       `json:"destination_warehouse_id"`
	ItemCount              int             `json:"item_count"`
	TotalQuantity          decimal.Decimal `json:"total_quantity"`
	InitiatedBy            uuid.UUID       `json:"initiated_by"`
}

func NewTransferCreatedEvent(t *Transfer) *TransferCreatedEvent {
	return &TransferCreatedEvent{
		BaseDomainEvent:        shared.NewBaseDomainEvent(EventTypeTransferCreated, AggregateTypeTransfer, t.ID, t.CreatedAt),
		TransferID:             t.ID,
		ReferenceCode:          t.ReferenceCode,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		ItemCount:              len(t.Items),
		TotalQuantity:          t.TotalQuantity(),
		InitiatedBy:            t.InitiatedBy,
	}
}

// TransferItemReceivedEvent is raised when a receipt is recorded on an item
type TransferItemReceivedEvent struct {
	shared.BaseDomainEvent
	TransferID       uuid.UUID          `json:"transfer_id"`
	ReferenceCode    string             `json:"reference_code"`
	ItemID           uuid.UUID          `json:"item_id"`
	ProductID        uuid.UUID          `json:"product_id"`
	Quantity         decimal.Decimal    `json:"quantity"`
	ReceivedQuantity decimal.Decimal    `json:"received_quantity"`
	ItemStatus       TransferItemStatus `json:"item_status"`
}

func NewTransferItemReceivedEvent(t *Transfer, item *TransferItem, at time.Time) *TransferItemReceivedEvent {
	return &TransferItemReceivedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTransferItemReceived, AggregateTypeTransfer, t.ID, at),
		TransferID:       t.ID,
		ReferenceCode:    t.ReferenceCode,
		ItemID:           item.ID,
		ProductID:        item.ProductID,
		Quantity:         item.Quantity,
		ReceivedQuantity: item.Received(),
		ItemStatus:       item.Status,
	}
}

// TransferStatusChangedEvent is raised on every transfer status change,
// derived or explicit
type TransferStatusChangedEvent struct {
	shared.BaseDomainEvent
	TransferID    uuid.UUID      `json:"transfer_id"`
	ReferenceCode string         `json:"reference_code"`
	FromStatus    TransferStatus `json:"from_status"`
	ToStatus      TransferStatus `json:"to_status"`
}

func NewTransferStatusChangedEvent(t *Transfer, from TransferStatus, at time.Time) *TransferStatusChangedEvent {
	return &TransferStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferStatusChanged, AggregateTypeTransfer, t.ID, at),
		TransferID:      t.ID,
		ReferenceCode:   t.ReferenceCode,
		FromStatus:      from,
		ToStatus:        t.Status,
	}
}

// TransferCompletedEvent is raised when a transfer reaches COMPLETED
type TransferCompletedEvent struct {
	shared.BaseDomainEvent
	TransferID             uuid.UUID       `json:"transfer_id"`
	ReferenceCode          string          `json:"reference_code"`
	SourceWarehouseID      uuid.UUID       `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID       `json:"destination_warehouse_id"`
	ReceivedQuantity       decimal.Decimal `json:"received_quantity"`
	CompletedBy            *uuid.UUID      `json:"completed_by,omitempty"`
}

func NewTransferCompletedEvent(t *Transfer) *TransferCompletedEvent {
	received := decimal.Zero
	for i := range t.Items {
		received = received.Add(t.Items[i].Received())
	}
	at := t.UpdatedAt
	if t.CompletedAt != nil {
		at = *t.CompletedAt
	}
	return &TransferCompletedEvent{
		BaseDomainEvent:        shared.NewBaseDomainEvent(EventTypeTransferCompleted, AggregateTypeTransfer, t.ID, at),
		TransferID:             t.ID,
		ReferenceCode:          t.ReferenceCode,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		ReceivedQuantity:       received,
		CompletedBy:            t.CompletedBy,
	}
}

// TransferCancelledEvent is raised when a transfer is cancelled
type TransferCancelledEvent struct {
	shared.BaseDomainEvent
	TransferID    uuid.UUID `json:"transfer_id"`
	ReferenceCode string    `json:"reference_code"`
	CancelledBy   uuid.UUID `json:"cancelled_by"`
}

func NewTransferCancelledEvent(t *Transfer, actor uuid.UUID, at time.Time) *TransferCancelledEvent {
	return &TransferCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferCancelled, AggregateTypeTransfer, t.ID, at),
		TransferID:      t.ID,
		ReferenceCode:   t.ReferenceCode,
		CancelledBy:     actor,
	}
}

// TransferDeletedEvent is raised when a pending transfer is deleted
type TransferDeletedEvent struct {
	shared.BaseDomainEvent
	TransferID    uuid.UUID `json:"transfer_id"`
	ReferenceCode string    `json:"reference_code"`
}

func NewTransferDeletedEvent(t *Transfer, at time.Time) *TransferDeletedEvent {
	return &TransferDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferDeleted, AggregateTypeTransfer, t.ID, at),
		TransferID:      t.ID,
		ReferenceCode:   t.ReferenceCode,
	}
}

// AdjustmentCreatedEvent is raised when an adjustment is created
type AdjustmentCreatedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID  uuid.UUID `json:"adjustment_id"`
	ReferenceCode string    `json:"reference_code"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	Reason        string    `json:"reason"`
	ItemCount     int       `json:"item_count"`
	InitiatedBy   uuid.UUID `json:"initiated_by"`
}

func NewAdjustmentCreatedEvent(a *Adjustment) *AdjustmentCreatedEvent {
	return &AdjustmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentCreated, AggregateTypeAdjustment, a.ID, a.CreatedAt),
		AdjustmentID:    a.ID,
		ReferenceCode:   a.ReferenceCode,
		WarehouseID:     a.WarehouseID,
		Reason:          a.Reason,
		ItemCount:       len(a.Items),
		InitiatedBy:     a.InitiatedBy,
	}
}

// AdjustmentItemDecidedEvent is raised when an item is approved or rejected
type AdjustmentItemDecidedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID  uuid.UUID            `json:"adjustment_id"`
	ReferenceCode string               `json:"reference_code"`
	ItemID        uuid.UUID            `json:"item_id"`
	ProductID     uuid.UUID            `json:"product_id"`
	Quantity      decimal.Decimal      `json:"quantity"`
	Decision      AdjustmentItemStatus `json:"decision"`
	DecidedBy     uuid.UUID            `json:"decided_by"`
}

func NewAdjustmentItemDecidedEvent(a *Adjustment, item *AdjustmentItem, at time.Time) *AdjustmentItemDecidedEvent {
	e := &AdjustmentItemDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentItemDecided, AggregateTypeAdjustment, a.ID, at),
		AdjustmentID:    a.ID,
		ReferenceCode:   a.ReferenceCode,
		ItemID:          item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		Decision:        item.Status,
	}
	if item.DecidedBy != nil {
		e.DecidedBy = *item.DecidedBy
	}
	return e
}

// AdjustmentCompletedEvent is raised once every item of an adjustment is decided
type AdjustmentCompletedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID  uuid.UUID  `json:"adjustment_id"`
	ReferenceCode string     `json:"reference_code"`
	WarehouseID   uuid.UUID  `json:"warehouse_id"`
	Approved      int        `json:"approved"`
	Rejected      int        `json:"rejected"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
}

func NewAdjustmentCompletedEvent(a *Adjustment) *AdjustmentCompletedEvent {
	_, approved, rejected := a.DecisionCounts()
	at := a.UpdatedAt
	if a.CompletedAt != nil {
		at = *a.CompletedAt
	}
	return &AdjustmentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentCompleted, AggregateTypeAdjustment, a.ID, at),
		AdjustmentID:    a.ID,
		ReferenceCode:   a.ReferenceCode,
		WarehouseID:     a.WarehouseID,
		Approved:        approved,
		Rejected:        rejected,
		ApprovedBy:      a.ApprovedBy,
	}
}

// AdjustmentCancelledEvent is raised when a pending adjustment is cancelled
type AdjustmentCancelledEvent struct {
	shared.BaseDomainEvent
	AdjustmentID  uuid.UUID `json:"adjustment_id"`
	ReferenceCode string    `json:"reference_code"`
	CancelledBy   uuid.UUID `json:"cancelled_by"`
}

func NewAdjustmentCancelledEvent(a *Adjustment, actor uuid.UUID, at time.Time) *AdjustmentCancelledEvent {
	return &AdjustmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentCancelled, AggregateTypeAdjustment, a.ID, at),
		AdjustmentID:    a.ID,
		ReferenceCode:   a.ReferenceCode,
		CancelledBy:     actor,
	}
}

// StockAlertRaisedEvent is raised when an alert becomes active
type StockAlertRaisedEvent struct {
	shared.BaseDomainEvent
	AlertID         uuid.UUID       `json:"alert_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	AlertType       AlertType       `json:"alert_type"`
	Threshold       decimal.Decimal `json:"threshold"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
}

func NewStockAlertRaisedEvent(a *StockAlert, at time.Time) *StockAlertRaisedEvent {
	return &StockAlertRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAlertRaised, AggregateTypeStockAlert, a.ID, at),
		AlertID:         a.ID,
		ProductID:       a.ProductID,
		WarehouseID:     a.WarehouseID,
		AlertType:       a.Type,
		Threshold:       a.Threshold,
		CurrentQuantity: a.CurrentQuantity,
	}
}

// StockAlertResolvedEvent is raised when an active alert no longer breaches
type StockAlertResolvedEvent struct {
	shared.BaseDomainEvent
	AlertID         uuid.UUID       `json:"alert_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
}

func NewStockAlertResolvedEvent(a *StockAlert, at time.Time) *StockAlertResolvedEvent {
	return &StockAlertResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAlertResolved, AggregateTypeStockAlert, a.ID, at),
		AlertID:         a.ID,
		ProductID:       a.ProductID,
		WarehouseID:     a.WarehouseID,
		CurrentQuantity: a.CurrentQuantity,
	}
}

// StockLevelsReconciledEvent summarises one reconciliation pass
type StockLevelsReconciledEvent struct {
	shared.BaseDomainEvent
	Scanned  int `json:"scanned"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

func NewStockLevelsReconciledEvent(runID uuid.UUID, scanned, created, updated, resolved, failed int, at time.Time) *StockLevelsReconciledEvent {
	return &StockLevelsReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLevelsReconciled, AggregateTypeStockAlert, runID, at),
		Scanned:         scanned,
		Created:         created,
		Updated:         updated,
		Resolved:        resolved,
		Failed:          failed,
	}
}
