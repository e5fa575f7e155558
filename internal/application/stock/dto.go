package stock

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Transfer DTOs =====================

// TransferItemRequest is one requested line of a new transfer
type TransferItemRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreateTransferRequest represents a request to create a transfer
type CreateTransferRequest struct {
	SourceWarehouseID      uuid.UUID             `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID             `json:"destination_warehouse_id"`
	Notes                  string                `json:"notes"`
	InitiatedBy            uuid.UUID             `json:"initiated_by"`
	Items                  []TransferItemRequest `json:"items"`
}

func (r CreateTransferRequest) inputs() []stock.TransferItemInput {
	items := make([]stock.TransferItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, stock.TransferItemInput{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost})
	}
	return items
}

// ReceiveTransferItemRequest records the received quantity of a transfer item
type ReceiveTransferItemRequest struct {
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	ActorID          uuid.UUID       `json:"actor_id"`
}

// ChangeTransferStatusRequest is an explicit bulk status change
type ChangeTransferStatusRequest struct {
	Status  string    `json:"status"`
	ActorID uuid.UUID `json:"actor_id"`
}

// TransferListFilter represents filter options for transfer listings
type TransferListFilter struct {
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
	Search      string
	Status      string
	WarehouseID *uuid.UUID
	From        *time.Time
	To          *time.Time
}

func (f TransferListFilter) toDomain() stock.TransferFilter {
	return stock.TransferFilter{
		Filter:      listFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, f.Search),
		Status:      stock.TransferStatus(f.Status),
		WarehouseID: f.WarehouseID,
		From:        f.From,
		To:          f.To,
	}
}

// TransferItemResponse represents a transfer item in responses
type TransferItemResponse struct {
	ID               uuid.UUID        `json:"id"`
	ProductID        uuid.UUID        `json:"product_id"`
	Position         int              `json:"position"`
	Quantity         decimal.Decimal  `json:"quantity"`
	UnitCost         decimal.Decimal  `json:"unit_cost"`
	ReceivedQuantity *decimal.Decimal `json:"received_quantity"`
	Status           string           `json:"status"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TransferResponse represents a transfer in responses
type TransferResponse struct {
	ID                     uuid.UUID              `json:"id"`
	ReferenceCode          string                 `json:"reference_code"`
	SourceWarehouseID      uuid.UUID              `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID              `json:"destination_warehouse_id"`
	Status                 string                 `json:"status"`
	InitiatedBy            uuid.UUID              `json:"initiated_by"`
	CompletedBy            *uuid.UUID             `json:"completed_by"`
	InitiatedAt            time.Time              `json:"initiated_at"`
	CompletedAt            *time.Time             `json:"completed_at"`
	Notes                  string                 `json:"notes"`
	TotalQuantity          decimal.Decimal        `json:"total_quantity"`
	TotalCost              decimal.Decimal        `json:"total_cost"`
	Items                  []TransferItemResponse `json:"items"`
	Version                int                    `json:"version"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// ToTransferResponse converts a domain Transfer to a response
func ToTransferResponse(t *stock.Transfer) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, TransferItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			Position:         it.Position,
			Quantity:         it.Quantity,
			UnitCost:         it.UnitCost,
			ReceivedQuantity: it.ReceivedQuantity,
			Status:           string(it.Status),
			UpdatedAt:        it.UpdatedAt,
		})
	}
	return TransferResponse{
		ID:                     t.ID,
		ReferenceCode:          t.ReferenceCode,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Status:                 string(t.Status),
		InitiatedBy:            t.InitiatedBy,
		CompletedBy:            t.CompletedBy,
		InitiatedAt:            t.InitiatedAt,
		CompletedAt:            t.CompletedAt,
		Notes:                  t.Notes,
		TotalQuantity:          t.TotalQuantity(),
		TotalCost:              t.TotalCost(),
		Items:                  items,
		Version:                t.Version,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

// ===================== Adjustment DTOs =====================

// AdjustmentItemRequest is one requested correction line; Quantity is a signed delta
type AdjustmentItemRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Reason    string          `json:"reason"`
}

// CreateAdjustmentRequest represents a request to create an adjustment
type CreateAdjustmentRequest struct {
	WarehouseID uuid.UUID               `json:"warehouse_id"`
	Reason      string                  `json:"reason"`
	InitiatedBy uuid.UUID               `json:"initiated_by"`
	Items       []AdjustmentItemRequest `json:"items"`
}

func (r CreateAdjustmentRequest) inputs() []stock.AdjustmentItemInput {
	items := make([]stock.AdjustmentItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, stock.AdjustmentItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
			Reason:    it.Reason,
		})
	}
	return items
}

// DecideAdjustmentItemRequest approves or rejects an adjustment item
type DecideAdjustmentItemRequest struct {
	Decision string    `json:"decision"`
	ActorID  uuid.UUID `json:"actor_id"`
}

// AdjustmentListFilter represents filter options for adjustment listings
type AdjustmentListFilter struct {
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
	Search      string
	Status      string
	WarehouseID *uuid.UUID
	From        *time.Time
	To          *time.Time
}

func (f AdjustmentListFilter) toDomain() stock.AdjustmentFilter {
	return stock.AdjustmentFilter{
		Filter:      listFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, f.Search),
		Status:      stock.AdjustmentStatus(f.Status),
		WarehouseID: f.WarehouseID,
		From:        f.From,
		To:          f.To,
	}
}

// AdjustmentItemResponse represents an adjustment item in responses
type AdjustmentItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Position     int             `json:"position"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	NewStock     decimal.Decimal `json:"new_stock"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Reason       string          `json:"reason"`
	Status       string          `json:"status"`
	DecidedBy    *uuid.UUID      `json:"decided_by"`
	DecidedAt    *time.Time      `json:"decided_at"`
}

// AdjustmentResponse represents an adjustment in responses
type AdjustmentResponse struct {
	ID            uuid.UUID                `json:"id"`
	ReferenceCode string                   `json:"reference_code"`
	WarehouseID   uuid.UUID                `json:"warehouse_id"`
	Status        string                   `json:"status"`
	Reason        string                   `json:"reason"`
	InitiatedBy   uuid.UUID                `json:"initiated_by"`
	ApprovedBy    *uuid.UUID               `json:"approved_by"`
	CompletedAt   *time.Time               `json:"completed_at"`
	CancelledAt   *time.Time               `json:"cancelled_at"`
	PendingItems  int                      `json:"pending_items"`
	Items         []AdjustmentItemResponse `json:"items"`
	Version       int                      `json:"version"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// ToAdjustmentResponse converts a domain Adjustment to a response
func ToAdjustmentResponse(a *stock.Adjustment) AdjustmentResponse {
	items := make([]AdjustmentItemResponse, 0, len(a.Items))
	for _, it := range a.Items {
		items = append(items, AdjustmentItemResponse{
			ID:           it.ID,
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
		})
	}
	pending, _, _ := a.DecisionCounts()
	return AdjustmentResponse{
		ID:            a.ID,
		ReferenceCode: a.ReferenceCode,
		WarehouseID:   a.WarehouseID,
		Status:        string(a.Status),
		Reason:        a.Reason,
		InitiatedBy:   a.InitiatedBy,
		ApprovedBy:    a.ApprovedBy,
		CompletedAt:   a.CompletedAt,
		CancelledAt:   a.CancelledAt,
		PendingItems:  pending,
		Items:         items,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ===================== Stock alert DTOs =====================

// RegisterThresholdRequest registers or replaces the thresholds of a pair
type RegisterThresholdRequest struct {
	ProductID    uuid.UUID        `json:"product_id"`
	WarehouseID  uuid.UUID        `json:"warehouse_id"`
	Threshold    decimal.Decimal  `json:"threshold"`
	MaxThreshold *decimal.Decimal `json:"max_threshold"`
}

// UpdateAlertRequest is a direct user override. Nil fields are left unchanged.
type UpdateAlertRequest struct {
	Status            *string          `json:"status"`
	Threshold         *decimal.Decimal `json:"threshold"`
	MaxThreshold      *decimal.Decimal `json:"max_threshold"`
	ClearMaxThreshold bool             `json:"clear_max_threshold"`
}

// StockAlertListFilter represents filter options for alert listings
type StockAlertListFilter struct {
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
	Status      string
	Type        string
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
}

func (f StockAlertListFilter) toDomain() stock.StockAlertFilter {
	return stock.StockAlertFilter{
		Filter:      listFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, ""),
		Status:      stock.AlertStatus(f.Status),
		Type:        stock.AlertType(f.Type),
		ProductID:   f.ProductID,
		WarehouseID: f.WarehouseID,
	}
}

// StockAlertResponse represents a stock alert in responses
type StockAlertResponse struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	WarehouseID     uuid.UUID        `json:"warehouse_id"`
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	Threshold       decimal.Decimal  `json:"threshold"`
	MaxThreshold    *decimal.Decimal `json:"max_threshold"`
	CurrentQuantity decimal.Decimal  `json:"current_quantity"`
	LastCheckedAt   *time.Time       `json:"last_checked_at"`
	ResolvedAt      *time.Time       `json:"resolved_at"`
	Version         int              `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ToStockAlertResponse converts a domain StockAlert to a response
func ToStockAlertResponse(a *stock.StockAlert) StockAlertResponse {
	return StockAlertResponse{
		ID:              a.ID,
		ProductID:       a.ProductID,
		WarehouseID:     a.WarehouseID,
		Type:            string(a.Type),
		Status:          string(a.Status),
		Threshold:       a.Threshold,
		MaxThreshold:    a.MaxThreshold,
		CurrentQuantity: a.CurrentQuantity,
		LastCheckedAt:   a.LastCheckedAt,
		ResolvedAt:      a.ResolvedAt,
		Version:         a.Version,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// ReconcileResult summarises one reconciliation pass. Counts cover only
// pairs that were processed successfully.
type ReconcileResult struct {
	RunID      uuid.UUID     `json:"run_id"`
	Scanned    int           `json:"scanned"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Resolved   int           `json:"resolved"`
	Failed     int           `json:"failed"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

func listFilter(page, pageSize int, orderBy, orderDir, search string) shared.Filter {
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Search:   search,
	}.Normalize()
}
