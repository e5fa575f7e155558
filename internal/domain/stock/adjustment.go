package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentStatus represents the status of a stock adjustment
type AdjustmentStatus string

const (
	AdjustmentStatusPending   AdjustmentStatus = "PENDING"
	AdjustmentStatusCompleted AdjustmentStatus = "COMPLETED"
	AdjustmentStatusCancelled AdjustmentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid AdjustmentStatus
func (s AdjustmentStatus) IsValid() bool {
	switch s {
	case AdjustmentStatusPending, AdjustmentStatusCompleted, AdjustmentStatusCancelled:
		return true
	}
	return false
}

func (s AdjustmentStatus) String() string {
	return string(s)
}

// AdjustmentItemStatus is the approval state of an adjustment line
type AdjustmentItemStatus string

const (
	AdjustmentItemStatusPending  AdjustmentItemStatus = "PENDING"
	AdjustmentItemStatusApproved AdjustmentItemStatus = "APPROVED"
	AdjustmentItemStatusRejected AdjustmentItemStatus = "REJECTED"
)

// IsDecision reports whether the status is a valid approval decision
func (s AdjustmentItemStatus) IsDecision() bool {
	return s == AdjustmentItemStatusApproved || s == AdjustmentItemStatusRejected
}

// IsTerminal reports whether the item has been decided
func (s AdjustmentItemStatus) IsTerminal() bool {
	return s.IsDecision()
}

// AdjustmentItemInput describes a requested correction line.
// Quantity is a signed delta against the current on-hand level.
type AdjustmentItemInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	Reason    string
}

// AdjustmentItem is a line of an Adjustment
type AdjustmentItem struct {
	ID           uuid.UUID
	AdjustmentID uuid.UUID
	ProductID    uuid.UUID
	Position     int
	Quantity     decimal.Decimal // signed delta
	CurrentStock decimal.Decimal // snapshot at creation
	NewStock     decimal.Decimal // CurrentStock + Quantity at creation
	UnitCost     decimal.Decimal
	Reason       string
	Status       AdjustmentItemStatus
	DecidedBy    *uuid.UUID
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Adjustment corrects recorded stock at a single warehouse, subject to
// per-item approval
type Adjustment struct {
	shared.BaseAggregateRoot
	ReferenceCode string
	WarehouseID   uuid.UUID
	Status        AdjustmentStatus
	Reason        string
	InitiatedBy   uuid.UUID
	ApprovedBy    *uuid.UUID
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	Items         []AdjustmentItem
}

// ValidateAdjustmentInput checks creation input before anything is allocated or written
func ValidateAdjustmentInput(warehouseID uuid.UUID, reason string, items []AdjustmentItemInput) error {
	if warehouseID == uuid.Nil {
		return shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse is required")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("INVALID_REASON", "Adjustment reason is required")
	}
	if len(items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "Adjustment must contain at least one item")
	}

	seen := make(map[uuid.UUID]struct{}, len(items))
	for idx, item := range items {
		if item.ProductID == uuid.Nil {
			return shared.NewValidationError("INVALID_PRODUCT", fmt.Sprintf("Item %d: product is required", idx+1))
		}
		if item.Quantity.IsZero() {
			return shared.NewValidationError("INVALID_QUANTITY", fmt.Sprintf("Item %d: adjustment quantity cannot be zero", idx+1))
		}
		if item.UnitCost.IsNegative() {
			return shared.NewValidationError("INVALID_UNIT_COST", fmt.Sprintf("Item %d: unit cost cannot be negative", idx+1))
		}
		if _, dup := seen[item.ProductID]; dup {
			return shared.NewValidationError("DUPLICATE_PRODUCT", fmt.Sprintf("Item %d: product already listed", idx+1))
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// NewAdjustment creates a pending adjustment. currentStock holds the on-hand
// level of each product at the warehouse; missing products count as zero.
func NewAdjustment(referenceCode string, warehouseID, initiatedBy uuid.UUID, reason string, items []AdjustmentItemInput, currentStock map[uuid.UUID]decimal.Decimal, now time.Time) (*Adjustment, error) {
	if err := ValidateAdjustmentInput(warehouseID, reason, items); err != nil {
		return nil, err
	}
	if referenceCode == "" {
		return nil, shared.NewValidationError("INVALID_REFERENCE_CODE", "Reference code cannot be empty")
	}

	a := &Adjustment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(shared.NewBaseEntityAt(now)),
		ReferenceCode:     referenceCode,
		WarehouseID:       warehouseID,
		Status:            AdjustmentStatusPending,
		Reason:            reason,
		InitiatedBy:       initiatedBy,
		Items:             make([]AdjustmentItem, 0, len(items)),
	}
	for idx, in := range items {
		current := currentStock[in.ProductID]
		newStock := current.Add(in.Quantity)
		if newStock.IsNegative() {
			return nil, shared.NewValidationError("NEGATIVE_RESULTING_STOCK",
				fmt.Sprintf("Item %d: adjustment would leave %s on hand", idx+1, newStock))
		}
		itemReason := in.Reason
		if itemReason == "" {
			itemReason = reason
		}
		a.Items = append(a.Items, AdjustmentItem{
			ID:           uuid.New(),
			AdjustmentID: a.ID,
			ProductID:    in.ProductID,
			Position:     idx + 1,
			Quantity:     in.Quantity,
			CurrentStock: current,
			NewStock:     newStock,
			UnitCost:     in.UnitCost,
			Reason:       itemReason,
			Status:       AdjustmentItemStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	a.AddDomainEvent(NewAdjustmentCreatedEvent(a))
	return a, nil
}

// Item returns the item with the given ID
func (a *Adjustment) Item(itemID uuid.UUID) (*AdjustmentItem, error) {
	for i := range a.Items {
		if a.Items[i].ID == itemID {
			return &a.Items[i], nil
		}
	}
	return nil, shared.NewNotFoundError("ADJUSTMENT_ITEM_NOT_FOUND", "Adjustment item not found")
}

// DecideItem approves or rejects one item. Once every item is decided the
// adjustment completes.
func (a *Adjustment) DecideItem(itemID uuid.UUID, decision AdjustmentItemStatus, actor uuid.UUID, now time.Time) (*AdjustmentItem, error) {
	if !decision.IsDecision() {
		return nil, shared.NewValidationError("INVALID_DECISION",
			fmt.Sprintf("Decision must be %s or %s, got %q", AdjustmentItemStatusApproved, AdjustmentItemStatusRejected, decision))
	}
	item, err := a.Item(itemID)
	if err != nil {
		return nil, err
	}
	if item.Status.IsTerminal() {
		return nil, shared.NewConflictError("ITEM_ALREADY_DECIDED",
			fmt.Sprintf("Item was already %s", item.Status))
	}
	if a.Status == AdjustmentStatusCancelled {
		return nil, shared.NewConflictError("ADJUSTMENT_CANCELLED", "Cannot decide items of a cancelled adjustment")
	}

	decidedAt, decidedBy := now, actor
	item.Status = decision
	item.DecidedAt = &decidedAt
	item.DecidedBy = &decidedBy
	item.UpdatedAt = now

	a.UpdatedAt = now
	a.AddDomainEvent(NewAdjustmentItemDecidedEvent(a, item, now))

	if a.allDecided() {
		approvedBy, completedAt := actor, now
		a.Status = AdjustmentStatusCompleted
		a.ApprovedBy = &approvedBy
		a.CompletedAt = &completedAt
		a.AddDomainEvent(NewAdjustmentCompletedEvent(a))
	}
	return item, nil
}

func (a *Adjustment) allDecided() bool {
	for _, item := range a.Items {
		if !item.Status.IsTerminal() {
			return false
		}
	}
	return len(a.Items) > 0
}

// Cancel cancels a pending adjustment. Decisions already made are kept.
func (a *Adjustment) Cancel(actor uuid.UUID, now time.Time) error {
	if a.Status != AdjustmentStatusPending {
		return shared.NewConflictError("ADJUSTMENT_NOT_PENDING",
			fmt.Sprintf("Only pending adjustments can be cancelled, adjustment is %s", a.Status))
	}
	cancelledAt := now
	a.Status = AdjustmentStatusCancelled
	a.CancelledAt = &cancelledAt
	a.UpdatedAt = now
	a.AddDomainEvent(NewAdjustmentCancelledEvent(a, actor, now))
	return nil
}

// Movement returns the ledger movement of an approved item
func (a *Adjustment) Movement(item *AdjustmentItem) StockMovement {
	return StockMovement{
		ProductID:   item.ProductID,
		WarehouseID: a.WarehouseID,
		Delta:       item.Quantity,
		SourceType:  AggregateTypeAdjustment,
		SourceID:    a.ID,
		Reference:   a.ReferenceCode,
	}
}

// DecisionCounts returns how many items are pending, approved and rejected
func (a *Adjustment) DecisionCounts() (pending, approved, rejected int) {
	for _, item := range a.Items {
		switch item.Status {
		case AdjustmentItemStatusApproved:
			approved++
		case AdjustmentItemStatusRejected:
			rejected++
		default:
			pending++
		}
	}
	return pending, approved, rejected
}
