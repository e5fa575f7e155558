package stock

import (
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the status of a warehouse-to-warehouse transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusInTransit TransferStatus = "IN_TRANSIT"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// IsValid checks if the status is a valid TransferStatus
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusInTransit, TransferStatusCompleted, TransferStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is defined
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusCancelled
}

func (s TransferStatus) String() string {
	return string(s)
}

// CanTransitionTo checks whether an explicit bulk status change is allowed
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return target == TransferStatusInTransit || target == TransferStatusCancelled || target == TransferStatusCompleted
	case TransferStatusInTransit:
		return target == TransferStatusCancelled || target == TransferStatusCompleted
	}
	return false
}

// TransferItemStatus represents the receipt status of a transfer line
type TransferItemStatus string

const (
	TransferItemStatusPending   TransferItemStatus = "PENDING"
	TransferItemStatusInTransit TransferItemStatus = "IN_TRANSIT"
	TransferItemStatusPartial   TransferItemStatus = "PARTIAL"
	TransferItemStatusCompleted TransferItemStatus = "COMPLETED"
	TransferItemStatusCancelled TransferItemStatus = "CANCELLED"
)

// IsTerminal reports whether the item has been fully received or cancelled
func (s TransferItemStatus) IsTerminal() bool {
	return s == TransferItemStatusCompleted || s == TransferItemStatusCancelled
}

// TransferItemInput describes a requested transfer line
type TransferItemInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// TransferItem is a line of a Transfer. It never exists outside its transfer.
type TransferItem struct {
	ID               uuid.UUID
	TransferID       uuid.UUID
	ProductID        uuid.UUID
	Position         int
	Quantity         decimal.Decimal
	UnitCost         decimal.Decimal
	ReceivedQuantity *decimal.Decimal // nil until a receipt is recorded
	Status           TransferItemStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Received returns the received quantity, zero when no receipt was recorded
func (i *TransferItem) Received() decimal.Decimal {
	if i.ReceivedQuantity == nil {
		return decimal.Zero
	}
	return *i.ReceivedQuantity
}

// checkReceived rejects quantities outside [0, Quantity]
func (i *TransferItem) checkReceived(qty decimal.Decimal) error {
	if qty.IsNegative() || qty.GreaterThan(i.Quantity) {
		return shared.NewValidationError("INVALID_RECEIVED_QUANTITY",
			fmt.Sprintf("Received quantity %s must be between 0 and %s", qty, i.Quantity))
	}
	return nil
}

// receive records a receipt and derives the item status from it
func (i *TransferItem) receive(qty decimal.Decimal, now time.Time) error {
	if err := i.checkReceived(qty); err != nil {
		return err
	}

	switch {
	case qty.IsZero():
		i.Status = TransferItemStatusPending
	case qty.LessThan(i.Quantity):
		i.Status = TransferItemStatusPartial
	default:
		i.Status = TransferItemStatusCompleted
	}
	i.ReceivedQuantity = &qty
	i.UpdatedAt = now
	return nil
}

// Transfer moves stock from one warehouse to another.
// It is the aggregate root for its items.
type Transfer struct {
	shared.BaseAggregateRoot
	ReferenceCode          string
	SourceWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Status                 TransferStatus
	InitiatedBy            uuid.UUID
	CompletedBy            *uuid.UUID
	InitiatedAt            time.Time
	CompletedAt            *time.Time
	Notes                  string
	Items                  []TransferItem
}

// ValidateTransferInput checks creation input before anything is allocated or written
func ValidateTransferInput(source, destination uuid.UUID, items []TransferItemInput) error {
	if source == uuid.Nil || destination == uuid.Nil {
		return shared.NewValidationError("INVALID_WAREHOUSE", "Source and destination warehouses are required")
	}
	if source == destination {
		return shared.NewValidationError("SAME_WAREHOUSE", "Source and destination warehouses must differ")
	}
	if len(items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "Transfer must contain at least one item")
	}

	seen := make(map[uuid.UUID]struct{}, len(items))
	for idx, item := range items {
		if item.ProductID == uuid.Nil {
			return shared.NewValidationError("INVALID_PRODUCT", fmt.Sprintf("Item %d: product is required", idx+1))
		}
		if !item.Quantity.IsPositive() {
			return shared.NewValidationError("INVALID_QUANTITY", fmt.Sprintf("Item %d: quantity must be greater than zero", idx+1))
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

// NewTransfer creates a pending transfer with pending items
func NewTransfer(referenceCode string, source, destination, initiatedBy uuid.UUID, items []TransferItemInput, notes string, now time.Time) (*Transfer, error) {
	if err := ValidateTransferInput(source, destination, items); err != nil {
		return nil, err
	}
	if referenceCode == "" {
		return nil, shared.NewValidationError("INVALID_REFERENCE_CODE", "Reference code cannot be empty")
	}

	t := &Transfer{
		BaseAggregateRoot:      shared.NewBaseAggregateRoot(shared.NewBaseEntityAt(now)),
		ReferenceCode:          referenceCode,
		SourceWarehouseID:      source,
		DestinationWarehouseID: destination,
		Status:                 TransferStatusPending,
		InitiatedBy:            initiatedBy,
		InitiatedAt:            now,
		Notes:                  notes,
		Items:                  make([]TransferItem, 0, len(items)),
	}
	for idx, in := range items {
		t.Items = append(t.Items, TransferItem{
			ID:         uuid.New(),
			TransferID: t.ID,
			ProductID:  in.ProductID,
			Position:   idx + 1,
			Quantity:   in.Quantity,
			UnitCost:   in.UnitCost,
			Status:     TransferItemStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	t.AddDomainEvent(NewTransferCreatedEvent(t))
	return t, nil
}

// Item returns the item with the given ID
func (t *Transfer) Item(itemID uuid.UUID) (*TransferItem, error) {
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			return &t.Items[i], nil
		}
	}
	return nil, shared.NewNotFoundError("TRANSFER_ITEM_NOT_FOUND", "Transfer item not found")
}

// ReceiveItem records the received quantity of one item and re-derives the
// transfer status from the full item set.
func (t *Transfer) ReceiveItem(itemID uuid.UUID, received decimal.Decimal, actor uuid.UUID, now time.Time) error {
	item, err := t.Item(itemID)
	if err != nil {
		return err
	}
	if err := item.checkReceived(received); err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return shared.NewConflictError("TRANSFER_CLOSED",
			fmt.Sprintf("Cannot receive items on a %s transfer", t.Status))
	}
	if err := item.receive(received, now); err != nil {
		return err
	}

	t.AddDomainEvent(NewTransferItemReceivedEvent(t, item, now))
	t.deriveStatus(actor, now)
	t.UpdatedAt = now
	return nil
}

// deriveStatus applies the aggregate rule: every item completed gives
// COMPLETED, otherwise any partial item gives IN_TRANSIT, otherwise the
// status is kept. Terminal transfers are never changed.
func (t *Transfer) deriveStatus(actor uuid.UUID, now time.Time) {
	if t.Status.IsTerminal() || len(t.Items) == 0 {
		return
	}

	allCompleted, anyPartial := true, false
	for _, item := range t.Items {
		if item.Status != TransferItemStatusCompleted {
			allCompleted = false
		}
		if item.Status == TransferItemStatusPartial {
			anyPartial = true
		}
	}

	switch {
	case allCompleted:
		from := t.Status
		t.Status = TransferStatusCompleted
		t.markCompleted(actor, now)
		t.AddDomainEvent(NewTransferStatusChangedEvent(t, from, now))
		t.AddDomainEvent(NewTransferCompletedEvent(t))
	case anyPartial && t.Status != TransferStatusInTransit:
		from := t.Status
		t.Status = TransferStatusInTransit
		t.AddDomainEvent(NewTransferStatusChangedEvent(t, from, now))
	}
}

func (t *Transfer) markCompleted(actor uuid.UUID, now time.Time) {
	if t.CompletedAt == nil {
		completedAt := now
		t.CompletedAt = &completedAt
	}
	if t.CompletedBy == nil && actor != uuid.Nil {
		completedBy := actor
		t.CompletedBy = &completedBy
	}
}

// ChangeStatus performs an explicit bulk transition that drives item statuses.
func (t *Transfer) ChangeStatus(target TransferStatus, actor uuid.UUID, now time.Time) error {
	if !target.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown transfer status %q", target))
	}
	if !t.Status.CanTransitionTo(target) {
		return shared.NewConflictError("INVALID_STATUS_TRANSITION",
			fmt.Sprintf("Cannot change transfer status from %s to %s", t.Status, target))
	}

	switch target {
	case TransferStatusInTransit:
		for i := range t.Items {
			if !t.Items[i].Status.IsTerminal() {
				t.Items[i].Status = TransferItemStatusInTransit
				t.Items[i].UpdatedAt = now
			}
		}
	case TransferStatusCancelled:
		for i := range t.Items {
			t.Items[i].Status = TransferItemStatusCancelled
			t.Items[i].UpdatedAt = now
		}
	case TransferStatusCompleted:
		for i := range t.Items {
			if t.Items[i].ReceivedQuantity == nil {
				qty := t.Items[i].Quantity
				t.Items[i].ReceivedQuantity = &qty
				t.Items[i].Status = TransferItemStatusCompleted
				t.Items[i].UpdatedAt = now
			}
		}
		completedAt, completedBy := now, actor
		t.CompletedAt = &completedAt
		t.CompletedBy = nil
		if actor != uuid.Nil {
			t.CompletedBy = &completedBy
		}
	}

	from := t.Status
	t.Status = target
	t.UpdatedAt = now

	t.AddDomainEvent(NewTransferStatusChangedEvent(t, from, now))
	switch target {
	case TransferStatusCompleted:
		t.AddDomainEvent(NewTransferCompletedEvent(t))
	case TransferStatusCancelled:
		t.AddDomainEvent(NewTransferCancelledEvent(t, actor, now))
	}
	return nil
}

// EnsureDeletable returns a conflict unless the transfer is still pending
func (t *Transfer) EnsureDeletable() error {
	if t.Status != TransferStatusPending {
		return shared.NewConflictError("TRANSFER_NOT_PENDING",
			fmt.Sprintf("Only pending transfers can be deleted, transfer is %s", t.Status))
	}
	return nil
}

// Movements returns the ledger movements that realise a completed transfer:
// each received quantity leaves the source and enters the destination.
func (t *Transfer) Movements() []StockMovement {
	movements := make([]StockMovement, 0, len(t.Items)*2)
	for _, item := range t.Items {
		qty := item.Received()
		if !qty.IsPositive() {
			continue
		}
		movements = append(movements,
			StockMovement{
				ProductID:   item.ProductID,
				WarehouseID: t.SourceWarehouseID,
				Delta:       qty.Neg(),
				SourceType:  AggregateTypeTransfer,
				SourceID:    t.ID,
				Reference:   t.ReferenceCode,
			},
			StockMovement{
				ProductID:   item.ProductID,
				WarehouseID: t.DestinationWarehouseID,
				Delta:       qty,
				SourceType:  AggregateTypeTransfer,
				SourceID:    t.ID,
				Reference:   t.ReferenceCode,
			},
		)
	}
	return movements
}

// TotalQuantity returns the requested quantity over all items
func (t *Transfer) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// TotalCost returns the requested value over all items
func (t *Transfer) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.Quantity.Mul(item.UnitCost))
	}
	return total
}
