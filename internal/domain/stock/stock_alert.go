package stock

import (
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertType classifies which bound a stock level breached
type AlertType string

const (
	AlertTypeLowStock   AlertType = "LOW_STOCK"
	AlertTypeOutOfStock AlertType = "OUT_OF_STOCK"
	AlertTypeOverstock  AlertType = "OVERSTOCK"
)

// AlertStatus is the lifecycle state of a stock alert
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "ACTIVE"
	AlertStatusResolved AlertStatus = "RESOLVED"
	AlertStatusIgnored  AlertStatus = "IGNORED"
)

// IsValid checks if the status is a valid AlertStatus
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusActive, AlertStatusResolved, AlertStatusIgnored:
		return true
	}
	return false
}

// IsValid checks if the type is a valid AlertType
func (t AlertType) IsValid() bool {
	switch t {
	case AlertTypeLowStock, AlertTypeOutOfStock, AlertTypeOverstock:
		return true
	}
	return false
}

// AlertChange reports what a reconciliation observation did to an alert
type AlertChange int

const (
	AlertUnchanged AlertChange = iota
	AlertActivated
	AlertResolved
)

// EvaluateLevel applies the breach rule to a stock level. A level at or
// below threshold is low (out of stock when it is not positive); a level
// above the optional max threshold is overstock.
func EvaluateLevel(qty, threshold decimal.Decimal, maxThreshold *decimal.Decimal) (bool, AlertType) {
	if qty.LessThanOrEqual(threshold) {
		if !qty.IsPositive() {
			return true, AlertTypeOutOfStock
		}
		return true, AlertTypeLowStock
	}
	if maxThreshold != nil && qty.GreaterThan(*maxThreshold) {
		return true, AlertTypeOverstock
	}
	return false, AlertTypeLowStock
}

// StockAlert tracks one product at one warehouse against its thresholds
type StockAlert struct {
	shared.BaseAggregateRoot
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	Type            AlertType
	Status          AlertStatus
	Threshold       decimal.Decimal
	MaxThreshold    *decimal.Decimal
	CurrentQuantity decimal.Decimal
	LastCheckedAt   *time.Time
	ResolvedAt      *time.Time
}

func validateThresholds(threshold decimal.Decimal, maxThreshold *decimal.Decimal) error {
	if threshold.IsNegative() {
		return shared.NewValidationError("INVALID_THRESHOLD", "Threshold cannot be negative")
	}
	if maxThreshold != nil && !maxThreshold.GreaterThan(threshold) {
		return shared.NewValidationError("INVALID_MAX_THRESHOLD",
			fmt.Sprintf("Max threshold %s must be greater than threshold %s", maxThreshold, threshold))
	}
	return nil
}

// NewStockAlert creates an alert for the pair and evaluates it against qty
func NewStockAlert(productID, warehouseID uuid.UUID, threshold decimal.Decimal, maxThreshold *decimal.Decimal, qty decimal.Decimal, now time.Time) (*StockAlert, error) {
	if productID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ALERT_KEY", "Product and warehouse are required")
	}
	if err := validateThresholds(threshold, maxThreshold); err != nil {
		return nil, err
	}

	a := &StockAlert{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(shared.NewBaseEntityAt(now)),
		ProductID:         productID,
		WarehouseID:       warehouseID,
		Type:              AlertTypeLowStock,
		Status:            AlertStatusResolved,
		Threshold:         threshold,
		MaxThreshold:      maxThreshold,
	}
	a.Recompute(qty, now)
	return a, nil
}

// SetThresholds replaces the thresholds without re-evaluating the level
func (a *StockAlert) SetThresholds(threshold decimal.Decimal, maxThreshold *decimal.Decimal, now time.Time) error {
	if err := validateThresholds(threshold, maxThreshold); err != nil {
		return err
	}
	a.Threshold = threshold
	a.MaxThreshold = maxThreshold
	a.UpdatedAt = now
	return nil
}

// Recompute refreshes the quantity and sets the status purely from the
// breach rule: ACTIVE on breach, RESOLVED otherwise. It overrides IGNORED.
func (a *StockAlert) Recompute(qty decimal.Decimal, now time.Time) {
	breached, typ := EvaluateLevel(qty, a.Threshold, a.MaxThreshold)
	a.observe(qty, now)
	if breached {
		a.Type = typ
		a.activate(now)
		return
	}
	a.resolve(now)
}

// Observe applies a reconciliation pass: the quantity is always refreshed,
// IGNORED alerts keep their status, others move to ACTIVE on breach or to
// RESOLVED when an active alert no longer breaches.
func (a *StockAlert) Observe(qty decimal.Decimal, now time.Time) AlertChange {
	breached, typ := EvaluateLevel(qty, a.Threshold, a.MaxThreshold)
	a.observe(qty, now)
	if a.Status == AlertStatusIgnored {
		return AlertUnchanged
	}

	switch {
	case breached && a.Status != AlertStatusActive:
		a.Type = typ
		a.activate(now)
		return AlertActivated
	case breached:
		a.Type = typ
	case a.Status == AlertStatusActive:
		a.resolve(now)
		return AlertResolved
	}
	return AlertUnchanged
}

// RefreshQuantity records a new level without touching the status
func (a *StockAlert) RefreshQuantity(qty decimal.Decimal, now time.Time) {
	a.observe(qty, now)
}

// SetStatus stores a user override verbatim
func (a *StockAlert) SetStatus(status AlertStatus, now time.Time) error {
	if !status.IsValid() {
		return shared.NewValidationError("INVALID_ALERT_STATUS", fmt.Sprintf("Unknown alert status %q", status))
	}
	if status == a.Status {
		return nil
	}
	switch status {
	case AlertStatusActive:
		a.activate(now)
	case AlertStatusResolved:
		a.resolve(now)
	default:
		a.Status = status
	}
	a.UpdatedAt = now
	return nil
}

func (a *StockAlert) observe(qty decimal.Decimal, now time.Time) {
	checkedAt := now
	a.CurrentQuantity = qty
	a.LastCheckedAt = &checkedAt
	a.UpdatedAt = now
}

func (a *StockAlert) activate(now time.Time) {
	if a.Status == AlertStatusActive {
		return
	}
	a.Status = AlertStatusActive
	a.ResolvedAt = nil
	a.AddDomainEvent(NewStockAlertRaisedEvent(a, now))
}

func (a *StockAlert) resolve(now time.Time) {
	if a.Status == AlertStatusResolved {
		return
	}
	wasActive := a.Status == AlertStatusActive
	resolvedAt := now
	a.Status = AlertStatusResolved
	a.ResolvedAt = &resolvedAt
	if wasActive {
		a.AddDomainEvent(NewStockAlertResolvedEvent(a, now))
	}
}
