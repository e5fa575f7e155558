package handler

import (
	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferItemBody is one line of a transfer creation request
type TransferItemBody struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"gt=0" swaggertype:"string" example:"12"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"gte=0" swaggertype:"string" example:"3.50"`
}

// CreateTransferBody is the request body for creating a transfer
type CreateTransferBody struct {
	SourceWarehouseID      uuid.UUID          `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseID uuid.UUID          `json:"destination_warehouse_id" binding:"required"`
	Notes                  string             `json:"notes" binding:"max=1000"`
	Items                  []TransferItemBody `json:"items" binding:"required,min=1,max=500,dive"`
}

func (b CreateTransferBody) toRequest(actorID uuid.UUID) appstock.CreateTransferRequest {
	items := make([]appstock.TransferItemRequest, len(b.Items))
	for i, it := range b.Items {
		items[i] = appstock.TransferItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
		}
	}
	return appstock.CreateTransferRequest{
		SourceWarehouseID:      b.SourceWarehouseID,
		DestinationWarehouseID: b.DestinationWarehouseID,
		Notes:                  b.Notes,
		InitiatedBy:            actorID,
		Items:                  items,
	}
}

// ReceiveItemBody records the quantity received for one transfer item
type ReceiveItemBody struct {
	ReceivedQuantity *decimal.Decimal `json:"received_quantity" binding:"required,gte=0" swaggertype:"string" example:"5"`
}

// ChangeStatusBody requests an explicit transfer status change
type ChangeStatusBody struct {
	Status string `json:"status" binding:"required,oneof=PENDING IN_TRANSIT COMPLETED CANCELLED"`
}

// AdjustmentItemBody is one line of an adjustment; Quantity is a signed delta
type AdjustmentItemBody struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"ne=0" swaggertype:"string" example:"-2"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"gte=0" swaggertype:"string" example:"3.50"`
	Reason    string          `json:"reason" binding:"max=500"`
}

// CreateAdjustmentBody is the request body for creating an adjustment
type CreateAdjustmentBody struct {
	WarehouseID uuid.UUID            `json:"warehouse_id" binding:"required"`
	Reason      string               `json:"reason" binding:"required,max=500"`
	Items       []AdjustmentItemBody `json:"items" binding:"required,min=1,max=500,dive"`
}

func (b CreateAdjustmentBody) toRequest(actorID uuid.UUID) appstock.CreateAdjustmentRequest {
	items := make([]appstock.AdjustmentItemRequest, len(b.Items))
	for i, it := range b.Items {
		items[i] = appstock.AdjustmentItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
			Reason:    it.Reason,
		}
	}
	return appstock.CreateAdjustmentRequest{
		WarehouseID: b.WarehouseID,
		Reason:      b.Reason,
		InitiatedBy: actorID,
		Items:       items,
	}
}

// DecideItemBody approves or rejects one adjustment item
type DecideItemBody struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
}

// RegisterThresholdBody registers or replaces the thresholds for a pair
type RegisterThresholdBody struct {
	ProductID    uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID  uuid.UUID        `json:"warehouse_id" binding:"required"`
	Threshold    decimal.Decimal  `json:"threshold" binding:"gte=0" swaggertype:"string" example:"10"`
	MaxThreshold *decimal.Decimal `json:"max_threshold" binding:"omitempty,gte=0" swaggertype:"string" example:"500"`
}

func (b RegisterThresholdBody) toRequest() appstock.RegisterThresholdRequest {
	return appstock.RegisterThresholdRequest{
		ProductID:    b.ProductID,
		WarehouseID:  b.WarehouseID,
		Threshold:    b.Threshold,
		MaxThreshold: b.MaxThreshold,
	}
}

// UpdateAlertBody patches an alert; omitted fields are left unchanged
type UpdateAlertBody struct {
	Status            *string          `json:"status" binding:"omitempty,oneof=ACTIVE RESOLVED IGNORED"`
	Threshold         *decimal.Decimal `json:"threshold" binding:"omitempty,gte=0" swaggertype:"string"`
	MaxThreshold      *decimal.Decimal `json:"max_threshold" binding:"omitempty,gte=0" swaggertype:"string"`
	ClearMaxThreshold bool             `json:"clear_max_threshold"`
}

func (b UpdateAlertBody) toRequest() appstock.UpdateAlertRequest {
	return appstock.UpdateAlertRequest{
		Status:            b.Status,
		Threshold:         b.Threshold,
		MaxThreshold:      b.MaxThreshold,
		ClearMaxThreshold: b.ClearMaxThreshold,
	}
}
