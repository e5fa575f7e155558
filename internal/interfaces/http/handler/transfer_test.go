package handler

import (
	"fmt"
	"net/http"
	"testing"

	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *testAPI) createTransfer(t *testing.T, qty int64) appstock.TransferResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/stock/transfers", CreateTransferBody{
		SourceWarehouseID:      a.source,
		DestinationWarehouseID: a.destination,
		Notes:                  "restock",
		Items: []TransferItemBody{{
			ProductID: a.productID,
			Quantity:  decimal.NewFromInt(qty),
			UnitCost:  decimal.NewFromFloat(2.5),
		}},
	}, a.actor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[appstock.TransferResponse](t, w)
}

func TestTransferHandler_Lifecycle(t *testing.T) {
	api := newTestAPI(t)

	created := api.createTransfer(t, 6)
	assert.Equal(t, stock.PeriodOf("TRF", testNow).Code(1), created.ReferenceCode)
	assert.Equal(t, string(stock.TransferStatusPending), created.Status)
	assert.Equal(t, api.actor, created.InitiatedBy)
	require.Len(t, created.Items, 1)

	w := api.do(t, http.MethodGet, "/api/v1/stock/transfers/by-code/"+created.ReferenceCode, nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodeData[appstock.TransferResponse](t, w).ID)

	itemPath := fmt.Sprintf("/api/v1/stock/transfers/items/%s/receive", created.Items[0].ID)

	w = api.do(t, http.MethodPost, itemPath, ReceiveItemBody{ReceivedQuantity: decPtr(2)}, api.actor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	partial := decodeData[appstock.TransferResponse](t, w)
	assert.Equal(t, string(stock.TransferStatusInTransit), partial.Status)
	assert.Equal(t, string(stock.TransferItemStatusPartial), partial.Items[0].Status)

	w = api.do(t, http.MethodPost, itemPath, ReceiveItemBody{ReceivedQuantity: decPtr(6)}, api.actor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decodeData[appstock.TransferResponse](t, w)
	assert.Equal(t, string(stock.TransferStatusCompleted), done.Status)
	require.NotNil(t, done.CompletedBy)
	assert.Equal(t, api.actor, *done.CompletedBy)

	assert.True(t, api.level(t, api.source).Equal(decimal.NewFromInt(14)))
	assert.True(t, api.level(t, api.destination).Equal(decimal.NewFromInt(6)))

	w = api.do(t, http.MethodPost, itemPath, ReceiveItemBody{ReceivedQuantity: decPtr(6)}, api.actor)
	assert.Equal(t, http.StatusConflict, w.Code, "a completed transfer accepts no receipts")

	w = api.do(t, http.MethodDelete, "/api/v1/stock/transfers/"+created.ID.String(), nil, api.actor)
	assert.Equal(t, http.StatusConflict, w.Code, "only pending transfers can be deleted")
}

func TestTransferHandler_ChangeStatusAndDelete(t *testing.T) {
	api := newTestAPI(t)
	first := api.createTransfer(t, 3)
	second := api.createTransfer(t, 4)
	assert.Equal(t, stock.PeriodOf("TRF", testNow).Code(2), second.ReferenceCode)

	statusPath := "/api/v1/stock/transfers/" + first.ID.String() + "/status"
	w := api.do(t, http.MethodPost, statusPath, ChangeStatusBody{Status: "CANCELLED"}, api.actor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decodeData[appstock.TransferResponse](t, w)
	assert.Equal(t, string(stock.TransferStatusCancelled), cancelled.Status)
	assert.Equal(t, string(stock.TransferItemStatusCancelled), cancelled.Items[0].Status)

	w = api.do(t, http.MethodPost, statusPath, ChangeStatusBody{Status: "IN_TRANSIT"}, api.actor)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/stock/transfers/"+second.ID.String(), nil, api.actor)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/stock/transfers/"+second.ID.String(), nil, uuid.Nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TRANSFER_NOT_FOUND", decodeError(t, w).Code)
}

func TestTransferHandler_List(t *testing.T) {
	api := newTestAPI(t)
	for range 3 {
		api.createTransfer(t, 1)
	}

	w := api.do(t, http.MethodGet, "/api/v1/stock/transfers?page_size=2&status=PENDING&warehouse_id="+api.destination.String(), nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items := decodeData[[]appstock.TransferResponse](t, w)
	assert.Len(t, items, 2)
	meta := decodeMeta(t, w)
	assert.EqualValues(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)

	w = api.do(t, http.MethodGet, "/api/v1/stock/transfers?status=COMPLETED", nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeData[[]appstock.TransferResponse](t, w))
}

func TestTransferHandler_RequestErrors(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		actor    uuid.UUID
		status   int
		code     string
		hasField string
	}{
		{
			name:   "missing actor",
			method: http.MethodPost,
			path:   "/api/v1/stock/transfers",
			body:   CreateTransferBody{},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeMissingActor,
		},
		{
			name:     "empty items",
			method:   http.MethodPost,
			path:     "/api/v1/stock/transfers",
			body:     CreateTransferBody{SourceWarehouseID: api.source, DestinationWarehouseID: api.destination},
			actor:    api.actor,
			status:   http.StatusBadRequest,
			code:     dto.ErrCodeValidation,
			hasField: "items",
		},
		{
			name:   "zero quantity",
			method: http.MethodPost,
			path:   "/api/v1/stock/transfers",
			body: CreateTransferBody{
				SourceWarehouseID:      api.source,
				DestinationWarehouseID: api.destination,
				Items:                  []TransferItemBody{{ProductID: api.productID}},
			},
			actor:    api.actor,
			status:   http.StatusBadRequest,
			code:     dto.ErrCodeValidation,
			hasField: "quantity",
		},
		{
			name:   "same warehouse",
			method: http.MethodPost,
			path:   "/api/v1/stock/transfers",
			body: CreateTransferBody{
				SourceWarehouseID:      api.source,
				DestinationWarehouseID: api.source,
				Items:                  []TransferItemBody{{ProductID: api.productID, Quantity: decimal.NewFromInt(1)}},
			},
			actor:  api.actor,
			status: http.StatusBadRequest,
			code:   "SAME_WAREHOUSE",
		},
		{
			name:   "unknown warehouse",
			method: http.MethodPost,
			path:   "/api/v1/stock/transfers",
			body: CreateTransferBody{
				SourceWarehouseID:      api.source,
				DestinationWarehouseID: uuid.New(),
				Items:                  []TransferItemBody{{ProductID: api.productID, Quantity: decimal.NewFromInt(1)}},
			},
			actor:  api.actor,
			status: http.StatusNotFound,
			code:   "WAREHOUSE_NOT_FOUND",
		},
		{
			name:   "malformed id",
			method: http.MethodGet,
			path:   "/api/v1/stock/transfers/not-a-uuid",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeBadRequest,
		},
		{
			name:   "unknown status filter",
			method: http.MethodGet,
			path:   "/api/v1/stock/transfers?status=LOST",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeValidation,
		},
		{
			name:   "inverted date range",
			method: http.MethodGet,
			path:   "/api/v1/stock/transfers?from=2026-10-16&to=2026-10-01",
			status: http.StatusBadRequest,
			code:   dto.ErrCodeBadRequest,
		},
		{
			name:   "unknown item",
			method: http.MethodPost,
			path:   "/api/v1/stock/transfers/items/" + uuid.NewString() + "/receive",
			body:   ReceiveItemBody{ReceivedQuantity: decPtr(1)},
			actor:  api.actor,
			status: http.StatusNotFound,
			code:   "TRANSFER_ITEM_NOT_FOUND",
		},
		{
			name:     "receipt without quantity",
			method:   http.MethodPost,
			path:     "/api/v1/stock/transfers/items/" + uuid.NewString() + "/receive",
			body:     map[string]any{},
			actor:    api.actor,
			status:   http.StatusBadRequest,
			code:     dto.ErrCodeValidation,
			hasField: "received_quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.body, tt.actor)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			info := decodeError(t, w)
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, "req-test", info.RequestID)
			if tt.hasField != "" {
				fields := make([]string, 0, len(info.Details))
				for _, d := range info.Details {
					fields = append(fields, d.Field)
				}
				assert.Contains(t, fields, tt.hasField)
			}
		})
	}
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
