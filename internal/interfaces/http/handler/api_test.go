package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

// testAPI serves the stock handlers over an in-memory SQLite database
type testAPI struct {
	engine      *gin.Engine
	db          *gorm.DB
	actor       uuid.UUID
	productID   uuid.UUID
	source      uuid.UUID
	destination uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	database, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	db := database.DB
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	api := &testAPI{
		db:          db,
		actor:       uuid.New(),
		productID:   uuid.New(),
		source:      uuid.New(),
		destination: uuid.New(),
	}
	base := func(id uuid.UUID) models.BaseModel {
		return models.BaseModel{ID: id, CreatedAt: testNow, UpdatedAt: testNow}
	}
	require.NoError(t, db.Create(&models.ProductModel{BaseModel: base(api.productID), Code: "SKU-1", Name: "Widget"}).Error)
	require.NoError(t, db.Create(&models.WarehouseModel{BaseModel: base(api.source), Code: "WH-A", Name: "A"}).Error)
	require.NoError(t, db.Create(&models.WarehouseModel{BaseModel: base(api.destination), Code: "WH-B", Name: "B"}).Error)
	api.setLevel(t, api.source, 20)

	opts := []appstock.Option{appstock.WithClock(func() time.Time { return testNow })}
	scope := persistence.NewGormTransactionScope(db)
	catalog := persistence.NewGormCatalog(db)
	allocator := appstock.NewReferenceCodeAllocator(opts...)

	transfers := NewTransferHandler(appstock.NewTransferService(scope, catalog, allocator,
		appstock.TransferServiceConfig{PostMovements: true}, opts...))
	adjustments := NewAdjustmentHandler(appstock.NewAdjustmentService(scope, catalog, allocator,
		appstock.AdjustmentServiceConfig{PostMovements: true}, opts...))
	alerts := NewStockAlertHandler(appstock.NewStockAlertService(scope, persistence.NewGormInventoryLedger(db), catalog, nil,
		appstock.StockAlertConfig{DefaultThreshold: decimal.NewFromInt(10), Concurrency: 1, LockTTL: time.Minute}, opts...))

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Actor())
	stock := engine.Group("/api/v1/stock")

	tg := stock.Group("/transfers")
	tg.GET("", transfers.List)
	tg.POST("", transfers.Create)
	tg.GET("/by-code/:code", transfers.GetByReferenceCode)
	tg.POST("/items/:item_id/receive", transfers.ReceiveItem)
	tg.GET("/:id", transfers.GetByID)
	tg.POST("/:id/status", transfers.ChangeStatus)
	tg.DELETE("/:id", transfers.Delete)

	ag := stock.Group("/adjustments")
	ag.GET("", adjustments.List)
	ag.POST("", adjustments.Create)
	ag.GET("/by-code/:code", adjustments.GetByReferenceCode)
	ag.POST("/items/:item_id/decision", adjustments.DecideItem)
	ag.GET("/:id", adjustments.GetByID)
	ag.POST("/:id/cancel", adjustments.Cancel)

	lg := stock.Group("/alerts")
	lg.GET("", alerts.List)
	lg.POST("", alerts.RegisterThreshold)
	lg.POST("/reconcile", alerts.Reconcile)
	lg.GET("/:id", alerts.GetByID)
	lg.PATCH("/:id", alerts.Update)

	api.engine = engine
	return api
}

func (a *testAPI) setLevel(t *testing.T, warehouseID uuid.UUID, qty int64) {
	t.Helper()
	require.NoError(t, a.db.Save(&models.InventoryLevelModel{
		ProductID:   a.productID,
		WarehouseID: warehouseID,
		Quantity:    decimal.NewFromInt(qty),
		UpdatedAt:   testNow,
	}).Error)
}

func (a *testAPI) level(t *testing.T, warehouseID uuid.UUID) decimal.Decimal {
	t.Helper()
	qty, err := persistence.NewGormInventoryLedger(a.db).GetLevel(t.Context(), a.productID, warehouseID)
	require.NoError(t, err)
	return qty
}

// do sends body as JSON with the test actor unless actor is uuid.Nil
func (a *testAPI) do(t *testing.T, method, path string, body any, actor uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "req-test")
	if actor != uuid.Nil {
		req.Header.Set(middleware.ActorIDHeader, actor.String())
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func decodeMeta(t *testing.T, w *httptest.ResponseRecorder) dto.Meta {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	return *resp.Meta
}
