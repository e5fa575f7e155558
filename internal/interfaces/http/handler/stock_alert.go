package handler

import (
	"errors"

	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/gin-gonic/gin"
)

// StockAlertHandler handles stock alert endpoints
type StockAlertHandler struct {
	BaseHandler
	service *appstock.StockAlertService
}

// NewStockAlertHandler creates a StockAlertHandler
func NewStockAlertHandler(service *appstock.StockAlertService) *StockAlertHandler {
	return &StockAlertHandler{service: service}
}

// StockAlertListQuery holds the query parameters of the list endpoint
type StockAlertListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=status type current_quantity last_checked_at created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE RESOLVED IGNORED"`
	Type     string `form:"type" binding:"omitempty,oneof=LOW_STOCK OUT_OF_STOCK OVERSTOCK"`
}

// List godoc
// @ID           listStockAlerts
// @Summary      List stock alerts
// @Tags         alerts
// @Produce      json
// @Param        status query string false "Status" Enums(ACTIVE, RESOLVED, IGNORED)
// @Param        type query string false "Type" Enums(LOW_STOCK, OUT_OF_STOCK, OVERSTOCK)
// @Param        product_id query string false "Product" format(uuid)
// @Param        warehouse_id query string false "Warehouse" format(uuid)
// @Success      200 {object} APIResponse[[]appstock.StockAlertResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock/alerts [get]
func (h *StockAlertHandler) List(c *gin.Context) {
	var q StockAlertListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}
	productID, err := queryUUID(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}
	warehouseID, err := queryUUID(c, "warehouse_id")
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}

	page, err := h.service.List(c.Request.Context(), appstock.StockAlertListFilter{
		Page:        q.Page,
		PageSize:    q.PageSize,
		OrderBy:     q.OrderBy,
		OrderDir:    q.OrderDir,
		Status:      q.Status,
		Type:        q.Type,
		ProductID:   productID,
		WarehouseID: warehouseID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithPage(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// GetByID godoc
// @ID           getStockAlert
// @Summary      Get a stock alert
// @Tags         alerts
// @Produce      json
// @Param        id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[appstock.StockAlertResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/alerts/{id} [get]
func (h *StockAlertHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "alert")
	if !ok {
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterThreshold godoc
// @ID           registerStockAlertThreshold
// @Summary      Register thresholds for a product and warehouse
// @Description  Creates the pair's alert or replaces its thresholds, then re-evaluates it against current stock
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        request body RegisterThresholdBody true "Thresholds"
// @Success      200 {object} APIResponse[appstock.StockAlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /stock/alerts [post]
func (h *StockAlertHandler) RegisterThreshold(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}
	var body RegisterThresholdBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.RegisterThreshold(c.Request.Context(), body.toRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update godoc
// @ID           updateStockAlert
// @Summary      Update an alert's status or thresholds
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        id path string true "Alert ID" format(uuid)
// @Param        request body UpdateAlertBody true "Changes"
// @Success      200 {object} APIResponse[appstock.StockAlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/alerts/{id} [patch]
func (h *StockAlertHandler) Update(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}
	id, ok := h.parseID(c, "id", "alert")
	if !ok {
		return
	}
	var body UpdateAlertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.UpdateAlert(c.Request.Context(), id, body.toRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reconcile godoc
// @ID           reconcileStockAlerts
// @Summary      Reconcile every alert against current stock levels
// @Description  Runs synchronously; returns 409 when another reconcile run holds the lock
// @Tags         alerts
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Success      200 {object} APIResponse[appstock.ReconcileResult]
// @Failure      409 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /stock/alerts/reconcile [post]
func (h *StockAlertHandler) Reconcile(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}

	result, err := h.service.ReconcileAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, appstock.ErrReconcileInProgress) {
			c.Header("Retry-After", "30")
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
