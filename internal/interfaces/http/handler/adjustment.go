package handler

import (
	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/gin-gonic/gin"
)

// AdjustmentHandler handles stock adjustment endpoints
type AdjustmentHandler struct {
	BaseHandler
	service *appstock.AdjustmentService
}

// NewAdjustmentHandler creates an AdjustmentHandler
func NewAdjustmentHandler(service *appstock.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{service: service}
}

// AdjustmentListQuery holds the query parameters of the list endpoint
type AdjustmentListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=reference_code status completed_at created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
}

// List godoc
// @ID           listStockAdjustments
// @Summary      List stock adjustments
// @Tags         adjustments
// @Produce      json
// @Param        status query string false "Status" Enums(PENDING, COMPLETED, CANCELLED)
// @Param        warehouse_id query string false "Warehouse" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appstock.AdjustmentResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock/adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	var q AdjustmentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}
	warehouseID, err := queryUUID(c, "warehouse_id")
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	from, to, err := queryTimeRange(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.service.List(c.Request.Context(), appstock.AdjustmentListFilter{
		Page:        q.Page,
		PageSize:    q.PageSize,
		OrderBy:     q.OrderBy,
		OrderDir:    q.OrderDir,
		Search:      q.Search,
		Status:      q.Status,
		WarehouseID: warehouseID,
		From:        from,
		To:          to,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithPage(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// GetByID godoc
// @ID           getStockAdjustment
// @Summary      Get a stock adjustment with its items
// @Tags         adjustments
// @Produce      json
// @Param        id path string true "Adjustment ID" format(uuid)
// @Success      200 {object} APIResponse[appstock.AdjustmentResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/adjustments/{id} [get]
func (h *AdjustmentHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "adjustment")
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

// GetByReferenceCode godoc
// @ID           getStockAdjustmentByCode
// @Summary      Get a stock adjustment by reference code
// @Tags         adjustments
// @Produce      json
// @Param        code path string true "Reference code" example(ADJ-2610-0001)
// @Success      200 {object} APIResponse[appstock.AdjustmentResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/adjustments/by-code/{code} [get]
func (h *AdjustmentHandler) GetByReferenceCode(c *gin.Context) {
	resp, err := h.service.GetByReferenceCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create godoc
// @ID           createStockAdjustment
// @Summary      Create a stock adjustment
// @Description  Snapshots the current stock of each line; items then await a decision
// @Tags         adjustments
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        request body CreateAdjustmentBody true "Adjustment"
// @Success      201 {object} APIResponse[appstock.AdjustmentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /stock/adjustments [post]
func (h *AdjustmentHandler) Create(c *gin.Context) {
	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}
	var body CreateAdjustmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), body.toRequest(actorID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// DecideItem godoc
// @ID           decideStockAdjustmentItem
// @Summary      Approve or reject an adjustment item
// @Description  The adjustment completes once no item is pending
// @Tags         adjustments
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        item_id path string true "Adjustment item ID" format(uuid)
// @Param        request body DecideItemBody true "Decision"
// @Success      200 {object} APIResponse[appstock.AdjustmentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/adjustments/items/{item_id}/decision [post]
func (h *AdjustmentHandler) DecideItem(c *gin.Context) {
	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}
	itemID, ok := h.parseID(c, "item_id", "adjustment item")
	if !ok {
		return
	}
	var body DecideItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.DecideItem(c.Request.Context(), itemID, appstock.DecideAdjustmentItemRequest{
		Decision: body.Decision,
		ActorID:  actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel godoc
// @ID           cancelStockAdjustment
// @Summary      Cancel a pending adjustment
// @Tags         adjustments
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        id path string true "Adjustment ID" format(uuid)
// @Success      200 {object} APIResponse[appstock.AdjustmentResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/adjustments/{id}/cancel [post]
func (h *AdjustmentHandler) Cancel(c *gin.Context) {
	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id", "adjustment")
	if !ok {
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
