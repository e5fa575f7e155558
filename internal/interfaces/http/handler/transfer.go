package handler

import (
	appstock "github.com/erp/backoffice/internal/application/stock"
	"github.com/gin-gonic/gin"
)

// TransferHandler handles stock transfer endpoints
type TransferHandler struct {
	BaseHandler
	service *appstock.TransferService
}

// NewTransferHandler creates a TransferHandler
func NewTransferHandler(service *appstock.TransferService) *TransferHandler {
	return &TransferHandler{service: service}
}

// TransferListQuery holds the query parameters of the list endpoint
type TransferListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=reference_code status initiated_at completed_at created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=PENDING IN_TRANSIT COMPLETED CANCELLED"`
}

// List godoc
// @ID           listStockTransfers
// @Summary      List stock transfers
// @Tags         transfers
// @Produce      json
// @Param        status query string false "Status" Enums(PENDING, IN_TRANSIT, COMPLETED, CANCELLED)
// @Param        warehouse_id query string false "Source or destination warehouse" format(uuid)
// @Param        from query string false "Initiated at or after"
// @Param        to query string false "Initiated at or before"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appstock.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock/transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	var q TransferListQuery
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

	page, err := h.service.List(c.Request.Context(), appstock.TransferListFilter{
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
// @ID           getStockTransfer
// @Summary      Get a stock transfer with its items
// @Tags         transfers
// @Produce      json
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      200 {object} APIResponse[appstock.TransferResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "transfer")
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
// @ID           getStockTransferByCode
// @Summary      Get a stock transfer by reference code
// @Tags         transfers
// @Produce      json
// @Param        code path string true "Reference code" example(TRF-2610-0001)
// @Success      200 {object} APIResponse[appstock.TransferResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/transfers/by-code/{code} [get]
func (h *TransferHandler) GetByReferenceCode(c *gin.Context) {
	resp, err := h.service.GetByReferenceCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create godoc
// @ID           createStockTransfer
// @Summary      Create a stock transfer
// @Description  Allocates the next reference code for the month and stores the transfer as PENDING
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        request body CreateTransferBody true "Transfer"
// @Success      201 {object} APIResponse[appstock.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}
	var body CreateTransferBody
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

// ReceiveItem godoc
// @ID           receiveStockTransferItem
// @Summary      Record the quantity received for a transfer item
// @Description  Completes the transfer once every item is fully received
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        item_id path string true "Transfer item ID" format(uuid)
// @Param        request body ReceiveItemBody true "Receipt"
// @Success      200 {object} APIResponse[appstock.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/transfers/items/{item_id}/receive [post]
func (h *TransferHandler) ReceiveItem(c *gin.Context) {
	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}
	itemID, ok := h.parseID(c, "item_id", "transfer item")
	if !ok {
		return
	}
	var body ReceiveItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.ReceiveItem(c.Request.Context(), itemID, appstock.ReceiveTransferItemRequest{
		ReceivedQuantity: *body.ReceivedQuantity,
		ActorID:          actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangeStatus godoc
// @ID           changeStockTransferStatus
// @Summary      Change a transfer's status explicitly
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        id path string true "Transfer ID" format(uuid)
// @Param        request body ChangeStatusBody true "Target status"
// @Success      200 {object} APIResponse[appstock.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/transfers/{id}/status [post]
func (h *TransferHandler) ChangeStatus(c *gin.Context) {
	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id", "transfer")
	if !ok {
		return
	}
	var body ChangeStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.ChangeStatus(c.Request.Context(), id, appstock.ChangeTransferStatusRequest{
		Status:  body.Status,
		ActorID: actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteStockTransfer
// @Summary      Delete a pending transfer
// @Tags         transfers
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /stock/transfers/{id} [delete]
func (h *TransferHandler) Delete(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}
	id, ok := h.parseID(c, "id", "transfer")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
