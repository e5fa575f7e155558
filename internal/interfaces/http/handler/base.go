package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// requireActor returns the acting user or writes a 400 and returns false
func (h *BaseHandler) requireActor(c *gin.Context) (uuid.UUID, bool) {
	if actorID, ok := middleware.GetActorID(c); ok {
		return actorID, true
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeMissingActor, "X-User-ID header is required")
	return uuid.Nil, false
}

// parseID reads a UUID path parameter or writes a 400 and returns false
func (h *BaseHandler) parseID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.BadRequest(c, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// Success writes a 200 envelope
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithPage writes a 200 envelope for a page of results
func (h *BaseHandler) SuccessWithPage(c *gin.Context, items any, total int64, page, pageSize, totalPages int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(items, total, page, pageSize, totalPages))
}

// Created writes a 201 envelope
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted writes a 202 envelope
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent writes a bare 204
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error envelope with the given status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest writes a 400
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError writes a 500 without leaking the cause
func (h *BaseHandler) InternalError(c *gin.Context) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// BindingError reports a failed ShouldBind call: field errors become a
// validation envelope, anything else (malformed JSON, oversized body) a 400.
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.Set(middleware.ErrorCodeKey, dto.ErrCodeValidation)
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed",
			getRequestID(c),
			details,
		))
		return
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
}

// HandleError maps a service error to a response. Domain errors keep their
// code and get the status of their kind; anything else is logged and hidden.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.StatusForKind(domainErr.Kind)
		if domainErr.Kind == shared.KindConcurrency {
			c.Header("Retry-After", dto.RetryAfterSeconds)
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("Unhandled service error",
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	h.InternalError(c)
}

// queryUUID parses an optional UUID query parameter
func queryUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
