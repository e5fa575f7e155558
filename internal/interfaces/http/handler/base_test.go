package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetRequestID(t *testing.T) {
	t.Run("from context", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.RequestIDKey, "ctx-id")
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
		assert.Equal(t, "ctx-id", getRequestID(c))
	})

	t.Run("falls back to header", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/", "")
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
		assert.Equal(t, "header-id", getRequestID(c))
	})

	t.Run("empty when absent", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/", "")
		assert.Empty(t, getRequestID(c))
	})
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{
			name:   "validation",
			err:    shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive"),
			status: http.StatusBadRequest,
			code:   "INVALID_QUANTITY",
		},
		{
			name:   "not found wrapped",
			err:    fmt.Errorf("load transfer: %w", shared.NewNotFoundError("TRANSFER_NOT_FOUND", "Transfer not found")),
			status: http.StatusNotFound,
			code:   "TRANSFER_NOT_FOUND",
		},
		{
			name:   "conflict",
			err:    shared.NewConflictError("TRANSFER_CLOSED", "Transfer is completed"),
			status: http.StatusConflict,
			code:   "TRANSFER_CLOSED",
		},
		{
			name:       "concurrency asks the client to retry",
			err:        shared.NewConcurrencyError("REFERENCE_CODE_TAKEN", "Reference code already allocated"),
			status:     http.StatusConflict,
			code:       "REFERENCE_CODE_TAKEN",
			retryAfter: dto.RetryAfterSeconds,
		},
		{
			name:   "unknown error is hidden",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			code:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/", "")
			c.Set(middleware.RequestIDKey, "req-1")
			h := &BaseHandler{}

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			assert.NotContains(t, resp.Error.Message, "pq:")
			assert.Equal(t, tt.code, c.GetString(middleware.ErrorCodeKey))
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		(&BaseHandler{}).HandleError(c, nil)
		assert.False(t, c.Writer.Written())
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

type bindProbe struct {
	Name string `json:"name" binding:"required"`
}

func TestBaseHandler_BindingError(t *testing.T) {
	middleware.SetupValidator()

	t.Run("validation details", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{}`)
		var body bindProbe
		err := c.ShouldBindJSON(&body)
		require.Error(t, err)

		(&BaseHandler{}).BindingError(c, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "name", resp.Error.Details[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{"name":`)
		var body bindProbe
		err := c.ShouldBindJSON(&body)
		require.Error(t, err)

		(&BaseHandler{}).BindingError(c, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{"name":"`+strings.Repeat("x", 64)+`"}`)
		c.Request.Body = http.MaxBytesReader(w, c.Request.Body, 16)
		var body bindProbe
		err := c.ShouldBindJSON(&body)
		require.Error(t, err)

		(&BaseHandler{}).BindingError(c, err)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, decodeResponse(t, w).Error.Code)
	})
}

func TestBaseHandler_RequireActor(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodPost, "/", "")
	_, ok := h.requireActor(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeMissingActor, decodeResponse(t, w).Error.Code)

	actor := uuid.New()
	c, _ = newTestContext(http.MethodPost, "/", "")
	c.Set(middleware.ActorIDKey, actor)
	got, ok := h.requireActor(c)
	assert.True(t, ok)
	assert.Equal(t, actor, got)
}

func TestBaseHandler_SuccessWithPage(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")
	(&BaseHandler{}).SuccessWithPage(c, []string{"a", "b"}, 5, 1, 2, 3)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, dto.Meta{Total: 5, Page: 1, PageSize: 2, TotalPages: 3}, *resp.Meta)
}

func TestQueryTimeRange(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantFrom *time.Time
		wantTo   *time.Time
		wantErr  bool
	}{
		{name: "empty"},
		{
			name:     "dates cover whole days",
			query:    "from=2026-10-01&to=2026-10-02",
			wantFrom: ptrTime(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)),
			wantTo:   ptrTime(time.Date(2026, 10, 2, 23, 59, 59, 999999999, time.UTC)),
		},
		{
			name:     "rfc3339 is kept",
			query:    "from=2026-10-01T08:30:00Z",
			wantFrom: ptrTime(time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)),
		},
		{name: "garbage", query: "from=yesterday", wantErr: true},
		{name: "inverted", query: "from=2026-10-02&to=2026-10-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/?"+tt.query, "")
			from, to, err := queryTimeRange(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assertSameTime(t, tt.wantFrom, from)
			assertSameTime(t, tt.wantTo, to)
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, got)
}
