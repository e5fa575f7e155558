package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		expected int
	}{
		{shared.KindValidation, http.StatusBadRequest},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindConcurrency, http.StatusConflict},
		{"", http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForKind(tt.kind))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("TRANSFER_NOT_FOUND", "Transfer not found", "req-123")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TRANSFER_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.Nil(t, resp.Data)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "quantity", Message: "Must be greater than 0"}}

	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestResponse_JSONShape(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(ErrCodeBadRequest, "bad"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")
	assert.NotContains(t, decoded, "meta")

	errObj := decoded["error"].(map[string]any)
	assert.NotContains(t, errObj, "request_id")
	assert.NotContains(t, errObj, "details")

	raw, err = json.Marshal(NewSuccessResponseWithMeta([]int{1}, 41, 2, 20, 3))
	require.NoError(t, err)
	var paged Response
	require.NoError(t, json.Unmarshal(raw, &paged))
	require.NotNil(t, paged.Meta)
	assert.Equal(t, 3, paged.Meta.TotalPages)
}
