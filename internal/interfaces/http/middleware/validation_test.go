package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"gt=0"`
	MaxLevel  *decimal.Decimal `json:"max_level" binding:"omitempty,gte=0"`
	Status    string           `json:"status" binding:"omitempty,oneof=PENDING IN_TRANSIT"`
}

func bindProbe(t *testing.T, body string) (probeRequest, error) {
	t.Helper()
	SetupValidator()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req probeRequest
	err := c.ShouldBindJSON(&req)
	return req, err
}

func TestSetupValidator_AcceptsValidBody(t *testing.T) {
	id := uuid.New()
	req, err := bindProbe(t, `{"product_id":"`+id.String()+`","quantity":"2.5","max_level":"0","status":"PENDING"}`)

	require.NoError(t, err)
	assert.Equal(t, id, req.ProductID)
	assert.True(t, req.Quantity.Equal(decimal.RequireFromString("2.5")))
}

func TestValidationDetails(t *testing.T) {
	_, err := bindProbe(t, `{"product_id":"00000000-0000-0000-0000-000000000000","quantity":"0","max_level":"-1","status":"LOST"}`)
	require.Error(t, err)

	details := ValidationDetails(err)
	byField := map[string]string{}
	for _, d := range details {
		byField[d.Field] = d.Message
	}

	assert.Equal(t, "This field is required", byField["product_id"])
	assert.Equal(t, "Must be greater than 0", byField["quantity"])
	assert.Equal(t, "Must be greater than or equal to 0", byField["max_level"])
	assert.Equal(t, "Must be one of: PENDING IN_TRANSIT", byField["status"])
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	_, err := bindProbe(t, `{"quantity":`)
	require.Error(t, err)
	assert.Nil(t, ValidationDetails(err))
}
