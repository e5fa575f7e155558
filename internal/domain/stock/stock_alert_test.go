package stock

import (
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestEvaluateLevel(t *testing.T) {
	ceiling := dec(100)
	cases := []struct {
		qty      int64
		max      *decimal.Decimal
		breached bool
		typ      AlertType
	}{
		{3, nil, true, AlertTypeLowStock},
		{5, nil, true, AlertTypeLowStock},
		{0, nil, true, AlertTypeOutOfStock},
		{-2, nil, true, AlertTypeOutOfStock},
		{6, nil, false, AlertTypeLowStock},
		{101, nil, false, AlertTypeLowStock},
		{101, &ceiling, true, AlertTypeOverstock},
		{100, &ceiling, false, AlertTypeLowStock},
	}
	for _, tc := range cases {
		breached, typ := EvaluateLevel(dec(tc.qty), dec(5), tc.max)
		assert.Equal(t, tc.breached, breached, "qty %d", tc.qty)
		if tc.breached {
			assert.Equal(t, tc.typ, typ, "qty %d", tc.qty)
		}
	}
}

func TestNewStockAlert(t *testing.T) {
	a, err := NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(3), testNow)
	require.NoError(t, err)
	assert.Equal(t, AlertStatusActive, a.Status)
	assert.Equal(t, AlertTypeLowStock, a.Type)
	assert.True(t, a.CurrentQuantity.Equal(dec(3)))
	require.Len(t, a.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeStockAlertRaised, a.GetDomainEvents()[0].EventType())

	a, err = NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(8), testNow)
	require.NoError(t, err)
	assert.Equal(t, AlertStatusResolved, a.Status)
	assert.Empty(t, a.GetDomainEvents())

	_, err = NewStockAlert(uuid.New(), uuid.New(), dec(-1), nil, dec(8), testNow)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	bad := dec(4)
	_, err = NewStockAlert(uuid.New(), uuid.New(), dec(5), &bad, dec(8), testNow)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestStockAlert_Observe(t *testing.T) {
	t.Run("resolves when level rises", func(t *testing.T) {
		a, _ := NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(3), testNow)
		assert.Equal(t, AlertResolved, a.Observe(dec(8), testNow))
		assert.Equal(t, AlertStatusResolved, a.Status)
		assert.NotNil(t, a.ResolvedAt)
		assert.Equal(t, AlertUnchanged, a.Observe(dec(8), testNow))
	})

	t.Run("reactivates when level drops", func(t *testing.T) {
		a, _ := NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(8), testNow)
		assert.Equal(t, AlertActivated, a.Observe(dec(0), testNow))
		assert.Equal(t, AlertTypeOutOfStock, a.Type)
		assert.Nil(t, a.ResolvedAt)
		assert.Equal(t, AlertUnchanged, a.Observe(dec(2), testNow))
		assert.Equal(t, AlertTypeLowStock, a.Type)
	})

	t.Run("ignored is never cleared", func(t *testing.T) {
		a, _ := NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(3), testNow)
		require.NoError(t, a.SetStatus(AlertStatusIgnored, testNow))
		assert.Equal(t, AlertUnchanged, a.Observe(dec(50), testNow))
		assert.Equal(t, AlertUnchanged, a.Observe(dec(1), testNow))
		assert.Equal(t, AlertStatusIgnored, a.Status)
		assert.True(t, a.CurrentQuantity.Equal(dec(1)))
	})
}

func TestStockAlert_RecomputeOverridesIgnored(t *testing.T) {
	a, _ := NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(3), testNow)
	require.NoError(t, a.SetStatus(AlertStatusIgnored, testNow))
	a.Recompute(dec(3), testNow)
	assert.Equal(t, AlertStatusActive, a.Status)
}

func TestStockAlert_SetStatus(t *testing.T) {
	a, _ := NewStockAlert(uuid.New(), uuid.New(), dec(5), nil, dec(3), testNow)
	assert.True(t, errors.Is(a.SetStatus(AlertStatus("SNOOZED"), testNow), shared.ErrValidation))
	require.NoError(t, a.SetStatus(AlertStatusResolved, testNow))
	assert.Equal(t, AlertStatusResolved, a.Status)
}
