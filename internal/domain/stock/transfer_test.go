package stock

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func newTestTransfer(t *testing.T, quantities ...int64) *Transfer {
	t.Helper()
	items := make([]TransferItemInput, 0, len(quantities))
	for _, q := range quantities {
		items = append(items, TransferItemInput{
			ProductID: uuid.New(),
			Quantity:  decimal.NewFromInt(q),
			UnitCost:  decimal.NewFromFloat(2.5),
		})
	}
	tr, err := NewTransfer("TRF-2610-0001", uuid.New(), uuid.New(), uuid.New(), items, "", testNow)
	require.NoError(t, err)
	return tr
}

func TestNewTransfer(t *testing.T) {
	w1, w2, p1 := uuid.New(), uuid.New(), uuid.New()
	valid := []TransferItemInput{{ProductID: p1, Quantity: decimal.NewFromInt(10)}}

	t.Run("creates pending transfer with pending items", func(t *testing.T) {
		tr, err := NewTransfer("TRF-2610-0001", w1, w2, uuid.New(), valid, "restock", testNow)
		require.NoError(t, err)

		assert.Equal(t, TransferStatusPending, tr.Status)
		assert.Equal(t, 1, tr.Version)
		assert.Nil(t, tr.CompletedAt)
		assert.Nil(t, tr.CompletedBy)
		require.Len(t, tr.Items, 1)
		assert.Equal(t, TransferItemStatusPending, tr.Items[0].Status)
		assert.Nil(t, tr.Items[0].ReceivedQuantity)
		assert.Equal(t, tr.ID, tr.Items[0].TransferID)
		assert.Equal(t, 1, tr.Items[0].Position)

		events := tr.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeTransferCreated, events[0].EventType())
	})

	cases := []struct {
		name   string
		source uuid.UUID
		dest   uuid.UUID
		items  []TransferItemInput
		code   string
	}{
		{"same warehouse", w1, w1, valid, "SAME_WAREHOUSE"},
		{"no items", w1, w2, nil, "NO_ITEMS"},
		{"zero quantity", w1, w2, []TransferItemInput{{ProductID: p1, Quantity: decimal.Zero}}, "INVALID_QUANTITY"},
		{"negative quantity", w1, w2, []TransferItemInput{{ProductID: p1, Quantity: decimal.NewFromInt(-1)}}, "INVALID_QUANTITY"},
		{"negative cost", w1, w2, []TransferItemInput{{ProductID: p1, Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(-1)}}, "INVALID_UNIT_COST"},
		{"duplicate product", w1, w2, []TransferItemInput{
			{ProductID: p1, Quantity: decimal.NewFromInt(1)},
			{ProductID: p1, Quantity: decimal.NewFromInt(2)},
		}, "DUPLICATE_PRODUCT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTransfer("TRF-2610-0001", tc.source, tc.dest, uuid.New(), tc.items, "", testNow)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tc.code, de.Code)
		})
	}
}

func TestTransfer_ReceiveItem_Scenario(t *testing.T) {
	tr := newTestTransfer(t, 10, 5)
	actor := uuid.New()
	p1, p2 := tr.Items[0].ID, tr.Items[1].ID

	require.NoError(t, tr.ReceiveItem(p1, decimal.NewFromInt(10), actor, testNow))
	assert.Equal(t, TransferItemStatusCompleted, tr.Items[0].Status)
	assert.Equal(t, TransferStatusPending, tr.Status)

	require.NoError(t, tr.ReceiveItem(p2, decimal.NewFromInt(3), actor, testNow))
	assert.Equal(t, TransferItemStatusPartial, tr.Items[1].Status)
	assert.Equal(t, TransferStatusInTransit, tr.Status)
	assert.Nil(t, tr.CompletedAt)

	later := testNow.Add(time.Hour)
	require.NoError(t, tr.ReceiveItem(p2, decimal.NewFromInt(5), actor, later))
	assert.Equal(t, TransferItemStatusCompleted, tr.Items[1].Status)
	assert.Equal(t, TransferStatusCompleted, tr.Status)
	require.NotNil(t, tr.CompletedAt)
	assert.Equal(t, later, *tr.CompletedAt)
	require.NotNil(t, tr.CompletedBy)
	assert.Equal(t, actor, *tr.CompletedBy)

	var types []string
	for _, e := range tr.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Contains(t, types, EventTypeTransferCompleted)
}

func TestTransfer_ReceiveItem_Rules(t *testing.T) {
	t.Run("zero keeps the item pending", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		require.NoError(t, tr.ReceiveItem(tr.Items[0].ID, decimal.Zero, uuid.Nil, testNow))
		assert.Equal(t, TransferItemStatusPending, tr.Items[0].Status)
		require.NotNil(t, tr.Items[0].ReceivedQuantity)
		assert.True(t, tr.Items[0].ReceivedQuantity.IsZero())
		assert.Equal(t, TransferStatusPending, tr.Status)
	})

	t.Run("out of range is rejected and leaves state unchanged", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		for _, qty := range []int64{-1, 5} {
			err := tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(qty), uuid.Nil, testNow)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		}
		assert.Nil(t, tr.Items[0].ReceivedQuantity)
		assert.Equal(t, TransferItemStatusPending, tr.Items[0].Status)
		assert.Len(t, tr.GetDomainEvents(), 1)
	})

	t.Run("unknown item", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		err := tr.ReceiveItem(uuid.New(), decimal.NewFromInt(1), uuid.Nil, testNow)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("terminal transfer rejects receipts", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		require.NoError(t, tr.ChangeStatus(TransferStatusCancelled, uuid.New(), testNow))
		err := tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(1), uuid.Nil, testNow)
		assert.True(t, errors.Is(err, shared.ErrConflict))
	})

	t.Run("out of range on a terminal transfer is still a validation error", func(t *testing.T) {
		for _, target := range []TransferStatus{TransferStatusCancelled, TransferStatusCompleted} {
			tr := newTestTransfer(t, 10)
			require.NoError(t, tr.ChangeStatus(target, uuid.New(), testNow))
			for _, qty := range []int64{-1, 99} {
				err := tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(qty), uuid.Nil, testNow)
				var de *shared.DomainError
				require.ErrorAs(t, err, &de, "%s %d", target, qty)
				assert.Equal(t, shared.KindValidation, de.Kind)
				assert.Equal(t, "INVALID_RECEIVED_QUANTITY", de.Code)
			}
		}
	})

	t.Run("completed at is kept once set", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		first := testNow.Add(-time.Hour)
		tr.CompletedAt = &first
		require.NoError(t, tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(4), uuid.Nil, testNow))
		assert.Equal(t, TransferStatusCompleted, tr.Status)
		assert.Equal(t, first, *tr.CompletedAt)
		assert.Nil(t, tr.CompletedBy)
	})
}

func TestTransfer_ChangeStatus(t *testing.T) {
	actor := uuid.New()

	t.Run("in transit marks open items", func(t *testing.T) {
		tr := newTestTransfer(t, 4, 6)
		require.NoError(t, tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(4), actor, testNow))
		require.NoError(t, tr.ChangeStatus(TransferStatusInTransit, actor, testNow))
		assert.Equal(t, TransferStatusInTransit, tr.Status)
		assert.Equal(t, TransferItemStatusCompleted, tr.Items[0].Status)
		assert.Equal(t, TransferItemStatusInTransit, tr.Items[1].Status)
	})

	t.Run("completed fills missing receipts", func(t *testing.T) {
		tr := newTestTransfer(t, 4, 6)
		require.NoError(t, tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(2), actor, testNow))
		require.NoError(t, tr.ChangeStatus(TransferStatusCompleted, actor, testNow))

		assert.Equal(t, TransferStatusCompleted, tr.Status)
		require.NotNil(t, tr.CompletedAt)
		assert.Equal(t, actor, *tr.CompletedBy)
		// a recorded receipt is kept as is
		assert.True(t, tr.Items[0].Received().Equal(decimal.NewFromInt(2)))
		assert.Equal(t, TransferItemStatusPartial, tr.Items[0].Status)
		assert.True(t, tr.Items[1].Received().Equal(decimal.NewFromInt(6)))
		assert.Equal(t, TransferItemStatusCompleted, tr.Items[1].Status)
	})

	t.Run("cancelled forces every item", func(t *testing.T) {
		tr := newTestTransfer(t, 4, 6)
		require.NoError(t, tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(4), actor, testNow))
		require.NoError(t, tr.ChangeStatus(TransferStatusCancelled, actor, testNow))
		assert.Equal(t, TransferStatusCancelled, tr.Status)
		for _, item := range tr.Items {
			assert.Equal(t, TransferItemStatusCancelled, item.Status)
		}
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		err := tr.ChangeStatus(TransferStatus("LOST"), actor, testNow)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("disallowed transitions conflict", func(t *testing.T) {
		tr := newTestTransfer(t, 4)
		assert.True(t, errors.Is(tr.ChangeStatus(TransferStatusPending, actor, testNow), shared.ErrConflict))

		require.NoError(t, tr.ChangeStatus(TransferStatusCompleted, actor, testNow))
		for _, target := range []TransferStatus{TransferStatusPending, TransferStatusInTransit, TransferStatusCancelled, TransferStatusCompleted} {
			assert.True(t, errors.Is(tr.ChangeStatus(target, actor, testNow), shared.ErrConflict), target)
		}

		tr = newTestTransfer(t, 4)
		require.NoError(t, tr.ChangeStatus(TransferStatusInTransit, actor, testNow))
		assert.True(t, errors.Is(tr.ChangeStatus(TransferStatusInTransit, actor, testNow), shared.ErrConflict))
	})
}

func TestTransfer_EnsureDeletable(t *testing.T) {
	tr := newTestTransfer(t, 4)
	assert.NoError(t, tr.EnsureDeletable())

	require.NoError(t, tr.ChangeStatus(TransferStatusInTransit, uuid.Nil, testNow))
	assert.True(t, errors.Is(tr.EnsureDeletable(), shared.ErrConflict))
}

func TestTransfer_Movements(t *testing.T) {
	tr := newTestTransfer(t, 4, 6)
	require.NoError(t, tr.ReceiveItem(tr.Items[0].ID, decimal.NewFromInt(3), uuid.Nil, testNow))

	moves := tr.Movements()
	require.Len(t, moves, 2)
	assert.Equal(t, tr.SourceWarehouseID, moves[0].WarehouseID)
	assert.True(t, moves[0].Delta.Equal(decimal.NewFromInt(-3)))
	assert.Equal(t, tr.DestinationWarehouseID, moves[1].WarehouseID)
	assert.True(t, moves[1].Delta.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, tr.ReferenceCode, moves[1].Reference)
}

func TestTransfer_Totals(t *testing.T) {
	tr := newTestTransfer(t, 4, 6)
	assert.True(t, tr.TotalQuantity().Equal(decimal.NewFromInt(10)))
	assert.True(t, tr.TotalCost().Equal(decimal.NewFromInt(25)))
}

// Any sequence of receipts keeps every received quantity within bounds, and
// a transfer whose items are all completed is itself completed.
func TestTransfer_ReceiptProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "items")
		items := make([]TransferItemInput, n)
		for i := range items {
			items[i] = TransferItemInput{
				ProductID: uuid.New(),
				Quantity:  decimal.NewFromInt(int64(rapid.IntRange(1, 20).Draw(rt, "qty"))),
			}
		}
		tr, err := NewTransfer("TRF-2610-0001", uuid.New(), uuid.New(), uuid.New(), items, "", testNow)
		if err != nil {
			rt.Fatalf("new transfer: %v", err)
		}

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for s := 0; s < steps; s++ {
			idx := rapid.IntRange(0, n-1).Draw(rt, "item")
			qty := decimal.NewFromInt(int64(rapid.IntRange(-3, 25).Draw(rt, "received")))
			item := tr.Items[idx]
			before := item.ReceivedQuantity

			err := tr.ReceiveItem(item.ID, qty, uuid.New(), testNow)
			inRange := !qty.IsNegative() && qty.LessThanOrEqual(item.Quantity)
			switch {
			case tr.Status.IsTerminal() && err != nil:
				// receipts on a completed transfer are refused
			case !inRange:
				if !errors.Is(err, shared.ErrValidation) {
					rt.Fatalf("expected validation error for %s of %s, got %v", qty, item.Quantity, err)
				}
				if tr.Items[idx].ReceivedQuantity != before {
					rt.Fatalf("rejected receipt changed the item")
				}
			case err != nil:
				rt.Fatalf("unexpected error: %v", err)
			}

			for _, it := range tr.Items {
				if r := it.Received(); r.IsNegative() || r.GreaterThan(it.Quantity) {
					rt.Fatalf("received %s outside [0, %s]", r, it.Quantity)
				}
			}

			allCompleted := true
			for _, it := range tr.Items {
				allCompleted = allCompleted && it.Status == TransferItemStatusCompleted
			}
			if allCompleted && (tr.Status != TransferStatusCompleted || tr.CompletedAt == nil) {
				rt.Fatalf("all items completed but transfer is %s", tr.Status)
			}
		}
	})
}
