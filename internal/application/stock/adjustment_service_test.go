package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adjustmentFixture struct {
	*fixture
	svc       *AdjustmentService
	publisher *MockEventPublisher
	warehouse uuid.UUID
	p1, p2    uuid.UUID
}

func newAdjustmentFixture(t *testing.T, post bool) *adjustmentFixture {
	t.Helper()
	f := newFixture()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	af := &adjustmentFixture{
		fixture:   f,
		publisher: publisher,
		warehouse: f.catalog.warehouse(),
		p1:        f.catalog.product(),
		p2:        f.catalog.product(),
	}
	opts := f.options(WithEventPublisher(publisher))
	af.svc = NewAdjustmentService(f.scope, f.catalog, NewReferenceCodeAllocator(opts...),
		AdjustmentServiceConfig{PostMovements: post}, opts...)
	return af
}

func (af *adjustmentFixture) create(t *testing.T, d1, d2 int64) *AdjustmentResponse {
	t.Helper()
	resp, err := af.svc.Create(context.Background(), CreateAdjustmentRequest{
		WarehouseID: af.warehouse,
		Reason:      "cycle count",
		InitiatedBy: uuid.New(),
		Items: []AdjustmentItemRequest{
			{ProductID: af.p1, Quantity: decimal.NewFromInt(d1), Reason: "damaged"},
			{ProductID: af.p2, Quantity: decimal.NewFromInt(d2), Reason: "found"},
		},
	})
	require.NoError(t, err)
	return resp
}

func (af *adjustmentFixture) decide(t *testing.T, itemID uuid.UUID, decision string) (*AdjustmentResponse, error) {
	t.Helper()
	return af.svc.DecideItem(context.Background(), itemID, DecideAdjustmentItemRequest{Decision: decision, ActorID: uuid.New()})
}

func TestAdjustmentService_Create_SnapshotsLevels(t *testing.T) {
	af := newAdjustmentFixture(t, false)
	af.ledger.set(af.p1, af.warehouse, 20)

	resp := af.create(t, -5, 3)

	assert.Equal(t, "ADJ-2610-0001", resp.ReferenceCode)
	assert.Equal(t, string(stock.AdjustmentStatusPending), resp.Status)
	assert.Equal(t, 2, resp.PendingItems)
	assert.True(t, resp.Items[0].CurrentStock.Equal(decimal.NewFromInt(20)))
	assert.True(t, resp.Items[0].NewStock.Equal(decimal.NewFromInt(15)))
	assert.True(t, resp.Items[1].CurrentStock.IsZero())
	assert.True(t, resp.Items[1].NewStock.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, []string{stock.EventTypeAdjustmentCreated}, af.publisher.eventTypes())
}

func TestAdjustmentService_Create_Rejects(t *testing.T) {
	af := newAdjustmentFixture(t, false)
	ctx := context.Background()

	_, err := af.svc.Create(ctx, CreateAdjustmentRequest{
		WarehouseID: af.warehouse,
		Reason:      "shrinkage",
		Items:       []AdjustmentItemRequest{{ProductID: af.p1, Quantity: decimal.NewFromInt(-1)}},
	})
	assert.True(t, errors.Is(err, shared.ErrValidation), "negative resulting stock")

	_, err = af.svc.Create(ctx, CreateAdjustmentRequest{
		WarehouseID: uuid.New(),
		Reason:      "shrinkage",
		Items:       []AdjustmentItemRequest{{ProductID: af.p1, Quantity: decimal.NewFromInt(1)}},
	})
	assert.True(t, errors.Is(err, shared.ErrNotFound), "unknown warehouse")

	_, err = af.svc.Create(ctx, CreateAdjustmentRequest{WarehouseID: af.warehouse, Reason: "shrinkage"})
	assert.True(t, errors.Is(err, shared.ErrValidation), "no items")

	assert.Empty(t, af.adjustments.data)
}

func TestAdjustmentService_DecisionsCompleteAdjustment(t *testing.T) {
	af := newAdjustmentFixture(t, true)
	af.ledger.set(af.p1, af.warehouse, 20)
	created := af.create(t, -5, 3)

	resp, err := af.decide(t, created.Items[0].ID, "APPROVED")
	require.NoError(t, err)
	assert.Equal(t, string(stock.AdjustmentStatusPending), resp.Status)
	assert.Equal(t, 1, resp.PendingItems)
	assert.Empty(t, af.ledger.posted)

	resp, err = af.decide(t, created.Items[1].ID, "REJECTED")
	require.NoError(t, err)
	assert.Equal(t, string(stock.AdjustmentStatusCompleted), resp.Status)
	require.NotNil(t, resp.CompletedAt)
	assert.Equal(t, 0, resp.PendingItems)

	assert.True(t, af.ledger.level(af.p1, af.warehouse).Equal(decimal.NewFromInt(15)))
	assert.True(t, af.ledger.level(af.p2, af.warehouse).IsZero())
	require.Len(t, af.ledger.posted, 1)
	assert.Equal(t, created.ID, af.ledger.posted[0].SourceID)

	assert.Contains(t, af.publisher.eventTypes(), stock.EventTypeAdjustmentCompleted)
}

func TestAdjustmentService_DecideItem_Errors(t *testing.T) {
	af := newAdjustmentFixture(t, false)
	created := af.create(t, 4, 3)

	_, err := af.decide(t, created.Items[0].ID, "MAYBE")
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = af.decide(t, uuid.New(), "APPROVED")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = af.decide(t, created.Items[0].ID, "APPROVED")
	require.NoError(t, err)
	_, err = af.decide(t, created.Items[0].ID, "REJECTED")
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestAdjustmentService_CompletionFailsWhenStockMovedAway(t *testing.T) {
	af := newAdjustmentFixture(t, true)
	af.ledger.set(af.p1, af.warehouse, 20)
	created := af.create(t, -15, 1)
	af.ledger.set(af.p1, af.warehouse, 10)

	_, err := af.decide(t, created.Items[0].ID, "APPROVED")
	require.NoError(t, err)
	_, err = af.decide(t, created.Items[1].ID, "APPROVED")
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ADJUSTMENT_STOCK_CHANGED", de.Code)
	assert.Equal(t, shared.KindConflict, de.Kind)

	// rejecting the last item still posts the approved delta
	_, err = af.decide(t, created.Items[1].ID, "REJECTED")
	assert.ErrorIs(t, err, ErrAdjustmentStockChanged)

	stored, err := af.svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(stock.AdjustmentStatusPending), stored.Status)
	assert.Equal(t, string(stock.AdjustmentItemStatusPending), stored.Items[1].Status)
	assert.True(t, af.ledger.level(af.p1, af.warehouse).Equal(decimal.NewFromInt(10)))

	cancelled, err := af.svc.Cancel(context.Background(), created.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, string(stock.AdjustmentStatusCancelled), cancelled.Status)
	assert.True(t, af.ledger.level(af.p1, af.warehouse).Equal(decimal.NewFromInt(10)))
}

func TestAdjustmentService_Cancel(t *testing.T) {
	af := newAdjustmentFixture(t, true)
	ctx := context.Background()
	af.ledger.set(af.p1, af.warehouse, 20)
	created := af.create(t, -5, 3)

	_, err := af.decide(t, created.Items[0].ID, "APPROVED")
	require.NoError(t, err)

	resp, err := af.svc.Cancel(ctx, created.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, string(stock.AdjustmentStatusCancelled), resp.Status)
	assert.NotNil(t, resp.CancelledAt)
	assert.Empty(t, af.ledger.posted)
	assert.True(t, af.ledger.level(af.p1, af.warehouse).Equal(decimal.NewFromInt(20)))

	_, err = af.svc.Cancel(ctx, created.ID, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrConflict))

	_, err = af.decide(t, created.Items[1].ID, "APPROVED")
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestAdjustmentService_Queries(t *testing.T) {
	af := newAdjustmentFixture(t, false)
	ctx := context.Background()
	created := af.create(t, 1, 2)

	got, err := af.svc.GetByReferenceCode(ctx, created.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	page, err := af.svc.List(ctx, AdjustmentListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = af.svc.List(ctx, AdjustmentListFilter{Status: "OPEN"})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
