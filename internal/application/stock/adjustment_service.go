package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrAdjustmentStockChanged is returned when the approved deltas no longer fit
// the current level. Every later decision fails the same way, so the
// adjustment has to be cancelled and raised again.
var ErrAdjustmentStockChanged = shared.NewConflictError("ADJUSTMENT_STOCK_CHANGED",
	"Stock changed since the adjustment was created; cancel it and create a new one")

// AdjustmentService owns the adjustment approval workflow
type AdjustmentService struct {
	scope     TransactionScope
	catalog   stock.Catalog
	allocator *ReferenceCodeAllocator
	prefix    string
	post      bool
	deps      serviceDeps
}

// AdjustmentServiceConfig holds adjustment specific settings
type AdjustmentServiceConfig struct {
	// ReferencePrefix is the code prefix, ADJ when empty
	ReferencePrefix string
	// PostMovements applies approved deltas to the ledger when the
	// adjustment completes
	PostMovements bool
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(
	scope TransactionScope,
	catalog stock.Catalog,
	allocator *ReferenceCodeAllocator,
	cfg AdjustmentServiceConfig,
	opts ...Option,
) *AdjustmentService {
	prefix := cfg.ReferencePrefix
	if prefix == "" {
		prefix = stock.DefaultAdjustmentPrefix
	}
	return &AdjustmentService{
		scope:     scope,
		catalog:   catalog,
		allocator: allocator,
		prefix:    prefix,
		post:      cfg.PostMovements,
		deps:      newServiceDeps(opts),
	}
}

// GetByID retrieves an adjustment by ID
func (s *AdjustmentService) GetByID(ctx context.Context, id uuid.UUID) (*AdjustmentResponse, error) {
	var a *stock.Adjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		a, err = repos.Adjustments().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToAdjustmentResponse(a)
	return &resp, nil
}

// GetByReferenceCode retrieves an adjustment by its reference code
func (s *AdjustmentService) GetByReferenceCode(ctx context.Context, code string) (*AdjustmentResponse, error) {
	if _, err := stock.ParseReferenceCode(code); err != nil {
		return nil, err
	}
	var a *stock.Adjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		a, err = repos.Adjustments().FindByReferenceCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToAdjustmentResponse(a)
	return &resp, nil
}

// List retrieves a page of adjustments
func (s *AdjustmentService) List(ctx context.Context, filter AdjustmentListFilter) (*shared.Paginated[AdjustmentResponse], error) {
	if filter.Status != "" && !stock.AdjustmentStatus(filter.Status).IsValid() {
		return nil, shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown adjustment status %q", filter.Status))
	}
	domainFilter := filter.toDomain()

	var (
		adjustments []stock.Adjustment
		total       int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		adjustments, total, err = repos.Adjustments().FindAll(ctx, domainFilter)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]AdjustmentResponse, 0, len(adjustments))
	for i := range adjustments {
		items = append(items, ToAdjustmentResponse(&adjustments[i]))
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// Create snapshots the current stock of every item, allocates a reference
// code and persists a pending adjustment in one transaction.
func (s *AdjustmentService) Create(ctx context.Context, req CreateAdjustmentRequest) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_adjustment", "create")
	defer span.End()

	items := req.inputs()
	if err := stock.ValidateAdjustmentInput(req.WarehouseID, req.Reason, items); err != nil {
		return nil, err
	}
	products := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		products = append(products, it.ProductID)
	}
	if err := requireInCatalog(ctx, s.catalog, []uuid.UUID{req.WarehouseID}, products); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created *stock.Adjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		levels := make(map[uuid.UUID]decimal.Decimal, len(products))
		for _, productID := range products {
			qty, err := repos.Ledger().GetLevel(ctx, productID, req.WarehouseID)
			if err != nil {
				return fmt.Errorf("read stock level of product %s: %w", productID, err)
			}
			levels[productID] = qty
		}

		code, err := s.allocator.Allocate(ctx, repos.Sequences(), s.prefix, repos.Adjustments().CountCreatedBetween)
		if err != nil {
			return err
		}
		a, err := stock.NewAdjustment(code, req.WarehouseID, req.InitiatedBy, req.Reason, items, levels, s.deps.now())
		if err != nil {
			return err
		}
		if err := repos.Adjustments().Create(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Adjustment created",
		zap.String("adjustment_id", created.ID.String()),
		zap.String("reference_code", created.ReferenceCode),
		zap.Int("items", len(created.Items)),
	)
	s.deps.metrics.RecordAdjustmentCreated(ctx)
	s.deps.publish(ctx, created)

	resp := ToAdjustmentResponse(created)
	return &resp, nil
}

// DecideItem approves or rejects one item. When it was the last pending item
// the adjustment completes and, with posting enabled, every approved delta is
// applied to the ledger in the same transaction.
func (s *AdjustmentService) DecideItem(ctx context.Context, itemID uuid.UUID, req DecideAdjustmentItemRequest) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_adjustment", "decide_item")
	defer span.End()

	decision := stock.AdjustmentItemStatus(req.Decision)
	if !decision.IsDecision() {
		return nil, shared.NewValidationError("INVALID_DECISION",
			fmt.Sprintf("Decision must be %s or %s", stock.AdjustmentItemStatusApproved, stock.AdjustmentItemStatusRejected))
	}

	var result *stock.Adjustment
	completed := false
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		a, err := repos.Adjustments().FindByItemIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := a.DecideItem(itemID, decision, req.ActorID, s.deps.now()); err != nil {
			return err
		}
		completed = a.Status == stock.AdjustmentStatusCompleted
		if completed && s.post {
			if err := repos.Poster().Post(ctx, approvedMovements(a)...); err != nil {
				if errors.Is(err, shared.ErrInsufficientStock) {
					return fmt.Errorf("%w: %w", ErrAdjustmentStockChanged, err)
				}
				return fmt.Errorf("post movements of adjustment %s: %w", a.ReferenceCode, err)
			}
		}
		if err := repos.Adjustments().Save(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Adjustment item decided",
		zap.String("adjustment_id", result.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("decision", string(decision)),
		zap.Bool("completed", completed),
	)
	if completed {
		s.deps.metrics.RecordAdjustmentCompleted(ctx)
	}
	s.deps.publish(ctx, result)

	resp := ToAdjustmentResponse(result)
	return &resp, nil
}

// Cancel cancels a pending adjustment
func (s *AdjustmentService) Cancel(ctx context.Context, adjustmentID, actorID uuid.UUID) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_adjustment", "cancel")
	defer span.End()

	var result *stock.Adjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		a, err := repos.Adjustments().FindByIDForUpdate(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if err := a.Cancel(actorID, s.deps.now()); err != nil {
			return err
		}
		if err := repos.Adjustments().Save(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Adjustment cancelled",
		zap.String("adjustment_id", result.ID.String()),
		zap.String("reference_code", result.ReferenceCode),
	)
	s.deps.publish(ctx, result)

	resp := ToAdjustmentResponse(result)
	return &resp, nil
}

func approvedMovements(a *stock.Adjustment) []stock.StockMovement {
	movements := make([]stock.StockMovement, 0, len(a.Items))
	for i := range a.Items {
		if a.Items[i].Status == stock.AdjustmentItemStatusApproved {
			movements = append(movements, a.Movement(&a.Items[i]))
		}
	}
	return movements
}
