package stock

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferService owns the transfer lifecycle: creation, item receipt,
// explicit status changes and deletion. Every operation runs as one
// transaction with the transfer row locked, so the derived status is always
// computed from the current set of items.
type TransferService struct {
	scope     TransactionScope
	catalog   stock.Catalog
	allocator *ReferenceCodeAllocator
	prefix    string
	post      bool
	deps      serviceDeps
}

// TransferServiceConfig holds transfer specific settings
type TransferServiceConfig struct {
	// ReferencePrefix is the code prefix, TRF when empty
	ReferencePrefix string
	// PostMovements applies the ledger movements of a completed transfer in
	// the completing transaction
	PostMovements bool
}

// NewTransferService creates a new TransferService
func NewTransferService(
	scope TransactionScope,
	catalog stock.Catalog,
	allocator *ReferenceCodeAllocator,
	cfg TransferServiceConfig,
	opts ...Option,
) *TransferService {
	prefix := cfg.ReferencePrefix
	if prefix == "" {
		prefix = stock.DefaultTransferPrefix
	}
	return &TransferService{
		scope:     scope,
		catalog:   catalog,
		allocator: allocator,
		prefix:    prefix,
		post:      cfg.PostMovements,
		deps:      newServiceDeps(opts),
	}
}

// ===================== Query Methods =====================

// GetByID retrieves a transfer by ID
func (s *TransferService) GetByID(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	var t *stock.Transfer
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		t, err = repos.Transfers().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransferResponse(t)
	return &resp, nil
}

// GetByReferenceCode retrieves a transfer by its reference code
func (s *TransferService) GetByReferenceCode(ctx context.Context, code string) (*TransferResponse, error) {
	if _, err := stock.ParseReferenceCode(code); err != nil {
		return nil, err
	}
	var t *stock.Transfer
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		t, err = repos.Transfers().FindByReferenceCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransferResponse(t)
	return &resp, nil
}

// List retrieves a page of transfers
func (s *TransferService) List(ctx context.Context, filter TransferListFilter) (*shared.Paginated[TransferResponse], error) {
	if filter.Status != "" && !stock.TransferStatus(filter.Status).IsValid() {
		return nil, shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown transfer status %q", filter.Status))
	}
	domainFilter := filter.toDomain()

	var (
		transfers []stock.Transfer
		total     int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		transfers, total, err = repos.Transfers().FindAll(ctx, domainFilter)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, ToTransferResponse(&transfers[i]))
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// ===================== Command Methods =====================

// Create validates the request, allocates a reference code and persists a
// pending transfer with its items in one transaction.
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_transfer", "create")
	defer span.End()

	items := req.inputs()
	if err := stock.ValidateTransferInput(req.SourceWarehouseID, req.DestinationWarehouseID, items); err != nil {
		return nil, err
	}
	products := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		products = append(products, it.ProductID)
	}
	if err := requireInCatalog(ctx, s.catalog, []uuid.UUID{req.SourceWarehouseID, req.DestinationWarehouseID}, products); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created *stock.Transfer
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		code, err := s.allocator.Allocate(ctx, repos.Sequences(), s.prefix, repos.Transfers().CountCreatedBetween)
		if err != nil {
			return err
		}
		t, err := stock.NewTransfer(code, req.SourceWarehouseID, req.DestinationWarehouseID, req.InitiatedBy, items, req.Notes, s.deps.now())
		if err != nil {
			return err
		}
		if err := repos.Transfers().Create(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, "transfer_id", created.ID.String(), "reference_code", created.ReferenceCode)
	s.deps.logger.Info("Transfer created",
		zap.String("transfer_id", created.ID.String()),
		zap.String("reference_code", created.ReferenceCode),
		zap.Int("items", len(created.Items)),
	)
	s.deps.metrics.RecordTransferCreated(ctx)
	s.deps.publish(ctx, created)

	resp := ToTransferResponse(created)
	return &resp, nil
}

// ReceiveItem records the received quantity of a transfer item and
// re-derives the transfer status, atomically.
func (s *TransferService) ReceiveItem(ctx context.Context, itemID uuid.UUID, req ReceiveTransferItemRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_transfer", "receive_item")
	defer span.End()

	if req.ReceivedQuantity.IsNegative() {
		return nil, shared.NewValidationError("INVALID_RECEIVED_QUANTITY", "Received quantity cannot be negative")
	}

	t, err := s.mutate(ctx, func(repos TransactionalRepositories) (*stock.Transfer, error) {
		return repos.Transfers().FindByItemIDForUpdate(ctx, itemID)
	}, func(t *stock.Transfer) error {
		return t.ReceiveItem(itemID, req.ReceivedQuantity, req.ActorID, s.deps.now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Transfer item received",
		zap.String("transfer_id", t.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("received_quantity", req.ReceivedQuantity.String()),
		zap.String("status", t.Status.String()),
	)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// ChangeStatus performs an explicit bulk status transition
func (s *TransferService) ChangeStatus(ctx context.Context, transferID uuid.UUID, req ChangeTransferStatusRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_transfer", "change_status")
	defer span.End()

	target := stock.TransferStatus(req.Status)
	if !target.IsValid() {
		return nil, shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown transfer status %q", req.Status))
	}

	t, err := s.mutate(ctx, func(repos TransactionalRepositories) (*stock.Transfer, error) {
		return repos.Transfers().FindByIDForUpdate(ctx, transferID)
	}, func(t *stock.Transfer) error {
		return t.ChangeStatus(target, req.ActorID, s.deps.now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Transfer status changed",
		zap.String("transfer_id", t.ID.String()),
		zap.String("reference_code", t.ReferenceCode),
		zap.String("status", t.Status.String()),
	)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// Delete removes a pending transfer and its items
func (s *TransferService) Delete(ctx context.Context, transferID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_transfer", "delete")
	defer span.End()

	var deleted *stock.Transfer
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.Transfers().FindByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := t.EnsureDeletable(); err != nil {
			return err
		}
		if err := repos.Transfers().Delete(ctx, t.ID); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.deps.logger.Info("Transfer deleted",
		zap.String("transfer_id", deleted.ID.String()),
		zap.String("reference_code", deleted.ReferenceCode),
	)
	s.deps.publishEvents(ctx, stock.NewTransferDeletedEvent(deleted, s.deps.now()))
	return nil
}

// mutate loads a transfer under lock, applies change, posts ledger movements
// if the change completed it, and saves, all in one transaction.
func (s *TransferService) mutate(
	ctx context.Context,
	load func(repos TransactionalRepositories) (*stock.Transfer, error),
	change func(t *stock.Transfer) error,
) (*stock.Transfer, error) {
	var result *stock.Transfer
	completed := false
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := load(repos)
		if err != nil {
			return err
		}
		wasCompleted := t.Status == stock.TransferStatusCompleted
		if err := change(t); err != nil {
			return err
		}
		completed = !wasCompleted && t.Status == stock.TransferStatusCompleted
		if completed && s.post {
			if err := repos.Poster().Post(ctx, t.Movements()...); err != nil {
				return fmt.Errorf("post movements of transfer %s: %w", t.ReferenceCode, err)
			}
		}
		if err := repos.Transfers().Save(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.deps.metrics.RecordTransferCompleted(ctx)
		s.deps.logger.Info("Transfer completed",
			zap.String("transfer_id", result.ID.String()),
			zap.String("reference_code", result.ReferenceCode),
			zap.String("received_quantity", receivedTotal(result).String()),
		)
	}
	s.deps.publish(ctx, result)
	return result, nil
}

func receivedTotal(t *stock.Transfer) decimal.Decimal {
	total := decimal.Zero
	for i := range t.Items {
		total = total.Add(t.Items[i].Received())
	}
	return total
}
