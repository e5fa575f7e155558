package stock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunLock prevents two reconciliation passes from overlapping, across
// processes when backed by a shared store
type RunLock interface {
	// TryAcquire takes the lock for at most ttl and reports whether it was free
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const reconcileLockKey = "stock:reconcile:run"

// ErrReconcileInProgress is returned when another pass holds the run lock
var ErrReconcileInProgress = shared.NewConflictError("RECONCILE_IN_PROGRESS", "A stock alert reconciliation is already running")

// StockAlertConfig holds reconciler settings
type StockAlertConfig struct {
	// DefaultThreshold is used for alerts the reconciler creates on its own
	DefaultThreshold decimal.Decimal
	// Concurrency bounds how many pairs are reconciled at once
	Concurrency int
	// LockTTL bounds how long a crashed pass can hold the run lock
	LockTTL time.Duration
}

// DefaultStockAlertConfig returns the stock alert defaults
func DefaultStockAlertConfig() StockAlertConfig {
	return StockAlertConfig{
		DefaultThreshold: decimal.NewFromInt(10),
		Concurrency:      4,
		LockTTL:          5 * time.Minute,
	}
}

// StockAlertService keeps stock alerts in line with inventory levels
type StockAlertService struct {
	scope   TransactionScope
	ledger  stock.InventoryLedger
	catalog stock.Catalog
	lock    RunLock
	cfg     StockAlertConfig
	deps    serviceDeps
}

// NewStockAlertService creates a new StockAlertService. ledger is read
// outside any transaction to enumerate pairs; lock may be nil.
func NewStockAlertService(
	scope TransactionScope,
	ledger stock.InventoryLedger,
	catalog stock.Catalog,
	lock RunLock,
	cfg StockAlertConfig,
	opts ...Option,
) *StockAlertService {
	defaults := DefaultStockAlertConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.DefaultThreshold.IsNegative() {
		cfg.DefaultThreshold = defaults.DefaultThreshold
	}
	return &StockAlertService{
		scope:   scope,
		ledger:  ledger,
		catalog: catalog,
		lock:    lock,
		cfg:     cfg,
		deps:    newServiceDeps(opts),
	}
}

// GetByID retrieves an alert by ID
func (s *StockAlertService) GetByID(ctx context.Context, id uuid.UUID) (*StockAlertResponse, error) {
	var a *stock.StockAlert
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		a, err = repos.Alerts().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToStockAlertResponse(a)
	return &resp, nil
}

// List retrieves a page of alerts
func (s *StockAlertService) List(ctx context.Context, filter StockAlertListFilter) (*shared.Paginated[StockAlertResponse], error) {
	if filter.Status != "" && !stock.AlertStatus(filter.Status).IsValid() {
		return nil, shared.NewValidationError("INVALID_ALERT_STATUS", fmt.Sprintf("Unknown alert status %q", filter.Status))
	}
	if filter.Type != "" && !stock.AlertType(filter.Type).IsValid() {
		return nil, shared.NewValidationError("INVALID_ALERT_TYPE", fmt.Sprintf("Unknown alert type %q", filter.Type))
	}
	domainFilter := filter.toDomain()

	var (
		alerts []stock.StockAlert
		total  int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		alerts, total, err = repos.Alerts().FindAll(ctx, domainFilter)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]StockAlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, ToStockAlertResponse(&alerts[i]))
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// RegisterThreshold upserts the alert of a pair and evaluates it against the
// current level straight away
func (s *StockAlertService) RegisterThreshold(ctx context.Context, req RegisterThresholdRequest) (*StockAlertResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_alert", "register_threshold")
	defer span.End()

	if err := requireInCatalog(ctx, s.catalog, []uuid.UUID{req.WarehouseID}, []uuid.UUID{req.ProductID}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *stock.StockAlert
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.deps.now()
		qty, err := repos.Ledger().GetLevel(ctx, req.ProductID, req.WarehouseID)
		if err != nil {
			return fmt.Errorf("read stock level: %w", err)
		}

		alert, err := repos.Alerts().FindByPairForUpdate(ctx, req.ProductID, req.WarehouseID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			alert, err = stock.NewStockAlert(req.ProductID, req.WarehouseID, req.Threshold, req.MaxThreshold, qty, now)
			if err != nil {
				return err
			}
			if err := repos.Alerts().Create(ctx, alert); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := alert.SetThresholds(req.Threshold, req.MaxThreshold, now); err != nil {
				return err
			}
			alert.Recompute(qty, now)
			if err := repos.Alerts().Save(ctx, alert); err != nil {
				return err
			}
		}
		result = alert
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Stock threshold registered",
		zap.String("alert_id", result.ID.String()),
		zap.String("product_id", result.ProductID.String()),
		zap.String("warehouse_id", result.WarehouseID.String()),
		zap.String("threshold", result.Threshold.String()),
		zap.String("status", string(result.Status)),
	)
	s.deps.publish(ctx, result)

	resp := ToStockAlertResponse(result)
	return &resp, nil
}

// UpdateAlert applies a direct user override. A threshold change refreshes
// the level and recomputes the status, unless the caller sets IGNORED. An
// explicit status is stored verbatim.
func (s *StockAlertService) UpdateAlert(ctx context.Context, alertID uuid.UUID, req UpdateAlertRequest) (*StockAlertResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_alert", "update")
	defer span.End()

	var status *stock.AlertStatus
	if req.Status != nil {
		st := stock.AlertStatus(*req.Status)
		if !st.IsValid() {
			return nil, shared.NewValidationError("INVALID_ALERT_STATUS", fmt.Sprintf("Unknown alert status %q", *req.Status))
		}
		status = &st
	}

	var result *stock.StockAlert
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.deps.now()
		alert, err := repos.Alerts().FindByIDForUpdate(ctx, alertID)
		if err != nil {
			return err
		}

		threshold, maxThreshold := alert.Threshold, alert.MaxThreshold
		if req.Threshold != nil {
			threshold = *req.Threshold
		}
		if req.ClearMaxThreshold {
			maxThreshold = nil
		} else if req.MaxThreshold != nil {
			maxThreshold = req.MaxThreshold
		}

		if thresholdsChanged(alert, threshold, maxThreshold) {
			if err := alert.SetThresholds(threshold, maxThreshold, now); err != nil {
				return err
			}
			qty, err := repos.Ledger().GetLevel(ctx, alert.ProductID, alert.WarehouseID)
			if err != nil {
				return fmt.Errorf("read stock level: %w", err)
			}
			if status != nil && *status == stock.AlertStatusIgnored {
				alert.RefreshQuantity(qty, now)
			} else {
				alert.Recompute(qty, now)
			}
		}
		if status != nil {
			if err := alert.SetStatus(*status, now); err != nil {
				return err
			}
		}

		if err := repos.Alerts().Save(ctx, alert); err != nil {
			return err
		}
		result = alert
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.deps.logger.Info("Stock alert updated",
		zap.String("alert_id", result.ID.String()),
		zap.String("status", string(result.Status)),
		zap.String("threshold", result.Threshold.String()),
	)
	s.deps.publish(ctx, result)

	resp := ToStockAlertResponse(result)
	return &resp, nil
}

func thresholdsChanged(a *stock.StockAlert, threshold decimal.Decimal, maxThreshold *decimal.Decimal) bool {
	if !a.Threshold.Equal(threshold) {
		return true
	}
	switch {
	case a.MaxThreshold == nil && maxThreshold == nil:
		return false
	case a.MaxThreshold == nil || maxThreshold == nil:
		return true
	}
	return !a.MaxThreshold.Equal(*maxThreshold)
}

type reconcileCounters struct {
	created, updated, resolved, failed atomic.Int64
}

// ReconcileAll brings every alert in line with the current inventory levels.
// Each pair is processed in its own transaction by a bounded pool of
// workers; a failing pair is logged and skipped. Running it twice without
// inventory changes yields no further changes.
func (s *StockAlertService) ReconcileAll(ctx context.Context) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_alert", "reconcile_all")
	defer span.End()

	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx, reconcileLockKey, s.cfg.LockTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("acquire reconcile lock: %w", err)
		}
		if !acquired {
			return nil, ErrReconcileInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), reconcileLockKey); err != nil {
				s.deps.logger.Warn("Failed to release reconcile lock", zap.Error(err))
			}
		}()
	}

	result := &ReconcileResult{RunID: uuid.New(), StartedAt: s.deps.now()}
	levels, err := s.ledger.ListAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list inventory levels: %w", err)
	}
	result.Scanned = len(levels)

	var counters reconcileCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, level := range levels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			change, created, err := s.reconcilePair(gctx, level)
			if err != nil {
				counters.failed.Add(1)
				s.deps.logger.Error("Failed to reconcile stock alert",
					zap.String("product_id", level.ProductID.String()),
					zap.String("warehouse_id", level.WarehouseID.String()),
					zap.Error(err),
				)
				return nil
			}
			switch {
			case created:
				counters.created.Add(1)
			case change == stock.AlertActivated:
				counters.updated.Add(1)
			case change == stock.AlertResolved:
				counters.resolved.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("reconcile stock alerts: %w", err)
	}

	result.Created = int(counters.created.Load())
	result.Updated = int(counters.updated.Load())
	result.Resolved = int(counters.resolved.Load())
	result.Failed = int(counters.failed.Load())
	result.FinishedAt = s.deps.now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	telemetry.SetAttributes(span,
		"scanned", result.Scanned,
		"created", result.Created,
		"updated", result.Updated,
		"resolved", result.Resolved,
		"failed", result.Failed,
	)
	s.deps.metrics.RecordReconcile(ctx, result.Created, result.Updated, result.Resolved, result.Failed, result.Duration)
	s.deps.logger.Info("Stock alert reconciliation finished",
		zap.String("run_id", result.RunID.String()),
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("resolved", result.Resolved),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	s.deps.publishEvents(ctx, stock.NewStockLevelsReconciledEvent(result.RunID,
		result.Scanned, result.Created, result.Updated, result.Resolved, result.Failed, result.FinishedAt))

	return result, nil
}

// reconcilePair applies one inventory level to its alert in its own transaction
func (s *StockAlertService) reconcilePair(ctx context.Context, level stock.InventoryLevel) (stock.AlertChange, bool, error) {
	var (
		alert   *stock.StockAlert
		change  = stock.AlertUnchanged
		created bool
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.deps.now()
		existing, err := repos.Alerts().FindByPairForUpdate(ctx, level.ProductID, level.WarehouseID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		// the snapshot only lists pairs; the level is re-read in this transaction
		qty, lerr := repos.Ledger().GetLevel(ctx, level.ProductID, level.WarehouseID)
		if lerr != nil {
			return fmt.Errorf("read inventory level: %w", lerr)
		}
		if errors.Is(err, shared.ErrNotFound) {
			if qty.GreaterThan(s.cfg.DefaultThreshold) {
				return nil
			}
			a, err := stock.NewStockAlert(level.ProductID, level.WarehouseID, s.cfg.DefaultThreshold, nil, qty, now)
			if err != nil {
				return err
			}
			if err := repos.Alerts().Create(ctx, a); err != nil {
				return err
			}
			alert, created = a, true
			return nil
		}

		quantityChanged := !existing.CurrentQuantity.Equal(qty)
		change = existing.Observe(qty, now)
		if change == stock.AlertUnchanged && !quantityChanged {
			return nil
		}
		if err := repos.Alerts().Save(ctx, existing); err != nil {
			return err
		}
		alert = existing
		return nil
	})
	if err != nil {
		return stock.AlertUnchanged, false, err
	}
	if alert != nil {
		s.deps.publish(ctx, alert)
	}
	return change, created, nil
}
