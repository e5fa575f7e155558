package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"go.uber.org/zap"
)

// AuditLogHandler writes every event with its JSON payload to the audit logger
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a wildcard handler logging under "audit"
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

func (h *AuditLogHandler) EventTypes() []string { return nil }

func (h *AuditLogHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	h.logger.Info(e.EventType(),
		zap.String("event_id", e.EventID().String()),
		zap.String("aggregate_type", e.AggregateType()),
		zap.String("aggregate_id", e.AggregateID().String()),
		zap.Time("occurred_at", e.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

// StockAlertNotifier reports alerts that are raised or cleared
type StockAlertNotifier struct {
	logger *zap.Logger
}

func NewStockAlertNotifier(logger *zap.Logger) *StockAlertNotifier {
	return &StockAlertNotifier{logger: logger.Named("stock_alerts")}
}

func (n *StockAlertNotifier) EventTypes() []string {
	return []string{stock.EventTypeStockAlertRaised, stock.EventTypeStockAlertResolved}
}

func (n *StockAlertNotifier) Handle(_ context.Context, e shared.DomainEvent) error {
	switch ev := e.(type) {
	case *stock.StockAlertRaisedEvent:
		n.logger.Warn("Stock alert raised",
			zap.String("alert_id", ev.AlertID.String()),
			zap.String("product_id", ev.ProductID.String()),
			zap.String("warehouse_id", ev.WarehouseID.String()),
			zap.String("alert_type", string(ev.AlertType)),
			zap.String("threshold", ev.Threshold.String()),
			zap.String("current_quantity", ev.CurrentQuantity.String()),
		)
	case *stock.StockAlertResolvedEvent:
		n.logger.Info("Stock alert resolved",
			zap.String("alert_id", ev.AlertID.String()),
			zap.String("product_id", ev.ProductID.String()),
			zap.String("warehouse_id", ev.WarehouseID.String()),
			zap.String("current_quantity", ev.CurrentQuantity.String()),
		)
	default:
		return fmt.Errorf("unexpected event %T", e)
	}
	return nil
}
