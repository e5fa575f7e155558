package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StockMetrics records document and reconciliation activity of the stock services
type StockMetrics struct {
	codesAllocated      *Counter
	transfersCreated    *Counter
	transfersCompleted  *Counter
	adjustmentsCreated  *Counter
	adjustmentsComplete *Counter
	alertChanges        *Counter
	reconcileRuns       *Counter
	reconcileDuration   *Histogram
}

// NewStockMetrics registers the stock instruments on meter
func NewStockMetrics(meter metric.Meter) (*StockMetrics, error) {
	m := &StockMetrics{}
	counters := []struct {
		dst         **Counter
		name, descr string
	}{
		{&m.codesAllocated, "stock.reference_codes.allocated", "Reference codes handed out"},
		{&m.transfersCreated, "stock.transfers.created", "Transfers created"},
		{&m.transfersCompleted, "stock.transfers.completed", "Transfers that reached COMPLETED"},
		{&m.adjustmentsCreated, "stock.adjustments.created", "Adjustments created"},
		{&m.adjustmentsComplete, "stock.adjustments.completed", "Adjustments that reached COMPLETED"},
		{&m.alertChanges, "stock.alerts.reconciled", "Alert changes applied by reconciliation"},
		{&m.reconcileRuns, "stock.reconcile.runs", "Reconciliation passes"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.descr, "{count}")
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	h, err := NewHistogram(meter, HistogramOpts{
		Name:        "stock.reconcile.duration",
		Description: "Wall time of a reconciliation pass",
		Unit:        "s",
		Boundaries:  ReconcileDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	m.reconcileDuration = h
	return m, nil
}

func (m *StockMetrics) RecordReferenceCodeAllocated(ctx context.Context, prefix string) {
	m.codesAllocated.Inc(ctx, AttrPrefix.String(prefix))
}

func (m *StockMetrics) RecordTransferCreated(ctx context.Context) {
	m.transfersCreated.Inc(ctx)
}

func (m *StockMetrics) RecordTransferCompleted(ctx context.Context) {
	m.transfersCompleted.Inc(ctx)
}

func (m *StockMetrics) RecordAdjustmentCreated(ctx context.Context) {
	m.adjustmentsCreated.Inc(ctx)
}

func (m *StockMetrics) RecordAdjustmentCompleted(ctx context.Context) {
	m.adjustmentsComplete.Inc(ctx)
}

// RecordReconcile counts one pass and its per-outcome changes
func (m *StockMetrics) RecordReconcile(ctx context.Context, created, updated, resolved, failed int, elapsed time.Duration) {
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	m.reconcileRuns.Inc(ctx, AttrOutcome.String(outcome))
	m.reconcileDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome))
	for _, c := range []struct {
		value int
		label string
	}{
		{created, "created"},
		{updated, "updated"},
		{resolved, "resolved"},
		{failed, "failed"},
	} {
		if c.value > 0 {
			m.alertChanges.Add(ctx, int64(c.value), attribute.String("change", c.label))
		}
	}
}
