package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm plugin
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in db.statement
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBName          string
}

type queryStartKey struct{}

// InstrumentDB registers otelgorm and tags statements slower than the
// threshold with db.slow_query on their span
func InstrumentDB(db *gorm.DB, cfg DBTracingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	after := slowQueryCallback(cfg.SlowQueryThresh)
	cb := db.Callback()
	hooks := []struct {
		callback interface {
			Register(name string, fn func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create"), "slow_query:before_create", markQueryStart},
		{cb.Query().Before("gorm:query"), "slow_query:before_query", markQueryStart},
		{cb.Update().Before("gorm:update"), "slow_query:before_update", markQueryStart},
		{cb.Delete().Before("gorm:delete"), "slow_query:before_delete", markQueryStart},
		{cb.Raw().Before("gorm:raw"), "slow_query:before_raw", markQueryStart},
		// otelgorm ends its span in otel:after:*, so tag it first
		{cb.Create().After("gorm:create").Before("otel:after:create"), "slow_query:after_create", after},
		{cb.Query().After("gorm:query").Before("otel:after:query"), "slow_query:after_query", after},
		{cb.Update().After("gorm:update").Before("otel:after:update"), "slow_query:after_update", after},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), "slow_query:after_delete", after},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), "slow_query:after_raw", after},
	}
	for _, h := range hooks {
		if err := h.callback.Register(h.name, h.fn); err != nil {
			return fmt.Errorf("register %s: %w", h.name, err)
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		if elapsed <= threshold {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.String("db.sql.table", db.Statement.Table),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

// RegisterDBPoolMetrics observes the connection pool on every collection
func RegisterDBPoolMetrics(meter metric.Meter, sqlDB *sql.DB) error {
	conns, err := meter.Int64ObservableGauge("db.pool.connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("failed to create pool gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return fmt.Errorf("failed to create wait counter: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBPoolState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBPoolState.String("idle")))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, waits)
	return err
}
