// Package scheduler runs background jobs on fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	appstock "github.com/erp/backoffice/internal/application/stock"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned for a non-positive interval
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// Reconciler is the part of the stock alert service the trigger drives
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*appstock.ReconcileResult, error)
}

// ReconcileTriggerConfig controls the reconciliation schedule
type ReconcileTriggerConfig struct {
	Interval time.Duration
	// RunOnStart triggers a pass immediately instead of waiting one interval
	RunOnStart bool
	// RunTimeout bounds a single pass; zero means the interval
	RunTimeout time.Duration
}

// ReconcileTrigger calls ReconcileAll on a ticker until stopped. A pass
// skipped because another replica holds the run lock is not an error.
type ReconcileTrigger struct {
	config     ReconcileTriggerConfig
	reconciler Reconciler
	logger     *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	runs    int
}

// NewReconcileTrigger validates cfg and builds an idle trigger
func NewReconcileTrigger(cfg ReconcileTriggerConfig, reconciler Reconciler, logger *zap.Logger) (*ReconcileTrigger, error) {
	if cfg.Interval <= 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.Interval
	}
	return &ReconcileTrigger{
		config:     cfg,
		reconciler: reconciler,
		logger:     logger.Named("reconcile_trigger"),
	}, nil
}

// Start launches the loop; calling it twice is a no-op
func (t *ReconcileTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	ctx, t.cancel = context.WithCancel(context.WithoutCancel(ctx))
	t.running = true

	t.wg.Add(1)
	go t.loop(ctx)

	t.logger.Info("Reconcile trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("run_on_start", t.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass, or for ctx
func (t *ReconcileTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.logger.Info("Reconcile trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runs reports how many passes were attempted
func (t *ReconcileTrigger) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func (t *ReconcileTrigger) loop(ctx context.Context) {
	defer t.wg.Done()
	if t.config.RunOnStart {
		t.runOnce(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runOnce(ctx)
		}
	}
}

func (t *ReconcileTrigger) runOnce(ctx context.Context) {
	t.mu.Lock()
	t.runs++
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, t.config.RunTimeout)
	defer cancel()

	result, err := t.reconciler.ReconcileAll(ctx)
	switch {
	case errors.Is(err, appstock.ErrReconcileInProgress):
		t.logger.Info("Reconcile pass skipped, another run holds the lock")
	case err != nil:
		t.logger.Error("Reconcile pass failed", zap.Error(err))
	default:
		t.logger.Debug("Reconcile pass done",
			zap.String("run_id", result.RunID.String()),
			zap.Int("failed", result.Failed),
		)
	}
}
