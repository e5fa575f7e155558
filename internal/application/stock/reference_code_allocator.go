package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/stock"
	"go.uber.org/zap"
)

// SeedFunc counts the records of a prefix's document type created in
// [from, to). It seeds a month whose counter row does not exist yet.
type SeedFunc func(ctx context.Context, from, to time.Time) (int64, error)

// ReferenceCodeAllocator stamps documents with PREFIX-YYMM-NNNN codes.
//
// Sequence numbers come from a counter row per (prefix, year, month) that is
// incremented atomically inside the caller's transaction, so two concurrent
// creations can never read the same value and a failed creation rolls its
// increment back with it.
type ReferenceCodeAllocator struct {
	deps serviceDeps
}

// NewReferenceCodeAllocator creates a ReferenceCodeAllocator
func NewReferenceCodeAllocator(opts ...Option) *ReferenceCodeAllocator {
	return &ReferenceCodeAllocator{deps: newServiceDeps(opts)}
}

// Allocate returns the next code for prefix in the current month. It must be
// called inside the transaction that persists the document.
func (a *ReferenceCodeAllocator) Allocate(ctx context.Context, seqs stock.ReferenceSequenceRepository, prefix string, seed SeedFunc) (string, error) {
	if err := stock.ValidatePrefix(prefix); err != nil {
		return "", err
	}

	period := stock.PeriodOf(prefix, a.deps.now())
	exists, err := seqs.Exists(ctx, period)
	if err != nil {
		return "", fmt.Errorf("allocate %s reference code: %w", prefix, err)
	}

	var base int64
	if !exists && seed != nil {
		from, to := period.Bounds()
		if base, err = seed(ctx, from, to); err != nil {
			return "", fmt.Errorf("allocate %s reference code: seed: %w", prefix, err)
		}
	}

	next, err := seqs.Increment(ctx, period, base)
	if err != nil {
		return "", fmt.Errorf("allocate %s reference code: %w", prefix, err)
	}

	code := period.Code(next)
	a.deps.metrics.RecordReferenceCodeAllocated(ctx, prefix)
	a.deps.logger.Debug("Allocated reference code",
		zap.String("prefix", prefix),
		zap.String("reference_code", code),
		zap.Bool("seeded", !exists),
	)
	return code, nil
}
