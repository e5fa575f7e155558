package stock

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestReferenceCodeAllocator_SequentialCodesAreUniqueAndGapless(t *testing.T) {
	f := newFixture()
	alloc := NewReferenceCodeAllocator(f.options()...)
	ctx := context.Background()

	seen := make(map[string]bool, 150)
	for i := 1; i <= 150; i++ {
		code, err := alloc.Allocate(ctx, f.sequences, "TRF", nil)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("TRF-2610-%04d", i), code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestReferenceCodeAllocator_SeedsMissingMonthOnce(t *testing.T) {
	f := newFixture()
	alloc := NewReferenceCodeAllocator(f.options()...)
	ctx := context.Background()

	calls := 0
	seed := func(_ context.Context, from, to time.Time) (int64, error) {
		calls++
		assert.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), from)
		assert.Equal(t, time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC), to)
		return 7, nil
	}

	code, err := alloc.Allocate(ctx, f.sequences, "TRF", seed)
	require.NoError(t, err)
	assert.Equal(t, "TRF-2610-0008", code)

	code, err = alloc.Allocate(ctx, f.sequences, "TRF", seed)
	require.NoError(t, err)
	assert.Equal(t, "TRF-2610-0009", code)
	assert.Equal(t, 1, calls)
}

func TestReferenceCodeAllocator_MonthRollover(t *testing.T) {
	f := newFixture()
	f.now = time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC)
	alloc := NewReferenceCodeAllocator(f.options()...)
	ctx := context.Background()

	code, err := alloc.Allocate(ctx, f.sequences, "ADJ", nil)
	require.NoError(t, err)
	assert.Equal(t, "ADJ-2612-0001", code)

	f.now = f.now.Add(2 * time.Minute)
	code, err = alloc.Allocate(ctx, f.sequences, "ADJ", nil)
	require.NoError(t, err)
	assert.Equal(t, "ADJ-2701-0001", code)
}

func TestReferenceCodeAllocator_PrefixesAreIndependent(t *testing.T) {
	f := newFixture()
	alloc := NewReferenceCodeAllocator(f.options()...)
	ctx := context.Background()

	trf, err := alloc.Allocate(ctx, f.sequences, "TRF", nil)
	require.NoError(t, err)
	adj, err := alloc.Allocate(ctx, f.sequences, "ADJ", nil)
	require.NoError(t, err)

	assert.Equal(t, "TRF-2610-0001", trf)
	assert.Equal(t, "ADJ-2610-0001", adj)
}

func TestReferenceCodeAllocator_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid prefix", func(t *testing.T) {
		f := newFixture()
		_, err := NewReferenceCodeAllocator(f.options()...).Allocate(ctx, f.sequences, "trf", nil)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Empty(t, f.sequences.counters)
	})

	t.Run("seed failure aborts allocation", func(t *testing.T) {
		f := newFixture()
		seed := func(context.Context, time.Time, time.Time) (int64, error) { return 0, errors.New("db down") }
		_, err := NewReferenceCodeAllocator(f.options()...).Allocate(ctx, f.sequences, "TRF", seed)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		assert.Empty(t, f.sequences.counters)
	})

	t.Run("counter failure is wrapped", func(t *testing.T) {
		f := newFixture()
		f.sequences.err = shared.ErrOptimisticLock
		_, err := NewReferenceCodeAllocator(f.options()...).Allocate(ctx, f.sequences, "TRF", nil)
		assert.True(t, shared.IsRetryable(err))
	})
}

func TestReferenceCodeAllocator_RecordsMetric(t *testing.T) {
	f := newFixture()
	metrics := new(MockMetricsRecorder)
	metrics.On("RecordReferenceCodeAllocated", mock.Anything, "TRF").Return().Twice()

	alloc := NewReferenceCodeAllocator(f.options(WithMetrics(metrics))...)
	for range 2 {
		_, err := alloc.Allocate(context.Background(), f.sequences, "TRF", nil)
		require.NoError(t, err)
	}
	metrics.AssertExpectations(t)
}

func TestReferenceCodeAllocator_CodesParseBack(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[A-Z][A-Z0-9]{1,7}`).Draw(t, "prefix")
		seed := rapid.Int64Range(0, 9000).Draw(t, "seed")
		n := rapid.IntRange(1, 20).Draw(t, "n")

		f := newFixture()
		alloc := NewReferenceCodeAllocator(f.options()...)
		seedFn := func(context.Context, time.Time, time.Time) (int64, error) { return seed, nil }

		seen := make(map[string]bool, n)
		for i := 1; i <= n; i++ {
			code, err := alloc.Allocate(context.Background(), f.sequences, prefix, seedFn)
			if err != nil {
				t.Fatalf("allocate: %v", err)
			}
			if seen[code] {
				t.Fatalf("duplicate code %s", code)
			}
			seen[code] = true

			parsed, err := stock.ParseReferenceCode(code)
			if err != nil {
				t.Fatalf("parse %s: %v", code, err)
			}
			if parsed.Prefix != prefix || parsed.Sequence != seed+int64(i) {
				t.Fatalf("code %s parsed to %+v", code, parsed)
			}
		}
	})
}
