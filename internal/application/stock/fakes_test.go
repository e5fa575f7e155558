package stock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memTransferRepo is an in-memory TransferRepository with version checks
type memTransferRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]stock.Transfer
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{data: make(map[uuid.UUID]stock.Transfer)}
}

func cloneTransfer(t stock.Transfer) stock.Transfer {
	t.Items = append([]stock.TransferItem(nil), t.Items...)
	t.ClearDomainEvents()
	return t
}

func (r *memTransferRepo) get(id uuid.UUID) (*stock.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return nil, shared.NewNotFoundError("TRANSFER_NOT_FOUND", "Transfer not found")
	}
	c := cloneTransfer(t)
	return &c, nil
}

func (r *memTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Transfer, error) {
	return r.get(id)
}

func (r *memTransferRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*stock.Transfer, error) {
	return r.get(id)
}

func (r *memTransferRepo) FindByItemIDForUpdate(_ context.Context, itemID uuid.UUID) (*stock.Transfer, error) {
	r.mu.Lock()
	var owner uuid.UUID
	for id, t := range r.data {
		for _, it := range t.Items {
			if it.ID == itemID {
				owner = id
			}
		}
	}
	r.mu.Unlock()
	if owner == uuid.Nil {
		return nil, shared.NewNotFoundError("TRANSFER_ITEM_NOT_FOUND", "Transfer item not found")
	}
	return r.get(owner)
}

func (r *memTransferRepo) FindByReferenceCode(_ context.Context, code string) (*stock.Transfer, error) {
	r.mu.Lock()
	var owner uuid.UUID
	for id, t := range r.data {
		if t.ReferenceCode == code {
			owner = id
		}
	}
	r.mu.Unlock()
	if owner == uuid.Nil {
		return nil, shared.NewNotFoundError("TRANSFER_NOT_FOUND", "Transfer not found")
	}
	return r.get(owner)
}

func (r *memTransferRepo) FindAll(_ context.Context, filter stock.TransferFilter) ([]stock.Transfer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stock.Transfer, 0, len(r.data))
	for _, t := range r.data {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, cloneTransfer(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferenceCode < out[j].ReferenceCode })
	return out, int64(len(out)), nil
}

func (r *memTransferRepo) Create(_ context.Context, t *stock.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.ReferenceCode == t.ReferenceCode {
			return shared.ErrDuplicateKey
		}
	}
	r.data[t.ID] = cloneTransfer(*t)
	return nil
}

func (r *memTransferRepo) Save(_ context.Context, t *stock.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.data[t.ID]
	if !ok || stored.Version != t.Version {
		return shared.ErrOptimisticLock
	}
	t.Version++
	r.data[t.ID] = cloneTransfer(*t)
	return nil
}

func (r *memTransferRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

func (r *memTransferRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.data {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// memAdjustmentRepo is an in-memory AdjustmentRepository
type memAdjustmentRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]stock.Adjustment
}

func newMemAdjustmentRepo() *memAdjustmentRepo {
	return &memAdjustmentRepo{data: make(map[uuid.UUID]stock.Adjustment)}
}

func cloneAdjustment(a stock.Adjustment) stock.Adjustment {
	a.Items = append([]stock.AdjustmentItem(nil), a.Items...)
	a.ClearDomainEvents()
	return a
}

func (r *memAdjustmentRepo) get(id uuid.UUID) (*stock.Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return nil, shared.NewNotFoundError("ADJUSTMENT_NOT_FOUND", "Adjustment not found")
	}
	c := cloneAdjustment(a)
	return &c, nil
}

func (r *memAdjustmentRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Adjustment, error) {
	return r.get(id)
}

func (r *memAdjustmentRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*stock.Adjustment, error) {
	return r.get(id)
}

func (r *memAdjustmentRepo) FindByItemIDForUpdate(_ context.Context, itemID uuid.UUID) (*stock.Adjustment, error) {
	r.mu.Lock()
	var owner uuid.UUID
	for id, a := range r.data {
		for _, it := range a.Items {
			if it.ID == itemID {
				owner = id
			}
		}
	}
	r.mu.Unlock()
	if owner == uuid.Nil {
		return nil, shared.NewNotFoundError("ADJUSTMENT_ITEM_NOT_FOUND", "Adjustment item not found")
	}
	return r.get(owner)
}

func (r *memAdjustmentRepo) FindByReferenceCode(_ context.Context, code string) (*stock.Adjustment, error) {
	r.mu.Lock()
	var owner uuid.UUID
	for id, a := range r.data {
		if a.ReferenceCode == code {
			owner = id
		}
	}
	r.mu.Unlock()
	if owner == uuid.Nil {
		return nil, shared.NewNotFoundError("ADJUSTMENT_NOT_FOUND", "Adjustment not found")
	}
	return r.get(owner)
}

func (r *memAdjustmentRepo) FindAll(_ context.Context, _ stock.AdjustmentFilter) ([]stock.Adjustment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stock.Adjustment, 0, len(r.data))
	for _, a := range r.data {
		out = append(out, cloneAdjustment(a))
	}
	return out, int64(len(out)), nil
}

func (r *memAdjustmentRepo) Create(_ context.Context, a *stock.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[a.ID] = cloneAdjustment(*a)
	return nil
}

func (r *memAdjustmentRepo) Save(_ context.Context, a *stock.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.data[a.ID]
	if !ok || stored.Version != a.Version {
		return shared.ErrOptimisticLock
	}
	a.Version++
	r.data[a.ID] = cloneAdjustment(*a)
	return nil
}

func (r *memAdjustmentRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.data {
		if !a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// memAlertRepo is an in-memory StockAlertRepository. failFor makes every
// lookup of the given product fail.
type memAlertRepo struct {
	mu      sync.Mutex
	data    map[uuid.UUID]stock.StockAlert
	failFor map[uuid.UUID]bool
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{data: make(map[uuid.UUID]stock.StockAlert), failFor: make(map[uuid.UUID]bool)}
}

func (r *memAlertRepo) clone(a stock.StockAlert) *stock.StockAlert {
	a.ClearDomainEvents()
	return &a
}

func (r *memAlertRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return nil, shared.NewNotFoundError("STOCK_ALERT_NOT_FOUND", "Stock alert not found")
	}
	return r.clone(a), nil
}

func (r *memAlertRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.StockAlert, error) {
	return r.FindByID(ctx, id)
}

func (r *memAlertRepo) FindByPairForUpdate(_ context.Context, productID, warehouseID uuid.UUID) (*stock.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[productID] {
		return nil, fmt.Errorf("connection reset")
	}
	for _, a := range r.data {
		if a.ProductID == productID && a.WarehouseID == warehouseID {
			return r.clone(a), nil
		}
	}
	return nil, shared.NewNotFoundError("STOCK_ALERT_NOT_FOUND", "Stock alert not found")
}

func (r *memAlertRepo) FindAll(_ context.Context, filter stock.StockAlertFilter) ([]stock.StockAlert, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stock.StockAlert, 0, len(r.data))
	for _, a := range r.data {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *r.clone(a))
	}
	return out, int64(len(out)), nil
}

func (r *memAlertRepo) Create(_ context.Context, a *stock.StockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.ProductID == a.ProductID && existing.WarehouseID == a.WarehouseID {
			return shared.ErrDuplicateKey
		}
	}
	r.data[a.ID] = *r.clone(*a)
	return nil
}

func (r *memAlertRepo) Save(_ context.Context, a *stock.StockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.data[a.ID]
	if !ok || stored.Version != a.Version {
		return shared.ErrOptimisticLock
	}
	a.Version++
	r.data[a.ID] = *r.clone(*a)
	return nil
}

func (r *memAlertRepo) byPair(productID, warehouseID uuid.UUID) *stock.StockAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if a.ProductID == productID && a.WarehouseID == warehouseID {
			return r.clone(a)
		}
	}
	return nil
}

// memSequenceRepo is an in-memory ReferenceSequenceRepository
type memSequenceRepo struct {
	mu       sync.Mutex
	counters map[stock.ReferencePeriod]int64
	err      error
}

func newMemSequenceRepo() *memSequenceRepo {
	return &memSequenceRepo{counters: make(map[stock.ReferencePeriod]int64)}
}

func (r *memSequenceRepo) Exists(_ context.Context, period stock.ReferencePeriod) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.counters[period]
	return ok, r.err
}

func (r *memSequenceRepo) Increment(_ context.Context, period stock.ReferencePeriod, seed int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	v, ok := r.counters[period]
	if !ok {
		v = seed
	}
	v++
	r.counters[period] = v
	return v, nil
}

type pairKey struct{ product, warehouse uuid.UUID }

// memLedger is an in-memory inventory ledger and stock poster
type memLedger struct {
	mu     sync.Mutex
	levels map[pairKey]decimal.Decimal
	posted []stock.StockMovement
}

func newMemLedger() *memLedger {
	return &memLedger{levels: make(map[pairKey]decimal.Decimal)}
}

func (l *memLedger) set(productID, warehouseID uuid.UUID, qty int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels[pairKey{productID, warehouseID}] = decimal.NewFromInt(qty)
}

func (l *memLedger) level(productID, warehouseID uuid.UUID) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[pairKey{productID, warehouseID}]
}

func (l *memLedger) GetLevel(_ context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return l.level(productID, warehouseID), nil
}

func (l *memLedger) ListAll(_ context.Context) ([]stock.InventoryLevel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]stock.InventoryLevel, 0, len(l.levels))
	for k, v := range l.levels {
		out = append(out, stock.InventoryLevel{ProductID: k.product, WarehouseID: k.warehouse, Quantity: v})
	}
	return out, nil
}

func (l *memLedger) Post(_ context.Context, movements ...stock.StockMovement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make(map[pairKey]decimal.Decimal, len(movements))
	for _, m := range movements {
		k := pairKey{m.ProductID, m.WarehouseID}
		cur, ok := next[k]
		if !ok {
			cur = l.levels[k]
		}
		cur = cur.Add(m.Delta)
		if cur.IsNegative() {
			return shared.ErrInsufficientStock
		}
		next[k] = cur
	}
	for k, v := range next {
		l.levels[k] = v
	}
	l.posted = append(l.posted, movements...)
	return nil
}

// memCatalog knows a fixed set of products and warehouses
type memCatalog struct {
	products   map[uuid.UUID]bool
	warehouses map[uuid.UUID]bool
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: make(map[uuid.UUID]bool), warehouses: make(map[uuid.UUID]bool)}
}

func (c *memCatalog) product() uuid.UUID {
	id := uuid.New()
	c.products[id] = true
	return id
}

func (c *memCatalog) warehouse() uuid.UUID {
	id := uuid.New()
	c.warehouses[id] = true
	return id
}

func (c *memCatalog) ProductExists(_ context.Context, id uuid.UUID) (bool, error) {
	return c.products[id], nil
}

func (c *memCatalog) WarehouseExists(_ context.Context, id uuid.UUID) (bool, error) {
	return c.warehouses[id], nil
}

// fixture wires every fake behind a NoOpTransactionScope
type fixture struct {
	transfers   *memTransferRepo
	adjustments *memAdjustmentRepo
	alerts      *memAlertRepo
	sequences   *memSequenceRepo
	ledger      *memLedger
	catalog     *memCatalog
	scope       *NoOpTransactionScope
	now         time.Time
}

func newFixture() *fixture {
	f := &fixture{
		transfers:   newMemTransferRepo(),
		adjustments: newMemAdjustmentRepo(),
		alerts:      newMemAlertRepo(),
		sequences:   newMemSequenceRepo(),
		ledger:      newMemLedger(),
		catalog:     newMemCatalog(),
		now:         time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC),
	}
	f.scope = NewNoOpTransactionScope(Repositories{
		TransferRepo:    f.transfers,
		AdjustmentRepo:  f.adjustments,
		AlertRepo:       f.alerts,
		SequenceRepo:    f.sequences,
		InventoryLedger: f.ledger,
		StockPoster:     f.ledger,
	})
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) options(extra ...Option) []Option {
	return append([]Option{WithClock(f.clock)}, extra...)
}
