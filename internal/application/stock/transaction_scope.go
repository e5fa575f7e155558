package stock

import (
	"context"

	"github.com/erp/backoffice/internal/domain/stock"
)

// TransactionScope provides transactional access to the stock repositories.
// All repository operations performed inside fn are committed or rolled back
// together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes every store a stock operation may touch.
// All of them share the same underlying transaction.
//
// Transfers and Adjustments are the only writers of their item tables; the
// ledger and poster are the externally owned inventory levels.
type TransactionalRepositories interface {
	Transfers() stock.TransferRepository
	Adjustments() stock.AdjustmentRepository
	Alerts() stock.StockAlertRepository
	Sequences() stock.ReferenceSequenceRepository
	Ledger() stock.InventoryLedger
	Poster() stock.StockPoster
}

// Repositories is a plain set of repositories, used to build a
// NoOpTransactionScope.
type Repositories struct {
	TransferRepo    stock.TransferRepository
	AdjustmentRepo  stock.AdjustmentRepository
	AlertRepo       stock.StockAlertRepository
	SequenceRepo    stock.ReferenceSequenceRepository
	InventoryLedger stock.InventoryLedger
	StockPoster     stock.StockPoster
}

// NoOpTransactionScope runs the function without a real transaction.
// It is meant for tests and single-writer tools.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn directly.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Transfers() stock.TransferRepository          { return s.repos.TransferRepo }
func (s *NoOpTransactionScope) Adjustments() stock.AdjustmentRepository      { return s.repos.AdjustmentRepo }
func (s *NoOpTransactionScope) Alerts() stock.StockAlertRepository           { return s.repos.AlertRepo }
func (s *NoOpTransactionScope) Sequences() stock.ReferenceSequenceRepository { return s.repos.SequenceRepo }
func (s *NoOpTransactionScope) Ledger() stock.InventoryLedger                { return s.repos.InventoryLedger }
func (s *NoOpTransactionScope) Poster() stock.StockPoster                    { return s.repos.StockPoster }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
