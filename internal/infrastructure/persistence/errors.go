package persistence

import (
	"errors"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translateWriteError maps unique-constraint violations to the retryable
// shared.ErrDuplicateKey. Drivers without an error translator are matched on
// their message.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrDuplicateKey
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed") {
		return shared.ErrDuplicateKey
	}
	return err
}

// forUpdate adds SELECT ... FOR UPDATE. SQLite has no row locks; its single
// writer connection already serializes transactions.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
