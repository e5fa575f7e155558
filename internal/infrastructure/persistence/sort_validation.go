package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a whitelisted ORDER BY expression
func orderClause(orderBy, orderDir string, allowed map[string]bool) string {
	return ValidateSortField(orderBy, allowed, "created_at") + " " + ValidateSortOrder(orderDir)
}

// TransferSortFields contains allowed sort fields for transfers
var TransferSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"reference_code": true,
	"status":         true,
	"initiated_at":   true,
	"completed_at":   true,
}

// AdjustmentSortFields contains allowed sort fields for adjustments
var AdjustmentSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"reference_code": true,
	"status":         true,
	"completed_at":   true,
}

// StockAlertSortFields contains allowed sort fields for stock alerts
var StockAlertSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"status":           true,
	"type":             true,
	"current_quantity": true,
	"last_checked_at":  true,
}
