package dto

import (
	"net/http"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Generic error codes. Domain errors keep their own code (TRANSFER_NOT_FOUND,
// INSUFFICIENT_STOCK, ...) and only borrow the status of their kind.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeMissingActor        = "ERR_MISSING_ACTOR"
)

var kindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:  http.StatusBadRequest,
	shared.KindNotFound:    http.StatusNotFound,
	shared.KindConflict:    http.StatusConflict,
	shared.KindConcurrency: http.StatusConflict,
}

// StatusForKind maps a domain error kind to its HTTP status.
// Unknown kinds are treated as server errors.
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RetryAfterSeconds is advertised on concurrency conflicts, which the
// client may retry unchanged.
const RetryAfterSeconds = "1"
