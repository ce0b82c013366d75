package dto

import (
	"net/http"

	"github.com/erp/tuition/internal/domain/ledger"
)

// Transport level error codes. Business outcomes keep the codes the ledger reports.
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidCampus      = "INVALID_CAMPUS"
	ErrCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Shared domain codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeDuplicateRequest    = "DUPLICATE_REQUEST"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeInvalidCampus:      http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	// Allocation outcomes
	ledger.CodePreviousPending: http.StatusConflict,
	ledger.CodeExceedsCapacity: http.StatusUnprocessableEntity,
	ledger.CodeExceedsBalance:  http.StatusUnprocessableEntity,
	ledger.CodeNotFound:        http.StatusNotFound,
	ledger.CodeInconsistent:    http.StatusInternalServerError,

	// Input problems
	ledger.CodeNoBalance:         http.StatusBadRequest,
	ledger.CodeMissingData:       http.StatusBadRequest,
	ledger.CodeInvalidAmount:     http.StatusBadRequest,
	ledger.CodeInvalidMethod:     http.StatusBadRequest,
	ledger.CodeReferenceRequired: http.StatusBadRequest,

	ledger.CodeTransientFailure: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are treated as internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
