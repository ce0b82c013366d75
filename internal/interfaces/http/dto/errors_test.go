package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ledger.CodePreviousPending, http.StatusConflict},
		{ledger.CodeExceedsCapacity, http.StatusUnprocessableEntity},
		{ledger.CodeExceedsBalance, http.StatusUnprocessableEntity},
		{ledger.CodeNotFound, http.StatusNotFound},
		{ledger.CodeInconsistent, http.StatusInternalServerError},
		{ledger.CodeNoBalance, http.StatusBadRequest},
		{ledger.CodeMissingData, http.StatusBadRequest},
		{ledger.CodeInvalidAmount, http.StatusBadRequest},
		{ledger.CodeInvalidMethod, http.StatusBadRequest},
		{ledger.CodeReferenceRequired, http.StatusBadRequest},
		{ledger.CodeTransientFailure, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidCampus, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestSharedErrorCodesAreMapped(t *testing.T) {
	for _, err := range []*shared.DomainError{
		shared.ErrNotFound,
		shared.ErrInvalidInput,
		shared.ErrConcurrencyConflict,
		shared.ErrForbidden,
		shared.ErrInvalidState,
		shared.ErrDuplicateRequest,
	} {
		_, ok := ErrorCodeHTTPStatus[err.Code]
		assert.True(t, ok, "no status for %s", err.Code)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ledger.CodeExceedsBalance, "too much", "req-1")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ledger.CodeExceedsBalance, resp.Error.Code)
	assert.Equal(t, "too much", resp.Error.Message)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Nil(t, resp.Data)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "installment_id", Message: "This field is required"}}

	resp := NewValidationErrorResponse("Request validation failed", "req-2", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "VALIDATION_ERROR",
			"message": "Request validation failed",
			"request_id": "req-2",
			"details": [{"field": "installment_id", "message": "This field is required"}]
		}
	}`, string(raw))
}

func TestErrorResponseWithData(t *testing.T) {
	resp := NewErrorResponse(ledger.CodePreviousPending, "pay earlier installments").
		WithData(map[string]int{"count": 2})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"data": {"count": 2},
		"error": {"code": "previas_pendientes", "message": "pay earlier installments"}
	}`, string(raw))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		pageSize   int
		totalPages int
	}{
		{"exact pages", 100, 50, 2},
		{"partial last page", 101, 50, 3},
		{"empty", 0, 50, 0},
		{"zero page size", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.totalPages, resp.Meta.TotalPages)
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	page := shared.NewPaginated[string](nil, 0, 1, 50)

	resp := NewPageResponse(&page)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": true,
		"data": [],
		"meta": {"total": 0, "page": 1, "page_size": 50, "total_pages": 0}
	}`, string(raw))
}
